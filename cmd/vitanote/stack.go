package main

import (
    "context"
    "io"
    "time"

    redis "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog/log"

    "github.com/local/vitanote/internal/analyzer"
    cfgpkg "github.com/local/vitanote/internal/config"
    "github.com/local/vitanote/internal/dispatcher"
    "github.com/local/vitanote/internal/extract"
    "github.com/local/vitanote/internal/imagerender"
    "github.com/local/vitanote/internal/limiter"
    "github.com/local/vitanote/internal/ocr"
    "github.com/local/vitanote/internal/orchestrator"
    "github.com/local/vitanote/internal/report"
    "github.com/local/vitanote/internal/statuscheck"
    "github.com/local/vitanote/internal/storage"
    "github.com/local/vitanote/internal/store"
)

// stack is the wired pipeline plus everything that needs closing.
type stack struct {
    orch    *orchestrator.Orchestrator
    closers []io.Closer
}

func (s *stack) Close() {
    for i := len(s.closers) - 1; i >= 0; i-- {
        _ = s.closers[i].Close()
    }
}

// buildStack wires the pipeline from configuration. Missing dependencies
// degrade rather than fail.
func buildStack(ctx context.Context, cfg cfgpkg.Config) (*stack, error) {
    st := &stack{}

    // one client serves breaker state and stage tracking
    rdb := openRedis(ctx, cfg.Breaker.RedisURL)
    if rdb != nil {
        st.closers = append(st.closers, rdb)
    }

    engine := ocr.New(ctx, cfg.OCR)
    if c, ok := engine.(io.Closer); ok {
        st.closers = append(st.closers, c)
    }
    log.Info().Str("engine", engine.Name()).Bool("available", engine.Available()).Msg("ocr engine selected")

    ext := extract.New(extract.Options{
        Engine:     engine,
        Rasterizer: imagerender.NewRasterizer(cfg.OCR.DPI, imagerender.ColorGray),
        Slots:      limiter.New(cfg.OCR.MaxConcurrent),
        MaxPages:   cfg.OCR.MaxPages,
        Timeout:    cfg.OCR.Timeout,
    })

    access := analyzer.Unconfigured()
    if disp := dispatcher.NewFromConfig(cfg.Model, cfg.Breaker, rdb); disp != nil {
        access = analyzer.Remote(disp)
    } else {
        log.Warn().Msg("no model API key configured - analyses use templates")
    }

    var archive orchestrator.Archive
    var archivePing statuscheck.Pinger
    if cfg.Storage.ArchiveEnabled() {
        a, err := storage.NewArchive(ctx, cfg.Storage)
        if err != nil {
            log.Warn().Err(err).Msg("report archive disabled")
        } else {
            archive, archivePing = a, a
        }
    }

    var stages orchestrator.StageStore
    var redisPing statuscheck.Pinger
    if rdb != nil {
        s := store.NewRedisStages(rdb, 24*time.Hour)
        stages, redisPing = s, s
    }

    status := statuscheck.New(statuscheck.Options{
        Redis:     redisPing,
        Archive:   archivePing,
        OCR:       engine,
        OutputDir: cfg.Storage.OutputDir,
        Models: map[string]bool{
            "groq":      cfg.Model.GroqAPIKey != "",
            "openai":    cfg.Model.OpenAIAPIKey != "",
            "anthropic": cfg.Model.AnthropicAPIKey != "",
        },
    })

    st.orch = orchestrator.New(orchestrator.Dependencies{
        Extractor:      ext,
        Analyzer:       analyzer.New(access),
        Renderer:       report.New(report.Options{OutputDir: cfg.Storage.OutputDir, Compress: true}),
        Archive:        archive,
        Stages:         stages,
        Status:         status,
        UploadDir:      cfg.Storage.UploadDir,
        OutputDir:      cfg.Storage.OutputDir,
        MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
        AllowedOrigins: cfg.Server.AllowedOrigins,
    })
    return st, nil
}

// openRedis returns nil when Redis is not configured or not reachable.
func openRedis(ctx context.Context, url string) *redis.Client {
    if url == "" {
        return nil
    }
    opt, err := redis.ParseURL(url)
    if err != nil {
        log.Warn().Err(err).Msg("invalid REDIS_URL - using in-process breakers, stage tracking disabled")
        return nil
    }
    rdb := redis.NewClient(opt)
    pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
    defer cancel()
    if err := rdb.Ping(pctx).Err(); err != nil {
        log.Warn().Err(err).Msg("redis unreachable - using in-process breakers, stage tracking disabled")
        _ = rdb.Close()
        return nil
    }
    return rdb
}
