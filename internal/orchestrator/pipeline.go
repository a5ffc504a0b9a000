package orchestrator

import (
    "context"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "github.com/local/vitanote/internal/analyzer"
    "github.com/local/vitanote/internal/domain"
    "github.com/local/vitanote/internal/fields"
    "github.com/local/vitanote/internal/metrics"
    "github.com/local/vitanote/internal/report"
    "github.com/local/vitanote/internal/store"
)

// Stage is a step of the upload pipeline. Stages only move forward;
// StageFailed is terminal.
type Stage string

const (
    StageReceived  Stage = "RECEIVED"
    StageExtracted Stage = "EXTRACTED"
    StageAnalyzed  Stage = "ANALYZED"
    StageRendered  Stage = "RENDERED"
    StageResponded Stage = "RESPONDED"
    StageFailed    Stage = "FAILED"
)

type Extractor interface {
    Extract(ctx context.Context, path string) (domain.ExtractedDocument, error)
}

type Analyzer interface {
    Analyze(ctx context.Context, doc domain.ExtractedDocument) domain.AnalysisResult
    Reply(ctx context.Context, prompt string) domain.AnalysisResult
}

type Renderer interface {
    Render(ctx context.Context, in report.Input) (domain.ReportDocument, error)
}

// Archive stores rendered reports off-host. Optional.
type Archive interface {
    Put(ctx context.Context, name string, data []byte) error
    Get(ctx context.Context, name string) ([]byte, error)
}

// StageStore persists the latest stage of each request. Optional.
type StageStore interface {
    Set(ctx context.Context, requestID string, rec store.StageRecord) error
    Get(ctx context.Context, requestID string) (store.StageRecord, bool, error)
}

// Result is what one upload produces.
type Result struct {
    Document    domain.ExtractedDocument
    Analysis    domain.AnalysisResult
    Fields      domain.Fields
    Report      domain.ReportDocument
    DownloadURL string
}

// tracker logs, counts and optionally persists stage transitions for one
// request.
type tracker struct {
    log    zerolog.Logger
    stage  Stage
    id     string
    file   string
    stages StageStore
}

func (o *Orchestrator) newTracker(ctx context.Context, path string) *tracker {
    id := requestIDFromContext(ctx)
    file := filepath.Base(path)
    return &tracker{
        log:    o.log.With().Str("request_id", id).Str("file", file).Logger(),
        id:     id,
        file:   file,
        stages: o.deps.Stages,
    }
}

func (t *tracker) to(ctx context.Context, s Stage, msg string, meta map[string]string) {
    t.stage = s
    metrics.IncStage(string(s))
    t.log.Info().Str("stage", string(s)).Msg(msg)
    t.persist(ctx, s, msg, meta)
}

func (t *tracker) fail(ctx context.Context, err error) error {
    metrics.IncStage(string(StageFailed))
    t.log.Error().Err(err).Str("stage", string(StageFailed)).Str("from", string(t.stage)).Msg("pipeline failed")
    t.persist(ctx, StageFailed, err.Error(), map[string]string{"from": string(t.stage)})
    t.stage = StageFailed
    return err
}

func (t *tracker) persist(ctx context.Context, s Stage, msg string, meta map[string]string) {
    if t.stages == nil || t.id == "" {
        return
    }
    now := time.Now()
    rec := store.StageRecord{Stage: string(s), Message: msg, File: t.file, Updated: now, Metadata: meta}
    if s == StageReceived {
        rec.Start = &now
    }
    if err := t.stages.Set(ctx, t.id, rec); err != nil {
        t.log.Warn().Err(err).Str("stage", string(s)).Msg("stage not persisted")
    }
}

// ProcessUpload runs extract -> analyze -> recover -> render for a saved
// upload. The returned error is always classified with a domain kind.
func (o *Orchestrator) ProcessUpload(ctx context.Context, path string) (Result, error) {
    t := o.newTracker(ctx, path)
    t.to(ctx, StageReceived, "upload received", nil)

    doc, err := o.deps.Extractor.Extract(ctx, path)
    if err != nil {
        return Result{}, t.fail(ctx, err)
    }
    t.log.Info().Str("source", doc.Source.String()).Bool("degraded", doc.Degradation.Degraded()).Int("chars", len(doc.Text)).Msg("text extracted")
    t.to(ctx, StageExtracted, "extraction complete", map[string]string{"source": doc.Source.String()})

    analysis := o.deps.Analyzer.Analyze(ctx, doc)
    t.log.Info().Str("doc_type", analysis.DocType.String()).Bool("degraded", analysis.Degradation.Degraded()).Msg("analysis ready")
    t.to(ctx, StageAnalyzed, "analysis complete", map[string]string{"doc_type": analysis.DocType.String()})

    recovered := fields.Recover(doc.Text)
    rep, err := o.deps.Renderer.Render(ctx, report.Input{Document: doc, Analysis: analysis.Text, Fields: recovered})
    if err != nil {
        return Result{}, t.fail(ctx, err)
    }
    t.to(ctx, StageRendered, "report rendered", map[string]string{"layout": string(rep.Layout), "report": rep.Filename})

    o.archive(ctx, t.log, rep)

    res := Result{
        Document:    doc,
        Analysis:    analysis,
        Fields:      recovered,
        Report:      rep,
        DownloadURL: "/download/" + rep.Filename,
    }
    t.to(ctx, StageResponded, "upload processed", nil)
    return res, nil
}

// archive copies a rendered report to the archive. Failures are logged
// only; the local copy is authoritative.
func (o *Orchestrator) archive(ctx context.Context, log zerolog.Logger, rep domain.ReportDocument) {
    if o.deps.Archive == nil {
        return
    }
    data, err := os.ReadFile(rep.Path)
    if err == nil {
        err = o.deps.Archive.Put(ctx, rep.Filename, data)
    }
    if err != nil {
        log.Warn().Err(err).Str("filename", rep.Filename).Msg("report archive failed")
    }
}

// Chat answers a follow-up question about a summary the user has seen.
func (o *Orchestrator) Chat(ctx context.Context, message, summary string) (string, error) {
    if strings.TrimSpace(message) == "" || strings.TrimSpace(summary) == "" {
        return "", fmt.Errorf("chat: %w: missing message or context", domain.ErrInvalidInput)
    }
    res := o.deps.Analyzer.Reply(ctx, analyzer.ChatPrompt(summary, message))
    o.log.Info().
        Str("request_id", requestIDFromContext(ctx)).
        Str("stage", string(StageAnalyzed)).
        Bool("degraded", res.Degradation.Degraded()).
        Msg("chat reply ready")
    return res.Text, nil
}

// SaveUpload writes an upload under UploadDir using the client's base name.
// An existing file with the same name is overwritten.
func (o *Orchestrator) SaveUpload(name string, r io.Reader) (string, error) {
    base := filepath.Base(filepath.Clean("/" + name))
    if base == "/" || base == "." {
        return "", fmt.Errorf("save upload: %w: empty file name", domain.ErrInvalidInput)
    }
    if err := os.MkdirAll(o.deps.UploadDir, 0o755); err != nil {
        return "", fmt.Errorf("create upload dir: %w", err)
    }
    p := filepath.Join(o.deps.UploadDir, base)
    out, err := os.Create(p)
    if err != nil {
        return "", fmt.Errorf("cannot save upload: %w", err)
    }
    if _, err := io.Copy(out, r); err != nil {
        out.Close()
        return "", fmt.Errorf("write failed: %w", err)
    }
    if err := out.Close(); err != nil {
        return "", fmt.Errorf("write failed: %w", err)
    }
    o.log.Debug().Str("path", p).Msg("upload saved")
    return p, nil
}
