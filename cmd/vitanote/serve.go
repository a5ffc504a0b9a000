package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/rs/zerolog/log"
    "github.com/spf13/cobra"

    "github.com/local/vitanote/internal/orchestrator"
)

var serveCmd = &cobra.Command{
    Use:   "serve",
    Short: "Run the HTTP API",
    Args:  cobra.NoArgs,
    RunE:  runServe,
}

func init() {
    serveCmd.Flags().String("port", "", "Listen port (overrides PORT)")
    serveCmd.Flags().Duration("temp-max-age", time.Hour, "Remove leftover OCR page directories older than this at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
    ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if p, _ := cmd.Flags().GetString("port"); p != "" {
        cfg.Server.Port = p
    }
    maxAge, _ := cmd.Flags().GetDuration("temp-max-age")
    if n := orchestrator.CleanupTemps("", maxAge); n > 0 {
        log.Info().Int("removed", n).Msg("stale OCR work directories removed")
    }

    st, err := buildStack(ctx, cfg)
    if err != nil {
        return err
    }
    defer st.Close()

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           st.orch.Handler(),
        ReadHeaderTimeout: 10 * time.Second,
        ReadTimeout:       cfg.Server.ReadTimeout,
        WriteTimeout:      cfg.Server.WriteTimeout,
    }

    errc := make(chan error, 1)
    go func() {
        log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errc <- err
        }
        close(errc)
    }()

    select {
    case err := <-errc:
        if err != nil {
            return err
        }
    case <-ctx.Done():
    }

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.Warn().Err(err).Msg("graceful shutdown incomplete")
    }
    log.Info().Msg("shutdown complete")
    return nil
}
