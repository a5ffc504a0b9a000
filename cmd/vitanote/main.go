package main

import (
    "fmt"
    "os"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"
    "github.com/spf13/cobra"

    cfgpkg "github.com/local/vitanote/internal/config"
    logpkg "github.com/local/vitanote/internal/logger"
    "github.com/local/vitanote/internal/metrics"
)

var version = "dev"

var cfg cfgpkg.Config

var rootCmd = &cobra.Command{
    Use:   "vitanote",
    Short: "Medical report summaries: OCR, plain-language analysis and PDF reports",
    Long: `vitanote extracts text from uploaded medical reports (PDF or image),
asks a language model for a plain-language analysis when one is configured,
and renders a downloadable PDF summary.

Configuration comes from the environment; a .env file in the working
directory is loaded first when present.`,
    Version:       version,
    SilenceUsage:  true,
    SilenceErrors: true,
    PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
        cfg = cfgpkg.FromEnv()
        opts := logpkg.OptionsFrom(cfg)
        if cmd.Name() != "serve" {
            // keep stdout clean for command output
            opts.Out = os.Stderr
        }
        if err := logpkg.Init(opts); err != nil {
            return fmt.Errorf("init logging: %w", err)
        }
        metrics.Init()
        return nil
    },
    PersistentPostRun: func(cmd *cobra.Command, args []string) {
        logpkg.Close()
    },
}

func main() {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
    }

    rootCmd.AddCommand(serveCmd, reportCmd, fieldsCmd)
    if err := rootCmd.Execute(); err != nil {
        log.Error().Err(err).Msg("command failed")
        fmt.Fprintf(os.Stderr, "Error: %v\n", err)
        os.Exit(1)
    }
}
