package main

import (
    "encoding/json"
    "fmt"
    "os"

    "github.com/google/uuid"
    "github.com/spf13/cobra"

    "github.com/local/vitanote/internal/fields"
    "github.com/local/vitanote/internal/orchestrator"
)

var reportCmd = &cobra.Command{
    Use:   "report [file]",
    Short: "Run the full pipeline on a local file and write the PDF summary",
    Example: `  # Summarize a scanned discharge letter
  vitanote report discharge.pdf

  # Print the analysis and extracted text as JSON
  vitanote report lab_results.png --json`,
    Args: cobra.ExactArgs(1),
    RunE: runReport,
}

var fieldsCmd = &cobra.Command{
    Use:   "fields [text-file]",
    Short: "Print the patient, surgical and recommendation fields recovered from a text file",
    Args:  cobra.ExactArgs(1),
    RunE:  runFields,
}

func init() {
    reportCmd.Flags().Bool("json", false, "Output extracted text, analysis and report path as JSON")
}

type reportOutput struct {
    File          string `json:"file"`
    Source        string `json:"source"`
    DocType       string `json:"doc_type"`
    Degraded      bool   `json:"degraded"`
    ExtractedText string `json:"extracted_text"`
    Analysis      string `json:"analysis"`
    Report        string `json:"report"`
    Layout        string `json:"layout"`
}

func runReport(cmd *cobra.Command, args []string) error {
    jsonOut, _ := cmd.Flags().GetBool("json")
    path := args[0]
    if _, err := os.Stat(path); err != nil {
        return fmt.Errorf("input file: %w", err)
    }

    ctx := orchestrator.WithRequestID(cmd.Context(), uuid.NewString())
    st, err := buildStack(ctx, cfg)
    if err != nil {
        return err
    }
    defer st.Close()

    res, err := st.orch.ProcessUpload(ctx, path)
    if err != nil {
        return err
    }

    out := reportOutput{
        File:          path,
        Source:        res.Document.Source.String(),
        DocType:       res.Analysis.DocType.String(),
        Degraded:      res.Document.Degradation.Degraded() || res.Analysis.Degradation.Degraded(),
        ExtractedText: res.Document.Text,
        Analysis:      res.Analysis.Text,
        Report:        res.Report.Path,
        Layout:        string(res.Report.Layout),
    }
    if jsonOut {
        enc := json.NewEncoder(cmd.OutOrStdout())
        enc.SetIndent("", "  ")
        return enc.Encode(out)
    }
    fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%s layout, %s)\n", out.Report, out.Layout, out.Source)
    if out.Degraded {
        fmt.Fprintln(cmd.OutOrStdout(), "Note: one or more steps used a fallback; see logs for details.")
    }
    return nil
}

func runFields(cmd *cobra.Command, args []string) error {
    data, err := os.ReadFile(args[0])
    if err != nil {
        return fmt.Errorf("read text: %w", err)
    }
    f := fields.Recover(string(data))
    w := cmd.OutOrStdout()
    fmt.Fprintln(w, "PATIENT INFORMATION")
    fmt.Fprintln(w, fields.FormatLines(f.Patient.Fields()))
    fmt.Fprintln(w)
    fmt.Fprintln(w, "SURGICAL INFORMATION")
    fmt.Fprintln(w, fields.FormatLines(f.Surgical.Fields()))
    if len(f.Recommendations) > 0 {
        fmt.Fprintln(w)
        fmt.Fprintln(w, "RECOMMENDATIONS")
        fmt.Fprintln(w, fields.FormatRecommendations(f.Recommendations))
    }
    return nil
}
