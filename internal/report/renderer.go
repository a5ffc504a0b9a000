// Package report renders the downloadable PDF summary of an upload.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"

	"github.com/local/vitanote/internal/domain"
	"github.com/local/vitanote/internal/fields"
	"github.com/local/vitanote/internal/logger"
	"github.com/local/vitanote/internal/metrics"
)

const (
	title      = "VitaNote - Medical Report Analysis"
	disclaimer = "DISCLAIMER: This analysis is generated from the uploaded medical report. Always consult with your healthcare provider for medical advice and interpretation."
	minimalMsg = "Medical report processed successfully. Please consult with your healthcare provider for detailed analysis."
	dateLayout = "January 02, 2006 at 03:04 PM"
)

type rgb struct{ r, g, b int }

var (
	colorPrimary   = rgb{74, 111, 203}
	colorSecondary = rgb{52, 195, 185}
	colorGray      = rgb{108, 117, 125}
	colorSuccess   = rgb{40, 167, 69}
	colorDanger    = rgb{220, 53, 69}
)

// Input is everything one report is built from.
type Input struct {
	Document domain.ExtractedDocument
	Analysis string
	Fields   domain.Fields
}

type Options struct {
	OutputDir string
	// Compress page streams. Off only in tests that inspect output bytes.
	Compress bool
	Now      func() time.Time
	Validate func(path string) error
}

type Renderer struct {
	opts Options
	log  zerolog.Logger
}

func New(opts Options) *Renderer {
	if opts.OutputDir == "" {
		opts.OutputDir = "output"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Validate == nil {
		opts.Validate = validatePDF
	}
	return &Renderer{opts: opts, log: logger.WithComponent("report")}
}

// NewFilename returns a collision-free report name.
func NewFilename() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "_summary.pdf"
}

// Render writes the report under a new filename. When the full layout
// fails a minimal report is written instead; ErrRender is returned only
// when both fail.
func (r *Renderer) Render(ctx context.Context, in Input) (domain.ReportDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReportDocument{}, err
	}
	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return domain.ReportDocument{}, domain.WrapError(domain.ErrRender, "create output dir", err)
	}

	name := NewFilename()
	doc := domain.ReportDocument{
		Filename: name,
		Path:     filepath.Join(r.opts.OutputDir, name),
		Layout:   domain.LayoutFor(in.Document.Source),
	}

	primaryErr := r.write(doc.Path, func(pdf *fpdf.Fpdf) {
		if doc.Layout == domain.LayoutProcessing {
			r.processingBody(pdf, in)
		} else {
			r.medicalBody(pdf, in)
		}
	})
	if primaryErr == nil {
		metrics.IncReport(string(doc.Layout), false)
		r.log.Info().Str("filename", name).Str("layout", string(doc.Layout)).Msg("report rendered")
		return doc, nil
	}

	r.log.Warn().Err(primaryErr).Str("filename", name).Msg("report rendering failed - writing minimal report")
	if err := r.write(doc.Path, r.minimalBody); err != nil {
		r.log.Error().Err(err).Str("filename", name).Msg("minimal report failed")
		_ = os.Remove(doc.Path)
		return domain.ReportDocument{}, domain.WrapError(domain.ErrRender, "render report", primaryErr)
	}
	doc.Layout = domain.LayoutMinimal
	doc.Fallback = true
	metrics.IncReport(string(doc.Layout), true)
	return doc, nil
}

func (r *Renderer) write(path string, body func(*fpdf.Fpdf)) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf layout panic: %v", p)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.opts.Compress)
	pdf.SetTitle(title, false)
	pdf.SetCreator("VitaNote", false)
	pdf.AddPage()

	body(pdf)
	r.footer(pdf)

	if pdf.Err() {
		return pdf.Error()
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return err
	}
	return r.opts.Validate(path)
}

func header(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	pdf.Ln(8)
	rule(pdf)
	pdf.Ln(10)
}

func rule(pdf *fpdf.Fpdf) {
	pdf.SetDrawColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
	y := pdf.GetY()
	pdf.Line(20, y, 190, y)
}

// section prints a filled heading bar followed by body text.
func section(pdf *fpdf.Fpdf, heading string, fill rgb, body, align string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(fill.r, fill.g, fill.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 8, heading, "", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, latin1(body), "", align, false)
	pdf.Ln(8)
}

func (r *Renderer) medicalBody(pdf *fpdf.Fpdf, in Input) {
	header(pdf)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Medical Report Summary", "", 1, "C", false, 0, "")
	pdf.Ln(10)

	f := in.Fields
	if f.Patient.Recovered() {
		section(pdf, "PATIENT INFORMATION", colorPrimary, fields.FormatLines(f.Patient.Fields()), "L")
	}
	if f.Surgical.Recovered() {
		section(pdf, "SURGICAL INFORMATION", colorSecondary, fields.FormatLines(f.Surgical.Fields()), "L")
	}
	section(pdf, "MEDICAL DETAILS", colorGray, in.Document.Text, "J")
	if len(f.Recommendations) > 0 {
		section(pdf, "RECOMMENDATIONS", colorSuccess, fields.FormatRecommendations(f.Recommendations), "L")
	}
	section(pdf, "AI ANALYSIS", colorDanger, StripHTML(in.Analysis), "J")
}

func (r *Renderer) processingBody(pdf *fpdf.Fpdf, in Input) {
	header(pdf)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(colorGray.r, colorGray.g, colorGray.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 8, "DOCUMENT PROCESSING REPORT", "", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, latin1(in.Document.Text), "", "L", false)
	pdf.Ln(5)
	pdf.MultiCell(0, 5, latin1(in.Analysis), "", "L", false)
}

func (r *Renderer) minimalBody(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(10)
	pdf.MultiCell(0, 8, minimalMsg, "", "L", false)
}

func (r *Renderer) footer(pdf *fpdf.Fpdf) {
	stamp := "Report generated on " + r.opts.Now().Format(dateLayout)
	pdf.Ln(15)
	rule(pdf)
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, stamp, "", 1, "C", false, 0, "")
	pdf.Ln(3)
	pdf.SetTextColor(colorGray.r, colorGray.g, colorGray.b)
	pdf.MultiCell(0, 4, disclaimer, "", "C", false)
	pdf.SetTextColor(0, 0, 0)
}

func validatePDF(path string) error {
	if err := api.ValidateFile(path, nil); err != nil {
		return fmt.Errorf("validate %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Open resolves a download name inside dir. Names containing path
// separators never resolve.
func Open(dir, name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("report %q: %w", name, domain.ErrNotFound)
	}
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("report %q: %w", name, domain.ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}
