package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/local/vitanote/internal/domain"
)

func newTestRenderer(t *testing.T, validate func(string) error) *Renderer {
	t.Helper()
	if validate == nil {
		validate = func(string) error { return nil }
	}
	return New(Options{
		OutputDir: t.TempDir(),
		Now:       func() time.Time { return time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC) },
		Validate:  validate,
	})
}

func readPDF(t *testing.T, doc domain.ReportDocument) string {
	t.Helper()
	b, err := os.ReadFile(doc.Path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(b), "%PDF-") {
		t.Fatalf("not a PDF: %q", b[:min(len(b), 16)])
	}
	return string(b)
}

func medicalInput(text string) Input {
	p := domain.NewPatientInfo()
	p.Name = "Jane Doe"
	return Input{
		Document: domain.ExtractedDocument{Text: text, Source: domain.SourceRealOCR},
		Analysis: "<h3>Summary</h3><p>Stable &amp; improving</p>",
		Fields: domain.Fields{
			Patient:         p,
			Surgical:        domain.NewSurgicalInfo(),
			Recommendations: []string{domain.RecommendationBullet + "Return in two weeks"},
		},
	}
}

func TestRenderEmDashBecomesDoubleHyphen(t *testing.T) {
	doc, err := newTestRenderer(t, nil).Render(context.Background(), medicalInput("Recovery—stable after procedure"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := readPDF(t, doc)
	if !strings.Contains(out, "Recovery--stable") {
		t.Fatalf("em dash not transliterated")
	}
	if strings.Contains(out, "—") {
		t.Fatalf("raw em dash in output")
	}
}

func TestRenderMedicalSections(t *testing.T) {
	doc, err := newTestRenderer(t, nil).Render(context.Background(), medicalInput("Patient Name: Jane Doe"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if doc.Layout != domain.LayoutMedical || doc.Fallback {
		t.Fatalf("doc = %+v", doc)
	}
	out := readPDF(t, doc)
	for _, want := range []string{
		"Medical Report Summary",
		"PATIENT INFORMATION",
		"MEDICAL DETAILS",
		"RECOMMENDATIONS",
		"AI ANALYSIS",
		"Report generated on March 05, 2024 at 02:07 PM",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(out, "SURGICAL INFORMATION") {
		t.Errorf("surgical section rendered without recovered fields")
	}
	if strings.Contains(out, "<h3>") {
		t.Errorf("analysis markup not stripped")
	}
}

func TestRenderMetadataLayout(t *testing.T) {
	in := Input{
		Document: domain.DocumentFromText(domain.MarkerAnalysis + "\nFile: scan.png"),
		Analysis: "<h3>Document Processing Report</h3>",
		Fields:   domain.Fields{Patient: domain.NewPatientInfo(), Surgical: domain.NewSurgicalInfo()},
	}
	doc, err := newTestRenderer(t, nil).Render(context.Background(), in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if doc.Layout != domain.LayoutProcessing {
		t.Fatalf("layout = %s", doc.Layout)
	}
	out := readPDF(t, doc)
	if !strings.Contains(out, "DOCUMENT PROCESSING REPORT") || strings.Contains(out, "MEDICAL DETAILS") {
		t.Fatalf("wrong layout rendered")
	}
}

func TestRenderFilename(t *testing.T) {
	doc, err := newTestRenderer(t, nil).Render(context.Background(), medicalInput("text"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !regexp.MustCompile(`^[0-9a-f]{32}_summary\.pdf$`).MatchString(doc.Filename) {
		t.Fatalf("filename = %q", doc.Filename)
	}
	if filepath.Base(doc.Path) != doc.Filename {
		t.Fatalf("path = %q", doc.Path)
	}
}

func TestRenderFallsBackToMinimal(t *testing.T) {
	calls := 0
	r := newTestRenderer(t, func(string) error {
		calls++
		if calls == 1 {
			return errors.New("broken xref")
		}
		return nil
	})
	doc, err := r.Render(context.Background(), medicalInput("text"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !doc.Fallback || doc.Layout != domain.LayoutMinimal {
		t.Fatalf("doc = %+v", doc)
	}
	out := readPDF(t, doc)
	if !strings.Contains(out, "Medical report processed successfully.") || strings.Contains(out, "MEDICAL DETAILS") {
		t.Fatalf("minimal report content wrong")
	}
}

func TestRenderBothAttemptsFail(t *testing.T) {
	r := newTestRenderer(t, func(string) error { return errors.New("broken xref") })
	_, err := r.Render(context.Background(), medicalInput("text"))
	if !errors.Is(err, domain.ErrRender) || !strings.Contains(err.Error(), "broken xref") {
		t.Fatalf("err = %v", err)
	}
	entries, _ := os.ReadDir(r.opts.OutputDir)
	if len(entries) != 0 {
		t.Fatalf("partial report left behind: %v", entries)
	}
}

func TestRenderOutputDirUnusable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	r := New(Options{OutputDir: file})
	if _, err := r.Render(context.Background(), medicalInput("text")); !errors.Is(err, domain.ErrRender) {
		t.Fatalf("err = %v", err)
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"a—b", "a--b"},
		{"range 1–2", "range 1-2"},
		{"“quoted” ‘single’", `"quoted" 'single'`},
		{"wait…", "wait..."},
		{"• item", "· item"},
		{"Brand® © 2024", "Brand(R) (C) 2024"},
		{"café 38.5°C", "café 38.5°C"},
		{"Ελλάδα", "Ellada"},
		{"line1\nline2\ttab\x00", "line1\nline2\ttab"},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML(`<h3>Result</h3><p class="x">A &amp; B &lt;5&gt;&nbsp;ok</p>`)
	if got != "ResultA & B <5>\u00a0ok" {
		t.Fatalf("got %q", got)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "abc_summary.pdf"), []byte("%PDF-1.3"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Open(dir, "abc_summary.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Close()

	for _, name := range []string{"missing.pdf", "../abc_summary.pdf", "", ".hidden"} {
		if _, err := Open(dir, name); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Open(%q) err = %v", name, err)
		}
	}
}
