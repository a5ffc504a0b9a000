package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/local/vitanote/internal/domain"
	"github.com/local/vitanote/internal/ocr"
)

type fakeEngine struct {
	available bool
	texts     map[string]string
	err       error
	calls     []string
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return f.available }
func (f *fakeEngine) Recognize(_ context.Context, p string) (string, error) {
	f.calls = append(f.calls, filepath.Base(p))
	if f.err != nil {
		return "", f.err
	}
	return f.texts[filepath.Base(p)], nil
}

type fakeRasterizer struct{ pages int }

func (r fakeRasterizer) Rasterize(_ context.Context, _, dir string, maxPages int) ([]string, error) {
	n := r.pages
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	out := make([]string, n)
	for i := range out {
		out[i] = filepath.Join(dir, fmt.Sprintf("page_%04d.png", i+1))
	}
	return out, nil
}

func writePNG(t *testing.T, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExtractMissingFile(t *testing.T) {
	_, err := New(Options{}).Extract(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExtractImageWithoutOCRDescribesFile(t *testing.T) {
	path := writePNG(t, "knee_surgery_scan.png", 1200, 1100)
	st, _ := os.Stat(path)

	doc, err := New(Options{Engine: ocr.Disabled{Reason: "off"}}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Source != domain.SourceMetadataFallback || !doc.Degradation.Degraded() {
		t.Fatalf("source = %v degradation = %+v", doc.Source, doc.Degradation)
	}
	for _, want := range []string{
		"MEDICAL DOCUMENT ANALYSIS",
		"knee_surgery_scan.png",
		fmt.Sprintf("%d bytes", st.Size()),
		"Surgical Operative Report",
		"Medium resolution (1200x1100 pixels)",
		"Color Mode: L",
		"Format: .PNG",
	} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("description missing %q", want)
		}
	}
	if domain.DetectSource(doc.Text) != domain.SourceMetadataFallback {
		t.Error("description must carry a metadata marker")
	}
}

func TestExtractNonImageUsesBasicDescription(t *testing.T) {
	path := writeFile(t, "notes.txt", strings.Repeat("x", 1234))
	doc, err := New(Options{Engine: &fakeEngine{available: true}}).Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"MEDICAL DOCUMENT PROCESSING", "DOCUMENT PROCESSING STATUS:", "notes.txt", "1,234 bytes", "1234 bytes"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("description missing %q", want)
		}
	}
	if doc.Source != domain.SourceMetadataFallback {
		t.Fatal("text upload must not be tagged as OCR")
	}
}

func TestExtractImageWithOCR(t *testing.T) {
	path := writePNG(t, "scan.png", 10, 10)
	eng := &fakeEngine{available: true, texts: map[string]string{"scan.png": "Patient Name: Jane Doe"}}
	doc, err := New(Options{Engine: eng}).Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Source != domain.SourceRealOCR || doc.Text != "Patient Name: Jane Doe" || doc.File.Pages != 1 {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestExtractPDFJoinsPagesInOrder(t *testing.T) {
	path := writeFile(t, "report.pdf", "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
	texts := map[string]string{}
	var want []string
	for i := 1; i <= 7; i++ {
		texts[fmt.Sprintf("page_%04d.png", i)] = fmt.Sprintf("text of page %d", i)
		want = append(want, fmt.Sprintf("text of page %d", i))
	}
	eng := &fakeEngine{available: true, texts: texts}

	ex := New(Options{
		Engine:     eng,
		Rasterizer: fakeRasterizer{pages: 7},
		PageCount:  func(string) (int, error) { return 7, nil },
		WorkDir:    t.TempDir(),
	})
	doc, err := ex.Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Source != domain.SourceRealOCR {
		t.Fatalf("source = %v (%s)", doc.Source, doc.Degradation.Reason)
	}
	if doc.Text != strings.Join(want, "\n") {
		t.Fatalf("text = %q", doc.Text)
	}
	if doc.File.Pages != 7 || len(eng.calls) != 7 || eng.calls[0] != "page_0001.png" {
		t.Fatalf("pages = %d calls = %v", doc.File.Pages, eng.calls)
	}
}

func TestExtractOCRErrorDegrades(t *testing.T) {
	path := writePNG(t, "lab_results.png", 10, 10)
	eng := &fakeEngine{available: true, err: errors.New("tesseract crashed")}
	doc, err := New(Options{Engine: eng}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("OCR failure must not propagate: %v", err)
	}
	if doc.Source != domain.SourceMetadataFallback || !strings.Contains(doc.Degradation.Reason, "tesseract crashed") {
		t.Fatalf("doc = %+v", doc.Degradation)
	}
	if !strings.Contains(doc.Text, "Laboratory Report") {
		t.Error("filename classification missing")
	}
}

func TestExtractPDFCountFailureStillRecognizes(t *testing.T) {
	path := writeFile(t, "broken.pdf", "%PDF-1.4\ngarbage")
	eng := &fakeEngine{available: true, texts: map[string]string{"page_0001.png": "Diagnosis: fracture"}}
	ex := New(Options{
		Engine:     eng,
		Rasterizer: fakeRasterizer{pages: 1},
		PageCount:  func(string) (int, error) { return 0, errors.New("xref missing") },
		WorkDir:    t.TempDir(),
	})
	doc, err := ex.Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Source != domain.SourceRealOCR || doc.Text != "Diagnosis: fracture" || doc.File.Pages != 1 {
		t.Fatalf("doc = %+v (%s)", doc, doc.Degradation.Reason)
	}
}

func TestExtractPDFPagesReflectPageLimit(t *testing.T) {
	path := writeFile(t, "long.pdf", "%PDF-1.4\n")
	eng := &fakeEngine{available: true, texts: map[string]string{}}
	ex := New(Options{
		Engine:     eng,
		Rasterizer: fakeRasterizer{pages: 7},
		PageCount:  func(string) (int, error) { return 7, nil },
		MaxPages:   3,
		WorkDir:    t.TempDir(),
	})
	doc, err := ex.Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.File.Pages != 3 || len(eng.calls) != 3 {
		t.Fatalf("pages = %d calls = %v", doc.File.Pages, eng.calls)
	}
}

type failingRasterizer struct{}

func (failingRasterizer) Rasterize(context.Context, string, string, int) ([]string, error) {
	return nil, errors.New("cannot open document")
}

func TestExtractPDFRasterizeFailureDegrades(t *testing.T) {
	path := writeFile(t, "broken.pdf", "%PDF-1.4\ngarbage")
	ex := New(Options{
		Engine:     &fakeEngine{available: true},
		Rasterizer: failingRasterizer{},
		PageCount:  func(string) (int, error) { return 0, errors.New("xref missing") },
		WorkDir:    t.TempDir(),
	})
	doc, err := ex.Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Source != domain.SourceMetadataFallback || !strings.Contains(doc.Text, "broken.pdf") {
		t.Fatalf("doc = %+v", doc)
	}
	if !strings.Contains(doc.Degradation.Reason, "cannot open document") {
		t.Errorf("reason = %q", doc.Degradation.Reason)
	}
}
