package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/genproto/googleapis/rpc/status"

	"github.com/local/vitanote/internal/config"
)

type fakeRunner struct {
	found  bool
	stdout string
	stderr string
	err    error

	gotName string
	gotArgs []string
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if !f.found {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.gotName, f.gotArgs = name, args
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestTesseractRecognize(t *testing.T) {
	r := &fakeRunner{found: true, stdout: "Patient Name: Jane Doe\n"}
	eng := NewTesseract(TesseractOptions{Runner: r, TessdataDir: "/data"})

	got, err := eng.Recognize(context.Background(), "page.png")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if got != "Patient Name: Jane Doe\n" {
		t.Fatalf("text = %q", got)
	}
	if want := "page.png stdout -l eng --tessdata-dir /data"; strings.Join(r.gotArgs, " ") != want {
		t.Fatalf("args = %q, want %q", strings.Join(r.gotArgs, " "), want)
	}
}

func TestTesseractFailure(t *testing.T) {
	r := &fakeRunner{found: true, stderr: "Error opening data file", err: errors.New("exit status 1")}
	_, err := NewTesseract(TesseractOptions{Runner: r}).Recognize(context.Background(), "page.png")
	if !errors.Is(err, ErrOCRFailed) {
		t.Fatalf("err = %v, want ErrOCRFailed", err)
	}
	var oe *Error
	if !errors.As(err, &oe) || !strings.Contains(oe.Details, "data file") {
		t.Fatalf("details lost: %v", err)
	}
}

func TestTesseractMissingBinary(t *testing.T) {
	eng := NewTesseract(TesseractOptions{Runner: &fakeRunner{}})
	if eng.Available() {
		t.Fatal("binary should be missing")
	}
	if _, err := eng.Recognize(context.Background(), "x.png"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewDisabled(t *testing.T) {
	eng := New(context.Background(), config.OCRConfig{Engine: "none"})
	if eng.Available() || eng.Name() != "none" {
		t.Fatalf("engine = %#v", eng)
	}
	if _, err := eng.Recognize(context.Background(), "x.png"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(p, []byte("\x89PNG fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestVisionRecognize(t *testing.T) {
	v := &Vision{annotate: func(_ context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		if len(req.Requests) != 1 || req.Requests[0].Features[0].Type != visionpb.Feature_DOCUMENT_TEXT_DETECTION {
			t.Fatalf("unexpected request: %v", req)
		}
		return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{
			{FullTextAnnotation: &visionpb.TextAnnotation{Text: "MR Number: 123456"}},
		}}, nil
	}}
	got, err := v.Recognize(context.Background(), writeImage(t))
	if err != nil || got != "MR Number: 123456" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestVisionAPIError(t *testing.T) {
	v := &Vision{annotate: func(context.Context, *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{
			{Error: &status.Status{Message: "quota exceeded"}},
		}}, nil
	}}
	_, err := v.Recognize(context.Background(), writeImage(t))
	if !errors.Is(err, ErrOCRFailed) || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("err = %v", err)
	}
}
