package ocr

import (
	"context"
	"strings"
	"sync"
)

type TesseractOptions struct {
	Path        string
	Language    string
	TessdataDir string
	Runner      Runner
}

// Tesseract shells out to the tesseract CLI.
type Tesseract struct {
	opts TesseractOptions

	once      sync.Once
	available bool
}

func NewTesseract(opts TesseractOptions) *Tesseract {
	if opts.Path == "" {
		opts.Path = "tesseract"
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.Runner == nil {
		opts.Runner = execRunner{}
	}
	return &Tesseract{opts: opts}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Available checks the binary once and caches the answer.
func (t *Tesseract) Available() bool {
	t.once.Do(func() {
		_, err := t.opts.Runner.LookPath(t.opts.Path)
		t.available = err == nil
	})
	return t.available
}

// Recognize runs `tesseract <file> stdout -l <lang>`.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	const op = "tesseract"
	if !t.Available() {
		return "", wrap(op, ErrUnavailable, t.opts.Path+" not found")
	}
	args := []string{imagePath, "stdout", "-l", t.opts.Language}
	if t.opts.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.opts.TessdataDir)
	}
	out, errb, err := t.opts.Runner.Run(ctx, t.opts.Path, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", wrap(op, ctx.Err(), "")
		}
		return "", &Error{Op: op, Err: ErrOCRFailed, Details: strings.TrimSpace(truncate(string(errb), 512))}
	}
	return string(out), nil
}
