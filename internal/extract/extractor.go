// Package extract turns an uploaded file into text, by OCR when an engine is
// usable and by a metadata description otherwise.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"

	"github.com/local/vitanote/internal/domain"
	"github.com/local/vitanote/internal/filetype"
	"github.com/local/vitanote/internal/imagerender"
	"github.com/local/vitanote/internal/limiter"
	"github.com/local/vitanote/internal/logger"
	"github.com/local/vitanote/internal/metrics"
	"github.com/local/vitanote/internal/ocr"
)

// Rasterizer renders PDF pages to image files.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, dir string, maxPages int) ([]string, error)
}

// Detector sniffs upload content.
type Detector interface {
	Detect(path string) (*filetype.FileTypeInfo, error)
}

type Options struct {
	Engine     ocr.Engine
	Rasterizer Rasterizer
	Detector   Detector
	Slots      *limiter.Slots
	// PageCount defaults to pdfcpu's page counter.
	PageCount func(path string) (int, error)
	MaxPages  int
	Timeout   time.Duration
	// WorkDir holds per-request page images; defaults to os.TempDir().
	WorkDir string
}

type Extractor struct {
	opts Options
	log  zerolog.Logger
}

func New(opts Options) *Extractor {
	if opts.Engine == nil {
		opts.Engine = ocr.Disabled{Reason: "no OCR engine configured"}
	}
	if opts.Detector == nil {
		opts.Detector = filetype.New()
	}
	if opts.Slots == nil {
		opts.Slots = limiter.New(2)
	}
	if opts.PageCount == nil {
		opts.PageCount = api.PageCountFile
	}
	return &Extractor{opts: opts, log: logger.WithComponent("extract")}
}

// Extract returns the document text. The only error is a missing file; every
// OCR problem degrades to the metadata description.
func (e *Extractor) Extract(ctx context.Context, path string) (domain.ExtractedDocument, error) {
	st, err := os.Stat(path)
	if err != nil {
		return domain.ExtractedDocument{}, domain.WrapError(domain.ErrNotFound, "extract", err)
	}
	if st.IsDir() {
		return domain.ExtractedDocument{}, domain.WrapError(domain.ErrNotFound, "extract", fmt.Errorf("%s is a directory", path))
	}

	facts := domain.FileFacts{
		Name:      filepath.Base(path),
		Size:      st.Size(),
		Extension: strings.ToLower(filepath.Ext(path)),
		MIMEType:  "application/octet-stream",
	}
	info, err := e.opts.Detector.Detect(path)
	if err != nil {
		e.log.Warn().Err(err).Str("file", facts.Name).Msg("file type detection failed")
		info = &filetype.FileTypeInfo{Kind: filetype.KindUnsupported}
	} else {
		facts.MIMEType = info.MIMEType
	}

	text, pages, err := e.recognize(ctx, path, info)
	facts.Pages = pages
	if err != nil {
		e.log.Warn().Err(err).Str("file", facts.Name).Str("engine", e.opts.Engine.Name()).Msg("OCR unavailable, using metadata description")
		return e.fallback(path, info.Kind, facts, err), nil
	}

	metrics.IncExtraction(domain.SourceRealOCR.String())
	e.log.Info().Str("file", facts.Name).Int("pages", pages).Int("chars", len(text)).Msg("OCR extraction complete")
	return domain.ExtractedDocument{Text: text, Source: domain.SourceRealOCR, File: facts}, nil
}

func (e *Extractor) recognize(ctx context.Context, path string, info *filetype.FileTypeInfo) (string, int, error) {
	eng := e.opts.Engine
	if !eng.Available() {
		return "", 0, fmt.Errorf("%w: %s", ocr.ErrUnavailable, eng.Name())
	}
	if !info.NeedsOCR() {
		return "", 0, fmt.Errorf("content type %s cannot be recognized", info.Kind)
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	release, err := e.opts.Slots.Acquire(ctx, eng.Name())
	if err != nil {
		return "", 0, err
	}
	defer release()

	if info.Kind == filetype.KindImage {
		text, err := eng.Recognize(ctx, path)
		metrics.IncOCRPage(eng.Name(), err == nil)
		return text, 1, err
	}
	return e.recognizePDF(ctx, path)
}

// recognizePDF rasterizes up to MaxPages pages and joins the page texts with
// "\n" in page order. The returned count is the number of pages recognized.
func (e *Extractor) recognizePDF(ctx context.Context, path string) (string, int, error) {
	if e.opts.Rasterizer == nil {
		return "", 0, errors.New("no PDF rasterizer configured")
	}
	// The count only feeds logging; the rasterizer decides what is readable.
	total, err := e.opts.PageCount(path)
	if err != nil {
		e.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("pdf page count failed")
		total = 0
	}

	dir, err := os.MkdirTemp(e.opts.WorkDir, "vitanote-pages-*")
	if err != nil {
		return "", 0, err
	}
	defer os.RemoveAll(dir)

	images, err := e.opts.Rasterizer.Rasterize(ctx, path, dir, e.opts.MaxPages)
	if err != nil {
		return "", 0, err
	}
	if total > len(images) {
		e.log.Warn().Int("pages", total).Int("rasterized", len(images)).Int("max_pages", e.opts.MaxPages).Msg("PDF truncated to page limit")
	} else {
		e.log.Debug().Int("pages", total).Int("rasterized", len(images)).Msg("rasterized PDF")
	}

	texts := make([]string, 0, len(images))
	for i, img := range images {
		text, err := e.opts.Engine.Recognize(ctx, img)
		metrics.IncOCRPage(e.opts.Engine.Name(), err == nil)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i+1, err)
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n"), len(images), nil
}

func (e *Extractor) fallback(path string, kind filetype.Kind, facts domain.FileFacts, cause error) domain.ExtractedDocument {
	var img *imagerender.Facts
	if kind == filetype.KindImage {
		if f, err := imagerender.ReadFacts(path); err == nil {
			img = &f
		} else {
			e.log.Debug().Err(err).Str("file", facts.Name).Msg("image header unreadable")
		}
	}
	metrics.IncExtraction(domain.SourceMetadataFallback.String())
	return domain.ExtractedDocument{
		Text:        Describe(facts, img),
		Source:      domain.SourceMetadataFallback,
		Degradation: domain.Degradation{Reason: cause.Error()},
		File:        facts,
	}
}
