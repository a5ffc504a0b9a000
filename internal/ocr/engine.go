// Package ocr wraps the text recognition engines behind one interface.
package ocr

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/local/vitanote/internal/config"
)

// Engine recognizes text in a single raster image.
type Engine interface {
	Name() string
	// Available reports whether Recognize can be attempted at all.
	Available() bool
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Disabled is the engine used when OCR is switched off or could not be set up.
type Disabled struct {
	Reason string
}

func (Disabled) Name() string    { return "none" }
func (Disabled) Available() bool { return false }

func (d Disabled) Recognize(context.Context, string) (string, error) {
	return "", wrap("Recognize", ErrUnavailable, d.Reason)
}

// New builds the engine selected by cfg.Engine. Setup problems never fail
// startup; they yield a Disabled engine so extraction degrades to metadata.
func New(ctx context.Context, cfg config.OCRConfig) Engine {
	switch cfg.Engine {
	case "none", "off", "":
		return Disabled{Reason: "OCR disabled by configuration"}
	case "vision":
		eng, err := NewVision(ctx, cfg.CredentialsJSON, cfg.CredentialsFile)
		if err != nil {
			log.Warn().Err(err).Msg("Google Vision OCR unavailable, using metadata fallback")
			return Disabled{Reason: err.Error()}
		}
		return eng
	default:
		return NewTesseract(TesseractOptions{
			Path:        cfg.TesseractPath,
			Language:    cfg.Language,
			TessdataDir: cfg.TessdataDir,
		})
	}
}
