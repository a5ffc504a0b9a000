package imagerender

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// Rasterizer turns PDF pages into PNG files for OCR engines.
type Rasterizer struct {
	DPI   float64
	Color ColorMode
}

// NewRasterizer returns a rasterizer at the given resolution.
func NewRasterizer(dpi float64, mode ColorMode) *Rasterizer {
	if dpi <= 0 {
		dpi = 300
	}
	if mode == "" {
		mode = ColorGray
	}
	return &Rasterizer{DPI: dpi, Color: mode}
}

// Rasterize writes pages 1..n (capped at maxPages when positive) to dir as
// PNG files and returns their paths in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, dir string, maxPages int) ([]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		log.Warn().Str("file", filepath.Base(pdfPath)).Int("pages", n).Int("max_pages", maxPages).Msg("page cap reached, truncating")
		n = maxPages
	}

	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// go-fitz uses 0-based indexing
		img, err := doc.ImageDPI(i, r.DPI)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		p := filepath.Join(dir, fmt.Sprintf("page_%04d.png", i+1))
		if err := writePNG(p, r.convert(img)); err != nil {
			return nil, fmt.Errorf("failed to write page %d: %w", i+1, err)
		}
		b := img.Bounds()
		log.Debug().
			Int("page", i+1).
			Int("width", b.Dx()).
			Int("height", b.Dy()).
			Str("color", string(r.Color)).
			Msg("rasterized page")
		paths = append(paths, p)
	}
	return paths, nil
}

func (r *Rasterizer) convert(img image.Image) image.Image {
	if r.Color != ColorGray {
		return img
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Facts are the properties of a raster image readable without decoding
// its pixels.
type Facts struct {
	Width  int
	Height int
	Mode   string
	Format string
}

// Quality buckets resolution: High when both sides exceed 2000px, Medium
// when both exceed 1000px.
func (f Facts) Quality() string {
	switch {
	case f.Width > 2000 && f.Height > 2000:
		return "High"
	case f.Width > 1000 && f.Height > 1000:
		return "Medium"
	default:
		return "Standard"
	}
}

// ReadFacts decodes the image header of path.
func ReadFacts(path string) (Facts, error) {
	f, err := os.Open(path)
	if err != nil {
		return Facts{}, err
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Facts{}, fmt.Errorf("decode image header: %w", err)
	}
	return Facts{Width: cfg.Width, Height: cfg.Height, Mode: modeName(cfg.ColorModel), Format: format}, nil
}

// modeName uses the short channel-layout names common in imaging tools.
func modeName(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return "RGBA"
	case color.CMYKModel:
		return "CMYK"
	case color.YCbCrModel:
		return "RGB"
	}
	return "RGB"
}
