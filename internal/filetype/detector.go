package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind is the processing class of an upload.
type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindPDF
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	case KindText:
		return "text"
	default:
		return "unsupported"
	}
}

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Kind        Kind
	Description string
}

// NeedsOCR reports whether text can only come from recognition.
func (i *FileTypeInfo) NeedsOCR() bool { return i.Kind == KindImage || i.Kind == KindPDF }

// Raster image formats OCR engines accept directly.
var rasterTypes = map[string]string{
	"image/png":  "PNG image",
	"image/jpeg": "JPEG image",
	"image/gif":  "GIF image",
	"image/bmp":  "Bitmap image",
	"image/tiff": "TIFF image",
	"image/webp": "WebP image",
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect sniffs the actual file type using magic bytes. The client filename
// is only consulted when the content gives no answer.
func (d *Detector) Detect(filePath string) (*FileTypeInfo, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	mimeType := mtype.String()
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	extension := mtype.Extension()

	// Empty or unrecognized content: trust the extension for known images
	if mimeType == "application/octet-stream" {
		if byExt := mimeFromExtension(filePath); byExt != "" {
			log.Debug().Str("file", filePath).Str("override", byExt).Msg("falling back to extension for file type")
			mimeType = byExt
			extension = strings.ToLower(filepath.Ext(filePath))
		}
	}

	info := &FileTypeInfo{MIMEType: mimeType, Extension: extension}
	d.classify(info)

	log.Debug().Str("mime", mimeType).Str("kind", info.Kind.String()).Str("file", filePath).Msg("detected file type")
	return info, nil
}

func (d *Detector) classify(info *FileTypeInfo) {
	switch mt := info.MIMEType; {
	case mt == "application/pdf":
		info.Kind = KindPDF
		info.Description = "PDF document"
	case rasterTypes[mt] != "":
		info.Kind = KindImage
		info.Description = rasterTypes[mt]
	case strings.HasPrefix(mt, "text/"):
		info.Kind = KindText
		info.Description = "Plain text file"
	default:
		info.Kind = KindUnsupported
		info.Description = fmt.Sprintf("Unsupported file type: %s", mt)
	}
}

func mimeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	}
	return ""
}
