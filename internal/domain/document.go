package domain

import "strings"

// Source tells whether document text was recognized or synthesized.
type Source int

const (
	SourceRealOCR Source = iota
	SourceMetadataFallback
)

func (s Source) String() string {
	switch s {
	case SourceMetadataFallback:
		return "metadata_fallback"
	default:
		return "real_ocr"
	}
}

// Markers that open every metadata description. Only untagged text is
// classified with them; see DetectSource.
const (
	MarkerAnalysis         = "MEDICAL DOCUMENT ANALYSIS"
	MarkerProcessingStatus = "DOCUMENT PROCESSING STATUS"
)

// DetectSource classifies text that arrives without a tag, such as a chat
// context or a text file handed to the CLI.
func DetectSource(text string) Source {
	if strings.Contains(text, MarkerAnalysis) || strings.Contains(text, MarkerProcessingStatus) {
		return SourceMetadataFallback
	}
	return SourceRealOCR
}

// Degradation is empty when a step produced its primary output.
type Degradation struct {
	Reason string
}

func (d Degradation) Degraded() bool { return d.Reason != "" }

// FileFacts describes the uploaded file independent of its content.
type FileFacts struct {
	Name      string
	Size      int64
	Extension string
	MIMEType  string
	Pages     int
}

// ExtractedDocument is the text of one upload plus where it came from.
type ExtractedDocument struct {
	Text        string
	Source      Source
	Degradation Degradation
	File        FileFacts
}

// DocumentFromText wraps untagged text, deriving the source from its content.
func DocumentFromText(text string) ExtractedDocument {
	return ExtractedDocument{Text: text, Source: DetectSource(text)}
}

// AnalysisResult is either model output or a templated fallback.
type AnalysisResult struct {
	Text        string
	Degradation Degradation
	DocType     DocumentType
}

// Layout names the report variant chosen for a document.
type Layout string

const (
	LayoutMedical    Layout = "medical"
	LayoutProcessing Layout = "processing"
	LayoutMinimal    Layout = "minimal"
)

func LayoutFor(s Source) Layout {
	if s == SourceMetadataFallback {
		return LayoutProcessing
	}
	return LayoutMedical
}

// ReportDocument is a rendered report on disk.
type ReportDocument struct {
	Filename string
	Path     string
	Layout   Layout
	Fallback bool
}
