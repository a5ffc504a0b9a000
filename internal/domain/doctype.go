package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// DocumentType is the coarse kind of medical report.
type DocumentType int

const (
	DocGeneral DocumentType = iota
	DocSurgery
	DocLab
	DocImaging
	DocDischarge
	DocConsultation
)

var docTypeNames = map[DocumentType]string{
	DocGeneral:      "general",
	DocSurgery:      "surgery",
	DocLab:          "lab",
	DocImaging:      "imaging",
	DocDischarge:    "discharge",
	DocConsultation: "consultation",
}

func (t DocumentType) String() string { return docTypeNames[t] }

// Title is the human label used in metadata descriptions.
func (t DocumentType) Title() string {
	switch t {
	case DocSurgery:
		return "Surgical Operative Report"
	case DocLab:
		return "Laboratory Report"
	case DocImaging:
		return "Imaging Report"
	case DocDischarge:
		return "Discharge Summary"
	case DocConsultation:
		return "Consultation Report"
	default:
		return "Medical Report"
	}
}

// Focus describes what the document is about.
func (t DocumentType) Focus() string {
	switch t {
	case DocSurgery:
		return "surgical procedure"
	case DocLab:
		return "laboratory test results"
	case DocImaging:
		return "diagnostic imaging findings"
	case DocDischarge:
		return "patient discharge information"
	case DocConsultation:
		return "specialist consultation"
	default:
		return "medical documentation"
	}
}

// Clinical collapses the types without a dedicated analysis profile.
func (t DocumentType) Clinical() DocumentType {
	switch t {
	case DocSurgery, DocLab, DocImaging:
		return t
	default:
		return DocGeneral
	}
}

type docRule struct {
	t  DocumentType
	re *regexp.Regexp
}

// Evaluated in order; the first hit wins.
var docRules = []docRule{
	{DocSurgery, regexp.MustCompile(`\b\w*(surg|operative)\w*\b`)},
	{DocLab, regexp.MustCompile(`\b(lab|labs|laboratory|blood\w*|tests?)\b`)},
	{DocImaging, regexp.MustCompile(`\b(x ?ray\w*|ct|mri|imaging|radiology)\b`)},
	{DocDischarge, regexp.MustCompile(`\bdischarge\w*\b`)},
	{DocConsultation, regexp.MustCompile(`\bconsult\w*\b`)},
}

// Classify scans a filename or text for document type keywords. Separators
// such as underscores and dashes count as word breaks, so "lab_results.png"
// and "x-ray" both match while "label" or "doctor" do not.
func Classify(s string) DocumentType {
	norm := normalizeTokens(s)
	for _, r := range docRules {
		if r.re.MatchString(norm) {
			return r.t
		}
	}
	return DocGeneral
}

func normalizeTokens(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
}
