package report

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	anyascii "github.com/anyascii/go"
	"golang.org/x/text/encoding/charmap"
)

// Core PDF fonts only cover Latin-1. Typographic punctuation is mapped
// first so it keeps a readable shape.
var typographic = strings.NewReplacer(
	"\u2022", "\u00b7", // bullet -> middle dot
	"\u2013", "-",
	"\u2014", "--",
	"\u2018", "'",
	"\u2019", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u2026", "...",
	"\u00a0", " ",
	"\u00ae", "(R)",
	"\u00a9", "(C)",
	"\u2713", "*", // check mark used by the metadata descriptions
)

var reTag = regexp.MustCompile(`<[^>]*?>`)

// Sanitize returns s with every rune encodable as ISO-8859-1. Runes outside
// Latin-1 are transliterated; whatever still does not fit is dropped.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = typographic.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxLatin1 {
			writeLatin1(&b, r)
			continue
		}
		for _, t := range anyascii.Transliterate(string(r)) {
			writeLatin1(&b, t)
		}
	}
	return b.String()
}

func writeLatin1(b *strings.Builder, r rune) {
	if r == '\n' || r == '\t' {
		b.WriteRune(r)
		return
	}
	if unicode.IsControl(r) {
		return
	}
	if _, ok := charmap.ISO8859_1.EncodeRune(r); ok {
		b.WriteRune(r)
	}
}

// StripHTML removes markup from model output and decodes entities.
func StripHTML(s string) string {
	return html.UnescapeString(reTag.ReplaceAllString(s, ""))
}

// latin1 converts text into the single-byte encoding the core fonts
// expect.
func latin1(s string) string {
	clean := Sanitize(s)
	b := make([]byte, 0, len(clean))
	for _, r := range clean {
		b = append(b, byte(r))
	}
	return string(b)
}
