package fields

import (
	"strings"

	"github.com/local/vitanote/internal/domain"
)

// FormatLines renders fields as "Label: value" lines.
func FormatLines(fs []domain.Field) string {
	lines := make([]string, 0, len(fs))
	for _, f := range fs {
		lines = append(lines, f.Label+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}

func FormatRecommendations(recs []string) string { return strings.Join(recs, "\n") }
