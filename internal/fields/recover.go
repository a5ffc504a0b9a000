// Package fields recovers patient, surgical and recommendation data from
// OCR text. Every function here is pure; unmatched fields keep the
// domain.NotSpecified sentinel.
package fields

import (
	"regexp"
	"strings"

	"github.com/local/vitanote/internal/domain"
)

var (
	reAge        = regexp.MustCompile(`(\d+)[\s-]*(?:year-old|years old)`)
	reAgeLabel   = regexp.MustCompile(`\bage:`)
	reFemale     = regexp.MustCompile(`\bfemale\b`)
	reMale       = regexp.MustCompile(`\bmale\b`)
	reName       = regexp.MustCompile(`\b[A-Z][a-z]+[ \t]+[A-Z][a-z]+\b`)
	reMRNumber   = regexp.MustCompile(`\b\d{6}\b`)
	reAccountNo  = regexp.MustCompile(`\b\d{7}\b`)
	reDate       = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{1,2}/\d{4}`)
	nameStopList = []string{"surgery", "operative", "report", "medical", "hospital", "doctor", "nurse"}
)

var (
	nameLabels      = []string{"patient name:", "patient:"}
	mrLabels        = []string{"mr number:", "mr no:", "mr:"}
	operationLabels = []string{"date of operation:", "operation date:", "surgery date:", "date of surgery:"}
	accountLabels   = []string{"account no:", "account number:", "account:"}
)

// Recover runs all three recoverers over the same text.
func Recover(text string) domain.Fields {
	return domain.Fields{
		Patient:         RecoverPatientInfo(text),
		Surgical:        RecoverSurgicalInfo(text),
		Recommendations: RecoverRecommendations(text),
	}
}

// RecoverPatientInfo fills patient identity fields. The first qualifying
// line wins for each field.
func RecoverPatientInfo(text string) domain.PatientInfo {
	p := domain.NewPatientInfo()

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if containsAny(lower, nameLabels) || (strings.Contains(lower, "name:") && strings.Contains(lower, "patient")) {
			setOnce(&p.Name, afterColon(line))
		}
		if containsAny(lower, mrLabels) || (strings.Contains(lower, "medical record") && strings.Contains(line, ":")) {
			setOnce(&p.MRNumber, afterColon(line))
		}
		if containsAny(lower, operationLabels) {
			setOnce(&p.DateOfOperation, afterColon(line))
		}
		if containsAny(lower, accountLabels) {
			setOnce(&p.AccountNo, afterColon(line))
		}
		if strings.Contains(lower, "height:") {
			setOnce(&p.Height, afterColon(line))
		}
		if strings.Contains(lower, "weight:") {
			setOnce(&p.Weight, afterColon(line))
		}

		switch {
		case reFemale.MatchString(lower):
			setOnce(&p.Gender, "Female")
		case reMale.MatchString(lower):
			setOnce(&p.Gender, "Male")
		}

		if m := reAge.FindStringSubmatch(lower); m != nil {
			setOnce(&p.Age, m[1]+" years old")
		} else if reAgeLabel.MatchString(lower) {
			setOnce(&p.Age, afterColon(line))
		}
	}

	if p.Name == domain.NotSpecified {
		setOnce(&p.Name, findName(text))
	}
	if p.MRNumber == domain.NotSpecified {
		setOnce(&p.MRNumber, reMRNumber.FindString(text))
	}
	if p.DateOfOperation == domain.NotSpecified {
		setOnce(&p.DateOfOperation, reDate.FindString(text))
	}
	if p.AccountNo == domain.NotSpecified {
		setOnce(&p.AccountNo, reAccountNo.FindString(text))
	}

	for _, f := range []*string{&p.Name, &p.MRNumber, &p.DateOfOperation, &p.Age, &p.Gender, &p.AccountNo, &p.Height, &p.Weight} {
		*f = lastSegment(*f)
	}
	return p
}

type surgicalRule struct {
	triggers []string
	field    func(*domain.SurgicalInfo) *string
}

// One rule claims a line; rules are tried in this order.
var surgicalRules = []surgicalRule{
	{[]string{"preoperative diagnosis:", "pre-operative diagnosis:"}, func(s *domain.SurgicalInfo) *string { return &s.PreoperativeDiagnosis }},
	{[]string{"postoperative diagnosis:", "post-operative diagnosis:"}, func(s *domain.SurgicalInfo) *string { return &s.PostoperativeDiagnosis }},
	{[]string{"operation performed:"}, func(s *domain.SurgicalInfo) *string { return &s.OperationPerformed }},
	{[]string{"surgeon"}, func(s *domain.SurgicalInfo) *string { return &s.Surgeon }},
	{[]string{"anesthesia"}, func(s *domain.SurgicalInfo) *string { return &s.Anesthesia }},
	{[]string{"condition"}, func(s *domain.SurgicalInfo) *string { return &s.Condition }},
	{[]string{"complications"}, func(s *domain.SurgicalInfo) *string { return &s.Complications }},
}

// RecoverSurgicalInfo fills surgical metadata. A line is claimed by the
// first rule whose trigger it contains and whose field is still unset.
func RecoverSurgicalInfo(text string) domain.SurgicalInfo {
	s := domain.NewSurgicalInfo()

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, rule := range surgicalRules {
			f := rule.field(&s)
			if *f != domain.NotSpecified || !containsAny(lower, rule.triggers) {
				continue
			}
			setOnce(f, afterColon(line))
			break
		}
	}
	return s
}

var recommendationKeywords = []string{"recommend", "follow-up", "return", "schedule", "continue", "discontinue", "advise"}

// RecoverRecommendations keeps trigger lines in order, bulleted, capped at
// domain.MaxRecommendations.
func RecoverRecommendations(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || !containsAny(strings.ToLower(line), recommendationKeywords) {
			continue
		}
		out = append(out, domain.RecommendationBullet+line)
		if len(out) == domain.MaxRecommendations {
			break
		}
	}
	return out
}

func findName(text string) string {
	for _, loc := range reName.FindAllStringIndex(text, -1) {
		if !containsAny(strings.ToLower(enclosingLine(text, loc[0], loc[1])), nameStopList) {
			return text[loc[0]:loc[1]]
		}
	}
	return ""
}

func enclosingLine(text string, start, end int) string {
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	lineEnd := len(text)
	if i := strings.IndexByte(text[end:], '\n'); i >= 0 {
		lineEnd = end + i
	}
	return text[lineStart:lineEnd]
}

// afterColon returns the trimmed text after the first colon, or "" when the
// line has none.
func afterColon(line string) string {
	_, v, ok := strings.Cut(line, ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func lastSegment(v string) string {
	if v == domain.NotSpecified || !strings.Contains(v, ":") {
		return v
	}
	if tail := strings.TrimSpace(v[strings.LastIndexByte(v, ':')+1:]); tail != "" {
		return tail
	}
	return domain.NotSpecified
}

func setOnce(dst *string, v string) {
	if *dst == domain.NotSpecified && v != "" {
		*dst = v
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
