package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/local/vitanote/internal/domain"
)

type fakeCompleter struct {
	text   string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

func realDoc(text string) domain.ExtractedDocument {
	return domain.ExtractedDocument{Text: text, Source: domain.SourceRealOCR}
}

func TestAnalyzeRemoteVerbatim(t *testing.T) {
	c := &fakeCompleter{text: "<p>Everything looks normal.</p>"}
	res := New(Remote(c)).Analyze(context.Background(), realDoc("Blood test results normal"))

	if res.Text != c.text || res.Degradation.Degraded() {
		t.Fatalf("res = %+v", res)
	}
	if c.prompt != "Blood test results normal" {
		t.Fatalf("prompt = %q", c.prompt)
	}
}

func TestAnalyzeUnconfiguredNeverEmpty(t *testing.T) {
	a := New(Unconfigured())
	for _, text := range []string{"", "   ", "hello", domain.MarkerAnalysis} {
		res := a.Analyze(context.Background(), domain.DocumentFromText(text))
		if strings.TrimSpace(res.Text) == "" {
			t.Errorf("empty analysis for %q", text)
		}
		if !res.Degradation.Degraded() {
			t.Errorf("expected degradation for %q", text)
		}
	}
}

func TestAnalyzeRemoteErrorFallsBack(t *testing.T) {
	c := &fakeCompleter{err: errors.New("groq status 503")}
	res := New(Remote(c)).Analyze(context.Background(), realDoc("Blood test results normal"))

	if !strings.Contains(res.Degradation.Reason, "503") {
		t.Fatalf("reason = %q", res.Degradation.Reason)
	}
	if !strings.Contains(res.Text, "Laboratory Report Analysis") || !strings.Contains(res.Text, "4 words") {
		t.Fatalf("text = %s", res.Text)
	}
	if res.DocType != domain.DocLab {
		t.Fatalf("doc type = %v", res.DocType)
	}
}

func TestAnalyzeRemoteBlankFallsBack(t *testing.T) {
	res := New(Remote(&fakeCompleter{text: "  \n"})).Analyze(context.Background(), realDoc("note"))
	if !res.Degradation.Degraded() || !strings.Contains(res.Text, "Medical Report Analysis") {
		t.Fatalf("res = %+v", res)
	}
}

func TestFallbackSurgeryIncludesRecoveredFields(t *testing.T) {
	text := strings.Join([]string{
		"OPERATIVE REPORT",
		"Patient Name: John Smith",
		"Preoperative Diagnosis: Appendicitis",
		"Surgeon: Dr. Adams",
	}, "\n")
	res := Fallback(realDoc(text))

	for _, want := range []string{
		"Surgical Report Analysis",
		"<strong>Patient Name:</strong> John Smith",
		"<strong>Preoperative Diagnosis:</strong> Appendicitis",
		"GROQ_API_KEY",
	} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("missing %q in:\n%s", want, res.Text)
		}
	}
	if strings.Contains(res.Text, domain.NotSpecified) {
		t.Errorf("unrecovered fields should be omitted:\n%s", res.Text)
	}
}

func TestFallbackProfiles(t *testing.T) {
	cases := []struct {
		text  string
		title string
		want  domain.DocumentType
	}{
		{"Postoperative course uneventful", "Surgical Report Analysis", domain.DocSurgery},
		{"Lab panel attached", "Laboratory Report Analysis", domain.DocLab},
		{"MRI of the knee", "Imaging Report Analysis", domain.DocImaging},
		{"Discharge summary", "Medical Report Analysis", domain.DocGeneral},
	}
	for _, c := range cases {
		res := Fallback(realDoc(c.text))
		if !strings.Contains(res.Text, c.title) || res.DocType != c.want {
			t.Errorf("%q: type %v text %s", c.text, res.DocType, res.Text)
		}
	}
}

func TestFallbackMetadataUsesProcessingTemplate(t *testing.T) {
	doc := domain.ExtractedDocument{
		Text:   domain.MarkerAnalysis + "\nsurgery lab mri",
		Source: domain.SourceMetadataFallback,
		File:   domain.FileFacts{Name: "blood_work.png", Size: 48213},
	}
	res := Fallback(doc)

	for _, want := range []string{"Document Processing Report", "blood_work.png", "48,213 bytes", "Laboratory Report"} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("missing %q in:\n%s", want, res.Text)
		}
	}
	if strings.Contains(res.Text, "Key Observations") {
		t.Errorf("metadata input got a medical template:\n%s", res.Text)
	}
}

func TestReplyDetectsMetadataContext(t *testing.T) {
	prompt := ChatPrompt(domain.MarkerProcessingStatus+": uploaded", "what does it say?")
	res := New(Unconfigured()).Reply(context.Background(), prompt)
	if !strings.Contains(res.Text, "Document Processing Report") {
		t.Fatalf("text = %s", res.Text)
	}
}

func TestChatPrompt(t *testing.T) {
	got := ChatPrompt("All normal.", "Is this bad?")
	want := "You are a helpful medical assistant. The user was shown this summary:\n\nAll normal.\n\nNow they asked: Is this bad?\n\nReply accordingly."
	if got != want {
		t.Fatalf("got %q", got)
	}
}
