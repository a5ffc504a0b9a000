package domain

import (
	"errors"
	"io"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want DocumentType
	}{
		{"knee_surgery_scan.jpg", DocSurgery},
		{"OPERATIVE REPORT", DocSurgery},
		{"postoperative notes", DocSurgery},
		{"lab_results.png", DocLab},
		{"bloodwork-2024.jpeg", DocLab},
		{"chest-xray.png", DocImaging},
		{"X-Ray of the left wrist", DocImaging},
		{"head_ct.tiff", DocImaging},
		{"MRI.bmp", DocImaging},
		{"discharge_summary.pdf", DocDischarge},
		{"cardiology consultation.png", DocConsultation},
		{"doctor_label_note.png", DocGeneral},
		{"scan.png", DocGeneral},
	}
	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestClinicalCollapsesExtendedTypes(t *testing.T) {
	if DocDischarge.Clinical() != DocGeneral || DocConsultation.Clinical() != DocGeneral {
		t.Fatal("expected discharge and consultation to collapse to general")
	}
	if DocLab.Clinical() != DocLab {
		t.Fatal("lab must stay lab")
	}
}

func TestDetectSource(t *testing.T) {
	if DetectSource("blah\nMEDICAL DOCUMENT ANALYSIS\n") != SourceMetadataFallback {
		t.Fatal("analysis marker not detected")
	}
	if DetectSource("DOCUMENT PROCESSING STATUS:") != SourceMetadataFallback {
		t.Fatal("status marker not detected")
	}
	if DetectSource("Patient Name: Jane Doe") != SourceRealOCR {
		t.Fatal("plain text misclassified")
	}
}

func TestSentinelDefaults(t *testing.T) {
	p := NewPatientInfo()
	for _, f := range p.Fields() {
		if f.Value != NotSpecified {
			t.Fatalf("%s = %q", f.Label, f.Value)
		}
	}
	if p.Recovered() {
		t.Fatal("empty patient info reported as recovered")
	}
	p.Gender = "Female"
	if !p.Recovered() {
		t.Fatal("expected recovered after setting gender")
	}
	if NewSurgicalInfo().Recovered() {
		t.Fatal("empty surgical info reported as recovered")
	}
}

func TestWrapError(t *testing.T) {
	err := WrapError(ErrNotFound, "extract", io.EOF)
	if !IsKind(err, ErrNotFound) || !errors.Is(err, io.EOF) {
		t.Fatalf("kind or cause lost: %v", err)
	}
	if WrapError(ErrNotFound, "extract", nil) != nil {
		t.Fatal("nil cause must stay nil")
	}
}
