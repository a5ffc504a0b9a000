package store

import (
    "testing"
    "time"
)

func TestEncodeOmitsUnsetFields(t *testing.T) {
    m := encode(StageRecord{Stage: "EXTRACTED", Message: "extraction complete"})
    if _, ok := m["start"]; ok {
        t.Errorf("start written without a value")
    }
    if _, ok := m["file"]; ok {
        t.Errorf("file written without a value")
    }
    if m["updated"] == "" {
        t.Errorf("updated not stamped")
    }
}

func TestDecodeStoredHash(t *testing.T) {
    start := time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
    rec := decode(map[string]string{
        "stage":    "RENDERED",
        "message":  "report rendered",
        "file":     "scan.pdf",
        "start":    start.Format(time.RFC3339Nano),
        "updated":  start.Add(3 * time.Second).Format(time.RFC3339Nano),
        "metadata": `{"layout":"medical"}`,
    })
    if rec.Stage != "RENDERED" || rec.File != "scan.pdf" {
        t.Fatalf("rec = %+v", rec)
    }
    if rec.Start == nil || !rec.Start.Equal(start) {
        t.Errorf("start = %v", rec.Start)
    }
    if got := rec.Updated.Sub(start); got != 3*time.Second {
        t.Errorf("updated offset = %v", got)
    }
    if rec.Metadata["layout"] != "medical" {
        t.Errorf("metadata = %v", rec.Metadata)
    }
}

func TestDecodeToleratesBadValues(t *testing.T) {
    rec := decode(map[string]string{"stage": "FAILED", "start": "yesterday", "metadata": "{"})
    if rec.Stage != "FAILED" || rec.Start != nil || rec.Metadata != nil {
        t.Fatalf("rec = %+v", rec)
    }
}
