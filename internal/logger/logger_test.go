package logger

import (
    "bytes"
    "encoding/json"
    "path/filepath"
    "testing"
)

func TestInitWritesComponentJSON(t *testing.T) {
    var buf bytes.Buffer
    err := Init(Options{
        Level: "debug",
        File:  filepath.Join(t.TempDir(), "logs", "vitanote.log"),
        Out:   &buf,
    })
    if err != nil {
        t.Fatalf("Init: %v", err)
    }
    t.Cleanup(Close)

    l := WithComponent("extract")
    l.Info().Str("file", "scan.png").Msg("extracted")

    var ev map[string]any
    if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
        t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
    }
    if ev["component"] != "extract" || ev["service"] != "vitanote" || ev["file"] != "scan.png" {
        t.Fatalf("unexpected event: %v", ev)
    }
}

func TestInitInvalidLevelFallsBackToInfo(t *testing.T) {
    var buf bytes.Buffer
    if err := Init(Options{Level: "loud", Out: &buf}); err != nil {
        t.Fatal(err)
    }
    Get().Debug().Msg("hidden")
    if buf.Len() != 0 {
        t.Fatalf("debug emitted at info level: %q", buf.String())
    }
}
