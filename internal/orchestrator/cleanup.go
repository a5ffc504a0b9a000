package orchestrator

import (
    "os"
    "path/filepath"
    "strings"
    "time"
)

// CleanupTemps removes page-image directories left behind by interrupted OCR
// runs in dir when they are older than maxAge. It returns how many were
// removed.
func CleanupTemps(dir string, maxAge time.Duration) int {
    if dir == "" { dir = os.TempDir() }
    entries, err := os.ReadDir(dir)
    if err != nil { return 0 }
    now := time.Now()
    removed := 0
    for _, e := range entries {
        if !e.IsDir() || !strings.HasPrefix(e.Name(), "vitanote-pages-") { continue }
        info, err := e.Info()
        if err != nil { continue }
        if now.Sub(info.ModTime()) >= maxAge {
            if os.RemoveAll(filepath.Join(dir, e.Name())) == nil { removed++ }
        }
    }
    return removed
}
