package statuscheck

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "time"
)

// Pinger models the minimal capability we need from Redis and the S3 archive.
type Pinger interface {
    Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// OCR is the part of an OCR engine the readiness probe looks at.
type OCR interface {
    Name() string
    Available() bool
}

// Checker aggregates health checks for the service's dependencies.
type Checker struct {
    redis     Pinger
    archive   Pinger
    ocr       OCR
    outputDir string
    models    map[string]bool
}

// Options configures the Checker. Nil pingers mean the dependency is not
// configured, which is a valid state.
type Options struct {
    Redis     Pinger
    Archive   Pinger
    OCR       OCR
    OutputDir string
    // Models maps provider name to whether a key is configured.
    Models map[string]bool
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
    Ready   bool              `json:"ready"`
    Output  Status            `json:"output"`
    OCR     Status            `json:"ocr"`
    Models  map[string]Status `json:"models"`
    Redis   Status            `json:"redis"`
    Archive Status            `json:"archive"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
    return &Checker{
        redis:     opts.Redis,
        archive:   opts.Archive,
        ocr:       opts.OCR,
        outputDir: opts.OutputDir,
        models:    opts.Models,
    }
}

// Summary returns the current status snapshot. Only the output directory
// gates readiness: every other dependency has a fallback.
func (c *Checker) Summary(ctx context.Context) Summary {
    s := Summary{
        Output:  c.checkOutput(),
        OCR:     c.checkOCR(),
        Models:  c.checkModels(),
        Redis:   c.checkPinger(ctx, c.redis, "Not configured (in-process breakers)"),
        Archive: c.checkPinger(ctx, c.archive, "Not configured"),
    }
    s.Ready = s.Output.OK
    return s
}

func (c *Checker) checkOutput() Status {
    dir := c.outputDir
    if dir == "" {
        return Status{OK: false, Message: "Output directory not configured"}
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    f, err := os.CreateTemp(dir, ".probe-*")
    if err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    name := f.Name()
    f.Close()
    os.Remove(name)
    return Status{OK: true, Message: "Writable: " + filepath.Clean(dir)}
}

func (c *Checker) checkOCR() Status {
    if c.ocr == nil {
        return Status{OK: false, Message: "No engine (metadata fallback)"}
    }
    if !c.ocr.Available() {
        return Status{OK: false, Message: c.ocr.Name() + " unavailable (metadata fallback)"}
    }
    return Status{OK: true, Message: c.ocr.Name() + " available"}
}

func (c *Checker) checkModels() map[string]Status {
    out := make(map[string]Status, len(c.models))
    for name, configured := range c.models {
        if configured {
            out[name] = Status{OK: true, Message: "API key configured"}
        } else {
            out[name] = Status{OK: false, Message: "API key missing"}
        }
    }
    return out
}

func (c *Checker) checkPinger(ctx context.Context, p Pinger, unset string) Status {
    if p == nil {
        return Status{OK: true, Message: unset}
    }
    ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
    defer cancel()
    if err := p.Ping(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func trimError(err error) string {
    if err == nil {
        return ""
    }
    var netErr interface{ Timeout() bool }
    if errors.As(err, &netErr) && netErr.Timeout() {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}
