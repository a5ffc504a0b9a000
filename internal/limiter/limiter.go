package limiter

import (
    "context"
    "strings"
    "sync"

    "github.com/local/vitanote/internal/metrics"
)

// Slots bounds concurrent work per key (for example one key per OCR engine).
type Slots struct {
    max int
    mu  sync.Mutex
    sem map[string]chan struct{}
}

func New(maxPerKey int) *Slots {
    if maxPerKey <= 0 { maxPerKey = 2 }
    return &Slots{max: maxPerKey, sem: map[string]chan struct{}{}}
}

func (s *Slots) channel(key string) chan struct{} {
    key = strings.ToLower(key)
    s.mu.Lock()
    defer s.mu.Unlock()
    ch, ok := s.sem[key]
    if !ok {
        ch = make(chan struct{}, s.max)
        s.sem[key] = ch
    }
    return ch
}

// Acquire blocks until a slot for key is free or ctx is done.
// The returned release func must be called exactly once.
func (s *Slots) Acquire(ctx context.Context, key string) (func(), error) {
    ch := s.channel(key)
    select {
    case ch <- struct{}{}:
        metrics.OCRSlotAcquired()
        var once sync.Once
        return func() {
            once.Do(func() {
                <-ch
                metrics.OCRSlotReleased()
            })
        }, nil
    case <-ctx.Done():
        return func() {}, ctx.Err()
    }
}
