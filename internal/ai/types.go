package ai

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "time"
    "unicode/utf8"
)

// Request is a single-turn completion: one user message, no system prompt.
type Request struct {
    Model     string
    Prompt    string
    MaxTokens int
    Timeout   time.Duration
}

type Response struct {
    Text      string
    TokensIn  int
    TokensOut int
}

// Client interface for providers like Groq, OpenAI, Anthropic.
type Client interface {
    Name() string
    Do(ctx context.Context, req Request) (Response, error)
}

var (
    ErrRateLimited    = errors.New("rate_limited")
    ErrContentRefused = errors.New("content_refused")
    ErrMissingKey     = errors.New("missing API key")
    ErrEmptyResponse  = errors.New("empty response")
)

func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
func IsContentRefused(err error) bool { return errors.Is(err, ErrContentRefused) }

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
    Provider   string
    StatusCode int
    Body       string
}

func (e *StatusError) Error() string {
    if e.Body == "" {
        return fmt.Sprintf("%s status %d", e.Provider, e.StatusCode)
    }
    return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Is lets a 429 match ErrRateLimited.
func (e *StatusError) Is(target error) bool {
    return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

const maxBodyBytes = 300

// truncateBody caps provider error text without splitting a rune.
func truncateBody(s string) string {
    if len(s) <= maxBodyBytes { return s }
    cut := maxBodyBytes
    for cut > 0 && !utf8.RuneStart(s[cut]) { cut-- }
    return s[:cut]
}
