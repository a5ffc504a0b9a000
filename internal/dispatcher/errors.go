package dispatcher

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned when a provider/model is cooling down.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrNoProviders means no model provider is configured.
	ErrNoProviders = errors.New("no model providers configured")
)

// RateLimitError represents a rate limit or timeout error
type RateLimitError struct {
	Provider string
	Model    string
	Reason   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit: %s/%s - %s", e.Provider, e.Model, e.Reason)
}

// ValidationError represents a fatal validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}
