package dispatcher

import (
	"context"
	"errors"
	"strings"

	"github.com/local/vitanote/internal/ai"
)

// isTransientError checks if error is transient and should trigger failover
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	// Content refusal - try alternative models
	if ai.IsContentRefused(err) || ai.IsRateLimited(err) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCircuitOpen) {
		return true
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var statusErr *ai.StatusError
	if errors.As(err, &statusErr) {
		// 5xx and 529 overloaded are transient, 408 is a server-side timeout
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == 408 || statusErr.StatusCode == 429
	}

	// Network errors (connection issues, timeouts)
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "eof") {
		return true
	}

	return false
}

// isFatalError checks if error is fatal and should not be retried
func isFatalError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return true
	}

	// HTTP 4xx errors (except 408 and 429)
	var statusErr *ai.StatusError
	if errors.As(err, &statusErr) {
		c := statusErr.StatusCode
		return c >= 400 && c < 500 && c != 429 && c != 408
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "invalid request") ||
		strings.Contains(errStr, "validation failed") ||
		strings.Contains(errStr, "bad request") ||
		strings.Contains(errStr, "malformed")
}

// isTimeoutError checks if error is specifically a timeout
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// classify labels err for metrics.
func classify(err error) string {
	switch {
	case err == nil:
		return "success"
	case isTimeoutError(err):
		return "timeout"
	case ai.IsRateLimited(err):
		return "rate_limited"
	case ai.IsContentRefused(err):
		return "content_refused"
	case isTransientError(err):
		return "transient"
	case isFatalError(err):
		return "fatal"
	default:
		return "unknown"
	}
}
