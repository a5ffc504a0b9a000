package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means no engine is installed or configured.
	ErrUnavailable = errors.New("OCR engine unavailable")

	// ErrOCRFailed means the engine ran and reported a failure.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials means the cloud engine found no credentials.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")

	// ErrImageTooLarge is returned for images above the synchronous Vision
	// request limit.
	ErrImageTooLarge = errors.New("image exceeds the maximum request size (20MB)")
)

// Error wraps an engine failure with the operation that produced it.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrap returns err as an *Error unless it already is one.
func wrap(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var oe *Error
	if errors.As(err, &oe) {
		return err
	}
	return &Error{Op: op, Err: err, Details: details}
}
