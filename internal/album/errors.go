package album

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error kinds returned by the stores and the service. Callers classify
// failures with errors.Is; the HTTP layer maps each kind to a status code.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPathEscape   = errors.New("path escapes storage root")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnsupported  = errors.New("unsupported file type")
	ErrIOFailure    = errors.New("io failure")
	ErrTooLarge     = errors.New("too large")
)

// Errorf wraps kind with a formatted message. The message may itself wrap
// an underlying cause with %w.
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w", kind, fmt.Errorf(format, args...))
}

// IOError wraps err as ErrIOFailure unless it already carries
// fs.ErrNotExist, in which case the race surfaces as ErrNotFound.
func IOError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrNotFound, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrIOFailure, op, err)
}
