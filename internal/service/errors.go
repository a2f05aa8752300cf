package service

import (
	"errors"
	"fmt"
	"strings"

	"taskboard/internal/schema"
	"taskboard/internal/store"
)

var (
	// ErrInvalidArgument covers malformed identifiers and payloads that fail
	// schema validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound means no employee document exists for the id.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable wraps any persistence failure other than not-found.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError is an ErrInvalidArgument carrying field-level violations.
type ValidationError struct {
	Message string
	Fields  []schema.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// FieldErrors returns the violations attached to err, if any.
func FieldErrors(err error) []schema.FieldError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

func storeError(empID int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: employee %d", ErrNotFound, empID)
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
