package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrRetrieval     = errors.New("retrieval failed")
	ErrGeneration    = errors.New("generation failed")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTemporary     = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Kind maps an error to the machine-readable kind exposed in API responses.
func Kind(err error) string {
	switch {
	case IsKind(err, ErrConfiguration):
		return "configuration_error"
	case IsKind(err, ErrRetrieval):
		return "retrieval_error"
	case IsKind(err, ErrGeneration):
		return "generation_error"
	case IsKind(err, ErrNotFound):
		return "not_found"
	case IsKind(err, ErrInvalidInput):
		return "invalid_input"
	case IsKind(err, ErrTemporary):
		return "temporary_failure"
	default:
		return "internal_error"
	}
}
