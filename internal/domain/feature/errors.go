package feature

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidFeatures = errors.New("invalid features")
)

// ValidationError reports a raw feature payload the normalizer rejected.
// The entity carrying the payload is excluded from the round; the round
// itself continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid features: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidFeatures) match validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidFeatures
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
