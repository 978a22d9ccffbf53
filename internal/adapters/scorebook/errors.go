package scorebook

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNotFound      = errors.New("pair not scored")
	ErrInvalidPair   = errors.New("pair missing identifiers")
	ErrDuplicatePair = errors.New("pair already scored")
)
