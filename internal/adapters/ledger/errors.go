package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecord is returned when an appended record is missing its
	// kind or round, or carries fields only the ledger may assign.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrChainBroken is returned when verification finds a record whose
	// hash or linkage does not match the chain.
	ErrChainBroken = errors.New("ledger chain broken")
)

// ChainError reports the first record at which chain verification failed.
type ChainError struct {
	Seq    uint64
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("ledger chain broken at seq %d: %s", e.Seq, e.Reason)
}

// Is reports whether this error matches ErrChainBroken.
func (e *ChainError) Is(target error) bool {
	return target == ErrChainBroken
}
