package scoring

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidWeights = errors.New("invalid factor weights")
	ErrFactorFailed   = errors.New("factor failed")
)

// FactorError reports one factor that could not compute a subscore. The
// scorer absorbs it: the factor contributes the neutral subscore and the
// pair score is marked degraded.
type FactorError struct {
	Factor string
	Reason string
}

func (e *FactorError) Error() string {
	return fmt.Sprintf("factor %s failed: %s", e.Factor, e.Reason)
}

// Is lets errors.Is(err, ErrFactorFailed) match factor errors.
func (e *FactorError) Is(target error) bool {
	return target == ErrFactorFailed
}
