package fairness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

// ErrInfeasibleQuota flags a slot whose reserved floors exceed its capacity.
var ErrInfeasibleQuota = errors.New("infeasible quota")

// QuotaInfeasibleError reports the first slot whose scheduled floors sum past
// its capacity. Fatal for the round unless the waive-infeasible policy is on.
type QuotaInfeasibleError struct {
	SlotID     string
	Capacity   int
	FloorTotal int
	Categories []model.Category
}

func (e *QuotaInfeasibleError) Error() string {
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = string(c)
	}
	return fmt.Sprintf("infeasible quota: slot %s reserves %d seats across categories [%s] but has capacity %d",
		e.SlotID, e.FloorTotal, strings.Join(names, " "), e.Capacity)
}

// Is lets errors.Is match against ErrInfeasibleQuota.
func (e *QuotaInfeasibleError) Is(target error) bool {
	return target == ErrInfeasibleQuota
}
