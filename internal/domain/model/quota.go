package model

// Quota is a round-level policy bound for one protected category, applied to
// every slot. Explicit per-slot Reserved counts take precedence for floors.
type Quota struct {
	Category    Category `json:"category"`
	MinFraction float64  `json:"min_fraction"`
	MaxFraction float64  `json:"max_fraction"`
}

// SeatBounds is the derived floor and ceiling seat count for one category
// within one slot.
type SeatBounds struct {
	Floor   int `json:"floor"`
	Ceiling int `json:"ceiling"`
}

// QuotaSchedule fixes per-slot, per-category seat bounds for a round. It is
// produced by the fairness monitor before solving and is read-only afterward.
type QuotaSchedule struct {
	// Bounds maps slot ID to the category bounds enforced on it.
	Bounds map[string]map[Category]SeatBounds `json:"bounds"`

	// Waived lists floors zeroed under the waive-infeasible policy.
	Waived []QuotaWaiver `json:"waived,omitempty"`
}

// BoundsFor returns the bounds for a category within a slot. Absent entries
// impose no floor and leave the ceiling at the slot's capacity.
func (qs QuotaSchedule) BoundsFor(slotID string, cat Category) (SeatBounds, bool) {
	byCat, ok := qs.Bounds[slotID]
	if !ok {
		return SeatBounds{}, false
	}
	b, ok := byCat[cat]
	return b, ok
}

// FloorTotal sums the floors scheduled for one slot.
func (qs QuotaSchedule) FloorTotal(slotID string) int {
	total := 0
	for _, b := range qs.Bounds[slotID] {
		total += b.Floor
	}
	return total
}
