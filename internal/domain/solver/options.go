package solver

import "github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"

// Option configures the Solver.
type Option func(*Solver)

// WithWaiveUnmetFloors controls whether reserved floors no eligible candidate
// can fill are waived back into the open pool instead of failing the solve.
func WithWaiveUnmetFloors(waive bool) Option {
	return func(s *Solver) {
		s.waiveUnmetFloors = waive
	}
}

// WithLogger sets the logger used for phase summaries and waivers.
func WithLogger(log logger.Logger) Option {
	return func(s *Solver) {
		s.log = log
	}
}
