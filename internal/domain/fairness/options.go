package fairness

import "github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"

// Option configures the Monitor.
type Option func(*Monitor)

// WithDefaultMaxFraction sets the ceiling fraction applied to quotas that do
// not carry their own MaxFraction. Values outside (0, 1] are ignored.
func WithDefaultMaxFraction(f float64) Option {
	return func(m *Monitor) {
		if f > 0 && f <= 1 {
			m.defaultMaxFraction = f
		}
	}
}

// WithWaiveInfeasible controls whether slots with infeasible floors have
// those floors zeroed and waived instead of failing the schedule.
func WithWaiveInfeasible(waive bool) Option {
	return func(m *Monitor) {
		m.waiveInfeasible = waive
	}
}

// WithTolerance sets the disparity band. Values outside [0, 1] are ignored.
func WithTolerance(t float64) Option {
	return func(m *Monitor) {
		if t >= 0 && t <= 1 {
			m.tolerance = t
		}
	}
}

// WithScope sets the disparity scope. Unknown scopes are ignored.
func WithScope(scope string) Option {
	return func(m *Monitor) {
		if scope == ScopeAggregate || scope == ScopePerSlot {
			m.scope = scope
		}
	}
}

// WithLogger sets the logger used for waivers, previews and violations.
func WithLogger(log logger.Logger) Option {
	return func(m *Monitor) {
		m.log = log
	}
}
