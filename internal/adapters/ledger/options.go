package ledger

import "time"

// Option applies a configuration option to the MemoryLedger.
type Option func(*MemoryLedger)

// WithNow sets the clock used to stamp RecordedAt on appended records.
func WithNow(now func() time.Time) Option {
	return func(l *MemoryLedger) {
		if now != nil {
			l.now = now
		}
	}
}
