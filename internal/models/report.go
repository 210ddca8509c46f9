package models

import "time"

// LoadFailure records one source that could not be fully parsed during
// a reconciliation pass. Line is 1-based and zero when the failure
// concerns the whole file.
type LoadFailure struct {
	Path   string    `json:"path"`
	Reason string    `json:"reason"`
	Line   int       `json:"line,omitempty"`
	At     time.Time `json:"at"`
}

// LoadReport is the append-only failure record for one reconciliation
// pass. Consumers render it as a non-blocking degraded indicator; a
// failure never aborts the pass that recorded it.
type LoadReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Failures    []LoadFailure `json:"failures,omitempty"`
}

// Degraded reports whether the last pass recorded any failures.
func (r LoadReport) Degraded() bool {
	return len(r.Failures) > 0
}
