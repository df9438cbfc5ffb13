package models

// FlushResult aggregates the outcome of one reconciliation pass.
// Partial failure is normal: Pushed and Failed can both be non-zero,
// and Err carries the first per-item error for diagnostics.
type FlushResult struct {
	Pushed int
	Failed int
	Err    error
}

// Health is the result of a local/remote drift check.
type Health struct {
	Local        int
	Remote       int
	PendingQueue int

	// DriftDetected is set when the queue is empty yet local and remote
	// counts diverge beyond the configured tolerance. A non-empty queue is
	// ordinary lag, not drift.
	DriftDetected bool
}
