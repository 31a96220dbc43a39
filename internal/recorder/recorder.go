package recorder

import "time"

// CycleRun summarizes one completed polling cycle.
type CycleRun struct {
	CycleID     string
	StartedAt   time.Time
	FinishedAt  time.Time
	UnitsOK     int
	UnitsFailed int
}

// BalanceObservation is one account balance seen during a cycle; the local
// history mirrors what gets submitted to the aggregator.
type BalanceObservation struct {
	CycleID     string
	AccountName string
	Vendor      string
	Balance     float64
	ObservedAt  time.Time
}

// Recorder persists collection history for later analysis. Recorder failures
// are never fatal to a cycle.
type Recorder interface {
	RecordCycle(run *CycleRun) error
	RecordBalance(obs *BalanceObservation) error
	Close() error
}
