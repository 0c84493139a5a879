package contracts

import "time"

// Operation names a factor dataset operation
type Operation string

const (
	OperationWriteNew Operation = "write_new"
	OperationUpdate   Operation = "update"
)

// FactorRun records the outcome of one factor operation
type FactorRun struct {
	Factor      string    `json:"factor"`
	Operation   Operation `json:"operation"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Success     bool      `json:"success"`
	Skipped     bool      `json:"skipped"`
	Appended    int       `json:"appended"`
	Frequencies []string  `json:"frequencies"`
	Error       string    `json:"error,omitempty"`
}

// Duration returns how long the run took
func (r *FactorRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
