package cycle

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// LeaseError records one lease's failure within a cycle. Kind is one of
// "storage", "validation", or "fee".
type LeaseError struct {
	LeaseID int64  `json:"lease_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Report summarizes one billing cycle.
type Report struct {
	StartedAt        time.Time    `json:"started_at"`
	FinishedAt       time.Time    `json:"finished_at"`
	LeasesProcessed  int          `json:"leases_processed"`
	ChargesGenerated int          `json:"charges_generated"`
	SnapshotsCreated int          `json:"snapshots_created"`
	SnapshotsUpdated int          `json:"snapshots_updated"`
	FeesApplied      int          `json:"fees_applied"`
	NotAttempted     int          `json:"not_attempted"`
	Errors           []LeaseError `json:"errors"`
}

// Err combines the per-lease failures into one error for logging, or nil
// when the cycle was clean.
func (r *Report) Err() error {
	var err error
	for _, le := range r.Errors {
		err = multierr.Append(err, fmt.Errorf("lease %d (%s): %s", le.LeaseID, le.Kind, le.Message))
	}
	return err
}
