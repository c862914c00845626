// Package latefee decides whether a lease owes a late fee for a billing
// period. Decisions are transient; an applied decision materializes as a
// late-fee charge carrying the decision's idempotency key.
package latefee

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mhollis/keyturn/internal/model"
)

// ErrNoPolicy marks a lease with no configured late-fee policy. The cycle
// records it and moves on; it never halts the run.
var ErrNoPolicy = errors.New("lease has no late-fee policy")

// Decision is the outcome of one evaluation. Apply=false means no-op.
type Decision struct {
	ID             string
	LeaseID        int64
	Period         string
	Apply          bool
	AmountCents    int64
	IdempotencyKey string
	Reason         string
}

// Period is the UTC calendar month of now, e.g. "2026-08". One late fee
// at most per lease per period.
func Period(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// Key builds the idempotency key for a lease and period. The charges
// table enforces it unique, so a duplicate apply is rejected by storage
// even if a caller passes stale alreadyApplied state.
func Key(leaseID int64, period string) string {
	return fmt.Sprintf("latefee:%d:%s", leaseID, period)
}

// Evaluate decides whether to assess a late fee. Safe to call repeatedly
// for the same (lease, period): with alreadyApplied threaded correctly it
// returns at most one apply decision, and the key guards the rest.
//
// The trigger is either an amount outside the current aging bucket, or,
// when the lease sets grace days, the oldest charge exceeding that grace.
func Evaluate(lease model.Lease, snap model.AgingSnapshot, period string, alreadyApplied bool) (Decision, error) {
	d := Decision{
		ID:             uuid.NewString(),
		LeaseID:        lease.ID,
		Period:         period,
		IdempotencyKey: Key(lease.ID, period),
	}

	if alreadyApplied {
		d.Reason = "fee already applied for period"
		return d, nil
	}

	if lease.LateFeeMode == model.LateFeeNone {
		return d, ErrNoPolicy
	}
	if lease.LateFeeMode == model.LateFeeFlat && lease.LateFeeCents <= 0 {
		return d, fmt.Errorf("%w: flat fee not set", ErrNoPolicy)
	}
	if lease.LateFeeMode == model.LateFeePercent && lease.LateFeeBps <= 0 {
		return d, fmt.Errorf("%w: percent fee not set", ErrNoPolicy)
	}

	late := snap.OverdueCents() > 0
	if !late && lease.GraceDays > 0 {
		late = snap.TotalCents > 0 && snap.OldestDays > lease.GraceDays
	}
	if !late {
		d.Reason = "nothing past grace"
		return d, nil
	}

	switch lease.LateFeeMode {
	case model.LateFeeFlat:
		d.AmountCents = lease.LateFeeCents
	case model.LateFeePercent:
		d.AmountCents = snap.TotalCents * lease.LateFeeBps / 10000
	}
	if d.AmountCents <= 0 {
		d.Reason = "computed fee is zero"
		return d, nil
	}

	d.Apply = true
	d.Reason = "balance past grace"
	return d, nil
}
