package model

import "time"

// AgingSnapshot is the receivables aging for one lease. At most one row
// exists per lease; the billing cycle upserts it on every run. Bucket
// boundaries: anything up to 30 days past due (including not yet due)
// counts as current, then 31-60, 61-90, and beyond 90.
type AgingSnapshot struct {
	ID           int64     `json:"id"`
	LeaseID      int64     `json:"lease_id"`
	CurrentCents int64     `json:"current_cents"`
	Days30Cents  int64     `json:"days30_cents"`
	Days60Cents  int64     `json:"days60_cents"`
	Days90Cents  int64     `json:"days90_cents"`
	TotalCents   int64     `json:"total_cents"`
	OldestDays   int       `json:"oldest_days"`
	ComputedAt   time.Time `json:"computed_at"`
}

// OverdueCents is the amount sitting outside the current bucket.
func (s AgingSnapshot) OverdueCents() int64 {
	return s.Days30Cents + s.Days60Cents + s.Days90Cents
}
