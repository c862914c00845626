package model

import "time"

type LeaseStatus string

const (
	LeaseDraft  LeaseStatus = "draft"
	LeaseActive LeaseStatus = "active"
	LeaseEnded  LeaseStatus = "ended"
)

// LateFeeMode selects how a lease's late fee is computed. Empty means the
// lease has no late-fee policy and fee evaluation skips it.
type LateFeeMode string

const (
	LateFeeNone    LateFeeMode = ""
	LateFeeFlat    LateFeeMode = "flat"
	LateFeePercent LateFeeMode = "percent"
)

type Lease struct {
	ID           int64       `json:"id"`
	UnitID       int64       `json:"unit_id"`
	TenantID     *int64      `json:"tenant_id"`
	Status       LeaseStatus `json:"status"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      time.Time   `json:"end_date"`
	RentCents    int64       `json:"rent_cents"`
	DueDay       int         `json:"due_day"`
	GraceDays    int         `json:"grace_days"`
	LateFeeMode  LateFeeMode `json:"late_fee_mode"`
	LateFeeCents int64       `json:"late_fee_cents"`
	// LateFeeBps is the percent fee in basis points (150 = 1.5%),
	// applied to the total outstanding balance.
	LateFeeBps int64     `json:"late_fee_bps"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
