package model

import "time"

type ChargeKind string

const (
	ChargeRent    ChargeKind = "rent"
	ChargeLateFee ChargeKind = "late_fee"
	ChargeOther   ChargeKind = "other"
)

type ChargeStatus string

const (
	ChargePending ChargeStatus = "pending"
	ChargePaid    ChargeStatus = "paid"
	ChargeOverdue ChargeStatus = "overdue"
)

type Charge struct {
	ID              int64        `json:"id"`
	LeaseID         int64        `json:"lease_id"`
	Kind            ChargeKind   `json:"kind"`
	AmountDueCents  int64        `json:"amount_due_cents"`
	AmountPaidCents int64        `json:"amount_paid_cents"`
	DueDate         time.Time    `json:"due_date"`
	Status          ChargeStatus `json:"status"`
	IdempotencyKey  *string      `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Outstanding is the unpaid remainder, never negative.
func (c Charge) Outstanding() int64 {
	out := c.AmountDueCents - c.AmountPaidCents
	if out < 0 {
		return 0
	}
	return out
}

type PaymentMethod string

const (
	PaymentManual PaymentMethod = "manual"
	PaymentStripe PaymentMethod = "stripe"
)

type Payment struct {
	ID              int64         `json:"id"`
	ChargeID        int64         `json:"charge_id"`
	AmountCents     int64         `json:"amount_cents"`
	Method          PaymentMethod `json:"method"`
	StripeSessionID *string       `json:"stripe_session_id,omitempty"`
	PaidAt          time.Time     `json:"paid_at"`
	CreatedAt       time.Time     `json:"created_at"`
}
