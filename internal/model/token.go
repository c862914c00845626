package model

import "time"

type TokenPurpose string

const (
	PurposeLogin  TokenPurpose = "login"
	PurposeInvite TokenPurpose = "invite"
)

type TokenStatus string

const (
	TokenPending  TokenStatus = "pending"
	TokenExpired  TokenStatus = "expired"
	TokenConsumed TokenStatus = "consumed"
)

// AuthToken is a single-use, time-bounded credential: a magic-link login
// code or a tenant invite. Expiry is derived from ExpiresAt at read time;
// only consumption is persisted.
type AuthToken struct {
	ID        int64        `json:"id"`
	Value     string       `json:"value"`
	Subject   string       `json:"subject"`
	Purpose   TokenPurpose `json:"purpose"`
	LeaseID   *int64       `json:"lease_id,omitempty"`
	ExpiresAt time.Time    `json:"expires_at"`
	UsedAt    *time.Time   `json:"used_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// StatusAt derives the token state at the given instant. Consumption wins
// over expiry so a used token never reads as merely expired.
func (t AuthToken) StatusAt(now time.Time) TokenStatus {
	if t.UsedAt != nil {
		return TokenConsumed
	}
	if now.After(t.ExpiresAt) {
		return TokenExpired
	}
	return TokenPending
}
