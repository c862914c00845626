// Package token issues and redeems the single-use, time-bounded tokens
// behind magic-link login and tenant invites.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mhollis/keyturn/internal/model"
	"github.com/mhollis/keyturn/internal/store"
)

const (
	// LoginTTL bounds magic-link login tokens.
	LoginTTL = 15 * time.Minute
	// InviteTTL bounds tenant invite tokens.
	InviteTTL = 7 * 24 * time.Hour
)

var (
	ErrNotFound        = errors.New("token not found")
	ErrAlreadyConsumed = errors.New("token already consumed")
	ErrExpired         = errors.New("token expired")
)

type Issuer struct {
	tokens *store.TokenStore
}

func NewIssuer(tokens *store.TokenStore) *Issuer {
	return &Issuer{tokens: tokens}
}

// TTLFor returns the policy TTL for a purpose.
func TTLFor(purpose model.TokenPurpose) time.Duration {
	if purpose == model.PurposeInvite {
		return InviteTTL
	}
	return LoginTTL
}

func generateValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token value: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Issue invalidates any pending token for the same (subject, purpose) pair
// and creates a fresh one expiring at now+ttl. The previous token ends up
// consumed, so a later redemption of it reports ErrAlreadyConsumed.
func (i *Issuer) Issue(now time.Time, subject string, purpose model.TokenPurpose, ttl time.Duration, leaseID *int64) (*model.AuthToken, error) {
	if _, err := i.tokens.InvalidatePending(subject, purpose, now); err != nil {
		return nil, err
	}

	value, err := generateValue()
	if err != nil {
		return nil, err
	}
	return i.tokens.Insert(value, subject, purpose, leaseID, now.Add(ttl), now)
}

// Redeem consumes a token exactly once and returns it. The consumption is
// a conditional update in the store, so two concurrent redemptions of the
// same value resolve to one success and one ErrAlreadyConsumed. All
// failures here are terminal: the token is unusable and the caller should
// not retry.
func (i *Issuer) Redeem(now time.Time, value string, purpose model.TokenPurpose) (*model.AuthToken, error) {
	t, err := i.tokens.GetByValue(value)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Purpose != purpose {
		return nil, ErrNotFound
	}
	if t.UsedAt != nil {
		return nil, ErrAlreadyConsumed
	}
	if now.After(t.ExpiresAt) {
		return nil, ErrExpired
	}

	won, err := i.tokens.ConsumeIfUnused(value, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrAlreadyConsumed
	}

	t.UsedAt = &now
	return t, nil
}
