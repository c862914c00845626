package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

func scanToken(scanner interface{ Scan(...any) error }) (*model.AuthToken, error) {
	var t model.AuthToken
	var purpose string
	var leaseID sql.NullInt64
	var usedAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.Value, &t.Subject, &purpose, &leaseID,
		&t.ExpiresAt, &usedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Purpose = model.TokenPurpose(purpose)
	if leaseID.Valid {
		t.LeaseID = &leaseID.Int64
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return &t, nil
}

const tokenCols = `id, value, subject, purpose, lease_id, expires_at, used_at, created_at`

// Insert stores a freshly issued token.
func (s *TokenStore) Insert(value, subject string, purpose model.TokenPurpose, leaseID *int64, expiresAt, createdAt time.Time) (*model.AuthToken, error) {
	var lID sql.NullInt64
	if leaseID != nil {
		lID = sql.NullInt64{Int64: *leaseID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO auth_tokens (value, subject, purpose, lease_id, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		value, subject, string(purpose), lID, expiresAt, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+tokenCols+` FROM auth_tokens WHERE id = ?`, id)
	return scanToken(row)
}

// GetByValue returns the token regardless of state, or nil if absent.
// Callers derive pending/expired/consumed from the record.
func (s *TokenStore) GetByValue(value string) (*model.AuthToken, error) {
	row := s.db.QueryRow(`SELECT `+tokenCols+` FROM auth_tokens WHERE value = ?`, value)
	t, err := scanToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token by value: %w", err)
	}
	return t, nil
}

// InvalidatePending marks every still-pending token for the subject and
// purpose as consumed, so a newly issued token supersedes them. Returns
// the number of tokens invalidated.
func (s *TokenStore) InvalidatePending(subject string, purpose model.TokenPurpose, now time.Time) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE auth_tokens SET used_at = ? WHERE subject = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?`,
		now, subject, string(purpose), now,
	)
	if err != nil {
		return 0, fmt.Errorf("invalidate pending tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// ConsumeIfUnused sets used_at in a single conditional update. It reports
// whether this call won the consumption: a false return with nil error
// means someone else consumed the token first.
func (s *TokenStore) ConsumeIfUnused(value string, now time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE auth_tokens SET used_at = ? WHERE value = ? AND used_at IS NULL`,
		now, value,
	)
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *TokenStore) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM auth_tokens WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
