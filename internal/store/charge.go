package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

type ChargeStore struct {
	db *sql.DB
}

func NewChargeStore(db *sql.DB) *ChargeStore {
	return &ChargeStore{db: db}
}

func scanCharge(scanner interface{ Scan(...any) error }) (*model.Charge, error) {
	var c model.Charge
	var kind, status string
	var idemKey sql.NullString

	err := scanner.Scan(
		&c.ID, &c.LeaseID, &kind, &c.AmountDueCents, &c.AmountPaidCents,
		&c.DueDate, &status, &idemKey, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Kind = model.ChargeKind(kind)
	c.Status = model.ChargeStatus(status)
	if idemKey.Valid {
		c.IdempotencyKey = &idemKey.String
	}
	return &c, nil
}

const chargeCols = `id, lease_id, kind, amount_due_cents, amount_paid_cents, due_date, status, idempotency_key, created_at, updated_at`

// Create inserts a charge. A non-empty idempotency key is enforced unique
// by the schema; a duplicate insert returns ErrDuplicateKey so callers can
// treat re-runs as already-done.
func (s *ChargeStore) Create(leaseID int64, kind model.ChargeKind, amountDueCents int64, dueDate time.Time, idempotencyKey string) (*model.Charge, error) {
	var key sql.NullString
	if idempotencyKey != "" {
		key = sql.NullString{String: idempotencyKey, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO charges (lease_id, kind, amount_due_cents, due_date, idempotency_key) VALUES (?, ?, ?, ?, ?)`,
		leaseID, string(kind), amountDueCents, dueDate, key,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert charge: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChargeStore) GetByID(id int64) (*model.Charge, error) {
	row := s.db.QueryRow(`SELECT `+chargeCols+` FROM charges WHERE id = ?`, id)
	c, err := scanCharge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get charge: %w", err)
	}
	return c, nil
}

func (s *ChargeStore) HasKey(idempotencyKey string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM charges WHERE idempotency_key = ?`,
		idempotencyKey,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check idempotency key: %w", err)
	}
	return n > 0, nil
}

// HasStripeSession reports whether a payment was already recorded for a
// checkout session, for webhook retry dedup.
func (s *ChargeStore) HasStripeSession(sessionID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM payments WHERE stripe_session_id = ?`,
		sessionID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check stripe session: %w", err)
	}
	return n > 0, nil
}

func (s *ChargeStore) ListByLease(leaseID int64) ([]model.Charge, error) {
	rows, err := s.db.Query(
		`SELECT `+chargeCols+` FROM charges WHERE lease_id = ? ORDER BY due_date`,
		leaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	defer rows.Close()
	return collectCharges(rows)
}

// ListOpenByLease returns charges that still have an outstanding balance.
func (s *ChargeStore) ListOpenByLease(leaseID int64) ([]model.Charge, error) {
	rows, err := s.db.Query(
		`SELECT `+chargeCols+` FROM charges WHERE lease_id = ? AND status != 'paid' AND amount_paid_cents < amount_due_cents ORDER BY due_date`,
		leaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list open charges: %w", err)
	}
	defer rows.Close()
	return collectCharges(rows)
}

func collectCharges(rows *sql.Rows) ([]model.Charge, error) {
	var charges []model.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan charge: %w", err)
		}
		charges = append(charges, *c)
	}
	return charges, rows.Err()
}

// ApplyPayment records a payment against a charge and advances the paid
// amount, all in one transaction. The charge flips to paid once fully
// covered.
func (s *ChargeStore) ApplyPayment(chargeID, amountCents int64, method model.PaymentMethod, stripeSessionID string, paidAt time.Time) (*model.Charge, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("payment amount must be positive, got %d", amountCents)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var sessID sql.NullString
	if stripeSessionID != "" {
		sessID = sql.NullString{String: stripeSessionID, Valid: true}
	}
	if _, err := tx.Exec(
		`INSERT INTO payments (charge_id, amount_cents, method, stripe_session_id, paid_at) VALUES (?, ?, ?, ?, ?)`,
		chargeID, amountCents, string(method), sessID, paidAt,
	); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE charges SET
			amount_paid_cents = amount_paid_cents + ?,
			status = CASE WHEN amount_paid_cents + ? >= amount_due_cents THEN 'paid' ELSE status END,
			updated_at = datetime('now')
		 WHERE id = ?`,
		amountCents, amountCents, chargeID,
	); err != nil {
		return nil, fmt.Errorf("update charge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(chargeID)
}

// MarkOverdue flips pending charges past their due date to overdue.
func (s *ChargeStore) MarkOverdue(now time.Time) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE charges SET status = 'overdue', updated_at = datetime('now')
		 WHERE status = 'pending' AND due_date < ? AND amount_paid_cents < amount_due_cents`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

func (s *ChargeStore) ListPaymentsByCharge(chargeID int64) ([]model.Payment, error) {
	rows, err := s.db.Query(
		`SELECT id, charge_id, amount_cents, method, stripe_session_id, paid_at, created_at FROM payments WHERE charge_id = ? ORDER BY paid_at`,
		chargeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		var method string
		var sessID sql.NullString
		if err := rows.Scan(&p.ID, &p.ChargeID, &p.AmountCents, &method, &sessID, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Method = model.PaymentMethod(method)
		if sessID.Valid {
			p.StripeSessionID = &sessID.String
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
