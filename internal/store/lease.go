package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

type LeaseStore struct {
	db *sql.DB
}

func NewLeaseStore(db *sql.DB) *LeaseStore {
	return &LeaseStore{db: db}
}

func scanLease(scanner interface{ Scan(...any) error }) (*model.Lease, error) {
	var l model.Lease
	var tenantID sql.NullInt64
	var status, feeMode string

	err := scanner.Scan(
		&l.ID, &l.UnitID, &tenantID, &status, &l.StartDate, &l.EndDate,
		&l.RentCents, &l.DueDay, &l.GraceDays, &feeMode, &l.LateFeeCents,
		&l.LateFeeBps, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Status = model.LeaseStatus(status)
	l.LateFeeMode = model.LateFeeMode(feeMode)
	if tenantID.Valid {
		l.TenantID = &tenantID.Int64
	}
	return &l, nil
}

const leaseCols = `id, unit_id, tenant_id, status, start_date, end_date, rent_cents, due_day, grace_days, late_fee_mode, late_fee_cents, late_fee_bps, created_at, updated_at`

type NewLease struct {
	UnitID       int64
	StartDate    time.Time
	EndDate      time.Time
	RentCents    int64
	DueDay       int
	GraceDays    int
	LateFeeMode  model.LateFeeMode
	LateFeeCents int64
	LateFeeBps   int64
}

func (s *LeaseStore) Create(nl NewLease) (*model.Lease, error) {
	result, err := s.db.Exec(
		`INSERT INTO leases (unit_id, start_date, end_date, rent_cents, due_day, grace_days, late_fee_mode, late_fee_cents, late_fee_bps)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nl.UnitID, nl.StartDate, nl.EndDate, nl.RentCents, nl.DueDay,
		nl.GraceDays, string(nl.LateFeeMode), nl.LateFeeCents, nl.LateFeeBps,
	)
	if err != nil {
		return nil, fmt.Errorf("insert lease: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *LeaseStore) GetByID(id int64) (*model.Lease, error) {
	row := s.db.QueryRow(`SELECT `+leaseCols+` FROM leases WHERE id = ?`, id)
	l, err := scanLease(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lease: %w", err)
	}
	return l, nil
}

func (s *LeaseStore) ListByStatus(status model.LeaseStatus) ([]model.Lease, error) {
	rows, err := s.db.Query(
		`SELECT `+leaseCols+` FROM leases WHERE status = ? ORDER BY id`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list leases by status: %w", err)
	}
	defer rows.Close()

	var leases []model.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lease: %w", err)
		}
		leases = append(leases, *l)
	}
	return leases, rows.Err()
}

func (s *LeaseStore) ListByUnit(unitID int64) ([]model.Lease, error) {
	rows, err := s.db.Query(
		`SELECT `+leaseCols+` FROM leases WHERE unit_id = ? ORDER BY start_date DESC`,
		unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("list leases by unit: %w", err)
	}
	defer rows.Close()

	var leases []model.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lease: %w", err)
		}
		leases = append(leases, *l)
	}
	return leases, rows.Err()
}

func (s *LeaseStore) ListByTenant(tenantID int64) ([]model.Lease, error) {
	rows, err := s.db.Query(
		`SELECT `+leaseCols+` FROM leases WHERE tenant_id = ? ORDER BY start_date DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list leases by tenant: %w", err)
	}
	defer rows.Close()

	var leases []model.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lease: %w", err)
		}
		leases = append(leases, *l)
	}
	return leases, rows.Err()
}

func (s *LeaseStore) UpdateStatus(id int64, status model.LeaseStatus) error {
	_, err := s.db.Exec(
		`UPDATE leases SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update lease status: %w", err)
	}
	return nil
}

func (s *LeaseStore) AssignTenant(id, tenantID int64) error {
	_, err := s.db.Exec(
		`UPDATE leases SET tenant_id = ?, updated_at = datetime('now') WHERE id = ?`,
		tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("assign tenant: %w", err)
	}
	return nil
}
