package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/keyturn/internal/model"
)

type AgingStore struct {
	db *sql.DB
}

func NewAgingStore(db *sql.DB) *AgingStore {
	return &AgingStore{db: db}
}

func scanSnapshot(scanner interface{ Scan(...any) error }) (*model.AgingSnapshot, error) {
	var snap model.AgingSnapshot
	err := scanner.Scan(
		&snap.ID, &snap.LeaseID, &snap.CurrentCents, &snap.Days30Cents,
		&snap.Days60Cents, &snap.Days90Cents, &snap.TotalCents,
		&snap.OldestDays, &snap.ComputedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

const snapshotCols = `id, lease_id, current_cents, days30_cents, days60_cents, days90_cents, total_cents, oldest_days, computed_at`

// Upsert writes the snapshot for a lease in a single statement keyed on
// lease_id, so there is no window between an existence check and the
// write. The returned flag reports whether a new row was created (used
// only for cycle accounting).
func (s *AgingStore) Upsert(snap model.AgingSnapshot) (created bool, err error) {
	var existing int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM aging_snapshots WHERE lease_id = ?`,
		snap.LeaseID,
	).Scan(&existing); err != nil {
		return false, fmt.Errorf("check snapshot: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO aging_snapshots (lease_id, current_cents, days30_cents, days60_cents, days90_cents, total_cents, oldest_days, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(lease_id) DO UPDATE SET
			current_cents = excluded.current_cents,
			days30_cents = excluded.days30_cents,
			days60_cents = excluded.days60_cents,
			days90_cents = excluded.days90_cents,
			total_cents = excluded.total_cents,
			oldest_days = excluded.oldest_days,
			computed_at = excluded.computed_at`,
		snap.LeaseID, snap.CurrentCents, snap.Days30Cents, snap.Days60Cents,
		snap.Days90Cents, snap.TotalCents, snap.OldestDays, snap.ComputedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert snapshot: %w", err)
	}
	return existing == 0, nil
}

func (s *AgingStore) GetByLease(leaseID int64) (*model.AgingSnapshot, error) {
	row := s.db.QueryRow(`SELECT `+snapshotCols+` FROM aging_snapshots WHERE lease_id = ?`, leaseID)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

// ListByOwner returns snapshots for every lease under the owner's
// properties, for the aging rollup report.
func (s *AgingStore) ListByOwner(ownerID int64) ([]model.AgingSnapshot, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.lease_id, s.current_cents, s.days30_cents, s.days60_cents, s.days90_cents, s.total_cents, s.oldest_days, s.computed_at
		 FROM aging_snapshots s
		 JOIN leases l ON l.id = s.lease_id
		 JOIN units u ON u.id = l.unit_id
		 JOIN properties p ON p.id = u.property_id
		 WHERE p.owner_id = ?
		 ORDER BY s.lease_id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots by owner: %w", err)
	}
	defer rows.Close()

	var snaps []model.AgingSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}
