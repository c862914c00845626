package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/keyturn/internal/model"
)

type UnitStore struct {
	db *sql.DB
}

func NewUnitStore(db *sql.DB) *UnitStore {
	return &UnitStore{db: db}
}

func scanUnit(scanner interface{ Scan(...any) error }) (*model.Unit, error) {
	var u model.Unit
	err := scanner.Scan(&u.ID, &u.PropertyID, &u.Label, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const unitCols = `id, property_id, label, created_at, updated_at`

func (s *UnitStore) Create(propertyID int64, label string) (*model.Unit, error) {
	result, err := s.db.Exec(
		`INSERT INTO units (property_id, label) VALUES (?, ?)`,
		propertyID, label,
	)
	if err != nil {
		return nil, fmt.Errorf("insert unit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UnitStore) GetByID(id int64) (*model.Unit, error) {
	row := s.db.QueryRow(`SELECT `+unitCols+` FROM units WHERE id = ?`, id)
	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

func (s *UnitStore) ListByProperty(propertyID int64) ([]model.Unit, error) {
	rows, err := s.db.Query(
		`SELECT `+unitCols+` FROM units WHERE property_id = ? ORDER BY label`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []model.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

func (s *UnitStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM units WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	return nil
}
