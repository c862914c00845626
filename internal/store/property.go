package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/keyturn/internal/model"
)

type PropertyStore struct {
	db *sql.DB
}

func NewPropertyStore(db *sql.DB) *PropertyStore {
	return &PropertyStore{db: db}
}

func scanProperty(scanner interface{ Scan(...any) error }) (*model.Property, error) {
	var p model.Property
	err := scanner.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const propertyCols = `id, owner_id, name, address, created_at, updated_at`

func (s *PropertyStore) Create(ownerID int64, name, address string) (*model.Property, error) {
	result, err := s.db.Exec(
		`INSERT INTO properties (owner_id, name, address) VALUES (?, ?, ?)`,
		ownerID, name, address,
	)
	if err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PropertyStore) GetByID(id int64) (*model.Property, error) {
	row := s.db.QueryRow(`SELECT `+propertyCols+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

func (s *PropertyStore) ListByOwner(ownerID int64) ([]model.Property, error) {
	rows, err := s.db.Query(
		`SELECT `+propertyCols+` FROM properties WHERE owner_id = ? ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var properties []model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}

func (s *PropertyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	return nil
}
