package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/keyturn/internal/model"
)

type TicketStore struct {
	db *sql.DB
}

func NewTicketStore(db *sql.DB) *TicketStore {
	return &TicketStore{db: db}
}

func scanTicket(scanner interface{ Scan(...any) error }) (*model.MaintenanceTicket, error) {
	var t model.MaintenanceTicket
	err := scanner.Scan(
		&t.ID, &t.LeaseID, &t.OpenedBy, &t.Title, &t.Description,
		&t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const ticketCols = `id, lease_id, opened_by, title, description, status, created_at, updated_at`

func (s *TicketStore) Create(leaseID, openedBy int64, title, description string) (*model.MaintenanceTicket, error) {
	result, err := s.db.Exec(
		`INSERT INTO tickets (lease_id, opened_by, title, description) VALUES (?, ?, ?, ?)`,
		leaseID, openedBy, title, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TicketStore) GetByID(id int64) (*model.MaintenanceTicket, error) {
	row := s.db.QueryRow(`SELECT `+ticketCols+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

func (s *TicketStore) ListByLease(leaseID int64) ([]model.MaintenanceTicket, error) {
	rows, err := s.db.Query(
		`SELECT `+ticketCols+` FROM tickets WHERE lease_id = ? ORDER BY created_at DESC`,
		leaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.MaintenanceTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (s *TicketStore) UpdateStatus(id int64, status string) (*model.MaintenanceTicket, error) {
	_, err := s.db.Exec(
		`UPDATE tickets SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update ticket status: %w", err)
	}
	return s.GetByID(id)
}
