package model

import "time"

type MaintenanceTicket struct {
	ID          int64     `json:"id"`
	LeaseID     int64     `json:"lease_id"`
	OpenedBy    int64     `json:"opened_by"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
