package model

import "time"

type BackupRun struct {
	ID         int64      `json:"id"`
	ObjectKey  string     `json:"object_key"`
	SizeBytes  int64      `json:"size_bytes"`
	Status     string     `json:"status"`
	Error      string     `json:"error"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
