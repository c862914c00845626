package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mhollis/keyturn/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func (s *BackupStore) Start(objectKey string, startedAt time.Time) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO backup_runs (object_key, started_at) VALUES (?, ?)`,
		objectKey, startedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert backup run: %w", err)
	}
	return result.LastInsertId()
}

func (s *BackupStore) Finish(id, sizeBytes int64, status, errMsg string, finishedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE backup_runs SET size_bytes = ?, status = ?, error = ?, finished_at = ? WHERE id = ?`,
		sizeBytes, status, errMsg, finishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("finish backup run: %w", err)
	}
	return nil
}

func (s *BackupStore) Latest() (*model.BackupRun, error) {
	row := s.db.QueryRow(
		`SELECT id, object_key, size_bytes, status, error, started_at, finished_at FROM backup_runs ORDER BY started_at DESC LIMIT 1`,
	)
	var run model.BackupRun
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.ObjectKey, &run.SizeBytes, &run.Status, &run.Error, &run.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest backup run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}
