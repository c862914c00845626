// Package backup takes encrypted snapshots of the keyturn database and
// ships them to S3-compatible storage.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mhollis/keyturn/internal/store"
)

// s3Client is the slice of the S3 API the manager uses; an interface for
// testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	S3         S3Config
	DBPath     string
	Passphrase string
}

// Manager snapshots the SQLite database, encrypts the copy, and uploads it.
type Manager struct {
	cfg    Config
	db     *sql.DB
	runs   *store.BackupStore
	client s3Client
	logger *slog.Logger
}

func NewManager(cfg Config, db *sql.DB, runs *store.BackupStore, logger *slog.Logger) *Manager {
	var client s3Client
	if cfg.S3.Bucket != "" {
		client = s3.New(s3.Options{
			BaseEndpoint: aws.String(cfg.S3.Endpoint),
			Region:       cfg.S3.Region,
			Credentials:  credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		})
	}
	return &Manager{
		cfg:    cfg,
		db:     db,
		runs:   runs,
		client: client,
		logger: logger,
	}
}

// Configured reports whether the manager can run backups.
func (m *Manager) Configured() bool {
	return m.client != nil && m.cfg.Passphrase != ""
}

// Run takes one backup: snapshot via VACUUM INTO (a consistent copy even
// under WAL), encrypt, upload, record the outcome.
func (m *Manager) Run(ctx context.Context) error {
	if !m.Configured() {
		return fmt.Errorf("backup not configured")
	}

	startedAt := time.Now().UTC()
	objectKey := fmt.Sprintf("keyturn/%s-%s.db.enc", startedAt.Format("20060102T150405Z"), uuid.NewString()[:8])

	runID, err := m.runs.Start(objectKey, startedAt)
	if err != nil {
		return err
	}

	size, err := m.upload(ctx, objectKey)
	finishedAt := time.Now().UTC()
	if err != nil {
		if ferr := m.runs.Finish(runID, 0, "failed", err.Error(), finishedAt); ferr != nil {
			m.logger.Error("record backup failure", "error", ferr)
		}
		return err
	}

	if err := m.runs.Finish(runID, size, "ok", "", finishedAt); err != nil {
		m.logger.Error("record backup success", "error", err)
	}
	m.logger.Info("backup uploaded", "object_key", objectKey, "size_bytes", size)
	return nil
}

func (m *Manager) upload(ctx context.Context, objectKey string) (int64, error) {
	tmpDir, err := os.MkdirTemp("", "keyturn-backup-*")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshotPath := filepath.Join(tmpDir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, snapshotPath); err != nil {
		return 0, fmt.Errorf("vacuum into snapshot: %w", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return 0, err
	}
	encryptedPath := filepath.Join(tmpDir, "snapshot.db.enc")
	if err := encryptFile(snapshotPath, encryptedPath, m.cfg.Passphrase, salt); err != nil {
		return 0, err
	}

	f, err := os.Open(encryptedPath)
	if err != nil {
		return 0, fmt.Errorf("open encrypted snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat encrypted snapshot: %w", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(objectKey),
		Body:   f,
	})
	if err != nil {
		return 0, fmt.Errorf("upload backup: %w", err)
	}
	return info.Size(), nil
}

// Restore decrypts a downloaded backup file into dstPath. Used by the
// operator tooling, not the server itself.
func Restore(encryptedPath, dstPath, passphrase string) error {
	return decryptFile(encryptedPath, dstPath, passphrase)
}
