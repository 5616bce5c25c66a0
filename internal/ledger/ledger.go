package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a path
	ErrNotFound = errors.New("not found")
	// ErrFingerprintMismatch is returned when a remote ID confirmation
	// arrives for a fingerprint the ledger no longer holds
	ErrFingerprintMismatch = errors.New("fingerprint mismatch")
)

// FileRecord is one row of the upload ledger: the content fingerprint last
// submitted for a local path and the remote resource it landed in. RemoteID
// stays empty until a completed ingestion is confirmed.
type FileRecord struct {
	ID          int64
	Path        string
	Fingerprint string
	RemoteID    string
	UploadedAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Stats summarizes ledger contents for status surfaces.
type Stats struct {
	Path      string // database location
	Records   int    // tracked files
	Confirmed int    // records with a confirmed remote ID
	Pending   int    // submitted but never confirmed
}

// Ledger tracks which file contents have already been uploaded.
type Ledger struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Open opens the ledger database at dbPath, creating the file and any
// parent directories as needed, and applies pending schema migrations.
// The special path ":memory:" yields a throwaway in-process ledger.
func Open(dbPath string) (*Ledger, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create ledger directory: %w", err)
			}
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Ledger{db: db, path: dbPath}, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Lookup returns the record for path, or ErrNotFound.
func (l *Ledger) Lookup(ctx context.Context, path string) (*FileRecord, error) {
	query := `
		SELECT id, path, fingerprint, remote_id, uploaded_at, created_at, updated_at
		FROM file_records
		WHERE path = ?
	`
	var rec FileRecord
	err := l.db.QueryRowContext(ctx, query, path).Scan(
		&rec.ID, &rec.Path, &rec.Fingerprint, &rec.RemoteID,
		&rec.UploadedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", path, err)
	}
	return &rec, nil
}

// RecordFingerprint upserts the fingerprint for path, marking it as
// submitted now. When the fingerprint differs from the stored one any
// confirmed remote ID is cleared: the old confirmation no longer vouches
// for the new content.
func (l *Ledger) RecordFingerprint(ctx context.Context, path, fingerprint string) error {
	query := `
		INSERT INTO file_records (path, fingerprint, remote_id, uploaded_at, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			remote_id = CASE WHEN file_records.fingerprint = excluded.fingerprint
			                 THEN file_records.remote_id ELSE '' END,
			fingerprint = excluded.fingerprint,
			uploaded_at = excluded.uploaded_at,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	if _, err := l.db.ExecContext(ctx, query, path, fingerprint, now, now, now); err != nil {
		return fmt.Errorf("failed to record fingerprint for %s: %w", path, err)
	}
	return nil
}

// ConfirmRemoteID stores the remote resource ID for path, but only while
// the ledger still holds the given fingerprint. Returns
// ErrFingerprintMismatch when a newer submission replaced it in the
// meantime, so a stale completion cannot vouch for content it never saw.
func (l *Ledger) ConfirmRemoteID(ctx context.Context, path, fingerprint, remoteID string) error {
	query := `
		UPDATE file_records
		SET remote_id = ?, updated_at = ?
		WHERE path = ? AND fingerprint = ?
	`
	res, err := l.db.ExecContext(ctx, query, remoteID, time.Now(), path, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to confirm remote ID for %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := l.Lookup(ctx, path); err != nil {
			return err
		}
		return ErrFingerprintMismatch
	}
	return nil
}

// Stats returns aggregate counts over the ledger.
func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN remote_id != '' THEN 1 ELSE 0 END), 0)
		FROM file_records
	`
	stats := &Stats{Path: l.path}
	if err := l.db.QueryRowContext(ctx, query).Scan(&stats.Records, &stats.Confirmed); err != nil {
		return nil, fmt.Errorf("failed to read ledger stats: %w", err)
	}
	stats.Pending = stats.Records - stats.Confirmed
	return stats, nil
}

// Records returns the most recently touched records, newest first. A
// non-positive limit returns up to 50.
func (l *Ledger) Records(ctx context.Context, limit int) ([]*FileRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, path, fingerprint, remote_id, uploaded_at, created_at, updated_at
		FROM file_records
		ORDER BY updated_at DESC, id DESC
		LIMIT ?
	`
	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*FileRecord
	for rows.Next() {
		var rec FileRecord
		if err := rows.Scan(
			&rec.ID, &rec.Path, &rec.Fingerprint, &rec.RemoteID,
			&rec.UploadedAt, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
