package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/specialist-recommender/internal/domain"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates the database file and schema if they don't exist
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the logs endpoint read while requests append
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*domain.AuditRecord, error) {
	r := &domain.AuditRecord{}
	err := s.Scan(&r.ID, &r.Timestamp, &r.Symptoms, &r.Disease, &r.Specialist, &r.Source, &r.RequestID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS symptom_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		logged_at DATETIME NOT NULL,
		symptoms TEXT NOT NULL,
		disease TEXT NOT NULL DEFAULT '',
		specialist TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_symptom_logs_logged_at ON symptom_logs(logged_at);
	CREATE INDEX IF NOT EXISTS idx_symptom_logs_specialist ON symptom_logs(specialist);
	`

	_, err := db.Exec(schema)
	return err
}

// Append inserts a record and assigns its ID
func (s *SQLiteStore) Append(ctx context.Context, record *domain.AuditRecord) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO symptom_logs (logged_at, symptoms, disease, specialist, source, request_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.Timestamp.UTC(),
		record.Symptoms,
		record.Disease,
		record.Specialist,
		record.Source,
		record.RequestID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	record.ID = id
	return nil
}

// List returns records newest first
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	limit, offset = normalizePage(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, logged_at, symptoms, disease, specialist, source, request_id
		FROM symptom_logs
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.AuditRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Count returns the total number of records
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM symptom_logs").Scan(&count)
	return count, err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
