package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/database"
	"github.com/specialist-recommender/internal/domain"
)

// PostgresStore implements Store using PostgreSQL. The schema comes from
// the database package's migrations.
type PostgresStore struct {
	db   *sql.DB
	pool *database.DB
}

// NewPostgresStore wraps an open connection
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &PostgresStore{db: db}, nil
}

// OpenPostgres connects, optionally migrates, and returns a store that owns
// the pool
func OpenPostgres(ctx context.Context, config domain.AuditConfig, logger *logrus.Logger) (*PostgresStore, error) {
	if config.PostgresURL == "" {
		return nil, fmt.Errorf("postgres audit sink requires postgres_url")
	}

	if config.AutoMigrate {
		runner, err := database.NewMigrationRunner(config.PostgresURL, config.MigrationsPath, logger)
		if err != nil {
			return nil, err
		}
		err = runner.Up(ctx)
		if closeErr := runner.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close migration runner")
		}
		if err != nil {
			return nil, err
		}
	}

	pool, err := database.NewConnection(ctx, database.DefaultConfig(config.PostgresURL), logger)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: pool.SQL, pool: pool}, nil
}

// Append inserts a record and assigns its ID
func (s *PostgresStore) Append(ctx context.Context, record *domain.AuditRecord) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO symptom_logs (logged_at, symptoms, disease, specialist, source, request_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		record.Timestamp.UTC(),
		record.Symptoms,
		record.Disease,
		record.Specialist,
		record.Source,
		record.RequestID,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// List returns records newest first
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	limit, offset = normalizePage(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, logged_at, symptoms, disease, specialist, source, request_id
		FROM symptom_logs
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM symptom_logs").Scan(&count)
	return count, err
}

// Close releases the pool when the store opened it
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		return s.pool.Close()
	}
	return nil
}
