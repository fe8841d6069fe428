// Package database opens the PostgreSQL connection pool used by the audit
// trail and applies its schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Config holds database configuration
type Config struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxConnLife  time.Duration
	MaxConnIdle  time.Duration
	PingAttempts int
	PingBackoff  time.Duration
}

// DefaultConfig returns pool settings suited to the audit workload
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		MaxOpenConns: 25,
		MaxIdleConns: 5,
		MaxConnLife:  5 * time.Minute,
		MaxConnIdle:  time.Minute,
		PingAttempts: 3,
		PingBackoff:  500 * time.Millisecond,
	}
}

// DB wraps the sql.DB pool with health reporting
type DB struct {
	SQL *sql.DB
	log *logrus.Logger
}

// NewConnection opens a pool and waits until the server answers a ping
func NewConnection(ctx context.Context, config Config, logger *logrus.Logger) (*DB, error) {
	db, err := sql.Open("postgres", config.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.MaxConnLife)
	db.SetConnMaxIdleTime(config.MaxConnIdle)

	attempts := config.PingAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 1; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if i >= attempts {
			db.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		logger.WithError(err).WithField("attempt", i).Warn("Database not ready, retrying")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(config.PingBackoff * time.Duration(i)):
		}
	}

	logger.WithFields(logrus.Fields{
		"max_open_conns": config.MaxOpenConns,
		"max_idle_conns": config.MaxIdleConns,
	}).Info("Database connection pool established")

	return &DB{SQL: db, log: logger}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	if db.SQL == nil {
		return nil
	}
	err := db.SQL.Close()
	db.log.Info("Database connection pool closed")
	return err
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}

// Stats returns connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.SQL.Stats()
}
