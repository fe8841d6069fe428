// Package audit provides the append-only trail of successful
// recommendations. Records can go to a CSV file, SQLite, PostgreSQL or any
// combination of them.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/domain"
)

// Sink names accepted in configuration
const (
	SinkCSV      = "csv"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
	SinkNone     = "none"
)

// Store is the audit trail contract
type Store = domain.AuditStore

// ErrNotQueryable is returned by stores that only append
var ErrNotQueryable = errors.New("audit store does not support queries")

// MaxListLimit bounds a single List call
const MaxListLimit = 1000

// normalizePage clamps pagination arguments
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Open builds the stores named in config. Several sinks are combined in a
// MultiStore; "none" or an empty list yields a Discard store.
func Open(ctx context.Context, config domain.AuditConfig, logger *logrus.Logger) (Store, error) {
	var stores []Store
	closeAll := func() {
		for _, s := range stores {
			_ = s.Close()
		}
	}

	for _, sink := range config.Sinks {
		switch strings.ToLower(strings.TrimSpace(sink)) {
		case SinkCSV:
			s, err := NewCSVStore(config.CSVPath)
			if err != nil {
				closeAll()
				return nil, err
			}
			stores = append(stores, s)
		case SinkSQLite:
			s, err := NewSQLiteStore(config.SQLitePath)
			if err != nil {
				closeAll()
				return nil, err
			}
			stores = append(stores, s)
		case SinkPostgres:
			s, err := OpenPostgres(ctx, config, logger)
			if err != nil {
				closeAll()
				return nil, err
			}
			stores = append(stores, s)
		case SinkNone, "":
		default:
			closeAll()
			return nil, fmt.Errorf("unknown audit sink: %s", sink)
		}
	}

	switch len(stores) {
	case 0:
		return Discard{}, nil
	case 1:
		return stores[0], nil
	default:
		return NewMultiStore(stores...), nil
	}
}

// Discard drops every record
type Discard struct{}

// Append implements Store
func (Discard) Append(context.Context, *domain.AuditRecord) error { return nil }

// List implements Store
func (Discard) List(context.Context, int, int) ([]*domain.AuditRecord, error) {
	return nil, ErrNotQueryable
}

// Count implements Store
func (Discard) Count(context.Context) (int64, error) { return 0, ErrNotQueryable }

// Close implements Store
func (Discard) Close() error { return nil }
