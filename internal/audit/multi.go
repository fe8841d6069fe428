package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialist-recommender/internal/domain"
)

// MultiStore appends to every store and reads from the first one that
// supports queries
type MultiStore struct {
	stores []Store
}

// NewMultiStore combines stores in order
func NewMultiStore(stores ...Store) *MultiStore {
	return &MultiStore{stores: stores}
}

// Append writes to all stores. Every store is attempted; the errors of the
// failing ones are joined.
func (m *MultiStore) Append(ctx context.Context, record *domain.AuditRecord) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Append(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// List reads from the first queryable store
func (m *MultiStore) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	for _, s := range m.stores {
		records, err := s.List(ctx, limit, offset)
		if errors.Is(err, ErrNotQueryable) {
			continue
		}
		return records, err
	}
	return nil, ErrNotQueryable
}

// Count reads from the first queryable store
func (m *MultiStore) Count(ctx context.Context) (int64, error) {
	for _, s := range m.stores {
		n, err := s.Count(ctx)
		if errors.Is(err, ErrNotQueryable) {
			continue
		}
		return n, err
	}
	return 0, ErrNotQueryable
}

// Close closes every store
func (m *MultiStore) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
