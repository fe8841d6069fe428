package audit

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/specialist-recommender/internal/domain"
)

// CSVStore appends one row per record: timestamp, symptoms, disease,
// specialist. The file has no header row.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore creates the file's directory if needed
func NewCSVStore(path string) (*CSVStore, error) {
	if path == "" {
		return nil, fmt.Errorf("csv audit path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return &CSVStore{path: path}, nil
}

// Append writes a row and flushes it before returning
func (s *CSVStore) Append(ctx context.Context, record *domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		record.Timestamp.UTC().Format(time.RFC3339),
		record.Symptoms,
		record.Disease,
		record.Specialist,
	}); err != nil {
		return fmt.Errorf("failed to write audit row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush audit row: %w", err)
	}
	return nil
}

// readAll returns every record in file order; IDs are 1-based row numbers
func (s *CSVStore) readAll() ([]*domain.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var records []*domain.AuditRecord
	for row := int64(1); ; row++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read audit row %d: %w", row, err)
		}
		if len(fields) < 4 {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, fields[0])
		records = append(records, &domain.AuditRecord{
			ID:         row,
			Timestamp:  ts,
			Symptoms:   fields[1],
			Disease:    fields[2],
			Specialist: fields[3],
		})
	}
	return records, nil
}

// List returns records newest first
func (s *CSVStore) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	limit, offset = normalizePage(limit, offset)
	all, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var result []*domain.AuditRecord
	for i := len(all) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, all[i])
	}
	return result, nil
}

// Count returns the number of rows
func (s *CSVStore) Count(ctx context.Context) (int64, error) {
	all, err := s.readAll()
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

// Close implements Store
func (s *CSVStore) Close() error {
	return nil
}
