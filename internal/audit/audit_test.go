package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/logging"
)

func newRecord(symptoms, specialist string) *domain.AuditRecord {
	return &domain.AuditRecord{
		Timestamp:  time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		Symptoms:   symptoms,
		Disease:    "",
		Specialist: specialist,
		Source:     string(domain.SourceModel),
	}
}

func TestCSVStore_AppendWritesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "symptom_logs.csv")
	store, err := NewCSVStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, newRecord("leg pain", "Orthopedist")))
	rec := newRecord("itchy, red skin", "Dermatologist")
	rec.Disease = "eczema"
	require.NoError(t, store.Append(ctx, rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-03-01T10:30:00Z,leg pain,,Orthopedist", lines[0])
	assert.Equal(t, `2024-03-01T10:30:00Z,"itchy, red skin",eczema,Dermatologist`, lines[1])
}

func TestCSVStore_ListAndCount(t *testing.T) {
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "symptom_logs.csv"))
	require.NoError(t, err)
	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for _, s := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.Append(ctx, newRecord(s, "Urologist")))
	}

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].Symptoms)
	assert.Equal(t, int64(5), page[0].ID)
	assert.Equal(t, "d", page[1].Symptoms)

	page, err = store.List(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Symptoms)
	assert.Equal(t, "a", page[1].Symptoms)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	for i, s := range []string{"first", "second", "third"} {
		rec := newRecord(s, "Cardiologist")
		rec.RequestID = "req-" + s
		require.NoError(t, store.Append(ctx, rec))
		assert.Equal(t, int64(i+1), rec.ID)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	list, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].Symptoms)
	assert.Equal(t, "req-third", list[0].RequestID)
	assert.Equal(t, "model", list[0].Source)
	assert.True(t, list[0].Timestamp.Equal(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))

	list, err = store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Symptoms)
}

type failingStore struct {
	Discard
	appends int
}

func (f *failingStore) Append(context.Context, *domain.AuditRecord) error {
	f.appends++
	return errors.New("disk full")
}

func TestMultiStore(t *testing.T) {
	dir := t.TempDir()
	csvStore, err := NewCSVStore(filepath.Join(dir, "logs.csv"))
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)

	multi := NewMultiStore(Discard{}, csvStore, sqliteStore)
	defer multi.Close()
	ctx := context.Background()

	require.NoError(t, multi.Append(ctx, newRecord("leg pain", "Orthopedist")))

	csvCount, err := csvStore.Count(ctx)
	require.NoError(t, err)
	sqliteCount, err := sqliteStore.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), csvCount)
	assert.Equal(t, int64(1), sqliteCount)

	count, err := multi.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	list, err := multi.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMultiStore_AppendAttemptsEveryStore(t *testing.T) {
	failing := &failingStore{}
	csvStore, err := NewCSVStore(filepath.Join(t.TempDir(), "logs.csv"))
	require.NoError(t, err)

	multi := NewMultiStore(failing, csvStore)
	err = multi.Append(context.Background(), newRecord("leg pain", "Orthopedist"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	count, err := csvStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	logger := logging.Discard()

	store, err := Open(ctx, domain.AuditConfig{Sinks: []string{"none"}}, logger)
	require.NoError(t, err)
	assert.IsType(t, Discard{}, store)

	store, err = Open(ctx, domain.AuditConfig{Sinks: []string{"csv"}, CSVPath: filepath.Join(dir, "a.csv")}, logger)
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, store)

	store, err = Open(ctx, domain.AuditConfig{
		Sinks:      []string{"csv", "sqlite"},
		CSVPath:    filepath.Join(dir, "b.csv"),
		SQLitePath: filepath.Join(dir, "b.db"),
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MultiStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, domain.AuditConfig{Sinks: []string{"kafka"}}, logger)
	assert.Error(t, err)

	_, err = Open(ctx, domain.AuditConfig{Sinks: []string{"postgres"}}, logger)
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Discard{}.Append(ctx, newRecord("x", "y")))
	_, err := Discard{}.List(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrNotQueryable)
}
