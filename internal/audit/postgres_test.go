package audit

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Append(t *testing.T) {
	store, mock := newMockStore(t)
	rec := newRecord("leg pain", "Orthopedist")
	rec.RequestID = "req-1"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO symptom_logs")).
		WithArgs(rec.Timestamp, "leg pain", "", "Orthopedist", "model", "req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	require.NoError(t, store.Append(context.Background(), rec))
	assert.Equal(t, int64(42), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO symptom_logs")).
		WillReturnError(errors.New("connection reset"))

	err := store.Append(context.Background(), newRecord("leg pain", "Orthopedist"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "logged_at", "symptoms", "disease", "specialist", "source", "request_id"}).
		AddRow(2, ts, "chest pain", "", "Cardiologist", "model", "req-2").
		AddRow(1, ts, "eye pain", "", "Ophthalmologist", "rule", "req-1")
	mock.ExpectQuery(regexp.QuoteMeta("FROM symptom_logs")).
		WithArgs(50, 0).
		WillReturnRows(rows)

	list, err := store.List(context.Background(), 0, -5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, "Ophthalmologist", list[1].Specialist)
	assert.Equal(t, "rule", list[1].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM symptom_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
