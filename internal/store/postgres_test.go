package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/pkg/listing"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewFromDB(sqlx.NewDb(mockDB, DriverPostgres), logger.NewNop()), mock
}

func TestPostgresUpsertStatement(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	l, err := listing.New("chicago_electronics_7712345678", "Sealed New iPhone", 45, listing.Electronics, 100, "https://chicago.craigslist.org/d/x/7712345678.html")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8)") + `\s+` + regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE SET")).
		WithArgs(l.ID, l.Title, l.Price, "electronics", l.DealScore, l.URL, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Upsert(context.Background(), l))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertWrapsError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO listings").WillReturnError(errors.New("connection reset"))

	err := s.Upsert(context.Background(), listing.Listing{ID: "x", Title: "t", Category: listing.General})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert listing x")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresTopDealsQuery(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "title", "price", "category", "deal_score", "url", "created_at", "updated_at"}).
		AddRow("test_3", "Herman Miller Office Chair", 400.0, "furniture", 92.0, "https://craigslist.org/test3", time.Now(), time.Now()).
		AddRow("legacy", "Old row", 10.0, nil, nil, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE deal_score >= $1 AND price > 0") + `\s+` +
		regexp.QuoteMeta("ORDER BY deal_score DESC, price ASC") + `\s+` + regexp.QuoteMeta("LIMIT $2")).
		WithArgs(50.0, 20).
		WillReturnRows(rows)

	deals, err := s.TopDeals(context.Background(), 20, 50)
	require.NoError(t, err)
	require.Len(t, deals, 2)

	assert.Equal(t, listing.Furniture, deals[0].Category)
	assert.Equal(t, 92.0, deals[0].DealScore)

	assert.Equal(t, listing.General, deals[1].Category)
	assert.Equal(t, 0.0, deals[1].DealScore)
	assert.Equal(t, "", deals[1].URL)
	assert.True(t, deals[1].CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTopDealsValidatesBeforeQuery(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.TopDeals(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT version()")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("PostgreSQL 16.2"))
	assert.True(t, s.Ping(context.Background()))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT version()")).
		WillReturnError(errors.New("no route to host"))
	assert.False(t, s.Ping(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResetSchema(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS listings")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS listings")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_deal_score")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.ResetSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnsureSchemaFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS listings").WillReturnError(errors.New("permission denied"))

	err := s.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure schema")
}
