package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresCache creates a PostgresCache backed by pgxmock for unit testing.
func newMockPostgresCache(t *testing.T) (*PostgresCache, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresCache{pool: mock}, mock
}

func TestPostgres_GetPage_NotFound(t *testing.T) {
	s, mock := newMockPostgresCache(t)

	mock.ExpectQuery(`SELECT id, cache_key, page, cached_at, expires_at FROM page_cache`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	e, err := s.GetPage(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetPage_Error(t *testing.T) {
	s, mock := newMockPostgresCache(t)

	mock.ExpectQuery(`FROM page_cache`).
		WithArgs("k").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetPage(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get cached page")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetPage_Found(t *testing.T) {
	s, mock := newMockPostgresCache(t)
	now := time.Now().UTC()
	page := samplePage()

	rows := pgxmock.NewRows([]string{"id", "cache_key", "page", "cached_at", "expires_at"}).
		AddRow("row-1", "k", page, now, now.Add(time.Hour))
	mock.ExpectQuery(`FROM page_cache\s+WHERE cache_key = \$1 AND expires_at > now\(\)`).
		WithArgs("k").
		WillReturnRows(rows)

	e, err := s.GetPage(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "row-1", e.ID)
	assert.Equal(t, page.Title, e.Page.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetPage_Upsert(t *testing.T) {
	s, mock := newMockPostgresCache(t)

	mock.ExpectExec(`ON CONFLICT \(cache_key\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "k", samplePage(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetPage(context.Background(), "k", samplePage(), 24*time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteExpiredPages(t *testing.T) {
	s, mock := newMockPostgresCache(t)

	mock.ExpectExec(`DELETE FROM page_cache WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpiredPages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresCache(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS page_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Close(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	s := &PostgresCache{pool: mock}

	mock.ExpectClose()
	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
