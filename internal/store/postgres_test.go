package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, ttl: DefaultTTL}
	return s, mock
}

func TestPostgresStore_GetRow_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT row FROM part_rows WHERE part_number = \$1 AND expires_at > now\(\)`).
		WithArgs("511778-001").
		WillReturnError(pgx.ErrNoRows)

	row, ok, err := s.GetRow(context.Background(), "511778-001")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, row)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRow_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	data, err := json.Marshal(sampleRow())
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT row FROM part_rows`).
		WithArgs("P00930-B21").
		WillReturnRows(pgxmock.NewRows([]string{"row"}).AddRow(data))

	row, ok, err := s.GetRow(context.Background(), "P00930-B21")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.PartNumber("P00930-B21"), row.Canonical)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRow_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(part_number\)`).
		WithArgs("P00930-B21", "ok", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveRow(context.Background(), sampleRow()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM part_rows WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := s.DeleteExpiredRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordAttempts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"provider_attempts"}, attemptColumns).WillReturnResult(2)

	err := s.RecordAttempts(context.Background(), []model.ProviderAttempt{
		{ID: "a1", Provider: "partsurfer", Method: "GET", URL: "https://partsurfer.hpe.com/a", HTTPStatus: 200, Timestamp: time.Now()},
		{Provider: "photo", Method: "GET", URL: "https://partsurfer.hpe.com/b", HTTPStatus: 403},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAttempts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM provider_attempts`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountAttempts(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS part_rows`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptArgs_Defaults(t *testing.T) {
	args := attemptArgs(model.ProviderAttempt{Provider: "buyhpe", Duration: 1500 * time.Millisecond})
	require.Len(t, args, len(attemptColumns))
	assert.NotEmpty(t, args[0])
	assert.Equal(t, int64(1500), args[9])
}
