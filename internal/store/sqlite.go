package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps the per-connection pragmas in force.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, ttl: ttlOrDefault(ttl), now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS part_rows (
	part_number TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	row         TEXT NOT NULL,
	resolved_at INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS provider_attempts (
	id          TEXT PRIMARY KEY,
	run_id      TEXT,
	ts          DATETIME NOT NULL,
	sku         TEXT,
	provider    TEXT NOT NULL,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	http_status INTEGER NOT NULL,
	bytes       INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	attempt     INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_part_rows_expires_at ON part_rows(expires_at);
CREATE INDEX IF NOT EXISTS idx_provider_attempts_run_id ON provider_attempts(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetRow(ctx context.Context, pn model.PartNumber) (*model.Row, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT row FROM part_rows WHERE part_number = ? AND expires_at > ?`,
		string(pn), s.now().UnixMilli(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: get row %s", pn)
	}
	row, err := decodeRow([]byte(data))
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (s *SQLiteStore) SaveRow(ctx context.Context, row *model.Row) error {
	data, err := encodeRow(row)
	if err != nil {
		return err
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO part_rows (part_number, status, row, resolved_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(part_number) DO UPDATE SET status = excluded.status, row = excluded.row,
		 resolved_at = excluded.resolved_at, expires_at = excluded.expires_at`,
		string(cacheKey(row)), string(row.Status), string(data), now.UnixMilli(), now.Add(s.ttl).UnixMilli(),
	)
	return eris.Wrapf(err, "sqlite: save row %s", cacheKey(row))
}

func (s *SQLiteStore) DeleteExpiredRows(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM part_rows WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired rows")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) RecordAttempts(ctx context.Context, attempts []model.ProviderAttempt) error {
	if len(attempts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin attempts tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO provider_attempts (id, run_id, ts, sku, provider, method, url, http_status, bytes, duration_ms, attempt, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare attempt insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, a := range attempts {
		if _, err := stmt.ExecContext(ctx, attemptArgs(a)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert attempt %s", a.URL)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit attempts")
}

func (s *SQLiteStore) CountAttempts(ctx context.Context, runID string) (int, error) {
	var n int
	var err error
	if runID == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM provider_attempts`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM provider_attempts WHERE run_id = ?`, runID).Scan(&n)
	}
	return n, eris.Wrap(err, "sqlite: count attempts")
}

// attemptColumns matches attemptArgs, for both drivers.
var attemptColumns = []string{
	"id", "run_id", "ts", "sku", "provider", "method", "url",
	"http_status", "bytes", "duration_ms", "attempt", "outcome", "error",
}

func attemptArgs(a model.ProviderAttempt) []any {
	id := a.ID
	if id == "" {
		id = uuid.New().String()
	}
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	durMS := a.DurationMS
	if durMS == 0 && a.Duration > 0 {
		durMS = a.Duration.Milliseconds()
	}
	return []any{
		id, a.RunID, ts.UTC(), a.SKU, a.Provider, a.Method, a.URL,
		a.HTTPStatus, a.Bytes, durMS, a.Attempt, string(a.Outcome), a.Error,
	}
}
