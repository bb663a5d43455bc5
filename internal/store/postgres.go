package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/db"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	ttl     time.Duration
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, ttl time.Duration, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, ttl: ttlOrDefault(ttl)}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS part_rows (
	part_number TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	row         JSONB NOT NULL,
	resolved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS provider_attempts (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id      TEXT,
	ts          TIMESTAMPTZ NOT NULL DEFAULT now(),
	sku         TEXT,
	provider    TEXT NOT NULL,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	http_status INTEGER NOT NULL,
	bytes       INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	attempt     INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_part_rows_expires_at ON part_rows(expires_at);
CREATE INDEX IF NOT EXISTS idx_provider_attempts_run_id ON provider_attempts(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetRow(ctx context.Context, pn model.PartNumber) (*model.Row, bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT row FROM part_rows WHERE part_number = $1 AND expires_at > now()`,
		string(pn),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrapf(err, "postgres: get row %s", pn)
	}
	row, err := decodeRow(data)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (s *PostgresStore) SaveRow(ctx context.Context, row *model.Row) error {
	data, err := encodeRow(row)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO part_rows (part_number, status, row, resolved_at, expires_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (part_number) DO UPDATE SET status = $2, row = $3, resolved_at = $4, expires_at = $5`,
		string(cacheKey(row)), string(row.Status), data, now, now.Add(s.ttl),
	)
	return eris.Wrapf(err, "postgres: save row %s", cacheKey(row))
}

func (s *PostgresStore) DeleteExpiredRows(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM part_rows WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired rows")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) RecordAttempts(ctx context.Context, attempts []model.ProviderAttempt) error {
	rows := make([][]any, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, attemptArgs(a))
	}
	_, err := db.CopyFrom(ctx, s.pool, "provider_attempts", attemptColumns, rows)
	return eris.Wrap(err, "postgres: record attempts")
}

func (s *PostgresStore) CountAttempts(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM provider_attempts WHERE $1 = '' OR run_id = $1`,
		runID,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count attempts")
}
