// Package store persists resolved rows (as a TTL cache) and the per-attempt
// HTTP log, in SQLite or Postgres.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// DefaultTTL is how long a cached row stays fresh when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Store defines the persistence interface for resolved rows and attempts.
type Store interface {
	// Row cache. GetRow reports ok=false for missing or expired rows.
	GetRow(ctx context.Context, pn model.PartNumber) (*model.Row, bool, error)
	SaveRow(ctx context.Context, row *model.Row) error
	DeleteExpiredRows(ctx context.Context) (int, error)

	// Attempt log.
	RecordAttempts(ctx context.Context, attempts []model.ProviderAttempt) error
	CountAttempts(ctx context.Context, runID string) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and tunes a store.
type Config struct {
	Driver string        `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string        `yaml:"dsn" mapstructure:"dsn"`
	TTL    time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Pool   PoolConfig    `yaml:"pool" mapstructure:"pool"`
}

// Open connects to the configured store. An empty driver means sqlite.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		if cfg.DSN == "" {
			return nil, eris.New("store: sqlite dsn is empty")
		}
		return NewSQLite(cfg.DSN, cfg.TTL)
	case "postgres", "pgx":
		return NewPostgres(ctx, cfg.DSN, cfg.TTL, &cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// Sink adapts a Store to the fetcher attempt sink contract, one record per call.
type Sink struct {
	Store Store
}

// Record writes a single attempt.
func (s Sink) Record(ctx context.Context, a model.ProviderAttempt) error {
	return s.Store.RecordAttempts(ctx, []model.ProviderAttempt{a})
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

func cacheKey(row *model.Row) model.PartNumber {
	if row.Canonical != "" {
		return row.Canonical
	}
	return model.PartNumber(row.PartNumber)
}

func encodeRow(row *model.Row) ([]byte, error) {
	b, err := json.Marshal(row)
	return b, eris.Wrap(err, "store: marshal row")
}

func decodeRow(data []byte) (*model.Row, error) {
	var row model.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal row")
	}
	return &row, nil
}
