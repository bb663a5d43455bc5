package fetcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
)

// AttemptSink receives one record per HTTP attempt.
type AttemptSink interface {
	Record(ctx context.Context, a model.ProviderAttempt) error
}

// SinkFunc adapts a function to AttemptSink.
type SinkFunc func(ctx context.Context, a model.ProviderAttempt) error

// Record calls fn.
func (fn SinkFunc) Record(ctx context.Context, a model.ProviderAttempt) error { return fn(ctx, a) }

// MultiSink fans a record out to every non-nil sink and returns the first
// error after trying all of them.
type MultiSink []AttemptSink

// Record implements AttemptSink.
func (m MultiSink) Record(ctx context.Context, a model.ProviderAttempt) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// JSONLSink appends attempts as JSON lines to a file.
type JSONLSink struct {
	mu   sync.Mutex
	f    *os.File
	enc  *json.Encoder
	path string
}

// NewJSONLSink opens (creating parent directories) path for appending.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "fetcher: create log dir for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open attempt log %s", path)
	}
	return &JSONLSink{f: f, enc: json.NewEncoder(f), path: path}, nil
}

// Path returns the file being written.
func (s *JSONLSink) Path() string { return s.path }

// Record implements AttemptSink.
func (s *JSONLSink) Record(_ context.Context, a model.ProviderAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return eris.New("fetcher: attempt log closed")
	}
	return eris.Wrap(s.enc.Encode(a), "fetcher: write attempt")
}

// Close flushes and closes the file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return eris.Wrap(err, "fetcher: close attempt log")
}
