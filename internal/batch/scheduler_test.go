package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

type fakeResolver struct {
	delay   time.Duration
	active  atomic.Int64
	peak    atomic.Int64
	mu      sync.Mutex
	calls   []string
	failOn  string
	failErr error
}

func (f *fakeResolver) Resolve(ctx context.Context, raw string) (*model.Row, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, raw)
	f.mu.Unlock()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if raw == f.failOn {
		return nil, f.failErr
	}
	pn, err := partnum.Normalize(raw)
	if err != nil {
		return nil, err
	}
	row := model.NewRow(pn)
	row.Status = model.StatusOK
	return row, nil
}

func TestRun_KeepsInputOrder(t *testing.T) {
	r := &fakeResolver{delay: 5 * time.Millisecond}
	s := New(r, 2)

	inputs := []string{"p00930b21", "511778-001", "  ", "AF573A", "874543-b2"}
	rows, err := s.Run(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, rows, len(inputs))

	assert.Equal(t, model.PartNumber("P00930-B21"), rows[0].Canonical)
	assert.Equal(t, model.PartNumber("511778-001"), rows[1].Canonical)
	assert.Equal(t, "invalid part number", rows[2].Search.Error)
	assert.Equal(t, model.BuyNotFoundURL, rows[2].Buy.URL)
	assert.Equal(t, model.PartNumber("AF573A"), rows[3].Canonical)
	assert.Equal(t, model.PartNumber("874543-B21"), rows[4].Canonical)

	assert.LessOrEqual(t, r.peak.Load(), int64(2))
	assert.Len(t, r.calls, len(inputs))
}

func TestRun_DefaultConcurrency(t *testing.T) {
	s := New(&fakeResolver{}, 0)
	assert.Equal(t, DefaultConcurrency, s.Concurrency())
}

func TestRun_UnexpectedErrorBecomesRow(t *testing.T) {
	r := &fakeResolver{failOn: "511778-001", failErr: eris.New("boom")}
	s := New(r, 3)

	var seen atomic.Int64
	s.OnRow = func(int, *model.Row) { seen.Add(1) }

	rows, err := s.Run(context.Background(), []string{"511778-001", "AF573A"})
	require.NoError(t, err)
	assert.Equal(t, model.CodeInternal, rows[0].Search.Error)
	assert.Equal(t, model.StatusOK, rows[1].Status)
	assert.Equal(t, int64(2), seen.Load())
}

func TestRun_Canceled(t *testing.T) {
	r := &fakeResolver{delay: time.Second}
	s := New(r, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Run(ctx, []string{"511778-001", "AF573A", "P00930-B21"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_Empty(t *testing.T) {
	rows, err := New(&fakeResolver{}, 1).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
