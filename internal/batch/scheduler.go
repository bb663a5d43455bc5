// Package batch resolves part-number lists with bounded concurrency.
package batch

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/resolve"
)

// DefaultConcurrency is used when a Scheduler is built with n < 1.
const DefaultConcurrency = 3

// Resolver turns one raw input into a row.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (*model.Row, error)
}

// Scheduler runs a Resolver over many inputs.
type Scheduler struct {
	resolver    Resolver
	concurrency int
	// OnRow, if set, is called once per finished row. Calls may be concurrent.
	OnRow func(i int, row *model.Row)
}

// New creates a Scheduler.
func New(r Resolver, concurrency int) *Scheduler {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{resolver: r, concurrency: concurrency}
}

// Concurrency returns the worker limit.
func (s *Scheduler) Concurrency() int { return s.concurrency }

// Run resolves every input and returns rows in input order. Invalid part
// numbers produce an invalid row instead of failing the run. Run fails only
// when ctx is done.
func (s *Scheduler) Run(ctx context.Context, inputs []string) ([]*model.Row, error) {
	rows := make([]*model.Row, len(inputs))
	if len(inputs) == 0 {
		return rows, nil
	}

	zap.L().Info("processing batch",
		zap.Int("parts", len(inputs)),
		zap.Int("concurrency", s.concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var resolved, manual, failed atomic.Int64

	for i, raw := range inputs {
		g.Go(func() error {
			row, err := s.resolver.Resolve(gctx, raw)
			switch {
			case errors.Is(err, model.ErrInvalidPartNumber):
				failed.Add(1)
				zap.L().Warn("batch: invalid part number", zap.String("input", raw))
				row = resolve.InvalidRow(raw)
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				failed.Add(1)
				zap.L().Error("batch: resolve failed", zap.String("input", raw), zap.Error(err))
				row = resolve.InvalidRow(raw)
				row.Search.Error = model.Code(err)
			}
			if row.ManualCheck {
				manual.Add(1)
			} else if err == nil {
				resolved.Add(1)
			}
			rows[i] = row
			if s.OnRow != nil {
				s.OnRow(i, row)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch: run")
	}

	zap.L().Info("batch complete",
		zap.Int64("resolved", resolved.Load()),
		zap.Int64("manual", manual.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return rows, nil
}
