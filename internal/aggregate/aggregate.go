// Package aggregate queries every configured source for a part number at
// once and reports one value per source, isolating failures.
package aggregate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/extract"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/provider"
)

// Source names used in aggregate rows and CSV headers.
const (
	SourcePartSurfer = "hpe.partsurfer"
	SourcePhoto      = "hpe.partsurfer.photo"
	SourceBuy        = "hpe.buyhpe"
)

// Source is one independent catalog consulted by the Aggregator.
type Source interface {
	Name() string
	Lookup(ctx context.Context, pn model.PartNumber) (extract.Record, error)
}

type providerSource struct {
	name string
	p    provider.Provider
}

// FromProvider adapts a provider to a named Source.
func FromProvider(name string, p provider.Provider) Source {
	return providerSource{name: name, p: p}
}

func (s providerSource) Name() string { return s.name }

func (s providerSource) Lookup(ctx context.Context, pn model.PartNumber) (extract.Record, error) {
	res, err := s.p.Lookup(ctx, pn)
	return res.Record, err
}

// Aggregator fans a part number out to its sources. The source list is fixed
// at construction.
type Aggregator struct {
	sources     []Source
	concurrency int
}

// New returns an Aggregator over sources, reported in the given order.
// concurrency bounds AggregateAll; values below 1 mean 3.
func New(concurrency int, sources ...Source) *Aggregator {
	if concurrency < 1 {
		concurrency = 3
	}
	return &Aggregator{sources: append([]Source(nil), sources...), concurrency: concurrency}
}

// Sources returns the configured source names in row order.
func (a *Aggregator) Sources() []string {
	out := make([]string, len(a.sources))
	for i, s := range a.sources {
		out[i] = s.Name()
	}
	return out
}

// Aggregate queries every source concurrently. The row always carries one
// value per source: the record JSON, or model.NoData when the source failed,
// panicked or had nothing usable.
func (a *Aggregator) Aggregate(ctx context.Context, pn model.PartNumber) model.AggregateRow {
	values := make([]string, len(a.sources))
	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			values[i] = a.lookup(ctx, src, pn)
			return nil
		})
	}
	_ = g.Wait()

	row := model.AggregateRow{PartNumber: pn, Values: make([]model.SourceValue, len(a.sources))}
	for i, src := range a.sources {
		row.Values[i] = model.SourceValue{Source: src.Name(), Value: values[i]}
	}
	return row
}

func (a *Aggregator) lookup(ctx context.Context, src Source, pn model.PartNumber) (value string) {
	log := zap.L().With(zap.String("pn", string(pn)), zap.String("source", src.Name()))
	value = model.NoData
	defer func() {
		if r := recover(); r != nil {
			log.Error("source panicked", zap.Any("panic", r))
			value = model.NoData
		}
	}()

	rec, err := src.Lookup(ctx, pn)
	if err != nil {
		log.Warn("source failed", zap.String("code", model.Code(err)), zap.Error(err))
		return model.NoData
	}
	v, ok, err := Value(rec)
	if err != nil {
		log.Warn("source record not serializable", zap.Error(err))
		return model.NoData
	}
	if !ok {
		log.Debug("source has no data")
		return model.NoData
	}
	return v
}

// Value serializes the populated variant of rec. ok is false when the record
// carries nothing usable.
func Value(rec extract.Record) (string, bool, error) {
	if rec.NotFound || rec.MultipleResults {
		return "", false, nil
	}
	var payload any
	switch {
	case rec.Search != nil:
		s := rec.Search
		if s.Description == "" && s.Category == "" && s.ImageURL == "" && s.Availability == "" &&
			s.ReplacedBy == "" && s.Substitute == "" && len(s.BOM) == 0 {
			return "", false, nil
		}
		payload = s
	case rec.Photo != nil:
		if rec.Photo.Title == "" && rec.Photo.ImageURL == "" {
			return "", false, nil
		}
		payload = rec.Photo
	case rec.Buy != nil:
		if *rec.Buy == (extract.BuyRecord{}) {
			return "", false, nil
		}
		payload = rec.Buy
	default:
		return "", false, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", false, eris.Wrapf(err, "aggregate: marshal %s record", rec.Provider())
	}
	return string(b), true, nil
}

// AggregateAll normalizes raws, drops invalid and duplicate entries, and
// aggregates the rest with bounded concurrency. Rows keep first-seen input
// order.
func (a *Aggregator) AggregateAll(ctx context.Context, raws []string) []model.AggregateRow {
	var (
		pns  []model.PartNumber
		seen = make(map[model.PartNumber]bool)
	)
	for _, raw := range raws {
		pn, err := partnum.Normalize(raw)
		if err != nil {
			if strings.TrimSpace(raw) != "" {
				zap.L().Warn("skipping invalid part number", zap.String("input", raw))
			}
			continue
		}
		if seen[pn] {
			continue
		}
		seen[pn] = true
		pns = append(pns, pn)
	}

	rows := make([]model.AggregateRow, len(pns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, pn := range pns {
		g.Go(func() error {
			rows[i] = a.Aggregate(gctx, pn)
			return nil
		})
	}
	_ = g.Wait()
	return rows
}
