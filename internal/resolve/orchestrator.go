// Package resolve turns one raw part number into one resolved row by
// walking the routed provider chain, applying the denylist and the -002 to
// -001 auto-correction.
package resolve

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/provider"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/route"
)

// Cache stores resolved rows between runs.
type Cache interface {
	GetRow(ctx context.Context, pn model.PartNumber) (*model.Row, bool, error)
	SaveRow(ctx context.Context, row *model.Row) error
}

// Publisher announces freshly resolved rows.
type Publisher interface {
	PublishRow(ctx context.Context, row *model.Row) error
}

// Options wires an Orchestrator.
type Options struct {
	// Providers run in the order the router picks. Keyed by ID.
	Providers []provider.Provider
	// Supplementary providers run once after the routed chain, fill-only.
	Supplementary []provider.Provider
	Router        *route.Router
	Policy        *Policy
	Cache         Cache     // optional
	Publisher     Publisher // optional
}

// Orchestrator resolves part numbers. It is safe for concurrent use as long
// as its providers are.
type Orchestrator struct {
	primary       map[model.ProviderID]provider.Provider
	supplementary []provider.Provider
	router        *route.Router
	policy        *Policy
	cache         Cache
	publisher     Publisher
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		primary:       make(map[model.ProviderID]provider.Provider, len(opts.Providers)),
		supplementary: opts.Supplementary,
		router:        opts.Router,
		policy:        opts.Policy,
		cache:         opts.Cache,
		publisher:     opts.Publisher,
	}
	for _, p := range opts.Providers {
		o.primary[p.ID()] = p
	}
	if o.policy == nil {
		o.policy = DefaultPolicy()
	}
	if o.router == nil {
		o.router = route.NewRouter(o.policy.PhotoOnlyParts())
	}
	return o
}

// Resolve normalizes raw and resolves it. The only error it returns is
// model.ErrInvalidPartNumber (wrapped) or the context error; provider
// failures are recorded in the row.
func (o *Orchestrator) Resolve(ctx context.Context, raw string) (*model.Row, error) {
	pn, err := partnum.Normalize(raw)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("pn", string(pn)))

	if o.policy.Denied(pn) {
		log.Info("denylisted part, skipping lookup")
		row := o.newRow(pn)
		row.MarkCheckManually()
		return row, nil
	}

	if o.cache != nil {
		row, ok, err := o.cache.GetRow(ctx, pn)
		switch {
		case err != nil:
			log.Warn("row cache read failed", zap.Error(err))
		case ok:
			log.Debug("row cache hit")
			return row, nil
		}
	}

	row := o.build(ctx, pn)
	if !row.AnyData() && row.Status != model.StatusMultiMatch {
		if alt, ok := partnum.Sibling(pn, "002", "001"); ok && !o.policy.Denied(alt) {
			log.Info("no data, trying sibling", zap.String("sibling", string(alt)))
			altRow := o.build(ctx, alt)
			if altRow.AnyData() {
				altRow.PartNumber = string(pn) + " (auto change " + string(alt) + ")"
				altRow.Canonical = pn
				altRow.AutoCorrectedTo = alt
				row = altRow
			}
		}
	}
	if !row.AnyData() {
		status := row.Status
		row.MarkCheckManually()
		// ambiguous and unparseable pages keep their status for triage
		if status == model.StatusMultiMatch || status == model.StatusParseError {
			row.Status = status
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(err, "resolve: %s", pn)
	}

	log.Info("resolved",
		zap.String("status", string(row.Status)),
		zap.String("fetched_from", string(row.FetchedFrom)),
	)
	// Rows without data may only reflect an offline run or a flaky upstream,
	// so they are looked up again next time.
	if o.cache != nil && row.AnyData() {
		if err := o.cache.SaveRow(ctx, row); err != nil {
			log.Warn("row cache write failed", zap.Error(err))
		}
	}
	if o.publisher != nil {
		if err := o.publisher.PublishRow(ctx, row); err != nil {
			log.Warn("row publish failed", zap.Error(err))
		}
	}
	return row, nil
}

// build runs the routed chain and the supplementary providers for pn.
func (o *Orchestrator) build(ctx context.Context, pn model.PartNumber) *model.Row {
	row := o.newRow(pn)
	var st chainState

	plan := o.router.Route(pn)
	for i, id := range plan.Providers {
		p, ok := o.primary[id]
		if !ok {
			continue
		}
		status := o.run(ctx, p, pn, row, &st)
		if i < len(plan.Providers)-1 && plan.Fallback.Has(status) {
			continue
		}
		break
	}

	if row.Search.Title == "" && row.Photo.Title != "" {
		row.Search.Title = row.Photo.Title
	}
	for _, p := range o.supplementary {
		o.run(ctx, p, pn, row, &st)
	}

	finalize(row)
	row.Status = st.status()
	return row
}

// newRow returns an empty row whose PartSurfer sections already point at
// the pages that would be queried for pn.
func (o *Orchestrator) newRow(pn model.PartNumber) *model.Row {
	row := model.NewRow(pn)
	for id, p := range o.primary {
		if u, ok := p.(interface{ URL(model.PartNumber) string }); ok {
			presetURL(row, id, u.URL(pn))
		}
	}
	return row
}

// chainState accumulates what the providers reported for one row.
type chainState struct {
	multi      bool
	parseError bool
	usable     model.Status
}

func (s *chainState) status() model.Status {
	switch {
	case s.multi:
		return model.StatusMultiMatch
	case s.usable != "":
		return s.usable
	case s.parseError:
		return model.StatusParseError
	}
	return model.StatusNotFound
}

// run looks pn up at p, merges the result into row and returns the
// provider's status for the fallback decision.
func (o *Orchestrator) run(ctx context.Context, p provider.Provider, pn model.PartNumber, row *model.Row, st *chainState) model.Status {
	id := p.ID()
	ctx, span := otel.Tracer("partsurfer/resolve").Start(ctx, "resolve.provider")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", string(id)),
		attribute.String("pn", string(pn)),
	)

	res, err := p.Lookup(ctx, pn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		zap.L().Warn("provider failed",
			zap.String("pn", string(pn)),
			zap.String("provider", string(id)),
			zap.Error(err),
		)
		presetURL(row, id, res.QueryURL)
		row.Section(id).Error = errorText(err)
		if errors.Is(err, model.ErrParse) {
			st.parseError = true
			return model.StatusParseError
		}
		return model.StatusNotFound
	}

	had := row.HasData(id)
	merge(row, id, res)
	status := res.Record.Status()
	span.SetAttributes(attribute.String("status", string(status)))
	if res.Record.MultipleResults {
		st.multi = true
	}
	if !had && row.HasData(id) && st.usable == "" {
		st.usable = status
		row.FetchedFrom = id
	}
	return status
}

// errorText is the row error column for a provider failure.
func errorText(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return errNotFound
	case errors.Is(err, model.ErrMultiMatch):
		return errMultiple
	}
	return model.Code(err)
}
