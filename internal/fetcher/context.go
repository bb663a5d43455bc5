package fetcher

import (
	"context"
	"slices"
)

type ctxKey int

const (
	liveKey ctxKey = iota
	runIDKey
	skuKey
	missingKey
)

// WithLive overrides Options.Live for fetches made with the returned context.
func WithLive(ctx context.Context, live bool) context.Context {
	return context.WithValue(ctx, liveKey, live)
}

func liveFrom(ctx context.Context, def bool) bool {
	if v, ok := ctx.Value(liveKey).(bool); ok {
		return v
	}
	return def
}

// WithRunID tags attempts made with ctx with a batch run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFrom returns the run id set by WithRunID.
func RunIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}

// WithSKU tags attempts made with ctx with the part number being resolved.
func WithSKU(ctx context.Context, sku string) context.Context {
	return context.WithValue(ctx, skuKey, sku)
}

// SKUFrom returns the part number set by WithSKU.
func SKUFrom(ctx context.Context) string {
	v, _ := ctx.Value(skuKey).(string)
	return v
}

// WithMissing declares statuses that mean "no such page" for fetches made
// with ctx. They are returned as ErrNotFound: not retried, not counted by
// the breaker and not treated as a block.
func WithMissing(ctx context.Context, statuses ...int) context.Context {
	if len(statuses) == 0 {
		return ctx
	}
	return context.WithValue(ctx, missingKey, statuses)
}

// MissingStatus reports whether status was declared with WithMissing.
func MissingStatus(ctx context.Context, status int) bool {
	statuses, _ := ctx.Value(missingKey).([]int)
	return slices.Contains(statuses, status)
}
