package works

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Resolver decides which Variant the upstream uses by probing a single item per
// candidate, in ProbeOrder.
type Resolver struct {
	source Source
	opts   options
}

// NewResolver returns a Resolver probing source.
func NewResolver(source Source, opts ...Option) *Resolver {
	return &Resolver{source: source, opts: buildOptions(opts)}
}

// Resolve returns the first variant whose sample item carries a skill at the
// expected location, or VariantUnknown. Probe failures count as negative results.
func (r *Resolver) Resolve(ctx context.Context) Variant {
	ctx, span := r.opts.tracer.Start(ctx, "works.Resolve")
	defer span.End()

	logger := r.opts.logger
	resolved := VariantUnknown
	for _, candidate := range ProbeOrder {
		if r.probe(ctx, candidate) {
			resolved = candidate
			break
		}
	}
	if resolved == VariantUnknown {
		logger.Debug("skill structure unresolved; falling back", zap.Stringer("fallback", resolved.Effective()))
	} else {
		logger.Debug("skill structure resolved", zap.Stringer("variant", resolved))
	}

	span.SetAttributes(attribute.String("works.variant", resolved.String()))
	r.opts.metrics.resolvedVariant(ctx, resolved)
	return resolved
}

func (r *Resolver) probe(ctx context.Context, candidate Variant) bool {
	page, err := r.source.FetchPage(ctx, PageRequest{Variant: candidate, First: 1})
	if err != nil {
		r.opts.logger.Debug("skill probe failed", zap.Stringer("variant", candidate), zap.Error(err))
		return false
	}
	if len(page.Items) == 0 {
		r.opts.logger.Debug("skill probe returned no sample", zap.Stringer("variant", candidate))
		return false
	}
	return candidate.Detects(page.Items[0])
}
