package works

import (
	"context"
	"fmt"
	"iter"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	// DefaultFetchSize is the number of items requested per upstream page.
	DefaultFetchSize = 100
	// DefaultMaxItems caps one aggregation pass.
	DefaultMaxItems = 1000
)

// Aggregator walks the upstream cursor pagination and materialises the collection.
type Aggregator struct {
	source    Source
	fetchSize int
	maxItems  int
	opts      options
}

// NewAggregator returns an Aggregator; sizes below 1 use the defaults.
func NewAggregator(source Source, fetchSize, maxItems int, opts ...Option) *Aggregator {
	if fetchSize < 1 {
		fetchSize = DefaultFetchSize
	}
	if maxItems < 1 {
		maxItems = DefaultMaxItems
	}
	return &Aggregator{source: source, fetchSize: fetchSize, maxItems: maxItems, opts: buildOptions(opts)}
}

// Pages returns the lazy sequence of upstream pages for variant. Each request is
// issued only once the previous page's cursor is known. The sequence ends after a
// page without a next page, on a missing or repeated cursor, or after yielding a
// fetch error. It is not restartable mid-way: ranging again starts from the first page.
func (a *Aggregator) Pages(ctx context.Context, variant Variant, excludeIDs ...string) iter.Seq2[Page, error] {
	variant = variant.Effective()
	return func(yield func(Page, error) bool) {
		after := ""
		for n := 1; ; n++ {
			page, err := a.source.FetchPage(ctx, PageRequest{
				Variant:    variant,
				First:      a.fetchSize,
				After:      after,
				ExcludeIDs: excludeIDs,
			})
			if err != nil {
				yield(Page{}, fmt.Errorf("works: fetch page %d: %w", n, err))
				return
			}
			a.opts.metrics.pageFetched(ctx, variant)
			if !yield(page, nil) {
				return
			}
			if !page.HasNextPage || page.EndCursor == "" {
				return
			}
			if page.EndCursor == after {
				a.opts.logger.Warn("upstream repeated cursor; stopping pagination",
					zap.String("cursor", page.EndCursor), zap.Int("page", n))
				return
			}
			after = page.EndCursor
		}
	}
}

// AggregateAll concatenates every page in arrival order, truncated to the cap. A
// failed page fetch is logged and whatever was gathered so far is returned.
func (a *Aggregator) AggregateAll(ctx context.Context, variant Variant, excludeIDs ...string) []Item {
	ctx, span := a.opts.tracer.Start(ctx, "works.AggregateAll")
	defer span.End()

	var (
		items   []Item
		partial bool
	)
	for page, err := range a.Pages(ctx, variant, excludeIDs...) {
		if err != nil {
			partial = true
			a.opts.logger.Error("works aggregation stopped early",
				zap.Stringer("variant", variant.Effective()),
				zap.Int("collected", len(items)),
				zap.Error(err),
			)
			a.opts.metrics.failed(ctx, variant.Effective())
			span.RecordError(err)
			span.SetStatus(codes.Error, "partial result")
			break
		}
		items = append(items, page.Items...)
		if len(items) >= a.maxItems {
			items = items[:a.maxItems:a.maxItems]
			break
		}
	}

	span.SetAttributes(attribute.Int("works.items", len(items)), attribute.Bool("works.partial", partial))
	a.opts.metrics.aggregated(ctx, variant.Effective(), len(items), partial)
	return items
}
