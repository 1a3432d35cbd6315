package works

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bakushin-github/bakushin.dev/internal/platform/pagination"
)

const (
	// DefaultRelatedLimit is the number of related works under a detail page.
	DefaultRelatedLimit = 6
	// DefaultGalleryLimit is the number of works in the home gallery.
	DefaultGalleryLimit = 15
	// DefaultCacheTTL matches the site's daily revalidation.
	DefaultCacheTTL = 24 * time.Hour

	orderCheckSample = 10
)

// ErrSourceMissing signals that the catalog was built without a Source.
var ErrSourceMissing = errors.New("works: source is not configured")

// CatalogDeps groups constructor parameters for the catalog.
type CatalogDeps struct {
	Source       Source
	Logger       *zap.Logger
	Meter        metric.Meter
	Clock        func() time.Time
	FetchSize    int
	MaxItems     int
	PerPage      int
	RelatedLimit int
	GalleryLimit int
	CacheTTL     time.Duration
}

// Catalog serves the ordered works collection. Each load is one aggregation
// session: the schema variant is resolved once, the full collection is gathered
// and ordered, and the result is kept until CacheTTL elapses. Concurrent cold
// loads share a single session.
type Catalog struct {
	source       Source
	logger       *zap.Logger
	resolver     *Resolver
	aggregator   *Aggregator
	clock        func() time.Time
	perPage      int
	relatedLimit int
	galleryLimit int
	ttl          time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	snap  *Snapshot
}

// Snapshot is the result of one aggregation session.
type Snapshot struct {
	Session  ulid.ULID
	Variant  Variant
	Items    []Item
	LoadedAt time.Time
}

// ListingPage is one page of the ordered listing.
type ListingPage struct {
	Items   []Item
	Window  pagination.Window
	Variant Variant
}

// NewCatalog constructs the catalog with the supplied dependencies.
func NewCatalog(deps CatalogDeps) (*Catalog, error) {
	if deps.Source == nil {
		return nil, ErrSourceMissing
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	perPage := deps.PerPage
	if perPage < 1 {
		perPage = pagination.DefaultPageSize
	}
	related := deps.RelatedLimit
	if related <= 0 {
		related = DefaultRelatedLimit
	}
	gallery := deps.GalleryLimit
	if gallery <= 0 {
		gallery = DefaultGalleryLimit
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	metrics := NewMetrics(deps.Meter, logger)
	opts := []Option{WithLogger(logger), WithMetrics(metrics)}
	return &Catalog{
		source:       deps.Source,
		logger:       logger,
		resolver:     NewResolver(deps.Source, opts...),
		aggregator:   NewAggregator(deps.Source, deps.FetchSize, deps.MaxItems, opts...),
		clock:        clock,
		perPage:      perPage,
		relatedLimit: related,
		galleryLimit: gallery,
		ttl:          ttl,
	}, nil
}

// Snapshot returns the current session, loading it when cold or expired. The
// returned snapshot is shared and must not be modified.
func (c *Catalog) Snapshot(ctx context.Context) *Snapshot {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil && c.clock().Sub(snap.LoadedAt) < c.ttl {
		return snap
	}

	v, _, _ := c.group.Do("snapshot", func() (any, error) {
		c.mu.RLock()
		current := c.snap
		c.mu.RUnlock()
		if current != nil && c.clock().Sub(current.LoadedAt) < c.ttl {
			return current, nil
		}
		// Detached so one caller's cancellation does not poison the shared load.
		fresh := c.load(context.WithoutCancel(ctx))
		c.mu.Lock()
		c.snap = fresh
		c.mu.Unlock()
		return fresh, nil
	})
	return v.(*Snapshot)
}

// Loaded reports whether a session has been loaded, without triggering one.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap != nil
}

// Invalidate drops the cached session; the next read starts a new one.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

func (c *Catalog) load(ctx context.Context) *Snapshot {
	session := ulid.Make()
	logger := c.logger.With(zap.Stringer("session", session))

	variant := c.resolver.Resolve(ctx)
	items := Listing().Apply(c.aggregator.AggregateAll(ctx, variant))

	if ce := logger.Check(zap.DebugLevel, "works order check"); ce != nil {
		sample := items[:min(len(items), orderCheckSample)]
		orders := make([]int, len(sample))
		for i, item := range sample {
			orders[i] = item.Order()
		}
		ce.Write(zap.Ints("menu_order", orders), zap.Int("total", len(items)))
	}
	logger.Info("works catalog loaded", zap.Stringer("variant", variant), zap.Int("items", len(items)))

	return &Snapshot{Session: session, Variant: variant, Items: items, LoadedAt: c.clock()}
}

// Page returns one listing page; out of range pages are clamped.
func (c *Catalog) Page(ctx context.Context, page int) ListingPage {
	snap := c.Snapshot(ctx)
	items, window := pagination.Paginate(snap.Items, page, c.perPage)
	return ListingPage{Items: items, Window: window, Variant: snap.Variant}
}

// Find looks a work up by slug.
func (c *Catalog) Find(ctx context.Context, slug string) (Item, Variant, error) {
	slug = strings.TrimSpace(slug)
	snap := c.Snapshot(ctx)
	if slug != "" {
		for _, item := range snap.Items {
			if item.Slug == slug {
				return item, snap.Variant, nil
			}
		}
	}
	return Item{}, snap.Variant, ErrNotFound
}

// Related lists other works for the detail page of current. The upstream is asked
// for the first page excluding current; on failure the cached collection is used.
func (c *Catalog) Related(ctx context.Context, current Item) []Item {
	policy := Related(current.ID, c.relatedLimit)
	snap := c.Snapshot(ctx)

	var exclude []string
	if current.ID != "" {
		exclude = []string{current.ID}
	}
	page, err := c.source.FetchPage(ctx, PageRequest{
		Variant:    snap.Variant.Effective(),
		First:      policy.Limit,
		ExcludeIDs: exclude,
	})
	if err != nil {
		c.logger.Warn("related works fetch failed; using cached collection", zap.String("work_id", current.ID), zap.Error(err))
		return policy.Apply(snap.Items)
	}
	return policy.Apply(page.Items)
}

// Gallery lists the first works in upstream order.
func (c *Catalog) Gallery(ctx context.Context) []Item {
	return c.gallery(ctx, Gallery(c.galleryLimit))
}

// SliderGallery is Gallery restricted to works flagged for the slider.
func (c *Catalog) SliderGallery(ctx context.Context) []Item {
	return c.gallery(ctx, Gallery(c.galleryLimit).Slider())
}

func (c *Catalog) gallery(ctx context.Context, policy Policy) []Item {
	snap := c.Snapshot(ctx)
	first := policy.Limit
	if policy.SliderOnly {
		// Flags are filtered locally, so fetch a full page to fill the limit.
		first = c.aggregator.fetchSize
	}
	page, err := c.source.FetchPage(ctx, PageRequest{
		Variant: snap.Variant.Effective(),
		First:   first,
		Natural: true,
	})
	if err != nil {
		c.logger.Warn("gallery fetch failed; using cached collection", zap.String("policy", policy.Name), zap.Error(err))
		return policy.Apply(snap.Items)
	}
	return policy.Apply(page.Items)
}

// StaticPages lists the listing page numbers that need their own route.
func (c *Catalog) StaticPages(ctx context.Context) []int {
	return pagination.StaticPages(len(c.Snapshot(ctx).Items), c.perPage)
}

// StaticSlugs lists the detail routes to pre-render, skipping works without a slug.
func (c *Catalog) StaticSlugs(ctx context.Context) []string {
	snap := c.Snapshot(ctx)
	slugs := make([]string, 0, len(snap.Items))
	for _, item := range snap.Items {
		if item.Slug != "" {
			slugs = append(slugs, item.Slug)
		}
	}
	return slugs
}
