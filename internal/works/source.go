package works

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no work matches a lookup.
var ErrNotFound = errors.New("works: not found")

// PageRequest asks the upstream for one cursor page.
type PageRequest struct {
	// Variant selects the query shape; callers pass an effective variant.
	Variant Variant
	First   int
	After   string
	// ExcludeIDs are filtered upstream (notIn).
	ExcludeIDs []string
	// Natural skips the menu-order hint and keeps the upstream's own order.
	Natural bool
}

// Page is one upstream response.
type Page struct {
	Items       []Item
	HasNextPage bool
	EndCursor   string
}

// Source fetches cursor pages from a content backend.
type Source interface {
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req PageRequest) (Page, error)

// FetchPage calls f.
func (f SourceFunc) FetchPage(ctx context.Context, req PageRequest) (Page, error) {
	return f(ctx, req)
}
