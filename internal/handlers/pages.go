package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bakushin-github/bakushin.dev/internal/nav"
	"github.com/bakushin-github/bakushin.dev/internal/platform/pagination"
	"github.com/bakushin-github/bakushin.dev/internal/transition"
	"github.com/bakushin-github/bakushin.dev/internal/works"
)

const pageCacheControl = "public, max-age=300"

// PageHandlers renders the HTML works pages.
type PageHandlers struct {
	catalog    Catalog
	renderer   *renderer
	navTimeout time.Duration
	baseURL    string
}

// PageOption customises PageHandlers.
type PageOption func(*PageHandlers)

// WithNavigationTimeout sets the card navigation fallback exposed to the page script.
func WithNavigationTimeout(d time.Duration) PageOption {
	return func(h *PageHandlers) {
		if d > 0 {
			h.navTimeout = d
		}
	}
}

// WithBaseURL sets the origin used for canonical links.
func WithBaseURL(base string) PageOption {
	return func(h *PageHandlers) {
		h.baseURL = strings.TrimRight(base, "/")
	}
}

// NewPageHandlers parses the embedded templates and returns the page handlers.
func NewPageHandlers(catalog Catalog, opts ...PageOption) (*PageHandlers, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	h := &PageHandlers{catalog: catalog, renderer: r, navTimeout: transition.DefaultTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Routes registers the page routes.
func (h *PageHandlers) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get(nav.ListingPath, h.Listing)
	r.Get(nav.ListingPath+"/page/{page}", h.Listing)
	r.Get(nav.ListingPath+"/{slug}", h.Detail)
}

type layoutData struct {
	Breadcrumbs  []nav.Crumb
	Canonical    string
	NavTimeoutMS int64
}

type homeData struct {
	layoutData
	Slider  []WorkView
	Gallery []WorkView
}

type listingData struct {
	layoutData
	Works  []WorkView
	Window pagination.Window
	Pager  nav.Pager
}

type detailData struct {
	layoutData
	Work    *WorkView
	Related []WorkView
}

func (h *PageHandlers) layout(path string, crumbs []nav.Crumb) layoutData {
	data := layoutData{Breadcrumbs: crumbs, NavTimeoutMS: h.navTimeout.Milliseconds()}
	if h.baseURL != "" {
		data.Canonical = h.baseURL + path
	}
	return data
}

// Home renders the landing gallery.
func (h *PageHandlers) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variant := h.catalog.Snapshot(ctx).Variant
	data := homeData{
		layoutData: h.layout("/", nil),
		Slider:     newWorkViews(h.catalog.SliderGallery(ctx), variant),
		Gallery:    newWorkViews(h.catalog.Gallery(ctx), variant),
	}
	w.Header().Set("Cache-Control", pageCacheControl)
	h.renderer.render(w, r, http.StatusOK, "home", data)
}

// Listing renders one page of all works. Page 1 lives at the listing root, and
// pages past the end are clamped to the last page.
func (h *PageHandlers) Listing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "page")
	page, err := pagination.ParsePage(raw)
	if err != nil {
		h.notFound(w, r)
		return
	}
	if raw != "" && page == 1 {
		http.Redirect(w, r, nav.ListingPath, http.StatusMovedPermanently)
		return
	}

	listing := h.catalog.Page(ctx, page)
	data := listingData{
		layoutData: h.layout(nav.PageURL(listing.Window.CurrentPage), nav.Breadcrumbs("")),
		Works:      newWorkViews(listing.Items, listing.Variant),
		Window:     listing.Window,
		Pager:      nav.PagerFor(listing.Window),
	}
	w.Header().Set("Cache-Control", pageCacheControl)
	h.renderer.render(w, r, http.StatusOK, "listing", data)
}

// Detail renders one work with related works below it.
func (h *PageHandlers) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")
	item, variant, err := h.catalog.Find(ctx, slug)
	if err != nil {
		h.notFound(w, r)
		return
	}

	view := newWorkView(item, variant)
	data := detailData{
		layoutData: h.layout(item.Route(), nav.Breadcrumbs(view.Title)),
		Work:       &view,
		Related:    newWorkViews(h.catalog.Related(ctx, item), variant),
	}
	w.Header().Set("Cache-Control", pageCacheControl)
	h.renderer.render(w, r, http.StatusOK, "detail", data)
}

func (h *PageHandlers) notFound(w http.ResponseWriter, r *http.Request) {
	data := detailData{layoutData: h.layout(r.URL.Path, nav.Breadcrumbs("Work not found"))}
	h.renderer.render(w, r, http.StatusNotFound, "detail", data)
}
