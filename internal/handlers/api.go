package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bakushin-github/bakushin.dev/internal/platform/httpx"
	"github.com/bakushin-github/bakushin.dev/internal/platform/pagination"
	"github.com/bakushin-github/bakushin.dev/internal/works"
)

const apiCacheControl = "public, max-age=60"

// APIHandlers serves the works catalog as JSON for the front-end scripts.
type APIHandlers struct {
	catalog Catalog
}

// NewAPIHandlers returns the JSON handlers.
func NewAPIHandlers(catalog Catalog) *APIHandlers {
	return &APIHandlers{catalog: catalog}
}

// Routes registers the API routes; the caller mounts them under /api.
func (h *APIHandlers) Routes(r chi.Router) {
	r.Get("/works", h.ListWorks)
	r.Get("/works/{slug}", h.GetWork)
	r.Get("/works/{slug}/related", h.RelatedWorks)
	r.Get("/gallery", h.Gallery)
	r.Get("/static-pages", h.StaticPages)
}

// ListWorks returns one listing page selected by the page query parameter.
func (h *APIHandlers) ListWorks(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("invalid_page", err.Error()))
		return
	}
	listing := h.catalog.Page(r.Context(), page)
	w.Header().Set("Cache-Control", apiCacheControl)
	httpx.WriteJSON(w, http.StatusOK, ListingView{
		Items:      newWorkViews(listing.Items, listing.Variant),
		Pagination: listing.Window,
		Variant:    listing.Variant.String(),
	})
}

// GetWork returns one work by slug.
func (h *APIHandlers) GetWork(w http.ResponseWriter, r *http.Request) {
	item, variant, ok := h.find(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", apiCacheControl)
	httpx.WriteJSON(w, http.StatusOK, newWorkView(item, variant))
}

// RelatedWorks lists the works shown under a work's detail page.
func (h *APIHandlers) RelatedWorks(w http.ResponseWriter, r *http.Request) {
	item, variant, ok := h.find(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", apiCacheControl)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"items": newWorkViews(h.catalog.Related(r.Context(), item), variant),
	})
}

// Gallery lists the home gallery; slider=true restricts it to slider works.
func (h *APIHandlers) Gallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variant := h.catalog.Snapshot(ctx).Variant
	var items []works.Item
	if r.URL.Query().Get("slider") == "true" {
		items = h.catalog.SliderGallery(ctx)
	} else {
		items = h.catalog.Gallery(ctx)
	}
	w.Header().Set("Cache-Control", apiCacheControl)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": newWorkViews(items, variant)})
}

// StaticPages lists the listing page numbers beyond the first.
func (h *APIHandlers) StaticPages(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"pages": h.catalog.StaticPages(r.Context())})
}

func (h *APIHandlers) find(w http.ResponseWriter, r *http.Request) (works.Item, works.Variant, bool) {
	slug := chi.URLParam(r, "slug")
	item, variant, err := h.catalog.Find(r.Context(), slug)
	if err != nil {
		if errors.Is(err, works.ErrNotFound) {
			httpx.WriteError(r.Context(), w, httpx.NotFound("work_not_found", "no work with slug "+slug))
			return works.Item{}, works.VariantUnknown, false
		}
		httpx.WriteError(r.Context(), w, httpx.AsError(err))
		return works.Item{}, works.VariantUnknown, false
	}
	return item, variant, true
}
