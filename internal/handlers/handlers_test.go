package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/bakushin-github/bakushin.dev/internal/works"
)

func intPtr(v int) *int { return &v }

// sampleWorks builds n works whose menu order runs backwards, so ordering is visible.
func sampleWorks(n int) []works.Item {
	items := make([]works.Item, n)
	for i := range items {
		num := i + 1
		items[i] = works.Item{
			ID:         "id-" + strconv.Itoa(num),
			Title:      fmt.Sprintf("<b>Work %02d</b>", num),
			Slug:       fmt.Sprintf("work-%02d", num),
			MenuOrder:  intPtr(n - i),
			Excerpt:    "<p>About work " + strconv.Itoa(num) + "</p><script>alert(1)</script>",
			Categories: []works.Category{{ID: "c1", Name: "Web Production", Slug: "web"}},
			Media:      &works.Media{SourceURL: "/img/" + strconv.Itoa(num) + ".jpg"},
			Skill: works.SkillFields{
				GroupPresent: true,
				Nested:       works.NewSkill("Design", "Coding"),
			},
		}
		if num%5 == 0 {
			items[i].Skill.Meta = []works.MetaEntry{{Key: "slider", Value: "1"}}
		}
	}
	return items
}

// sliceSource pages over items with numeric cursors.
func sliceSource(items []works.Item) works.Source {
	return works.SourceFunc(func(_ context.Context, req works.PageRequest) (works.Page, error) {
		var pool []works.Item
		for _, item := range items {
			if !slices.Contains(req.ExcludeIDs, item.ID) {
				pool = append(pool, item)
			}
		}
		start := 0
		if req.After != "" {
			start, _ = strconv.Atoi(req.After)
		}
		end := min(start+req.First, len(pool))
		start = min(start, end)
		return works.Page{
			Items:       pool[start:end],
			HasNextPage: end < len(pool),
			EndCursor:   strconv.Itoa(end),
		}, nil
	})
}

func newTestServer(t *testing.T, items []works.Item) *httptest.Server {
	t.Helper()
	catalog, err := works.NewCatalog(works.CatalogDeps{Source: sliceSource(items)})
	require.NoError(t, err)

	pages, err := NewPageHandlers(catalog, WithNavigationTimeout(2*time.Second), WithBaseURL("https://example.com/"))
	require.NoError(t, err)
	api := NewAPIHandlers(catalog)

	router := NewRouter(
		WithPageRoutes(pages.Routes),
		WithAPIRoutes(api.Routes),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		})),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func getDocument(t *testing.T, url string) (*goquery.Document, int) {
	t.Helper()
	resp, err := noRedirectClient().Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc, resp.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func cardRoutes(doc *goquery.Document, scope string) []string {
	var routes []string
	doc.Find(scope + " li.work-card").Each(func(_ int, s *goquery.Selection) {
		route, _ := s.Attr("data-route")
		routes = append(routes, route)
	})
	return routes
}

func TestListingFirstPage(t *testing.T) {
	srv := newTestServer(t, sampleWorks(23))

	doc, status := getDocument(t, srv.URL+"/all-works")
	require.Equal(t, http.StatusOK, status)

	routes := cardRoutes(doc, ".listing")
	require.Len(t, routes, 9)
	require.Equal(t, "/all-works/work-23", routes[0])
	require.Equal(t, "Showing 1–9 of 23", doc.Find(".summary").Text())
	require.Equal(t, "1", doc.Find(".pager .current").Text())
	require.Equal(t, "/all-works/page/2", doc.Find(".pager a.next").AttrOr("href", ""))
	require.Zero(t, doc.Find(".pager a.prev").Length())
	require.Equal(t, "2000", doc.Find("body").AttrOr("data-nav-timeout", ""))
	require.Equal(t, "https://example.com/all-works", doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))
	require.Equal(t, "Work 23", doc.Find(".listing .work-title").First().Text())
}

func TestListingClampsPastLastPage(t *testing.T) {
	srv := newTestServer(t, sampleWorks(23))

	doc, status := getDocument(t, srv.URL+"/all-works/page/5")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, cardRoutes(doc, ".listing"), 5)
	require.Equal(t, "Showing 19–23 of 23", doc.Find(".summary").Text())
	require.Equal(t, "3", doc.Find(".pager .current").Text())
	require.Zero(t, doc.Find(".pager a.next").Length())
}

func TestListingPageOneRedirects(t *testing.T) {
	srv := newTestServer(t, sampleWorks(3))

	resp, err := noRedirectClient().Get(srv.URL + "/all-works/page/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	require.Equal(t, "/all-works", resp.Header.Get("Location"))
}

func TestListingInvalidPage(t *testing.T) {
	srv := newTestServer(t, sampleWorks(3))

	doc, status := getDocument(t, srv.URL+"/all-works/page/abc")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Work not found", doc.Find(".not-found h1").Text())
}

func TestListingEmptyState(t *testing.T) {
	srv := newTestServer(t, nil)

	doc, status := getDocument(t, srv.URL+"/all-works")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, doc.Find(".listing .empty").Length())
	require.Zero(t, doc.Find(".pager").Length())
}

func TestDetailPage(t *testing.T) {
	srv := newTestServer(t, sampleWorks(12))

	doc, status := getDocument(t, srv.URL+"/all-works/work-04")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Work 04", doc.Find(".work-detail h1").Text())
	require.Equal(t, "Design, Coding", doc.Find(".work-detail .work-skill").Text())
	require.Equal(t, "Web Production", doc.Find(".work-detail .work-category").Text())
	require.Equal(t, 1, doc.Find(".work-body p").Length())
	require.Zero(t, doc.Find(".work-body script").Length())

	crumbs := doc.Find(".breadcrumb li")
	require.Equal(t, 3, crumbs.Length())
	require.Equal(t, "Work 04", crumbs.Last().Text())

	related := cardRoutes(doc, ".related")
	require.Len(t, related, 6)
	require.NotContains(t, related, "/all-works/work-04")
}

func TestDetailNotFound(t *testing.T) {
	srv := newTestServer(t, sampleWorks(3))

	doc, status := getDocument(t, srv.URL+"/all-works/missing")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, 1, doc.Find(".not-found").Length())
	require.Equal(t, "/all-works", doc.Find("a.back").AttrOr("href", ""))
}

func TestHomeGallery(t *testing.T) {
	srv := newTestServer(t, sampleWorks(20))

	doc, status := getDocument(t, srv.URL+"/")
	require.Equal(t, http.StatusOK, status)

	gallery := cardRoutes(doc, ".gallery")
	require.Len(t, gallery, 15)
	require.Equal(t, "/all-works/work-01", gallery[0], "gallery keeps upstream order")
	require.Equal(t, []string{"/all-works/work-05", "/all-works/work-10", "/all-works/work-15", "/all-works/work-20"}, cardRoutes(doc, ".slider"))
}

func TestAPIListWorks(t *testing.T) {
	srv := newTestServer(t, sampleWorks(23))

	var body ListingView
	status := getJSON(t, srv.URL+"/api/works?page=3", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Items, 5)
	require.Equal(t, 3, body.Pagination.CurrentPage)
	require.Equal(t, 3, body.Pagination.TotalPages)
	require.False(t, body.Pagination.HasNext)
	require.Equal(t, "nested", body.Variant)
	require.Equal(t, []string{"Design", "Coding"}, body.Items[0].Skills)
}

func TestAPIInvalidPage(t *testing.T) {
	srv := newTestServer(t, sampleWorks(3))

	var body map[string]any
	status := getJSON(t, srv.URL+"/api/works?page=0", &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_page", body["error"])
	require.NotEmpty(t, body["request_id"])
}

func TestAPIGetWorkAndRelated(t *testing.T) {
	srv := newTestServer(t, sampleWorks(10))

	var work WorkView
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/works/work-02", &work))
	require.Equal(t, "id-2", work.ID)
	require.Equal(t, "/all-works/work-02", work.Route)
	require.Equal(t, "Work 02", work.Image.Alt)

	var related struct{ Items []WorkView }
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/works/work-02/related", &related))
	require.Len(t, related.Items, 6)
	for _, item := range related.Items {
		require.NotEqual(t, "id-2", item.ID)
	}

	var missing map[string]any
	require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/works/nope", &missing))
	require.Equal(t, "work_not_found", missing["error"])
}

func TestAPIGalleryAndStaticPages(t *testing.T) {
	srv := newTestServer(t, sampleWorks(23))

	var slider struct{ Items []WorkView }
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/gallery?slider=true", &slider))
	require.Len(t, slider.Items, 4)
	for _, item := range slider.Items {
		require.True(t, item.Slider)
	}

	var pages struct{ Pages []int }
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/static-pages", &pages))
	require.Equal(t, []int{2, 3}, pages.Pages)
}

func TestAPIGalleryFetchesOnce(t *testing.T) {
	var calls atomic.Int32
	inner := sliceSource(sampleWorks(23))
	src := works.SourceFunc(func(ctx context.Context, req works.PageRequest) (works.Page, error) {
		calls.Add(1)
		return inner.FetchPage(ctx, req)
	})
	catalog, err := works.NewCatalog(works.CatalogDeps{Source: src})
	require.NoError(t, err)
	catalog.Snapshot(context.Background())

	router := NewRouter(WithAPIRoutes(NewAPIHandlers(catalog).Routes))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	for _, query := range []string{"", "?slider=true"} {
		calls.Store(0)
		var body struct{ Items []WorkView }
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/gallery"+query, &body))
		require.NotEmpty(t, body.Items)
		require.EqualValues(t, 1, calls.Load(), "gallery%s", query)
	}
}

func TestRouterFallbacks(t *testing.T) {
	srv := newTestServer(t, sampleWorks(1))

	var notFound map[string]any
	require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/nope/nested", &notFound))
	require.Equal(t, "route_not_found", notFound["error"])

	resp, err := http.Post(srv.URL+"/api/works", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	require.Equal(t, http.StatusOK, metrics.StatusCode)
}
