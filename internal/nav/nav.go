// Package nav builds the navigation chrome of the works pages: breadcrumbs and
// the numbered pager.
package nav

import (
	"strconv"

	"github.com/bakushin-github/bakushin.dev/internal/platform/pagination"
)

const (
	// ListingPath is the first listing page.
	ListingPath = "/all-works"
	// WindowWidth is how many page numbers the pager shows around the current page.
	WindowWidth = 5
)

// Crumb is one breadcrumb entry. The active (last) entry is not linked.
type Crumb struct {
	Href   string `json:"href,omitempty"`
	Label  string `json:"label"`
	Active bool   `json:"active,omitempty"`
}

// Breadcrumbs returns Home, the listing, and the work title when non-empty.
func Breadcrumbs(title string) []Crumb {
	crumbs := []Crumb{
		{Href: "/", Label: "Home"},
		{Href: ListingPath, Label: "All works"},
	}
	if title == "" {
		crumbs[1] = Crumb{Label: "All works", Active: true}
		return crumbs
	}
	return append(crumbs, Crumb{Label: title, Active: true})
}

// PageURL is the listing URL for page n.
func PageURL(n int) string {
	if n <= 1 {
		return ListingPath
	}
	return ListingPath + "/page/" + strconv.Itoa(n)
}

// LinkKind distinguishes pager entries.
type LinkKind string

const (
	LinkPage     LinkKind = "page"
	LinkEllipsis LinkKind = "ellipsis"
)

// Link is one entry of the numbered pager.
type Link struct {
	Kind    LinkKind `json:"kind"`
	Number  int      `json:"number,omitempty"`
	URL     string   `json:"url,omitempty"`
	Current bool     `json:"current,omitempty"`
}

// Pager is the rendered pager for one listing page.
type Pager struct {
	Links    []Link `json:"links"`
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
}

// Visible reports whether the pager has anything to show.
func (p Pager) Visible() bool { return len(p.Links) > 0 }

// PagerFor builds the pager for w: a window of WindowWidth numbers centred on the
// current page, plus the first and last pages with ellipses when they are not
// adjacent. A single page yields an empty pager.
func PagerFor(w pagination.Window) Pager {
	if w.TotalPages <= 1 {
		return Pager{}
	}

	start := max(1, w.CurrentPage-WindowWidth/2)
	end := min(w.TotalPages, start+WindowWidth-1)
	if end-start+1 < WindowWidth {
		start = max(1, end-WindowWidth+1)
	}

	var p Pager
	if start > 1 {
		p.Links = append(p.Links, pageLink(1, w.CurrentPage))
		if start > 2 {
			p.Links = append(p.Links, Link{Kind: LinkEllipsis})
		}
	}
	for n := start; n <= end; n++ {
		p.Links = append(p.Links, pageLink(n, w.CurrentPage))
	}
	if end < w.TotalPages {
		if end < w.TotalPages-1 {
			p.Links = append(p.Links, Link{Kind: LinkEllipsis})
		}
		p.Links = append(p.Links, pageLink(w.TotalPages, w.CurrentPage))
	}

	if w.HasPrevious {
		p.Previous = PageURL(w.CurrentPage - 1)
	}
	if w.HasNext {
		p.Next = PageURL(w.CurrentPage + 1)
	}
	return p
}

func pageLink(n, current int) Link {
	return Link{Kind: LinkPage, Number: n, URL: PageURL(n), Current: n == current}
}
