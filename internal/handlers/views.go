package handlers

import (
	"context"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/bakushin-github/bakushin.dev/internal/platform/pagination"
	"github.com/bakushin-github/bakushin.dev/internal/works"
)

// Catalog is the read side of the works catalog used by the handlers.
type Catalog interface {
	Page(ctx context.Context, page int) works.ListingPage
	Find(ctx context.Context, slug string) (works.Item, works.Variant, error)
	Related(ctx context.Context, current works.Item) []works.Item
	Gallery(ctx context.Context) []works.Item
	SliderGallery(ctx context.Context) []works.Item
	StaticPages(ctx context.Context) []int
	Snapshot(ctx context.Context) *works.Snapshot
}

var bodyPolicy = bluemonday.UGCPolicy()

// ImageView is the card image.
type ImageView struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// WorkView is the presentation model of one work, shared by pages and the JSON API.
type WorkView struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Route        string     `json:"route"`
	Title        string     `json:"title"`
	DisplayTitle string     `json:"displayTitle"`
	Excerpt      string     `json:"excerpt"`
	Category     string     `json:"category,omitempty"`
	Skills       []string   `json:"skills"`
	SkillText    string     `json:"skillText"`
	MenuOrder    int        `json:"menuOrder"`
	Image        *ImageView `json:"image,omitempty"`
	Slider       bool       `json:"slider,omitempty"`

	body string
}

// Body is the sanitised rich excerpt for the detail page.
func (v WorkView) Body() template.HTML {
	return template.HTML(v.body) // #nosec G203 -- sanitised by bodyPolicy
}

func newWorkView(item works.Item, variant works.Variant) WorkView {
	skills := variant.Skills(item)
	if skills == nil {
		skills = []string{}
	}
	view := WorkView{
		ID:           item.ID,
		Slug:         item.Slug,
		Route:        item.Route(),
		Title:        works.PlainText(item.Title),
		DisplayTitle: works.DisplayTitle(item.Title),
		Excerpt:      works.Excerpt(item.Excerpt),
		Category:     works.CategoryName(item),
		Skills:       skills,
		SkillText:    works.FormatSkill(skills),
		MenuOrder:    item.Order(),
		Slider:       works.SliderFlag(item),
		body:         strings.TrimSpace(bodyPolicy.Sanitize(item.Excerpt)),
	}
	if item.Media != nil && item.Media.SourceURL != "" {
		alt := item.Media.AltText
		if alt == "" {
			alt = view.Title
		}
		view.Image = &ImageView{URL: item.Media.SourceURL, Alt: alt}
	}
	return view
}

func newWorkViews(items []works.Item, variant works.Variant) []WorkView {
	out := make([]WorkView, 0, len(items))
	for _, item := range items {
		out = append(out, newWorkView(item, variant))
	}
	return out
}

// ListingView is one page of the listing in the JSON API.
type ListingView struct {
	Items      []WorkView        `json:"items"`
	Pagination pagination.Window `json:"pagination"`
	Variant    string            `json:"variant"`
}
