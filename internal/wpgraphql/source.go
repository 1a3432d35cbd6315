package wpgraphql

import (
	"context"
	"fmt"

	"github.com/bakushin-github/bakushin.dev/internal/works"
)

// Source serves works pages from WPGraphQL.
type Source struct {
	client *Client
}

// NewSource wraps client as a works.Source.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

type worksData struct {
	Works *struct {
		Nodes    []node `json:"nodes"`
		PageInfo struct {
			HasNextPage bool    `json:"hasNextPage"`
			EndCursor   *string `json:"endCursor"`
		} `json:"pageInfo"`
	} `json:"works"`
}

type node struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	MenuOrder     *int   `json:"menuOrder"`
	Excerpt       string `json:"excerpt"`
	FeaturedImage *struct {
		Node *works.Media `json:"node"`
	} `json:"featuredImage"`
	Works *struct {
		Skill works.Skill `json:"skill"`
	} `json:"works"`
	Skill      works.Skill       `json:"skill"`
	MetaData   []works.MetaEntry `json:"metaData"`
	Categories *struct {
		Nodes []works.Category `json:"nodes"`
	} `json:"categories"`
}

// FetchPage implements works.Source.
func (s *Source) FetchPage(ctx context.Context, req works.PageRequest) (works.Page, error) {
	vars := map[string]any{"first": req.First}
	if req.After != "" {
		vars["after"] = req.After
	}
	if len(req.ExcludeIDs) > 0 {
		vars["notIn"] = req.ExcludeIDs
	}

	var data worksData
	if err := s.client.Query(ctx, WorksQuery(req.Variant, req.Natural), vars, &data); err != nil {
		return works.Page{}, fmt.Errorf("works %s query: %w", req.Variant.Effective(), err)
	}
	if data.Works == nil {
		return works.Page{}, nil
	}

	page := works.Page{
		Items:       make([]works.Item, 0, len(data.Works.Nodes)),
		HasNextPage: data.Works.PageInfo.HasNextPage,
	}
	if data.Works.PageInfo.EndCursor != nil {
		page.EndCursor = *data.Works.PageInfo.EndCursor
	}
	for _, n := range data.Works.Nodes {
		page.Items = append(page.Items, n.item())
	}
	return page, nil
}

func (n node) item() works.Item {
	item := works.Item{
		ID:        n.ID,
		Title:     n.Title,
		Slug:      n.Slug,
		MenuOrder: n.MenuOrder,
		Excerpt:   n.Excerpt,
		Skill: works.SkillFields{
			Direct: n.Skill,
			Meta:   n.MetaData,
		},
	}
	if n.FeaturedImage != nil && n.FeaturedImage.Node != nil {
		media := *n.FeaturedImage.Node
		item.Media = &media
	}
	if n.Works != nil {
		item.Skill.GroupPresent = true
		item.Skill.Nested = n.Works.Skill
	}
	if n.Categories != nil {
		item.Categories = n.Categories.Nodes
	}
	return item
}
