package wpgraphql

import (
	"strings"

	"github.com/bakushin-github/bakushin.dev/internal/works"
)

const worksQueryTemplate = `query Works($first: Int!, $after: String, $notIn: [ID]) {
  works(first: $first, after: $after, where: {WHERE}) {
    nodes {
      id
      title
      slug
      menuOrder
      excerpt(format: RENDERED)
      featuredImage {
        node {
          sourceUrl(size: MEDIUM)
          altText
        }
      }
      {SKILL}
      metaData {
        key
        value
      }
      categories {
        nodes {
          id
          name
          slug
        }
      }
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`

const (
	whereMenuOrder = `{ notIn: $notIn, orderby: { field: MENU_ORDER, order: ASC } }`
	whereNatural   = `{ notIn: $notIn }`
)

// skillSelection is the selection set that fetches the skill for a variant.
// metaData is selected by every query since it also carries the slider flag.
func skillSelection(v works.Variant) string {
	switch v.Effective() {
	case works.VariantDirect:
		return "skill"
	case works.VariantMeta:
		return ""
	default:
		return "works {\n        skill\n      }"
	}
}

// WorksQuery renders the works query for a variant.
func WorksQuery(v works.Variant, natural bool) string {
	where := whereMenuOrder
	if natural {
		where = whereNatural
	}
	return strings.NewReplacer("{WHERE}", where, "{SKILL}", skillSelection(v)).Replace(worksQueryTemplate)
}
