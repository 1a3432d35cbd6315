package works

import (
	"slices"
	"strings"
)

// Policy is a named selection over the catalog. Each listing surface that used to
// carry its own variant of the fetch logic gets an explicit Policy instead.
type Policy struct {
	Name string
	// ExcludeID drops the work with this id.
	ExcludeID string
	// Limit caps the result; 0 means no limit.
	Limit int
	// Arrival keeps upstream order instead of applying Order.
	Arrival bool
	// SliderOnly keeps works whose slider meta flag is truthy.
	SliderOnly bool
}

// Listing is the policy for the paginated listing: everything, ordered.
func Listing() Policy {
	return Policy{Name: "listing"}
}

// Related lists other works shown under a detail page.
func Related(currentID string, limit int) Policy {
	return Policy{Name: "related", ExcludeID: currentID, Limit: limit}
}

// Gallery lists the first works in upstream order for the home page carousel.
func Gallery(limit int) Policy {
	return Policy{Name: "gallery", Limit: limit, Arrival: true}
}

// Slider narrows p to works flagged for the slider.
func (p Policy) Slider() Policy {
	p.SliderOnly = true
	p.Name += "+slider"
	return p
}

// Apply filters, orders and limits items according to p. The input is not modified.
func (p Policy) Apply(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if p.ExcludeID != "" && item.ID == p.ExcludeID {
			continue
		}
		if p.SliderOnly && !SliderFlag(item) {
			continue
		}
		out = append(out, item)
	}
	if !p.Arrival {
		out = Order(out)
	}
	if p.Limit > 0 && len(out) > p.Limit {
		out = slices.Clip(out[:p.Limit])
	}
	return out
}

// SliderFlag reports whether the "slider" or "_slider" meta entry is truthy.
func SliderFlag(item Item) bool {
	value, ok := item.MetaValue("slider", "_slider")
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}
