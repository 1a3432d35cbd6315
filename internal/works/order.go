package works

import (
	"cmp"
	"slices"
)

// Order returns a copy of items stably sorted by ascending MenuOrder, with an
// absent key treated as 0. Ties keep their arrival order.
func Order(items []Item) []Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b Item) int {
		return cmp.Compare(a.Order(), b.Order())
	})
	return out
}
