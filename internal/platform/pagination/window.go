package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is the number of works shown on one listing page.
const DefaultPageSize = 9

// ErrInvalidPage is returned when a page parameter is present but not a positive integer.
var ErrInvalidPage = errors.New("pagination: invalid page")

// Window describes one page of an ordered collection. All indices are 1-based and
// StartIndex/EndIndex are inclusive; both are 0 for an empty collection.
type Window struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	PageSize    int  `json:"pageSize"`
	StartIndex  int  `json:"startIndex"`
	EndIndex    int  `json:"endIndex"`
	HasPrevious bool `json:"hasPrevious"`
	HasNext     bool `json:"hasNext"`
}

// TotalPages returns ceil(total/pageSize), never less than 1.
func TotalPages(total, pageSize int) int {
	pageSize = normalizeSize(pageSize)
	if total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Paginate returns the slice for requestedPage and its window. Out of range pages
// are clamped into [1, TotalPages]; the result never aliases items beyond the page.
func Paginate[T any](items []T, requestedPage, pageSize int) ([]T, Window) {
	pageSize = normalizeSize(pageSize)
	total := len(items)
	pages := TotalPages(total, pageSize)

	current := min(max(requestedPage, 1), pages)
	start := (current - 1) * pageSize
	end := min(current*pageSize, total)
	if start > end {
		start = end
	}

	w := Window{
		CurrentPage: current,
		TotalPages:  pages,
		TotalItems:  total,
		PageSize:    pageSize,
		EndIndex:    end,
		HasPrevious: current > 1,
		HasNext:     current < pages,
	}
	if total > 0 {
		w.StartIndex = start + 1
	}

	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, w
}

// StaticPages lists the page numbers that need their own route. Page 1 is served by
// the listing root, so the result is 2..TotalPages and empty for a single page.
func StaticPages(total, pageSize int) []int {
	pages := TotalPages(total, pageSize)
	out := make([]int, 0, max(pages-1, 0))
	for p := 2; p <= pages; p++ {
		out = append(out, p)
	}
	return out
}

// ParsePage reads a 1-based page number. An empty value means page 1.
func ParsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPage, raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPage)
	}
	return n, nil
}

// FromQuery reads the "page" query parameter.
func FromQuery(values url.Values) (int, error) {
	if values == nil {
		return 1, nil
	}
	return ParsePage(values.Get("page"))
}

func normalizeSize(pageSize int) int {
	if pageSize < 1 {
		return DefaultPageSize
	}
	return pageSize
}
