package works

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

var errUpstream = errors.New("upstream unavailable")

// scriptedSource serves probe requests (First == 1) from probes and every other
// request from pages, in order.
type scriptedSource struct {
	mu       sync.Mutex
	probes   map[Variant]probeResult
	pages    []pageResult
	next     int
	requests []PageRequest
}

type probeResult struct {
	item Item
	err  error
	none bool
}

type pageResult struct {
	page Page
	err  error
}

func (s *scriptedSource) FetchPage(_ context.Context, req PageRequest) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	if req.First == 1 {
		probe, ok := s.probes[req.Variant]
		switch {
		case !ok || probe.none:
			return Page{}, nil
		case probe.err != nil:
			return Page{}, probe.err
		default:
			return Page{Items: []Item{probe.item}, HasNextPage: true, EndCursor: "probe"}, nil
		}
	}

	if s.next >= len(s.pages) {
		return Page{}, fmt.Errorf("unexpected page request %d", s.next+1)
	}
	result := s.pages[s.next]
	s.next++
	return result.page, result.err
}

func (s *scriptedSource) pageRequests() []PageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PageRequest
	for _, req := range s.requests {
		if req.First != 1 {
			out = append(out, req)
		}
	}
	return out
}

func makeItems(prefix string, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			ID:    prefix + "-" + strconv.Itoa(i),
			Slug:  prefix + "-" + strconv.Itoa(i),
			Title: prefix + " " + strconv.Itoa(i),
		}
	}
	return items
}

func orderKey(n int) *int { return &n }

func nestedSample() Item {
	return Item{ID: "probe", Skill: SkillFields{GroupPresent: true, Nested: NewSkill("Design")}}
}

func directSample() Item {
	return Item{ID: "probe", Skill: SkillFields{Direct: NewSkill("Coding")}}
}

func metaSample() Item {
	return Item{ID: "probe", Skill: SkillFields{Meta: []MetaEntry{{Key: "_skill", Value: "WordPress"}}}}
}
