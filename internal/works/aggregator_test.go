package works

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAggregateAllThreeFullPages(t *testing.T) {
	a, b, c := makeItems("a", 100), makeItems("b", 100), makeItems("c", 100)
	src := &scriptedSource{pages: []pageResult{
		{page: Page{Items: a, HasNextPage: true, EndCursor: "c1"}},
		{page: Page{Items: b, HasNextPage: true, EndCursor: "c2"}},
		{page: Page{Items: c, HasNextPage: false, EndCursor: "c3"}},
	}}

	items := NewAggregator(src, 100, 1000).AggregateAll(context.Background(), VariantNested)

	require.Len(t, items, 300)
	require.Equal(t, "a-0", items[0].ID)
	require.Equal(t, "b-0", items[100].ID)
	require.Equal(t, "c-99", items[299].ID)

	reqs := src.pageRequests()
	require.Len(t, reqs, 3)
	require.Equal(t, "", reqs[0].After)
	require.Equal(t, "c1", reqs[1].After)
	require.Equal(t, "c2", reqs[2].After)
	for _, req := range reqs {
		require.Equal(t, 100, req.First)
		require.Equal(t, VariantNested, req.Variant)
	}
}

func TestAggregateAllTruncatesAtCap(t *testing.T) {
	src := &scriptedSource{pages: []pageResult{
		{page: Page{Items: makeItems("a", 100), HasNextPage: true, EndCursor: "c1"}},
		{page: Page{Items: makeItems("b", 100), HasNextPage: true, EndCursor: "c2"}},
		{page: Page{Items: makeItems("c", 100), HasNextPage: true, EndCursor: "c3"}},
	}}

	items := NewAggregator(src, 100, 250).AggregateAll(context.Background(), VariantDirect)

	require.Len(t, items, 250)
	require.Equal(t, "c-49", items[249].ID)
	require.Len(t, src.pageRequests(), 3, "no request after the cap is reached")
}

func TestAggregateAllConcatenatesVariablePages(t *testing.T) {
	sizes := []int{3, 1, 5, 2}
	var pages []pageResult
	var want []string
	for i, n := range sizes {
		prefix := string(rune('a' + i))
		items := makeItems(prefix, n)
		for _, item := range items {
			want = append(want, item.ID)
		}
		pages = append(pages, pageResult{page: Page{
			Items:       items,
			HasNextPage: i < len(sizes)-1,
			EndCursor:   "cursor-" + prefix,
		}})
	}
	src := &scriptedSource{pages: pages}

	items := NewAggregator(src, 5, 1000).AggregateAll(context.Background(), VariantMeta)

	got := make([]string, len(items))
	for i, item := range items {
		got[i] = item.ID
	}
	require.Equal(t, want, got)

	capped := NewAggregator(&scriptedSource{pages: pages}, 5, 7).AggregateAll(context.Background(), VariantMeta)
	require.Len(t, capped, 7)
	require.Equal(t, want[6], capped[6].ID)
}

func TestAggregateAllReturnsPartialOnFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	src := &scriptedSource{pages: []pageResult{
		{page: Page{Items: makeItems("a", 10), HasNextPage: true, EndCursor: "c1"}},
		{err: errUpstream},
	}}

	items := NewAggregator(src, 10, 1000, WithLogger(zap.New(core))).AggregateAll(context.Background(), VariantNested)

	require.Len(t, items, 10)
	require.Equal(t, 1, logs.FilterMessage("works aggregation stopped early").Len())
}

func TestAggregateAllFirstPageFailureIsEmpty(t *testing.T) {
	src := &scriptedSource{pages: []pageResult{{err: errUpstream}}}
	items := NewAggregator(src, 10, 1000).AggregateAll(context.Background(), VariantNested)
	require.Empty(t, items)
}

func TestAggregateAllStopsOnMissingOrRepeatedCursor(t *testing.T) {
	missing := &scriptedSource{pages: []pageResult{
		{page: Page{Items: makeItems("a", 2), HasNextPage: true}},
	}}
	require.Len(t, NewAggregator(missing, 2, 1000).AggregateAll(context.Background(), VariantNested), 2)
	require.Len(t, missing.pageRequests(), 1)

	repeated := &scriptedSource{pages: []pageResult{
		{page: Page{Items: makeItems("a", 2), HasNextPage: true, EndCursor: "same"}},
		{page: Page{Items: makeItems("b", 2), HasNextPage: true, EndCursor: "same"}},
	}}
	require.Len(t, NewAggregator(repeated, 2, 1000).AggregateAll(context.Background(), VariantNested), 4)
	require.Len(t, repeated.pageRequests(), 2)
}

func TestAggregateAllUnknownQueriesNested(t *testing.T) {
	src := &scriptedSource{pages: []pageResult{{page: Page{Items: makeItems("a", 1)}}}}
	NewAggregator(src, 10, 1000).AggregateAll(context.Background(), VariantUnknown, "skip-me")

	reqs := src.pageRequests()
	require.Len(t, reqs, 1)
	require.Equal(t, VariantNested, reqs[0].Variant)
	require.Equal(t, []string{"skip-me"}, reqs[0].ExcludeIDs)
}

func TestPagesStopsWhenConsumerBreaks(t *testing.T) {
	src := &scriptedSource{pages: []pageResult{
		{page: Page{Items: makeItems("a", 2), HasNextPage: true, EndCursor: "c1"}},
		{page: Page{Items: makeItems("b", 2), HasNextPage: true, EndCursor: "c2"}},
	}}
	for range NewAggregator(src, 2, 1000).Pages(context.Background(), VariantNested) {
		break
	}
	require.Len(t, src.pageRequests(), 1)
}
