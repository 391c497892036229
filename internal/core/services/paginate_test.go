package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedFetcher serves pages of the given sizes and records requested pages.
type pagedFetcher struct {
	sizes     []int
	requested []int
	failAt    int
	err       error
}

func (f *pagedFetcher) fetch(ctx context.Context, page, perPage int) ([]int, error) {
	f.requested = append(f.requested, page)
	if f.failAt == page {
		return nil, f.err
	}
	if page > len(f.sizes) {
		return []int{}, nil
	}
	items := make([]int, f.sizes[page-1])
	for i := range items {
		items[i] = (page-1)*perPage + i + 1
	}
	return items, nil
}

func TestPages_StopsAfterShortPage(t *testing.T) {
	f := &pagedFetcher{sizes: []int{100, 100, 37}}

	total := 0
	for items, err := range Pages(context.Background(), 100, f.fetch) {
		require.NoError(t, err)
		total += len(items)
	}

	assert.Equal(t, 237, total)
	assert.Equal(t, []int{1, 2, 3}, f.requested)
}

func TestPages_StopsAfterEmptyPage(t *testing.T) {
	f := &pagedFetcher{sizes: []int{100, 100, 0}}

	total := 0
	for items, err := range Pages(context.Background(), 100, f.fetch) {
		require.NoError(t, err)
		total += len(items)
	}

	assert.Equal(t, 200, total)
	assert.Equal(t, []int{1, 2, 3}, f.requested)
}

func TestPages_EmptyListing(t *testing.T) {
	f := &pagedFetcher{}

	pages := 0
	for _, err := range Pages(context.Background(), 100, f.fetch) {
		require.NoError(t, err)
		pages++
	}

	assert.Equal(t, 1, pages)
	assert.Equal(t, []int{1}, f.requested)
}

func TestPages_YieldsBeforeNextRequest(t *testing.T) {
	f := &pagedFetcher{sizes: []int{2, 2, 1}}

	for items, err := range Pages(context.Background(), 2, f.fetch) {
		require.NoError(t, err)
		page := (items[0]-1)/2 + 1
		assert.Len(t, f.requested, page, "page %d yielded after %d requests", page, len(f.requested))
	}
}

func TestPages_FetchErrorEndsSequence(t *testing.T) {
	boom := errors.New("connection reset")
	f := &pagedFetcher{sizes: []int{10, 10, 10}, failAt: 2, err: boom}

	var pages, errs int
	var lastErr error
	for _, err := range Pages(context.Background(), 10, f.fetch) {
		if err != nil {
			errs++
			lastErr = err
			continue
		}
		pages++
	}

	assert.Equal(t, 1, pages)
	assert.Equal(t, 1, errs)
	assert.ErrorIs(t, lastErr, boom)
	assert.Contains(t, lastErr.Error(), "page 2")
	assert.Equal(t, []int{1, 2}, f.requested, "no retry or further pages after a failure")
}

func TestPages_BreakStopsRequests(t *testing.T) {
	f := &pagedFetcher{sizes: []int{10, 10, 10, 10}}

	for range Pages(context.Background(), 10, f.fetch) {
		break
	}

	assert.Equal(t, []int{1}, f.requested)
}

func TestPages_RestartsFromFirstPage(t *testing.T) {
	f := &pagedFetcher{sizes: []int{5, 3}}
	seq := Pages(context.Background(), 5, f.fetch)

	for range seq {
	}
	for range seq {
	}

	assert.Equal(t, []int{1, 2, 1, 2}, f.requested)
}

func TestPages_CancelledContext(t *testing.T) {
	f := &pagedFetcher{sizes: []int{10, 10}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var gotErr error
	for _, err := range Pages(ctx, 10, f.fetch) {
		if err != nil {
			gotErr = err
			continue
		}
		cancel()
	}

	assert.ErrorIs(t, gotErr, context.Canceled)
	assert.Equal(t, []int{1}, f.requested)
}

func TestPages_DefaultPageSize(t *testing.T) {
	var got int
	fetch := func(ctx context.Context, page, perPage int) ([]int, error) {
		got = perPage
		return nil, nil
	}

	for range Pages(context.Background(), 0, fetch) {
	}

	assert.Equal(t, DefaultPageSize, got)
}
