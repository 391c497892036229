package services

import (
	"context"
	"fmt"
	"iter"
)

// DefaultPageSize is the page size requested from the upstream CMS.
const DefaultPageSize = 100

// PageFunc fetches one page of a listing. Pages are numbered from 1.
type PageFunc[T any] func(ctx context.Context, page, perPage int) ([]T, error)

// Pages walks a paginated listing from page 1.
//
// Each page is yielded before the next one is requested. The walk ends after
// the first page holding fewer than perPage elements, which may be empty.
// A fetch error is yielded once, wrapped with its page number, and ends the
// walk; nothing is retried here. Ranging the sequence again starts over at
// page 1, and breaking out of the loop stops further requests.
func Pages[T any](ctx context.Context, perPage int, fetch PageFunc[T]) iter.Seq2[[]T, error] {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	return func(yield func([]T, error) bool) {
		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			items, err := fetch(ctx, page, perPage)
			if err != nil {
				yield(nil, fmt.Errorf("fetch page %d: %w", page, err))
				return
			}

			if !yield(items, nil) {
				return
			}

			if len(items) < perPage {
				return
			}
		}
	}
}
