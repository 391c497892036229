package driven

import (
	"context"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// Item is one element of an upstream listing page.
// Err is set when the element could not be transformed; Value is nil then.
// ID is the upstream id when it could be read, 0 otherwise.
type Item[T any] struct {
	ID    int64
	Value *T
	Err   error
}

// ContentSource reads entities from the upstream CMS.
// Listing methods return one page; a page shorter than perPage is the last one.
// The returned slice keeps one Item per upstream element, malformed ones included,
// so callers can detect the end of a listing from its length.
type ContentSource interface {
	// ListCategories fetches one page of categories.
	ListCategories(ctx context.Context, page, perPage int) ([]Item[domain.Category], error)

	// ListTags fetches one page of tags.
	ListTags(ctx context.Context, page, perPage int) ([]Item[domain.Tag], error)

	// ListPosts fetches one page of published posts, newest first, with embeds.
	ListPosts(ctx context.Context, page, perPage int) ([]Item[domain.PostEnvelope], error)

	// ListMedia fetches one page of the media library.
	ListMedia(ctx context.Context, page, perPage int) ([]Item[domain.Media], error)

	// GetMedia fetches a single media item by id.
	GetMedia(ctx context.Context, id int64) (*domain.Media, error)
}
