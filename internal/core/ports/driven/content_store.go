package driven

import (
	"context"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// CategoryStore persists mirrored categories (PostgreSQL)
type CategoryStore interface {
	// Upsert inserts or overwrites a category keyed by its upstream id
	// and returns the stored row.
	Upsert(ctx context.Context, category *domain.Category) (*domain.Category, error)

	// List returns every stored category ordered by name
	List(ctx context.Context) ([]*domain.Category, error)
}

// TagStore persists mirrored tags (PostgreSQL)
type TagStore interface {
	Upsert(ctx context.Context, tag *domain.Tag) (*domain.Tag, error)
	List(ctx context.Context) ([]*domain.Tag, error)
}

// PostStore persists mirrored posts (PostgreSQL)
type PostStore interface {
	// Upsert inserts or overwrites a post keyed by its upstream id.
	// Category and tag ids are stored as-is, without referential checks.
	Upsert(ctx context.Context, post *domain.Post) (*domain.Post, error)

	// List returns a page of posts ordered by date descending.
	// A non-empty CategoryIDs keeps posts sharing at least one category.
	List(ctx context.Context, q domain.PostQuery) ([]*domain.Post, int, error)

	// GetBySlug retrieves a post by slug
	GetBySlug(ctx context.Context, slug string) (*domain.Post, error)

	// SetFeaturedMediaURL copies a resolved media url onto every post
	// referencing mediaID. Returns the number of posts touched.
	SetFeaturedMediaURL(ctx context.Context, mediaID int64, url string) (int, error)
}

// MediaStore persists mirrored media (PostgreSQL)
type MediaStore interface {
	Upsert(ctx context.Context, media *domain.Media) (*domain.Media, error)

	// Get retrieves a media row by id
	Get(ctx context.Context, id int64) (*domain.Media, error)

	// ListUnresolvedFeaturedIDs returns featured media ids referenced by posts
	// that have no media row or a media row without a source url.
	ListUnresolvedFeaturedIDs(ctx context.Context) ([]int64, error)
}

// AuthorStore persists post authors taken from post embeds (PostgreSQL)
type AuthorStore interface {
	Upsert(ctx context.Context, author *domain.Author) (*domain.Author, error)
	Get(ctx context.Context, id int64) (*domain.Author, error)
}
