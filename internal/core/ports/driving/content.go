package driving

import (
	"context"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// ContentService serves mirrored content from local storage only
type ContentService interface {
	// ListPosts returns a page of posts, newest first
	ListPosts(ctx context.Context, q domain.PostQuery) (*domain.PostPage, error)

	// GetPostBySlug returns one post
	GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error)

	// ListCategories returns every stored category
	ListCategories(ctx context.Context) ([]*domain.Category, error)

	// ListTags returns every stored tag
	ListTags(ctx context.Context) ([]*domain.Tag, error)

	// SyncStatus returns the current ledger entry of every kind
	SyncStatus(ctx context.Context) ([]*domain.SyncStatusEntry, error)

	// SyncHistory returns recent ledger entries for a kind, newest first
	SyncHistory(ctx context.Context, kind domain.EntityKind, limit int) ([]*domain.SyncStatusEntry, error)
}
