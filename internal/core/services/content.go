package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driving"
)

// Ensure contentService implements ContentService
var _ driving.ContentService = (*contentService)(nil)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// contentService implements the ContentService interface
type contentService struct {
	posts      driven.PostStore
	categories driven.CategoryStore
	tags       driven.TagStore
	ledger     driven.SyncStatusStore
}

// NewContentService creates a new ContentService
func NewContentService(
	posts driven.PostStore,
	categories driven.CategoryStore,
	tags driven.TagStore,
	ledger driven.SyncStatusStore,
) driving.ContentService {
	return &contentService{
		posts:      posts,
		categories: categories,
		tags:       tags,
		ledger:     ledger,
	}
}

// ListPosts returns a page of posts, newest first
func (s *contentService) ListPosts(ctx context.Context, q domain.PostQuery) (*domain.PostPage, error) {
	q = q.Normalize()
	items, total, err := s.posts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return domain.NewPostPage(items, total, q), nil
}

// GetPostBySlug returns one post
func (s *contentService) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.posts.GetBySlug(ctx, slug)
}

// ListCategories returns every stored category
func (s *contentService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

// ListTags returns every stored tag
func (s *contentService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return s.tags.List(ctx)
}

// SyncStatus returns the current ledger entry of every kind
func (s *contentService) SyncStatus(ctx context.Context) ([]*domain.SyncStatusEntry, error) {
	entries, err := s.ledger.LatestAll(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*domain.SyncStatusEntry{}
	}
	return entries, nil
}

// SyncHistory returns recent ledger entries for a kind, newest first
func (s *contentService) SyncHistory(ctx context.Context, kind domain.EntityKind, limit int) ([]*domain.SyncStatusEntry, error) {
	if _, err := domain.ParseEntityKind(string(kind)); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, err := s.ledger.History(ctx, kind, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*domain.SyncStatusEntry{}
	}
	return entries, nil
}
