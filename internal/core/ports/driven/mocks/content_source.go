package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

var _ driven.ContentSource = (*MockContentSource)(nil)

// PageCall records one listing request made against MockContentSource
type PageCall struct {
	Kind    domain.EntityKind
	Page    int
	PerPage int
}

// MockContentSource serves fixed datasets page by page.
// Set an Fn hook to replace the dataset behaviour for one method.
type MockContentSource struct {
	mu    sync.Mutex
	calls []PageCall

	Categories []driven.Item[domain.Category]
	Tags       []driven.Item[domain.Tag]
	Posts      []driven.Item[domain.PostEnvelope]
	Media      []driven.Item[domain.Media]

	// MediaByID backs GetMedia; MediaErr fails GetMedia for listed ids
	MediaByID map[int64]*domain.Media
	MediaErr  map[int64]error

	// FailPage makes a listing fail with err once page is requested
	FailPage map[domain.EntityKind]PageFailure

	ListCategoriesFn func(ctx context.Context, page, perPage int) ([]driven.Item[domain.Category], error)
	ListTagsFn       func(ctx context.Context, page, perPage int) ([]driven.Item[domain.Tag], error)
	ListPostsFn      func(ctx context.Context, page, perPage int) ([]driven.Item[domain.PostEnvelope], error)
	ListMediaFn      func(ctx context.Context, page, perPage int) ([]driven.Item[domain.Media], error)
	GetMediaFn       func(ctx context.Context, id int64) (*domain.Media, error)
}

// PageFailure describes a scripted fetch failure
type PageFailure struct {
	Page int
	Err  error
}

// NewMockContentSource creates an empty MockContentSource
func NewMockContentSource() *MockContentSource {
	return &MockContentSource{
		MediaByID: make(map[int64]*domain.Media),
		MediaErr:  make(map[int64]error),
		FailPage:  make(map[domain.EntityKind]PageFailure),
	}
}

func (m *MockContentSource) record(kind domain.EntityKind, page, perPage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, PageCall{Kind: kind, Page: page, PerPage: perPage})
	if f, ok := m.FailPage[kind]; ok && f.Page == page {
		return f.Err
	}
	return nil
}

// slicePage returns the page-th window of perPage items
func slicePage[T any](items []driven.Item[T], page, perPage int) []driven.Item[T] {
	start := (page - 1) * perPage
	if start >= len(items) || start < 0 {
		return []driven.Item[T]{}
	}
	end := min(start+perPage, len(items))
	out := make([]driven.Item[T], end-start)
	copy(out, items[start:end])
	return out
}

func (m *MockContentSource) ListCategories(ctx context.Context, page, perPage int) ([]driven.Item[domain.Category], error) {
	if err := m.record(domain.KindCategories, page, perPage); err != nil {
		return nil, err
	}
	if m.ListCategoriesFn != nil {
		return m.ListCategoriesFn(ctx, page, perPage)
	}
	return slicePage(m.Categories, page, perPage), nil
}

func (m *MockContentSource) ListTags(ctx context.Context, page, perPage int) ([]driven.Item[domain.Tag], error) {
	if err := m.record(domain.KindTags, page, perPage); err != nil {
		return nil, err
	}
	if m.ListTagsFn != nil {
		return m.ListTagsFn(ctx, page, perPage)
	}
	return slicePage(m.Tags, page, perPage), nil
}

func (m *MockContentSource) ListPosts(ctx context.Context, page, perPage int) ([]driven.Item[domain.PostEnvelope], error) {
	if err := m.record(domain.KindPosts, page, perPage); err != nil {
		return nil, err
	}
	if m.ListPostsFn != nil {
		return m.ListPostsFn(ctx, page, perPage)
	}
	return slicePage(m.Posts, page, perPage), nil
}

func (m *MockContentSource) ListMedia(ctx context.Context, page, perPage int) ([]driven.Item[domain.Media], error) {
	if err := m.record(domain.KindMedia, page, perPage); err != nil {
		return nil, err
	}
	if m.ListMediaFn != nil {
		return m.ListMediaFn(ctx, page, perPage)
	}
	return slicePage(m.Media, page, perPage), nil
}

func (m *MockContentSource) GetMedia(ctx context.Context, id int64) (*domain.Media, error) {
	if m.GetMediaFn != nil {
		return m.GetMediaFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.MediaErr[id]; ok {
		return nil, err
	}
	md, ok := m.MediaByID[id]
	if !ok {
		return nil, fmt.Errorf("media %d: %w", id, domain.ErrNotFound)
	}
	cp := *md
	return &cp, nil
}

// Helper methods for testing

// Calls returns the listing requests made so far
func (m *MockContentSource) Calls() []PageCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PageCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// PagesRequested returns the pages requested for one kind, in order
func (m *MockContentSource) PagesRequested(kind domain.EntityKind) []int {
	var pages []int
	for _, c := range m.Calls() {
		if c.Kind == kind {
			pages = append(pages, c.Page)
		}
	}
	return pages
}

func (m *MockContentSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// CategoryItems wraps categories as valid listing items
func CategoryItems(cs ...domain.Category) []driven.Item[domain.Category] {
	items := make([]driven.Item[domain.Category], len(cs))
	for i := range cs {
		c := cs[i]
		items[i] = driven.Item[domain.Category]{ID: c.ID, Value: &c}
	}
	return items
}

// TagItems wraps tags as valid listing items
func TagItems(ts ...domain.Tag) []driven.Item[domain.Tag] {
	items := make([]driven.Item[domain.Tag], len(ts))
	for i := range ts {
		t := ts[i]
		items[i] = driven.Item[domain.Tag]{ID: t.ID, Value: &t}
	}
	return items
}

// PostItems wraps post envelopes as valid listing items
func PostItems(ps ...domain.PostEnvelope) []driven.Item[domain.PostEnvelope] {
	items := make([]driven.Item[domain.PostEnvelope], len(ps))
	for i := range ps {
		p := ps[i]
		items[i] = driven.Item[domain.PostEnvelope]{ID: p.Post.ID, Value: &p}
	}
	return items
}

// MalformedItem builds an item that failed to decode
func MalformedItem[T any](id int64) driven.Item[T] {
	return driven.Item[T]{ID: id, Err: fmt.Errorf("item %d: %w", id, domain.ErrMalformedItem)}
}
