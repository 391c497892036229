package mocks

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

var (
	_ driven.CategoryStore = (*MockCategoryStore)(nil)
	_ driven.TagStore      = (*MockTagStore)(nil)
	_ driven.PostStore     = (*MockPostStore)(nil)
	_ driven.MediaStore    = (*MockMediaStore)(nil)
	_ driven.AuthorStore   = (*MockAuthorStore)(nil)
)

// syncedAt mirrors GREATEST(existing, incoming) on last_synced.
func syncedAt(existing, incoming time.Time) time.Time {
	if incoming.IsZero() {
		incoming = time.Now().UTC()
	}
	if existing.After(incoming) {
		return existing
	}
	return incoming
}

// MockCategoryStore is an in-memory CategoryStore for testing
type MockCategoryStore struct {
	mu         sync.RWMutex
	categories map[int64]*domain.Category
	writes     int

	// UpsertErr, when set, is consulted before every write
	UpsertErr func(id int64) error
}

// NewMockCategoryStore creates a new MockCategoryStore
func NewMockCategoryStore() *MockCategoryStore {
	return &MockCategoryStore{categories: make(map[int64]*domain.Category)}
}

func (m *MockCategoryStore) Upsert(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	if m.UpsertErr != nil {
		if err := m.UpsertErr(c.ID); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *c
	if existing, ok := m.categories[c.ID]; ok {
		stored.LastSynced = syncedAt(existing.LastSynced, c.LastSynced)
	} else {
		stored.LastSynced = syncedAt(time.Time{}, c.LastSynced)
	}
	m.categories[c.ID] = &stored
	m.writes++
	out := stored
	return &out, nil
}

func (m *MockCategoryStore) List(ctx context.Context) ([]*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Get returns a stored category (test helper)
func (m *MockCategoryStore) Get(id int64) (*domain.Category, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

// Count returns the number of stored rows
func (m *MockCategoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.categories)
}

// Writes returns the number of successful upserts
func (m *MockCategoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// MockTagStore is an in-memory TagStore for testing
type MockTagStore struct {
	mu     sync.RWMutex
	tags   map[int64]*domain.Tag
	writes int

	UpsertErr func(id int64) error
}

// NewMockTagStore creates a new MockTagStore
func NewMockTagStore() *MockTagStore {
	return &MockTagStore{tags: make(map[int64]*domain.Tag)}
}

func (m *MockTagStore) Upsert(ctx context.Context, t *domain.Tag) (*domain.Tag, error) {
	if m.UpsertErr != nil {
		if err := m.UpsertErr(t.ID); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *t
	var prev time.Time
	if existing, ok := m.tags[t.ID]; ok {
		prev = existing.LastSynced
	}
	stored.LastSynced = syncedAt(prev, t.LastSynced)
	m.tags[t.ID] = &stored
	m.writes++
	out := stored
	return &out, nil
}

func (m *MockTagStore) List(ctx context.Context) ([]*domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		cp := *t
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Get returns a stored tag (test helper)
func (m *MockTagStore) Get(id int64) (*domain.Tag, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tags[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// Count returns the number of stored rows
func (m *MockTagStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tags)
}

// MockPostStore is an in-memory PostStore for testing
type MockPostStore struct {
	mu     sync.RWMutex
	posts  map[int64]*domain.Post
	writes int

	UpsertErr func(id int64) error
}

// NewMockPostStore creates a new MockPostStore
func NewMockPostStore() *MockPostStore {
	return &MockPostStore{posts: make(map[int64]*domain.Post)}
}

func clonePost(p *domain.Post) *domain.Post {
	cp := *p
	cp.Categories = slices.Clone(p.Categories)
	cp.Tags = slices.Clone(p.Tags)
	return &cp
}

func (m *MockPostStore) Upsert(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	if m.UpsertErr != nil {
		if err := m.UpsertErr(p.ID); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := clonePost(p)
	var prev time.Time
	if existing, ok := m.posts[p.ID]; ok {
		prev = existing.LastSynced
	}
	stored.LastSynced = syncedAt(prev, p.LastSynced)
	m.posts[p.ID] = stored
	m.writes++
	return clonePost(stored), nil
}

func (m *MockPostStore) List(ctx context.Context, q domain.PostQuery) ([]*domain.Post, int, error) {
	q = q.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Post
	for _, p := range m.posts {
		if len(q.CategoryIDs) > 0 && !slices.ContainsFunc(p.Categories, func(id int64) bool {
			return slices.Contains(q.CategoryIDs, id)
		}) {
			continue
		}
		matched = append(matched, clonePost(p))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date.Equal(matched[j].Date) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Date.After(matched[j].Date)
	})

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.PerPage, total)
	return matched[start:end], total, nil
}

func (m *MockPostStore) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.posts {
		if p.Slug == slug {
			return clonePost(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPostStore) SetFeaturedMediaURL(ctx context.Context, mediaID int64, url string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.posts {
		if p.FeaturedMedia == mediaID {
			p.FeaturedMediaURL = url
			n++
		}
	}
	return n, nil
}

// Get returns a stored post (test helper)
func (m *MockPostStore) Get(id int64) (*domain.Post, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, false
	}
	return clonePost(p), true
}

// Put stores a post without going through Upsert (test setup)
func (m *MockPostStore) Put(p *domain.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[p.ID] = clonePost(p)
}

// Count returns the number of stored rows
func (m *MockPostStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.posts)
}

// Writes returns the number of successful upserts
func (m *MockPostStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// featuredIDs lists distinct featured media ids (used by MockMediaStore)
func (m *MockPostStore) featuredIDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for _, p := range m.posts {
		if p.FeaturedMedia > 0 && !slices.Contains(ids, p.FeaturedMedia) {
			ids = append(ids, p.FeaturedMedia)
		}
	}
	slices.Sort(ids)
	return ids
}

// MockMediaStore is an in-memory MediaStore for testing.
// Unresolved featured ids are derived from the linked post store.
type MockMediaStore struct {
	mu    sync.RWMutex
	media map[int64]*domain.Media
	posts *MockPostStore

	UpsertErr func(id int64) error
}

// NewMockMediaStore creates a new MockMediaStore reading post references from posts
func NewMockMediaStore(posts *MockPostStore) *MockMediaStore {
	return &MockMediaStore{media: make(map[int64]*domain.Media), posts: posts}
}

func (m *MockMediaStore) Upsert(ctx context.Context, md *domain.Media) (*domain.Media, error) {
	if m.UpsertErr != nil {
		if err := m.UpsertErr(md.ID); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *md
	var prev time.Time
	if existing, ok := m.media[md.ID]; ok {
		prev = existing.LastSynced
	}
	stored.LastSynced = syncedAt(prev, md.LastSynced)
	m.media[md.ID] = &stored
	out := stored
	return &out, nil
}

func (m *MockMediaStore) Get(ctx context.Context, id int64) (*domain.Media, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.media[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *md
	return &cp, nil
}

func (m *MockMediaStore) ListUnresolvedFeaturedIDs(ctx context.Context) ([]int64, error) {
	if m.posts == nil {
		return nil, nil
	}
	ids := m.posts.featuredIDs()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var unresolved []int64
	for _, id := range ids {
		if md, ok := m.media[id]; ok && md.Resolved() {
			continue
		}
		unresolved = append(unresolved, id)
	}
	return unresolved, nil
}

// Count returns the number of stored rows
func (m *MockMediaStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.media)
}

// MockAuthorStore is an in-memory AuthorStore for testing
type MockAuthorStore struct {
	mu      sync.RWMutex
	authors map[int64]*domain.Author

	UpsertErr func(id int64) error
}

// NewMockAuthorStore creates a new MockAuthorStore
func NewMockAuthorStore() *MockAuthorStore {
	return &MockAuthorStore{authors: make(map[int64]*domain.Author)}
}

func (m *MockAuthorStore) Upsert(ctx context.Context, a *domain.Author) (*domain.Author, error) {
	if m.UpsertErr != nil {
		if err := m.UpsertErr(a.ID); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *a
	var prev time.Time
	if existing, ok := m.authors[a.ID]; ok {
		prev = existing.LastSynced
	}
	stored.LastSynced = syncedAt(prev, a.LastSynced)
	m.authors[a.ID] = &stored
	out := stored
	return &out, nil
}

func (m *MockAuthorStore) Get(ctx context.Context, id int64) (*domain.Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.authors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// Count returns the number of stored rows
func (m *MockAuthorStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.authors)
}
