package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// openTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// the mirror tables. Tests are skipped when the variable is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Connect(ctx, DefaultConfig(url))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.MigrateUp())

	// TRUNCATE does not fire the row-level append-only trigger on sync_status.
	_, err = db.ExecContext(ctx, `TRUNCATE categories, tags, media, authors, posts, sync_status RESTART IDENTITY`)
	require.NoError(t, err)
	return db
}

func TestCategoryStore_UpsertSameIDTwice(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewCategoryStore(db)

	t1 := time.Now().UTC().Truncate(time.Microsecond)
	t2 := t1.Add(time.Minute)

	_, err := store.Upsert(ctx, &domain.Category{ID: 5, Name: "Old", Slug: "old", LastSynced: t1})
	require.NoError(t, err)

	got, err := store.Upsert(ctx, &domain.Category{ID: 5, Name: "New", Slug: "new", Parent: 2, LastSynced: t2})
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, int64(2), got.Parent)
	assert.True(t, got.LastSynced.Equal(t2), "last_synced = %v, want %v", got.LastSynced, t2)

	// An older sync time never moves last_synced backwards.
	got, err = store.Upsert(ctx, &domain.Category{ID: 5, Name: "Stale", Slug: "new", LastSynced: t1})
	require.NoError(t, err)
	assert.Equal(t, "Stale", got.Name)
	assert.True(t, got.LastSynced.Equal(t2), "last_synced = %v, want %v", got.LastSynced, t2)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(5), all[0].ID)
}

func TestPostStore_SoftReferencesAndArrays(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewPostStore(db)

	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// No category, tag, media or author rows exist for these ids.
	p, err := store.Upsert(ctx, &domain.Post{
		ID:            10,
		Date:          date,
		Slug:          "hello",
		Status:        "publish",
		Title:         "Hello",
		Categories:    []int64{1, 99},
		Tags:          []int64{7},
		FeaturedMedia: 42,
		AuthorID:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 99}, p.Categories)
	assert.Equal(t, []int64{7}, p.Tags)
	assert.True(t, p.Date.Equal(date))

	bare, err := store.Upsert(ctx, &domain.Post{ID: 11, Slug: "bare", Date: date.Add(-time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, bare.Categories)
	assert.Empty(t, bare.Tags)

	got, err := store.GetBySlug(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.ID)
	assert.Equal(t, []int64{1, 99}, got.Categories)
	assert.Equal(t, int64(42), got.FeaturedMedia)

	_, err = store.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostStore_ListCategoryFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewPostStore(db)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []*domain.Post{
		{ID: 1, Slug: "a", Date: base, Categories: []int64{1, 2}},
		{ID: 2, Slug: "b", Date: base.Add(time.Hour), Categories: []int64{2}},
		{ID: 3, Slug: "c", Date: base.Add(2 * time.Hour), Categories: []int64{3}},
		{ID: 4, Slug: "d", Date: base.Add(3 * time.Hour)},
	}
	for _, p := range posts {
		_, err := store.Upsert(ctx, p)
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		query     domain.PostQuery
		wantIDs   []int64
		wantTotal int
	}{
		{"no filter", domain.PostQuery{Page: 1, PerPage: 10}, []int64{4, 3, 2, 1}, 4},
		{"single category", domain.PostQuery{Page: 1, PerPage: 10, CategoryIDs: []int64{2}}, []int64{2, 1}, 2},
		{"any of several", domain.PostQuery{Page: 1, PerPage: 10, CategoryIDs: []int64{1, 3}}, []int64{3, 1}, 2},
		{"unknown category", domain.PostQuery{Page: 1, PerPage: 10, CategoryIDs: []int64{99}}, nil, 0},
		{"second page", domain.PostQuery{Page: 2, PerPage: 3}, []int64{1}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := store.List(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			var ids []int64
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestMediaStore_FeaturedMediaResolution(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	posts := NewPostStore(db)
	media := NewMediaStore(db)

	_, err := posts.Upsert(ctx, &domain.Post{ID: 1, Slug: "a", FeaturedMedia: 42})
	require.NoError(t, err)
	_, err = posts.Upsert(ctx, &domain.Post{ID: 2, Slug: "b", FeaturedMedia: 42})
	require.NoError(t, err)

	ids, err := media.ListUnresolvedFeaturedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ids)

	_, err = media.Get(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = media.Upsert(ctx, &domain.Media{ID: 42, SourceURL: "https://cms.example/a.jpg"})
	require.NoError(t, err)

	ids, err = media.ListUnresolvedFeaturedIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	n, err := posts.SetFeaturedMediaURL(ctx, 42, "https://cms.example/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = posts.SetFeaturedMediaURL(ctx, 42, "https://cms.example/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := posts.GetBySlug(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "https://cms.example/a.jpg", got.FeaturedMediaURL)
}

func TestSyncStatusStore_AppendOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewSyncStatusStore(db)

	first := &domain.SyncStatusEntry{RunID: "r1", Kind: domain.KindCategories, State: domain.SyncStateInProgress}
	require.NoError(t, store.Append(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())

	done := &domain.SyncStatusEntry{RunID: "r1", Kind: domain.KindCategories, State: domain.SyncStateCompleted, TotalSynced: 3}
	require.NoError(t, store.Append(ctx, done))

	latest, err := store.Latest(ctx, domain.KindCategories)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStateCompleted, latest.State)
	assert.Equal(t, 3, latest.TotalSynced)

	_, err = store.Latest(ctx, domain.KindTags)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = db.ExecContext(ctx, `UPDATE sync_status SET state = 'error' WHERE id = $1`, first.ID)
	assert.Error(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM sync_status WHERE id = $1`, first.ID)
	assert.Error(t, err)
}
