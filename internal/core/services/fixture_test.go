package services

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven/mocks"
)

// syncFixture wires a SyncService to in-memory stores and a scripted upstream.
type syncFixture struct {
	source     *mocks.MockContentSource
	categories *mocks.MockCategoryStore
	tags       *mocks.MockTagStore
	posts      *mocks.MockPostStore
	media      *mocks.MockMediaStore
	authors    *mocks.MockAuthorStore
	ledger     *mocks.MockSyncStatusStore
	svc        *SyncService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSyncFixture(pageSize int) *syncFixture {
	f := &syncFixture{
		source:     mocks.NewMockContentSource(),
		categories: mocks.NewMockCategoryStore(),
		tags:       mocks.NewMockTagStore(),
		posts:      mocks.NewMockPostStore(),
		authors:    mocks.NewMockAuthorStore(),
		ledger:     mocks.NewMockSyncStatusStore(),
	}
	f.media = mocks.NewMockMediaStore(f.posts)
	f.svc = NewSyncService(SyncServiceConfig{
		Source:     f.source,
		Categories: f.categories,
		Tags:       f.tags,
		Posts:      f.posts,
		Media:      f.media,
		Authors:    f.authors,
		Ledger:     f.ledger,
		PageSize:   pageSize,
		Logger:     discardLogger(),
	})
	return f
}

func (f *syncFixture) orchestrator(policy domain.RunPolicy) *SyncOrchestrator {
	return NewSyncOrchestrator(SyncOrchestratorConfig{
		Sync:   f.svc,
		Policy: policy,
		Logger: discardLogger(),
	})
}

// states returns the ledger states recorded for kind, in insertion order.
func (f *syncFixture) states(kind domain.EntityKind) []domain.SyncState {
	var out []domain.SyncState
	for _, e := range f.ledger.EntriesFor(kind) {
		out = append(out, e.State)
	}
	return out
}

func makeCategories(n int) []domain.Category {
	cs := make([]domain.Category, n)
	for i := range cs {
		id := int64(i + 1)
		cs[i] = domain.Category{
			ID:   id,
			Name: fmt.Sprintf("Category %d", id),
			Slug: fmt.Sprintf("category-%d", id),
		}
	}
	return cs
}

func makeTags(n int) []domain.Tag {
	ts := make([]domain.Tag, n)
	for i := range ts {
		id := int64(i + 1)
		ts[i] = domain.Tag{ID: id, Name: fmt.Sprintf("Tag %d", id), Slug: fmt.Sprintf("tag-%d", id)}
	}
	return ts
}

func makePost(id int64, categories ...int64) domain.PostEnvelope {
	return domain.PostEnvelope{Post: &domain.Post{
		ID:         id,
		Date:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
		Slug:       fmt.Sprintf("post-%d", id),
		Status:     "publish",
		Title:      fmt.Sprintf("Post %d", id),
		Categories: categories,
	}}
}
