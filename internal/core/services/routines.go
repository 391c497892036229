package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

// SyncService holds the per-entity sync routines.
//
// Every routine follows the same protocol against the ledger:
//  1. append an in_progress entry with count 0
//  2. walk the upstream listing page by page
//  3. skip malformed items and items whose write fails, logging each one
//  4. append a completed entry with the number of items written
//  5. on a fetch failure, append an error entry and return the error
//
// Items are written as they arrive, so rows from pages before a fetch
// failure stay persisted.
type SyncService struct {
	source     driven.ContentSource
	categories driven.CategoryStore
	tags       driven.TagStore
	posts      driven.PostStore
	media      driven.MediaStore
	authors    driven.AuthorStore
	ledger     driven.SyncStatusStore
	metrics    driven.SyncMetrics
	pageSize   int
	logger     *slog.Logger
}

// SyncServiceConfig holds dependencies for SyncService.
type SyncServiceConfig struct {
	Source     driven.ContentSource
	Categories driven.CategoryStore
	Tags       driven.TagStore
	Posts      driven.PostStore
	Media      driven.MediaStore
	Authors    driven.AuthorStore
	Ledger     driven.SyncStatusStore
	Metrics    driven.SyncMetrics // Optional
	PageSize   int                // Upstream page size (default: 100)
	Logger     *slog.Logger
}

// NewSyncService creates the sync routines.
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &SyncService{
		source:     cfg.Source,
		categories: cfg.Categories,
		tags:       cfg.Tags,
		posts:      cfg.Posts,
		media:      cfg.Media,
		authors:    cfg.Authors,
		ledger:     cfg.Ledger,
		metrics:    metrics,
		pageSize:   pageSize,
		logger:     logger,
	}
}

// SyncCategories mirrors every upstream category.
func (s *SyncService) SyncCategories(ctx context.Context) (*domain.StepResult, error) {
	pages := Pages(ctx, s.pageSize, s.source.ListCategories)
	return runListing(ctx, s, domain.KindCategories, pages, func(ctx context.Context, c *domain.Category) error {
		_, err := s.categories.Upsert(ctx, c)
		return err
	})
}

// SyncTags mirrors every upstream tag.
func (s *SyncService) SyncTags(ctx context.Context) (*domain.StepResult, error) {
	pages := Pages(ctx, s.pageSize, s.source.ListTags)
	return runListing(ctx, s, domain.KindTags, pages, func(ctx context.Context, t *domain.Tag) error {
		_, err := s.tags.Upsert(ctx, t)
		return err
	})
}

// SyncPosts mirrors every published post together with its embedded
// featured media and author.
func (s *SyncService) SyncPosts(ctx context.Context) (*domain.StepResult, error) {
	pages := Pages(ctx, s.pageSize, s.source.ListPosts)
	return runListing(ctx, s, domain.KindPosts, pages, s.writePost)
}

// SyncMediaLibrary mirrors the whole upstream media library. It is not part
// of a scheduled run.
func (s *SyncService) SyncMediaLibrary(ctx context.Context) (*domain.StepResult, error) {
	pages := Pages(ctx, s.pageSize, s.source.ListMedia)
	return runListing(ctx, s, domain.KindMedia, pages, s.writeMedia)
}

// SyncMedia resolves featured media referenced by stored posts that has
// no stored source url yet. Each id is fetched on its own; a failed fetch
// skips that id.
func (s *SyncService) SyncMedia(ctx context.Context) (*domain.StepResult, error) {
	step := s.begin(ctx, domain.KindMedia)
	if step.err != nil {
		return step.result, step.err
	}

	ids, err := s.media.ListUnresolvedFeaturedIDs(ctx)
	if err != nil {
		return step.fail(fmt.Errorf("list unresolved featured media: %w", err))
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return step.fail(err)
		}

		md, err := s.source.GetMedia(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return step.fail(ctx.Err())
			}
			s.logger.Warn("failed to fetch featured media", "kind", domain.KindMedia, "external_id", id, "error", err)
			step.skip(driven.OutcomeFailed)
			continue
		}

		if err := s.writeMedia(ctx, md); err != nil {
			s.logger.Warn("failed to write item", "kind", domain.KindMedia, "external_id", id, "error", err)
			step.skip(driven.OutcomeFailed)
			continue
		}
		step.synced()
	}

	return step.complete()
}

// writePost upserts the embeds first so their data can be denormalised onto the post.
func (s *SyncService) writePost(ctx context.Context, env *domain.PostEnvelope) error {
	if env.Post == nil {
		return domain.ErrMalformedItem
	}
	post := *env.Post

	if md := env.FeaturedMedia; md != nil && md.ID > 0 {
		if _, err := s.media.Upsert(ctx, md); err != nil {
			s.logger.Warn("failed to write embedded media", "post_id", post.ID, "media_id", md.ID, "error", err)
		}
		if md.SourceURL != "" {
			post.FeaturedMediaURL = md.SourceURL
		}
	}

	if post.FeaturedMediaURL == "" && post.FeaturedMedia > 0 {
		if md, err := s.media.Get(ctx, post.FeaturedMedia); err == nil && md.Resolved() {
			post.FeaturedMediaURL = md.SourceURL
		}
	}

	if a := env.Author; a != nil && a.ID > 0 {
		if _, err := s.authors.Upsert(ctx, a); err != nil {
			s.logger.Warn("failed to write embedded author", "post_id", post.ID, "author_id", a.ID, "error", err)
		}
		post.AuthorName = a.Name
		post.AuthorAvatar = a.PreferredAvatar()
		if post.AuthorID == 0 {
			post.AuthorID = a.ID
		}
	}

	_, err := s.posts.Upsert(ctx, &post)
	return err
}

// writeMedia upserts a media row and copies a resolved url onto referencing posts.
func (s *SyncService) writeMedia(ctx context.Context, md *domain.Media) error {
	if _, err := s.media.Upsert(ctx, md); err != nil {
		return err
	}
	if !md.Resolved() {
		return nil
	}
	n, err := s.posts.SetFeaturedMediaURL(ctx, md.ID, md.SourceURL)
	if err != nil {
		s.logger.Warn("failed to set featured media url", "media_id", md.ID, "error", err)
		return nil
	}
	if n > 0 {
		s.logger.Debug("featured media resolved", "media_id", md.ID, "posts", n)
	}
	return nil
}

// runListing drives one listing through the routine protocol.
func runListing[T any](
	ctx context.Context,
	s *SyncService,
	kind domain.EntityKind,
	pages iter.Seq2[[]driven.Item[T], error],
	write func(context.Context, *T) error,
) (*domain.StepResult, error) {
	step := s.begin(ctx, kind)
	if step.err != nil {
		return step.result, step.err
	}

	page := 0
	for items, err := range pages {
		if err != nil {
			return step.fail(err)
		}
		page++
		s.logger.Debug("processing page", "kind", kind, "page", page, "items", len(items))

		for _, item := range items {
			if item.Err != nil || item.Value == nil {
				s.logger.Warn("skipping malformed item", "kind", kind, "page", page, "external_id", item.ID, "error", item.Err)
				step.skip(driven.OutcomeMalformed)
				continue
			}
			if err := write(ctx, item.Value); err != nil {
				s.logger.Warn("failed to write item", "kind", kind, "external_id", item.ID, "error", err)
				step.skip(driven.OutcomeFailed)
				continue
			}
			step.synced()
		}
	}

	return step.complete()
}

// stepRun tracks one routine invocation and writes its ledger entries.
type stepRun struct {
	s      *SyncService
	ctx    context.Context
	kind   domain.EntityKind
	runID  string
	start  time.Time
	result *domain.StepResult
	err    error
}

func (s *SyncService) begin(ctx context.Context, kind domain.EntityKind) *stepRun {
	st := &stepRun{
		s:      s,
		ctx:    ctx,
		kind:   kind,
		runID:  RunIDFromContext(ctx),
		start:  time.Now(),
		result: &domain.StepResult{Kind: kind, Ran: true},
	}

	s.logger.Info("starting sync", "kind", kind, "run_id", st.runID)

	err := s.ledger.Append(ctx, &domain.SyncStatusEntry{
		RunID: st.runID,
		Kind:  kind,
		State: domain.SyncStateInProgress,
	})
	if err != nil {
		st.err = fmt.Errorf("record %s in progress: %w", kind, err)
		st.finish(st.err)
	}
	return st
}

func (st *stepRun) synced() {
	st.result.Synced++
	st.s.metrics.RecordItem(st.kind, driven.OutcomeSynced)
}

func (st *stepRun) skip(outcome string) {
	st.result.Skipped++
	st.s.metrics.RecordItem(st.kind, outcome)
}

func (st *stepRun) complete() (*domain.StepResult, error) {
	err := st.s.ledger.Append(st.ctx, &domain.SyncStatusEntry{
		RunID:       st.runID,
		Kind:        st.kind,
		State:       domain.SyncStateCompleted,
		TotalSynced: st.result.Synced,
	})
	if err != nil {
		err = fmt.Errorf("record %s completed: %w", st.kind, err)
		st.finish(err)
		return st.result, err
	}

	st.finish(nil)
	st.s.logger.Info("sync completed",
		"kind", st.kind,
		"run_id", st.runID,
		"synced", st.result.Synced,
		"skipped", st.result.Skipped,
		"duration", time.Since(st.start),
	)
	return st.result, nil
}

// fail records a fetch-level failure. The ledger write uses a context that
// survives cancellation of the run so a timed out run still leaves an entry.
func (st *stepRun) fail(cause error) (*domain.StepResult, error) {
	err := fmt.Errorf("sync %s: %w", st.kind, cause)

	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(st.ctx), 10*time.Second)
	defer cancel()
	if lerr := st.s.ledger.Append(ledgerCtx, &domain.SyncStatusEntry{
		RunID:       st.runID,
		Kind:        st.kind,
		State:       domain.SyncStateError,
		TotalSynced: st.result.Synced,
		Error:       cause.Error(),
	}); lerr != nil {
		st.s.logger.Error("failed to record sync error", "kind", st.kind, "run_id", st.runID, "error", lerr)
		err = errors.Join(err, lerr)
	}

	st.finish(err)
	st.s.logger.Error("sync failed",
		"kind", st.kind,
		"run_id", st.runID,
		"synced", st.result.Synced,
		"error", cause,
	)
	return st.result, err
}

func (st *stepRun) finish(err error) {
	d := time.Since(st.start)
	st.result.Duration = d.Seconds()
	st.result.Success = err == nil
	if err != nil {
		st.result.Error = err.Error()
	}
	st.s.metrics.RecordStep(st.kind, err == nil, d)
}

// noopMetrics is used when no SyncMetrics is configured.
type noopMetrics struct{}

func (noopMetrics) RecordItem(domain.EntityKind, string)              {}
func (noopMetrics) RecordStep(domain.EntityKind, bool, time.Duration) {}
func (noopMetrics) RecordRun(string)                                  {}
