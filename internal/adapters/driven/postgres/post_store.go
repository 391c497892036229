package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostStore = (*PostStore)(nil)

const postColumns = `id, date, date_gmt, modified, modified_gmt, slug, status, title, content, excerpt,
	categories, tags, featured_media, author_id, author_name, author_avatar, featured_media_url, last_synced`

// PostStore implements driven.PostStore using PostgreSQL
type PostStore struct {
	db *DB
}

// NewPostStore creates a new PostStore
func NewPostStore(db *DB) *PostStore {
	return &PostStore{db: db}
}

// Upsert inserts or overwrites a post and returns the stored row.
// Category and tag ids are stored verbatim as arrays without foreign keys.
func (s *PostStore) Upsert(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			date_gmt = EXCLUDED.date_gmt,
			modified = EXCLUDED.modified,
			modified_gmt = EXCLUDED.modified_gmt,
			slug = EXCLUDED.slug,
			status = EXCLUDED.status,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			excerpt = EXCLUDED.excerpt,
			categories = EXCLUDED.categories,
			tags = EXCLUDED.tags,
			featured_media = EXCLUDED.featured_media,
			author_id = EXCLUDED.author_id,
			author_name = EXCLUDED.author_name,
			author_avatar = EXCLUDED.author_avatar,
			featured_media_url = EXCLUDED.featured_media_url,
			last_synced = GREATEST(posts.last_synced, EXCLUDED.last_synced)
		RETURNING ` + postColumns

	categories := p.Categories
	if categories == nil {
		categories = []int64{}
	}
	tags := p.Tags
	if tags == nil {
		tags = []int64{}
	}

	row := s.db.QueryRowContext(ctx, query,
		p.ID,
		nullTime(p.Date),
		nullTime(p.DateGMT),
		nullTime(p.Modified),
		nullTime(p.ModifiedGMT),
		p.Slug,
		p.Status,
		p.Title,
		p.Content,
		p.Excerpt,
		pq.Array(categories),
		pq.Array(tags),
		p.FeaturedMedia,
		p.AuthorID,
		p.AuthorName,
		p.AuthorAvatar,
		p.FeaturedMediaURL,
		syncedAt(p.LastSynced),
	)
	return scanPost(row)
}

// List returns a page of posts ordered by date descending
func (s *PostStore) List(ctx context.Context, q domain.PostQuery) ([]*domain.Post, int, error) {
	q = q.Normalize()

	var filter any
	if len(q.CategoryIDs) > 0 {
		filter = pq.Array(q.CategoryIDs)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM posts WHERE $1::bigint[] IS NULL OR categories && $1::bigint[]`
	if err := s.db.QueryRowContext(ctx, countQuery, filter).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE $1::bigint[] IS NULL OR categories && $1::bigint[]
		ORDER BY date DESC NULLS LAST, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, filter, q.PerPage, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := []*domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// GetBySlug retrieves a post by slug
func (s *PostStore) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE slug = $1
		ORDER BY date DESC NULLS LAST, id DESC
		LIMIT 1
	`

	p, err := scanPost(s.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// SetFeaturedMediaURL copies a resolved media url onto every post referencing mediaID
func (s *PostStore) SetFeaturedMediaURL(ctx context.Context, mediaID int64, url string) (int, error) {
	query := `
		UPDATE posts
		SET featured_media_url = $2
		WHERE featured_media = $1 AND featured_media_url <> $2
	`

	result, err := s.db.ExecContext(ctx, query, mediaID, url)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var p domain.Post
	var date, dateGMT, modified, modifiedGMT sql.NullTime
	var categories, tags pq.Int64Array

	err := row.Scan(
		&p.ID,
		&date,
		&dateGMT,
		&modified,
		&modifiedGMT,
		&p.Slug,
		&p.Status,
		&p.Title,
		&p.Content,
		&p.Excerpt,
		&categories,
		&tags,
		&p.FeaturedMedia,
		&p.AuthorID,
		&p.AuthorName,
		&p.AuthorAvatar,
		&p.FeaturedMediaURL,
		&p.LastSynced,
	)
	if err != nil {
		return nil, err
	}

	p.Date = timeValue(date)
	p.DateGMT = timeValue(dateGMT)
	p.Modified = timeValue(modified)
	p.ModifiedGMT = timeValue(modifiedGMT)
	p.Categories = []int64(categories)
	p.Tags = []int64(tags)
	if p.Categories == nil {
		p.Categories = []int64{}
	}
	if p.Tags == nil {
		p.Tags = []int64{}
	}
	return &p, nil
}
