package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.MediaStore  = (*MediaStore)(nil)
	_ driven.AuthorStore = (*AuthorStore)(nil)
)

// MediaStore implements driven.MediaStore using PostgreSQL
type MediaStore struct {
	db *DB
}

// NewMediaStore creates a new MediaStore
func NewMediaStore(db *DB) *MediaStore {
	return &MediaStore{db: db}
}

// Upsert inserts or overwrites a media row and returns the stored row
func (s *MediaStore) Upsert(ctx context.Context, m *domain.Media) (*domain.Media, error) {
	query := `
		INSERT INTO media (id, slug, status, media_type, source_url, alt_text, mime_type, media_details, last_synced)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			status = EXCLUDED.status,
			media_type = EXCLUDED.media_type,
			source_url = EXCLUDED.source_url,
			alt_text = EXCLUDED.alt_text,
			mime_type = EXCLUDED.mime_type,
			media_details = EXCLUDED.media_details,
			last_synced = GREATEST(media.last_synced, EXCLUDED.last_synced)
		RETURNING id, slug, status, media_type, source_url, alt_text, mime_type, media_details, last_synced
	`

	var details []byte
	if len(m.MediaDetails) > 0 && json.Valid(m.MediaDetails) {
		details = m.MediaDetails
	}

	row := s.db.QueryRowContext(ctx, query,
		m.ID,
		m.Slug,
		m.Status,
		m.MediaType,
		m.SourceURL,
		m.AltText,
		m.MimeType,
		details,
		syncedAt(m.LastSynced),
	)
	return scanMedia(row)
}

// Get retrieves a media row by id
func (s *MediaStore) Get(ctx context.Context, id int64) (*domain.Media, error) {
	query := `
		SELECT id, slug, status, media_type, source_url, alt_text, mime_type, media_details, last_synced
		FROM media
		WHERE id = $1
	`

	m, err := scanMedia(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return m, err
}

// ListUnresolvedFeaturedIDs returns featured media ids that have no usable media row
func (s *MediaStore) ListUnresolvedFeaturedIDs(ctx context.Context) ([]int64, error) {
	query := `
		SELECT DISTINCT p.featured_media
		FROM posts p
		LEFT JOIN media m ON m.id = p.featured_media
		WHERE p.featured_media > 0
		  AND (m.id IS NULL OR m.source_url = '')
		ORDER BY p.featured_media
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanMedia(row rowScanner) (*domain.Media, error) {
	var m domain.Media
	var details []byte
	err := row.Scan(&m.ID, &m.Slug, &m.Status, &m.MediaType, &m.SourceURL, &m.AltText, &m.MimeType, &details, &m.LastSynced)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		m.MediaDetails = json.RawMessage(details)
	}
	return &m, nil
}

// AuthorStore implements driven.AuthorStore using PostgreSQL
type AuthorStore struct {
	db *DB
}

// NewAuthorStore creates a new AuthorStore
func NewAuthorStore(db *DB) *AuthorStore {
	return &AuthorStore{db: db}
}

// Upsert inserts or overwrites an author and returns the stored row
func (s *AuthorStore) Upsert(ctx context.Context, a *domain.Author) (*domain.Author, error) {
	query := `
		INSERT INTO authors (id, name, slug, url, description, avatar_urls, last_synced)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			url = EXCLUDED.url,
			description = EXCLUDED.description,
			avatar_urls = EXCLUDED.avatar_urls,
			last_synced = GREATEST(authors.last_synced, EXCLUDED.last_synced)
		RETURNING id, name, slug, url, description, avatar_urls, last_synced
	`

	avatars := a.AvatarURLs
	if avatars == nil {
		avatars = map[string]string{}
	}
	avatarsJSON, err := json.Marshal(avatars)
	if err != nil {
		return nil, fmt.Errorf("marshal avatar urls: %w", err)
	}

	row := s.db.QueryRowContext(ctx, query,
		a.ID,
		a.Name,
		a.Slug,
		a.URL,
		a.Description,
		avatarsJSON,
		syncedAt(a.LastSynced),
	)
	return scanAuthor(row)
}

// Get retrieves an author by id
func (s *AuthorStore) Get(ctx context.Context, id int64) (*domain.Author, error) {
	query := `
		SELECT id, name, slug, url, description, avatar_urls, last_synced
		FROM authors
		WHERE id = $1
	`

	a, err := scanAuthor(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

func scanAuthor(row rowScanner) (*domain.Author, error) {
	var a domain.Author
	var avatars []byte
	if err := row.Scan(&a.ID, &a.Name, &a.Slug, &a.URL, &a.Description, &avatars, &a.LastSynced); err != nil {
		return nil, err
	}
	a.AvatarURLs = map[string]string{}
	if len(avatars) > 0 {
		if err := json.Unmarshal(avatars, &a.AvatarURLs); err != nil {
			return nil, fmt.Errorf("unmarshal avatar urls: %w", err)
		}
	}
	return &a, nil
}
