package postgres

import (
	"context"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.CategoryStore = (*CategoryStore)(nil)
	_ driven.TagStore      = (*TagStore)(nil)
)

// CategoryStore implements driven.CategoryStore using PostgreSQL
type CategoryStore struct {
	db *DB
}

// NewCategoryStore creates a new CategoryStore
func NewCategoryStore(db *DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// Upsert inserts or overwrites a category and returns the stored row
func (s *CategoryStore) Upsert(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO categories (id, name, slug, description, count, parent, last_synced)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			count = EXCLUDED.count,
			parent = EXCLUDED.parent,
			last_synced = GREATEST(categories.last_synced, EXCLUDED.last_synced)
		RETURNING id, name, slug, description, count, parent, last_synced
	`

	var out domain.Category
	err := s.db.QueryRowContext(ctx, query,
		c.ID,
		c.Name,
		c.Slug,
		c.Description,
		c.Count,
		c.Parent,
		syncedAt(c.LastSynced),
	).Scan(&out.ID, &out.Name, &out.Slug, &out.Description, &out.Count, &out.Parent, &out.LastSynced)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns every stored category ordered by name
func (s *CategoryStore) List(ctx context.Context) ([]*domain.Category, error) {
	query := `
		SELECT id, name, slug, description, count, parent, last_synced
		FROM categories
		ORDER BY name, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Count, &c.Parent, &c.LastSynced); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// TagStore implements driven.TagStore using PostgreSQL
type TagStore struct {
	db *DB
}

// NewTagStore creates a new TagStore
func NewTagStore(db *DB) *TagStore {
	return &TagStore{db: db}
}

// Upsert inserts or overwrites a tag and returns the stored row
func (s *TagStore) Upsert(ctx context.Context, t *domain.Tag) (*domain.Tag, error) {
	query := `
		INSERT INTO tags (id, name, slug, description, count, last_synced)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			count = EXCLUDED.count,
			last_synced = GREATEST(tags.last_synced, EXCLUDED.last_synced)
		RETURNING id, name, slug, description, count, last_synced
	`

	var out domain.Tag
	err := s.db.QueryRowContext(ctx, query,
		t.ID,
		t.Name,
		t.Slug,
		t.Description,
		t.Count,
		syncedAt(t.LastSynced),
	).Scan(&out.ID, &out.Name, &out.Slug, &out.Description, &out.Count, &out.LastSynced)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns every stored tag ordered by name
func (s *TagStore) List(ctx context.Context) ([]*domain.Tag, error) {
	query := `
		SELECT id, name, slug, description, count, last_synced
		FROM tags
		ORDER BY name, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.Count, &t.LastSynced); err != nil {
			return nil, err
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}
