package domain

import (
	"encoding/json"
	"time"
)

// Post is a mirrored upstream post.
// Categories, Tags, FeaturedMedia and AuthorID are soft references: they may
// name rows that do not exist (yet) in the local store.
type Post struct {
	ID               int64     `json:"id"`
	Date             time.Time `json:"date"`
	DateGMT          time.Time `json:"date_gmt"`
	Modified         time.Time `json:"modified"`
	ModifiedGMT      time.Time `json:"modified_gmt"`
	Slug             string    `json:"slug"`
	Status           string    `json:"status"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	Excerpt          string    `json:"excerpt"`
	Categories       []int64   `json:"categories"`
	Tags             []int64   `json:"tags"`
	FeaturedMedia    int64     `json:"featured_media"`
	AuthorID         int64     `json:"author_id"`
	AuthorName       string    `json:"author_name"`
	AuthorAvatar     string    `json:"author_avatar"`
	FeaturedMediaURL string    `json:"featured_media_url"`
	LastSynced       time.Time `json:"last_synced"`
}

// PostEnvelope is a post as delivered by an embedded listing: the post
// itself plus whatever featured media and author objects came inline.
type PostEnvelope struct {
	Post          *Post
	FeaturedMedia *Media
	Author        *Author
}

// Category is a mirrored taxonomy term with optional parent.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Count       int       `json:"count"`
	Parent      int64     `json:"parent"`
	LastSynced  time.Time `json:"last_synced"`
}

// Tag is a mirrored flat taxonomy term.
type Tag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Count       int       `json:"count"`
	LastSynced  time.Time `json:"last_synced"`
}

// Media is a mirrored attachment.
type Media struct {
	ID           int64           `json:"id"`
	Slug         string          `json:"slug"`
	Status       string          `json:"status"`
	MediaType    string          `json:"media_type"`
	SourceURL    string          `json:"source_url"`
	AltText      string          `json:"alt_text"`
	MimeType     string          `json:"mime_type"`
	MediaDetails json.RawMessage `json:"media_details,omitempty"`
	LastSynced   time.Time       `json:"last_synced"`
}

// Resolved reports whether the media row carries a usable source URL.
func (m *Media) Resolved() bool {
	return m != nil && m.SourceURL != ""
}

// Author is a mirrored post author.
type Author struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	URL         string            `json:"url"`
	Description string            `json:"description"`
	AvatarURLs  map[string]string `json:"avatar_urls"`
	LastSynced  time.Time         `json:"last_synced"`
}

// PreferredAvatar picks the largest avatar size available.
func (a *Author) PreferredAvatar() string {
	if a == nil {
		return ""
	}
	for _, size := range []string{"96", "48", "24"} {
		if u := a.AvatarURLs[size]; u != "" {
			return u
		}
	}
	for _, u := range a.AvatarURLs {
		if u != "" {
			return u
		}
	}
	return ""
}
