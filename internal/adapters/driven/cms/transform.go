package cms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

// Wire shapes of the upstream API. Missing optional fields decode to zero values.

type rendered struct {
	Rendered string `json:"rendered"`
}

// apiTime accepts the API's zone-less timestamps as UTC, RFC 3339, empty and null.
type apiTime struct {
	time.Time
}

var apiTimeLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range apiTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

type term struct {
	ID          int64  `json:"id"`
	Count       int    `json:"count"`
	Description string `json:"description"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Parent      int64  `json:"parent"`
}

type post struct {
	ID            int64     `json:"id"`
	Date          apiTime   `json:"date"`
	DateGMT       apiTime   `json:"date_gmt"`
	Modified      apiTime   `json:"modified"`
	ModifiedGMT   apiTime   `json:"modified_gmt"`
	Slug          string    `json:"slug"`
	Status        string    `json:"status"`
	Title         rendered  `json:"title"`
	Content       rendered  `json:"content"`
	Excerpt       rendered  `json:"excerpt"`
	Author        int64     `json:"author"`
	FeaturedMedia int64     `json:"featured_media"`
	Categories    []int64   `json:"categories"`
	Tags          []int64   `json:"tags"`
	Embedded      *embedded `json:"_embedded"`
}

// embedded entries stay raw so a broken embed never fails its post.
type embedded struct {
	Author        []json.RawMessage `json:"author"`
	FeaturedMedia []json.RawMessage `json:"wp:featuredmedia"`
}

type media struct {
	ID           int64           `json:"id"`
	Slug         string          `json:"slug"`
	Status       string          `json:"status"`
	MediaType    string          `json:"media_type"`
	SourceURL    string          `json:"source_url"`
	AltText      string          `json:"alt_text"`
	MimeType     string          `json:"mime_type"`
	MediaDetails json.RawMessage `json:"media_details"`
}

type author struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	URL         string            `json:"url"`
	Description string            `json:"description"`
	AvatarURLs  map[string]string `json:"avatar_urls"`
}

// decodeFunc turns one raw element into a domain value and its id.
type decodeFunc[T any] func(raw json.RawMessage) (*T, int64, error)

// decodeItems transforms each element on its own. The result has one Item
// per element so callers can still tell a full page from a short one.
func decodeItems[T any](raws []json.RawMessage, decode decodeFunc[T]) []driven.Item[T] {
	items := make([]driven.Item[T], len(raws))
	for i, raw := range raws {
		v, id, err := decode(raw)
		if err != nil {
			items[i] = driven.Item[T]{ID: peekID(raw), Err: err}
			continue
		}
		items[i] = driven.Item[T]{ID: id, Value: v}
	}
	return items
}

// peekID reads the id of an element that failed to decode, if it has one.
func peekID(raw json.RawMessage) int64 {
	var v struct {
		ID int64 `json:"id"`
	}
	if json.Unmarshal(raw, &v) != nil {
		return 0
	}
	return v.ID
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedItem, fmt.Sprintf(format, args...))
}

func unmarshalObject(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return malformed("expected a JSON object")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return malformed("%v", err)
	}
	return nil
}

func decodeCategory(raw json.RawMessage) (*domain.Category, int64, error) {
	var t term
	if err := unmarshalObject(raw, &t); err != nil {
		return nil, 0, err
	}
	if t.ID <= 0 {
		return nil, 0, malformed("category without id")
	}
	return &domain.Category{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		Description: t.Description,
		Count:       t.Count,
		Parent:      t.Parent,
	}, t.ID, nil
}

func decodeTag(raw json.RawMessage) (*domain.Tag, int64, error) {
	var t term
	if err := unmarshalObject(raw, &t); err != nil {
		return nil, 0, err
	}
	if t.ID <= 0 {
		return nil, 0, malformed("tag without id")
	}
	return &domain.Tag{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		Description: t.Description,
		Count:       t.Count,
	}, t.ID, nil
}

func decodeMedia(raw json.RawMessage) (*domain.Media, int64, error) {
	var m media
	if err := unmarshalObject(raw, &m); err != nil {
		return nil, 0, err
	}
	if m.ID <= 0 {
		return nil, 0, malformed("media without id")
	}
	return toMedia(m), m.ID, nil
}

func toMedia(m media) *domain.Media {
	details := m.MediaDetails
	if t := bytes.TrimSpace(details); len(t) == 0 || bytes.Equal(t, []byte("null")) {
		details = nil
	}
	return &domain.Media{
		ID:           m.ID,
		Slug:         m.Slug,
		Status:       m.Status,
		MediaType:    m.MediaType,
		SourceURL:    m.SourceURL,
		AltText:      m.AltText,
		MimeType:     m.MimeType,
		MediaDetails: details,
	}
}

func decodePost(raw json.RawMessage) (*domain.PostEnvelope, int64, error) {
	var p post
	if err := unmarshalObject(raw, &p); err != nil {
		return nil, 0, err
	}
	if p.ID <= 0 {
		return nil, 0, malformed("post without id")
	}

	categories := p.Categories
	if categories == nil {
		categories = []int64{}
	}
	tags := p.Tags
	if tags == nil {
		tags = []int64{}
	}

	env := &domain.PostEnvelope{Post: &domain.Post{
		ID:            p.ID,
		Date:          p.Date.Time,
		DateGMT:       p.DateGMT.Time,
		Modified:      p.Modified.Time,
		ModifiedGMT:   p.ModifiedGMT.Time,
		Slug:          p.Slug,
		Status:        p.Status,
		Title:         strings.TrimSpace(p.Title.Rendered),
		Content:       p.Content.Rendered,
		Excerpt:       p.Excerpt.Rendered,
		Categories:    categories,
		Tags:          tags,
		FeaturedMedia: p.FeaturedMedia,
		AuthorID:      p.Author,
	}}

	if p.Embedded != nil {
		env.FeaturedMedia = firstEmbeddedMedia(p.Embedded.FeaturedMedia)
		env.Author = firstEmbeddedAuthor(p.Embedded.Author)
	}
	return env, p.ID, nil
}

// firstEmbeddedMedia returns the first usable embed. Embeds the caller may
// not read come back as error objects without an id and are ignored.
func firstEmbeddedMedia(raws []json.RawMessage) *domain.Media {
	for _, raw := range raws {
		var m media
		if unmarshalObject(raw, &m) != nil || m.ID <= 0 {
			continue
		}
		return toMedia(m)
	}
	return nil
}

func firstEmbeddedAuthor(raws []json.RawMessage) *domain.Author {
	for _, raw := range raws {
		var a author
		if unmarshalObject(raw, &a) != nil || a.ID <= 0 {
			continue
		}
		return &domain.Author{
			ID:          a.ID,
			Name:        a.Name,
			Slug:        a.Slug,
			URL:         a.URL,
			Description: a.Description,
			AvatarURLs:  a.AvatarURLs,
		}
	}
	return nil
}
