package cms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/services"
)

func newTestClient(t *testing.T, srv *httptest.Server, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:        srv.URL + "/wp-json/wp/v2",
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

// termsHandler serves total terms at /wp-json/wp/v2/{path}, honouring page and per_page.
func termsHandler(t *testing.T, path string, total int, invalidPastEnd bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/"+path {
			http.NotFound(w, r)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		start := (page - 1) * perPage
		if start >= total && invalidPastEnd && page > 1 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":"rest_post_invalid_page_number","message":"The page number requested is larger than the number of pages available.","data":{"status":400}}`)
			return
		}
		var parts []string
		for i := start; i < total && i < start+perPage; i++ {
			parts = append(parts, fmt.Sprintf(`{"id":%d,"name":"Term %d","slug":"term-%d","count":%d}`, i+1, i+1, i+1, i))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "["+strings.Join(parts, ",")+"]")
	}
}

func TestClient_ListCategoriesPaginates(t *testing.T) {
	srv := httptest.NewServer(termsHandler(t, "categories", 237, false))
	defer srv.Close()
	c := newTestClient(t, srv)

	var total, pages int
	for items, err := range services.Pages(context.Background(), 100, c.ListCategories) {
		require.NoError(t, err)
		pages++
		for _, it := range items {
			require.NoError(t, it.Err)
			total++
		}
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, 237, total)
}

func TestClient_InvalidPageNumberIsEmptyPage(t *testing.T) {
	srv := httptest.NewServer(termsHandler(t, "tags", 200, true))
	defer srv.Close()
	c := newTestClient(t, srv)

	items, err := c.ListTags(context.Background(), 3, 100)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = c.ListTags(context.Background(), 2, 100)
	require.NoError(t, err)
	assert.Len(t, items, 100)
	assert.Equal(t, int64(101), items[0].ID)
	assert.Equal(t, "Term 101", items[0].Value.Name)
}

func TestClient_MalformedElementIsolated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"name":"A"},"oops",{"id":3,"name":7},{"name":"no id"},{"id":5}]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	items, err := c.ListCategories(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, items, 5, "every element keeps its slot")

	assert.NoError(t, items[0].Err)
	assert.ErrorIs(t, items[1].Err, domain.ErrMalformedItem)
	assert.ErrorIs(t, items[2].Err, domain.ErrMalformedItem)
	assert.Equal(t, int64(3), items[2].ID)
	assert.ErrorIs(t, items[3].Err, domain.ErrMalformedItem)
	require.NoError(t, items[4].Err)
	assert.Equal(t, "", items[4].Value.Name, "missing optional fields default to zero values")
}

func TestClient_ListPostsQueryAndEmbeds(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		fmt.Fprint(w, `[{
			"id": 42,
			"date": "2024-03-01T10:30:00",
			"date_gmt": "2024-03-01T09:30:00",
			"modified": "2024-03-02T08:00:00",
			"modified_gmt": null,
			"slug": "hello",
			"status": "publish",
			"title": {"rendered": " Hello "},
			"content": {"rendered": "<p>Body</p>"},
			"author": 3,
			"featured_media": 77,
			"categories": [5, 999],
			"_embedded": {
				"author": [{"id": 3, "name": "Ada", "avatar_urls": {"96": "https://a/96"}}],
				"wp:featuredmedia": [{"code": "rest_forbidden"}, {"id": 77, "source_url": "https://cdn/77.jpg", "media_details": {"width": 800}}]
			}
		}]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	items, err := c.ListPosts(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, items[0].Err)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, []string{"true"}, q["_embed"])
	assert.Equal(t, []string{"2"}, q["page"])
	assert.Equal(t, []string{"10"}, q["per_page"])
	assert.Equal(t, []string{"date"}, q["orderby"])
	assert.Equal(t, []string{"desc"}, q["order"])
	assert.Equal(t, []string{"publish"}, q["status"])

	env := items[0].Value
	assert.Equal(t, "Hello", env.Post.Title)
	assert.Equal(t, "", env.Post.Excerpt)
	assert.Equal(t, []int64{5, 999}, env.Post.Categories)
	assert.Equal(t, []int64{}, env.Post.Tags)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), env.Post.DateGMT)
	assert.True(t, env.Post.ModifiedGMT.IsZero())
	require.NotNil(t, env.FeaturedMedia)
	assert.Equal(t, "https://cdn/77.jpg", env.FeaturedMedia.SourceURL)
	assert.JSONEq(t, `{"width": 800}`, string(env.FeaturedMedia.MediaDetails))
	require.NotNil(t, env.Author)
	assert.Equal(t, "Ada", env.Author.Name)
}

func TestClient_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "editor" || pass != "app-password" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":"rest_not_logged_in","message":"not logged in"}`)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.Username = "editor"
		cfg.Password = "app-password"
	})
	_, err := c.ListTags(context.Background(), 1, 100)
	require.NoError(t, err)

	anon := newTestClient(t, srv)
	_, err = anon.ListTags(context.Background(), 1, 100)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "rest_not_logged_in", se.Code)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[{"id":1,"name":"A"}]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	items, err := c.ListCategories(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.ListCategories(context.Background(), 1, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RateLimitExhaustedKeepsStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"code":"too_many_requests","message":"Slow down"}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv, func(cfg *Config) { cfg.MaxAttempts = 2 })

	_, err := c.ListTags(context.Background(), 1, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, time.Second, se.RetryAfter)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_SingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := newTestClient(t, srv, func(cfg *Config) { cfg.MaxAttempts = 1 })

	_, err := c.ListTags(context.Background(), 1, 100)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"code":"rest_forbidden","message":"Sorry"}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.ListPosts(context.Background(), 1, 100)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_NonArrayPageIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unexpected":"object"}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.ListMedia(context.Background(), 1, 100)
	assert.Error(t, err)
}

func TestClient_GetMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/wp/v2/media/77":
			fmt.Fprint(w, `{"id":77,"slug":"hero","media_type":"image","mime_type":"image/jpeg","source_url":"https://cdn/77.jpg","alt_text":"Hero"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"code":"rest_post_invalid_id","message":"Invalid post ID."}`)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	md, err := c.GetMedia(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/77.jpg", md.SourceURL)
	assert.Equal(t, "Hero", md.AltText)
	assert.Nil(t, md.MediaDetails)

	_, err = c.GetMedia(context.Background(), 78)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListTags(ctx, 1, 100)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
