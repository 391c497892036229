package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
)

// Ensure Client implements ContentSource
var _ driven.ContentSource = (*Client)(nil)

// maxBodySize bounds a response body read into memory.
const maxBodySize = 64 << 20

// Client reads content from a WordPress-compatible REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	userAgent  string
	cfg        Config
	logger     *slog.Logger
}

// NewClient creates a new CMS API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: CMS base URL is required", domain.ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: CMS base URL: %v", domain.ErrInvalidInput, err)
	}
	cfg = cfg.withDefaults()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		userAgent:  cfg.UserAgent,
		cfg:        cfg,
		logger:     cfg.Logger,
	}, nil
}

// ListCategories fetches one page of categories.
func (c *Client) ListCategories(ctx context.Context, page, perPage int) ([]driven.Item[domain.Category], error) {
	raws, err := c.listPage(ctx, "/categories", pageQuery(page, perPage))
	if err != nil {
		return nil, err
	}
	return decodeItems(raws, decodeCategory), nil
}

// ListTags fetches one page of tags.
func (c *Client) ListTags(ctx context.Context, page, perPage int) ([]driven.Item[domain.Tag], error) {
	raws, err := c.listPage(ctx, "/tags", pageQuery(page, perPage))
	if err != nil {
		return nil, err
	}
	return decodeItems(raws, decodeTag), nil
}

// ListPosts fetches one page of published posts with embeds, newest first.
func (c *Client) ListPosts(ctx context.Context, page, perPage int) ([]driven.Item[domain.PostEnvelope], error) {
	q := pageQuery(page, perPage)
	q.Set("_embed", "true")
	q.Set("orderby", "date")
	q.Set("order", "desc")
	q.Set("status", "publish")

	raws, err := c.listPage(ctx, "/posts", q)
	if err != nil {
		return nil, err
	}
	return decodeItems(raws, decodePost), nil
}

// ListMedia fetches one page of the media library.
func (c *Client) ListMedia(ctx context.Context, page, perPage int) ([]driven.Item[domain.Media], error) {
	raws, err := c.listPage(ctx, "/media", pageQuery(page, perPage))
	if err != nil {
		return nil, err
	}
	return decodeItems(raws, decodeMedia), nil
}

// GetMedia fetches a single media item.
func (c *Client) GetMedia(ctx context.Context, id int64) (*domain.Media, error) {
	body, err := c.get(ctx, "/media/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("media %d: %w: %w", id, domain.ErrNotFound, err)
		}
		return nil, err
	}

	md, _, err := decodeMedia(body)
	if err != nil {
		return nil, err
	}
	return md, nil
}

func pageQuery(page, perPage int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	return q
}

// listPage fetches a listing page as raw elements. A request past the last
// page is answered with HTTP 400 rest_post_invalid_page_number and yields an
// empty page.
func (c *Client) listPage(ctx context.Context, path string, q url.Values) ([]json.RawMessage, error) {
	body, err := c.get(ctx, path, q)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest && se.Code == invalidPageCode {
			return []json.RawMessage{}, nil
		}
		return nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decode %s page: %w", path, err)
	}
	if raws == nil {
		raws = []json.RawMessage{}
	}
	return raws, nil
}

// get performs a GET with bounded exponential backoff. Transport errors,
// 429 and 5xx answers are retried; every other failure is returned at once.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	attempt := 0
	var lastStatus *StatusError
	operation := func() ([]byte, error) {
		attempt++
		body, err := c.do(ctx, endpoint)
		if err == nil {
			return body, nil
		}

		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}

		var se *StatusError
		if errors.As(err, &se) {
			if !se.Retryable() {
				return nil, backoff.Permanent(err)
			}
			lastStatus = se
		}

		if attempt < c.cfg.MaxAttempts {
			c.logger.Warn("CMS request failed, retrying", "url", endpoint, "attempt", attempt, "error", err)
		}
		if se != nil && se.RetryAfter > 0 {
			return nil, backoff.RetryAfter(int(se.RetryAfter / time.Second))
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
	)
	if err != nil {
		// A Retry-After hint replaces the status in the last error; report the answer itself.
		var retryAfter *backoff.RetryAfterError
		if errors.As(err, &retryAfter) && lastStatus != nil {
			err = lastStatus
		}
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	return body, nil
}

// do performs a single request and returns the body of a 2xx answer.
func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	se := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
		se.Code = apiErr.Code
		se.Message = apiErr.Message
	}
	if len(se.Message) > 512 {
		se.Message = se.Message[:512]
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 && secs <= 60 {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return nil, se
}
