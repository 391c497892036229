package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the state of each dependency
// @Description Readiness response
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// SyncTriggerResponse is returned when a run has been started
// @Description Accepted sync run
type SyncTriggerResponse struct {
	RunID  string `json:"run_id" example:"5b0e3c9e-2f0d-4a5e-9d61-1c0b9b1f8e2a"`
	Target string `json:"target" example:"all"`
	Status string `json:"status" example:"started"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the liveness status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings PostgreSQL and, when configured, Redis
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Checks: map[string]string{}}
	status := http.StatusOK

	probes := map[string]Pinger{"database": s.db, "redis": s.lock}
	for name, p := range probes {
		if p == nil {
			continue
		}
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "check", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the running version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Content endpoints

// handleListPosts godoc
// @Summary      List posts
// @Description  Returns a page of mirrored posts, newest first
// @Tags         Content
// @Produce      json
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        per_page    query     int     false  "Posts per page (default 10, max 100)"
// @Param        categories  query     string  false  "Comma separated category ids"
// @Success      200  {object}  domain.PostPage
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /posts [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q, err := parsePostQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.contentService.ListPosts(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleGetPost godoc
// @Summary      Get post
// @Description  Returns one mirrored post by slug
// @Tags         Content
// @Produce      json
// @Param        slug  path      string  true  "Post slug"
// @Success      200   {object}  domain.Post
// @Failure      404   {object}  ErrorResponse
// @Router       /posts/{slug} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.contentService.GetPostBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleListCategories godoc
// @Summary      List categories
// @Tags         Content
// @Produce      json
// @Success      200  {array}   domain.Category
// @Failure      500  {object}  ErrorResponse
// @Router       /categories [get]
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.contentService.ListCategories(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleListTags godoc
// @Summary      List tags
// @Tags         Content
// @Produce      json
// @Success      200  {array}   domain.Tag
// @Failure      500  {object}  ErrorResponse
// @Router       /tags [get]
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.contentService.ListTags(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// Sync endpoints

// handleSyncStatus godoc
// @Summary      Sync status
// @Description  Returns the newest ledger entry of every entity kind
// @Tags         Sync
// @Produce      json
// @Success      200  {array}   domain.SyncStatusEntry
// @Failure      500  {object}  ErrorResponse
// @Router       /sync/status [get]
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	entries, err := s.contentService.SyncStatus(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleSyncHistory godoc
// @Summary      Sync history
// @Description  Returns recent ledger entries of one entity kind, newest first
// @Tags         Sync
// @Produce      json
// @Param        kind   path      string  true   "Entity kind (categories, tags, posts, media)"
// @Param        limit  query     int     false  "Maximum entries (default 20, max 200)"
// @Success      200    {array}   domain.SyncStatusEntry
// @Failure      400    {object}  ErrorResponse
// @Router       /sync/status/{kind}/history [get]
func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.contentService.SyncHistory(r.Context(), domain.EntityKind(r.PathValue("kind")), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleTriggerSync godoc
// @Summary      Trigger sync
// @Description  Starts a background sync run. Without a target every kind runs in order.
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Param        target  path      string  false  "all, categories, tags, posts, media or media-library"
// @Success      202     {object}  SyncTriggerResponse
// @Failure      400     {object}  ErrorResponse  "Unknown target"
// @Failure      401     {object}  ErrorResponse
// @Failure      403     {object}  ErrorResponse
// @Failure      409     {object}  ErrorResponse  "A run is already active"
// @Failure      503     {object}  ErrorResponse  "Scheduler not available"
// @Router       /sync [post]
// @Router       /sync/{target} [post]
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "sync scheduler not available")
		return
	}

	target, err := domain.ParseSyncTarget(r.PathValue("target"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	runID, err := s.scheduler.Trigger(r.Context(), target)
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			s.logger.Info("sync trigger rejected, run already active", "target", target)
		}
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SyncTriggerResponse{
		RunID:  runID,
		Target: string(target),
		Status: "started",
	})
}

// Auth endpoints

// handleToken godoc
// @Summary      Issue admin token
// @Description  Exchanges admin credentials (JSON body or HTTP basic auth) for a JWT
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.TokenRequest  false  "Admin credentials"
// @Success      200      {object}  domain.TokenResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Router       /auth/token [post]
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if user, pass, ok := r.BasicAuth(); ok {
		req = domain.TokenRequest{Username: user, Password: pass}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parsePostQuery reads page, per_page and categories from the query string
func parsePostQuery(r *http.Request) (domain.PostQuery, error) {
	var q domain.PostQuery
	values := r.URL.Query()

	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n > domain.MaxPage {
			return q, errors.New("invalid page")
		}
		q.Page = n
	}
	if v := values.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errors.New("invalid per_page")
		}
		q.PerPage = n
	}
	if v := values.Get("categories"); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return q, errors.New("invalid categories")
			}
			q.CategoryIDs = append(q.CategoryIDs, id)
		}
	}
	return q.Normalize(), nil
}

// writeServiceError maps domain errors to HTTP status codes
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "sync already in progress")
	case errors.Is(err, domain.ErrUnknownKind), errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
