// internal/api/repo_handlers.go
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"devtrack/internal/analyzer"
	"devtrack/internal/apperrors"
)

type analyzeRequest struct {
	GithubURL string `json:"githubUrl" validate:"required,max=500"`
}

// analyzeRepo handles POST /repos/analyze.
func (h *Handler) analyzeRepo(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	record, err := h.repos.Analyze(r.Context(), callerID(r), req.GithubURL)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, record)
}

// listRepos handles GET /repos with language/tags/difficulty filters.
func (h *Handler) listRepos(w http.ResponseWriter, r *http.Request) {
	params := analyzer.ListParams{}
	q := r.URL.Query()

	if lang := q.Get("language"); lang != "" {
		params.Language = &lang
	}
	if diff := q.Get("difficulty"); diff != "" {
		params.Difficulty = &diff
	}
	if tags := q.Get("tags"); tags != "" {
		params.Tags = strings.Split(tags, ",")
	}
	params.Page = queryInt(q.Get("page"), 1)
	params.Limit = queryInt(q.Get("limit"), 20)

	page, err := h.repos.List(r.Context(), callerID(r), params)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// searchRepos handles GET /repos/search.
func (h *Handler) searchRepos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		h.respondWithError(w, r, apperrors.NewValidation("Missing search query", map[string]string{"query": "is required"}))
		return
	}

	page, err := h.repos.Search(r.Context(), callerID(r), query, queryInt(q.Get("page"), 1), queryInt(q.Get("limit"), 20))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// getRepo handles GET /repos/{id}.
func (h *Handler) getRepo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	record, err := h.repos.Get(r.Context(), callerID(r), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

type updateRepoRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
}

// updateRepo handles PATCH /repos/{id}.
func (h *Handler) updateRepo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req updateRepoRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	record, err := h.repos.Update(r.Context(), callerID(r), id, analyzer.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

// deleteRepo handles DELETE /repos/{id}.
func (h *Handler) deleteRepo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if err := h.repos.Delete(r.Context(), callerID(r), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "Repository deleted")
}

// pathID parses the {id} path parameter as a UUID.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewValidation("Invalid id", map[string]string{"id": "must be a valid UUID"})
	}
	return id, nil
}

// queryInt parses an optional positive integer query parameter.
func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
