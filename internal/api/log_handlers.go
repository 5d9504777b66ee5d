// internal/api/log_handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"devtrack/internal/apperrors"
	"devtrack/internal/logs"
)

const dateLayout = "2006-01-02"

type createLogRequest struct {
	RepoID      *uuid.UUID `json:"repoId"`
	LogDate     string     `json:"logDate" validate:"required,datetime=2006-01-02"`
	Content     string     `json:"content" validate:"required,min=1,max=5000"`
	HoursWorked *float64   `json:"hoursWorked" validate:"omitempty,gte=0,lte=24"`
	Mood        *string    `json:"mood" validate:"omitempty,min=1,max=50"`
}

// createLog handles POST /logs.
func (h *Handler) createLog(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	logDate, _ := time.Parse(dateLayout, req.LogDate)
	hours := 0.0
	if req.HoursWorked != nil {
		hours = *req.HoursWorked
	}

	entry, err := h.logs.Create(r.Context(), callerID(r), logs.CreateParams{
		RepositoryID: req.RepoID,
		LogDate:      logDate,
		Content:      req.Content,
		HoursWorked:  hours,
		Mood:         req.Mood,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, entry)
}

// listLogs handles GET /logs with date, repoId, and range filters.
func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := logs.ListParams{}

	if raw := q.Get("date"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.respondWithError(w, r, apperrors.NewValidation("Invalid date", map[string]string{"date": "must be a date in YYYY-MM-DD format"}))
			return
		}
		params.Date = &date
	}
	if raw := q.Get("repoId"); raw != "" {
		repoID, err := uuid.Parse(raw)
		if err != nil {
			h.respondWithError(w, r, apperrors.NewValidation("Invalid repoId", map[string]string{"repoId": "must be a valid UUID"}))
			return
		}
		params.RepositoryID = &repoID
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.respondWithError(w, r, apperrors.NewValidation("Invalid from", map[string]string{"from": "must be a date in YYYY-MM-DD format"}))
			return
		}
		params.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.respondWithError(w, r, apperrors.NewValidation("Invalid to", map[string]string{"to": "must be a date in YYYY-MM-DD format"}))
			return
		}
		params.To = &to
	}

	entries, err := h.logs.List(r.Context(), callerID(r), params)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}

// getLog handles GET /logs/{id}.
func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	entry, err := h.logs.Get(r.Context(), callerID(r), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

type updateLogRequest struct {
	Content     *string  `json:"content" validate:"omitempty,min=1,max=5000"`
	HoursWorked *float64 `json:"hoursWorked" validate:"omitempty,gte=0,lte=24"`
	Mood        *string  `json:"mood" validate:"omitempty,min=1,max=50"`
}

// updateLog handles PATCH /logs/{id}.
func (h *Handler) updateLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	var req updateLogRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	entry, err := h.logs.Update(r.Context(), callerID(r), id, logs.UpdateParams{
		Content:     req.Content,
		HoursWorked: req.HoursWorked,
		Mood:        req.Mood,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// deleteLog handles DELETE /logs/{id}.
func (h *Handler) deleteLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if err := h.logs.Delete(r.Context(), callerID(r), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "Log entry deleted")
}
