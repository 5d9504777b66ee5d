// internal/api/activity_handlers.go
package api

import (
	"net/http"
	"time"

	"devtrack/internal/apperrors"
)

// activityCalendar handles GET /activity/calendar. Month and year default
// to the current UTC month.
func (h *Handler) activityCalendar(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	month := queryInt(r.URL.Query().Get("month"), int(now.Month()))
	year := queryInt(r.URL.Query().Get("year"), now.Year())
	if month < 1 || month > 12 {
		h.respondWithError(w, r, apperrors.NewValidation("Invalid month", map[string]string{"month": "must be between 1 and 12"}))
		return
	}
	if year < 2000 || year > 2100 {
		h.respondWithError(w, r, apperrors.NewValidation("Invalid year", map[string]string{"year": "must be between 2000 and 2100"}))
		return
	}

	days, err := h.activity.Calendar(r.Context(), callerID(r), month, year)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, days)
}

// activityStreak handles GET /activity/streak.
func (h *Handler) activityStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := h.activity.Streak(r.Context(), callerID(r))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, streak)
}

// activityMetrics handles GET /activity/metrics?period=week|month|year|all.
func (h *Handler) activityMetrics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}

	metrics, err := h.activity.Metrics(r.Context(), callerID(r), period)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, metrics)
}

// activitySummary handles GET /activity/summary.
func (h *Handler) activitySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.activity.Summarize(r.Context(), callerID(r))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
