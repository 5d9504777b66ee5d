// internal/api/respond.go
package api

import (
	"encoding/json"
	"net/http"

	"devtrack/internal/apperrors"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, envelope{Success: true, Data: data})
}

func respondWithMessage(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, envelope{Success: true, Message: message})
}

// respondWithError renders a typed service error, or logs anything unexpected
// and renders a generic 500. Outside production the underlying error string is
// included in the details.
func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternal(err)
	}

	if appErr.Status >= 500 {
		h.logger.Error("Request failed",
			"method", r.Method, "path", r.URL.Path, "status", appErr.Status, "error", err)
	}

	env := envelope{Success: false, Error: appErr.Message}
	if len(appErr.Details) > 0 {
		env.Details = appErr.Details
	}
	if !h.production && appErr.Status >= 500 && appErr.Err != nil {
		env.Details = map[string]string{"cause": appErr.Err.Error()}
	}
	writeEnvelope(w, appErr.Status, env)
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
