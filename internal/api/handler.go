// internal/api/handler.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"devtrack/internal/activity"
	"devtrack/internal/analyzer"
	"devtrack/internal/auth"
	"devtrack/internal/logs"
	"devtrack/internal/model"
)

// AuthService is the slice of the auth service the handlers call.
type AuthService interface {
	Register(ctx context.Context, email, password string, displayName *string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*auth.Account, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarURL *string) (model.UserProfile, error)
}

// RepoService is the analyzer surface the handlers call.
type RepoService interface {
	Analyze(ctx context.Context, userID uuid.UUID, rawURL string) (*model.RepositoryRecord, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.RepositoryRecord, error)
	List(ctx context.Context, userID uuid.UUID, params analyzer.ListParams) (*analyzer.Page, error)
	Search(ctx context.Context, userID uuid.UUID, query string, page, limit int) (*analyzer.Page, error)
	Update(ctx context.Context, userID, id uuid.UUID, params analyzer.UpdateParams) (*model.RepositoryRecord, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// LogService is the daily log surface the handlers call.
type LogService interface {
	Create(ctx context.Context, userID uuid.UUID, params logs.CreateParams) (*model.DailyLogEntry, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.DailyLogEntry, error)
	List(ctx context.Context, userID uuid.UUID, params logs.ListParams) ([]model.DailyLogEntry, error)
	Update(ctx context.Context, userID, id uuid.UUID, params logs.UpdateParams) (*model.DailyLogEntry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ActivityService is the aggregation surface the handlers call.
type ActivityService interface {
	Calendar(ctx context.Context, userID uuid.UUID, month, year int) ([]model.CalendarDay, error)
	Streak(ctx context.Context, userID uuid.UUID) (*model.StreakInfo, error)
	Metrics(ctx context.Context, userID uuid.UUID, period string) (*model.ProductivityMetrics, error)
	Summarize(ctx context.Context, userID uuid.UUID) (*activity.Summary, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	auth       AuthService
	repos      RepoService
	logs       LogService
	activity   ActivityService
	logger     *slog.Logger
	production bool
}

// NewHandler wires the services into a handler set.
func NewHandler(authSvc AuthService, repos RepoService, logSvc LogService, activitySvc ActivityService, logger *slog.Logger, production bool) *Handler {
	return &Handler{
		auth:       authSvc,
		repos:      repos,
		logs:       logSvc,
		activity:   activitySvc,
		logger:     logger,
		production: production,
	}
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(h *Handler, verifier *auth.Verifier, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	requireAuth := auth.Middleware(verifier, logger)
	general := rateLimiter(generalLimit, generalWindow)
	authAttempts := newFailureLimiter(authLimit, authWindow)

	r.Get("/health", h.healthCheck)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authAttempts.Handler)
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/refresh", h.refresh)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, general)
			r.Get("/me", h.me)
			r.Patch("/profile", h.updateProfile)
			r.Post("/logout", h.logout)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth, general)

		r.Route("/repos", func(r chi.Router) {
			r.With(rateLimiter(analyzeLimit, analyzeWindow)).Post("/analyze", h.analyzeRepo)
			r.Get("/", h.listRepos)
			r.Get("/search", h.searchRepos)
			r.Get("/{id}", h.getRepo)
			r.Patch("/{id}", h.updateRepo)
			r.Delete("/{id}", h.deleteRepo)
		})

		r.Route("/logs", func(r chi.Router) {
			r.With(rateLimiter(logCreateLimit, logCreateWindow)).Post("/", h.createLog)
			r.Get("/", h.listLogs)
			r.Get("/{id}", h.getLog)
			r.Patch("/{id}", h.updateLog)
			r.Delete("/{id}", h.deleteLog)
		})

		r.Route("/activity", func(r chi.Router) {
			r.Get("/calendar", h.activityCalendar)
			r.Get("/streak", h.activityStreak)
			r.Get("/metrics", h.activityMetrics)
			r.Get("/summary", h.activitySummary)
		})
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callerID pulls the authenticated user out of the context. The auth
// middleware guarantees it is present on protected routes.
func callerID(r *http.Request) uuid.UUID {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
