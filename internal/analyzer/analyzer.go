// internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"devtrack/internal/apperrors"
	"devtrack/internal/database"
	gh "devtrack/internal/github"
	"devtrack/internal/logs"
	"devtrack/internal/model"
	"devtrack/internal/scanner"
)

// Querier is the slice of the datastore the analyzer needs.
type Querier interface {
	CreateRepository(ctx context.Context, arg database.CreateRepositoryParams) (model.RepositoryRecord, error)
	GetRepositoryByID(ctx context.Context, arg database.GetRepositoryByIDParams) (model.RepositoryRecord, error)
	GetRepositoryByUserAndURL(ctx context.Context, arg database.GetRepositoryByUserAndURLParams) (model.RepositoryRecord, error)
	ListRepositories(ctx context.Context, arg database.ListRepositoriesParams) ([]model.RepositoryRecord, int, error)
	SearchRepositories(ctx context.Context, arg database.SearchRepositoriesParams) ([]model.RepositoryRecord, int, error)
	UpdateRepository(ctx context.Context, arg database.UpdateRepositoryParams) (model.RepositoryRecord, error)
	DeleteRepository(ctx context.Context, arg database.DeleteRepositoryParams) error
	DeleteLogsForRepository(ctx context.Context, arg database.DeleteLogsForRepositoryParams) ([]time.Time, error)
	ListDailyLogs(ctx context.Context, arg database.ListDailyLogsParams) ([]model.DailyLogEntry, error)
	UpsertActivityAggregate(ctx context.Context, agg model.ActivityAggregate) error
}

// ProviderClient fetches metadata and file trees from the remote repository
// provider.
type ProviderClient interface {
	GetRepository(ctx context.Context, owner, name string) (*model.RepositoryInfo, error)
	GetTree(ctx context.Context, owner, name, ref string) ([]model.TreeNode, error)
}

// InsightGenerator produces the four insights; it never fails, it degrades.
type InsightGenerator interface {
	GenerateAll(ctx context.Context, info *model.RepositoryInfo, scan model.ScanResult) model.Insights
}

// RecordCache is the URL-keyed, owner-gated analysis cache.
type RecordCache interface {
	Get(url string, userID uuid.UUID) (*model.RepositoryRecord, bool)
	Set(url string, userID uuid.UUID, record *model.RepositoryRecord)
	Delete(url string)
}

// Service orchestrates the end-to-end analyze operation and owns repository
// CRUD.
type Service struct {
	db       Querier
	provider ProviderClient
	insights InsightGenerator
	cache    RecordCache
	logger   *slog.Logger
}

func NewService(db Querier, provider ProviderClient, insights InsightGenerator, cache RecordCache, logger *slog.Logger) *Service {
	return &Service{db: db, provider: provider, insights: insights, cache: cache, logger: logger}
}

// Analyze runs the pipeline for rawURL on behalf of userID. Repeated calls
// for the same (user, URL) return the persisted record without touching the
// provider or the generator again.
func (s *Service) Analyze(ctx context.Context, userID uuid.UUID, rawURL string) (*model.RepositoryRecord, error) {
	owner, name, err := gh.ParseRepoURL(rawURL)
	if err != nil {
		return nil, apperrors.NewValidation(err.Error(), map[string]string{"githubUrl": err.Error()})
	}
	url := gh.CanonicalURL(owner, name)
	logger := s.logger.With("user_id", userID, "url", url)

	if record, ok := s.cache.Get(url, userID); ok {
		logger.Debug("Analysis served from cache")
		return record, nil
	}

	// A cold cache with a warm database still short-circuits the pipeline.
	existing, err := s.db.GetRepositoryByUserAndURL(ctx, database.GetRepositoryByUserAndURLParams{UserID: userID, URL: url})
	if err == nil {
		logger.Debug("Analysis already persisted, refreshing cache")
		s.cache.Set(url, userID, &existing)
		return &existing, nil
	}
	if !errors.Is(err, database.ErrNoRows) {
		return nil, err
	}

	logger.Info("Starting repository analysis")
	info, err := s.provider.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, translateProviderError(err)
	}
	tree, err := s.provider.GetTree(ctx, owner, name, info.DefaultBranch)
	if err != nil {
		return nil, translateProviderError(err)
	}

	scan := scanner.Scan(tree)
	insights := s.insights.GenerateAll(ctx, info, scan)

	record, err := s.db.CreateRepository(ctx, database.CreateRepositoryParams{
		UserID:          userID,
		URL:             url,
		Name:            info.Name,
		Description:     info.Description,
		Language:        info.Language,
		StarsCount:      info.StarsCount,
		ForksCount:      info.ForksCount,
		ComplexityScore: scan.ComplexityScore,
		Difficulty:      insights.Difficulty,
		Vibe:            insights.Vibe,
		Summary:         insights.Summary,
		Tags:            []string{},
		Metadata: model.RepoMetadata{
			TotalFiles:       scan.TotalFiles,
			TotalDirectories: scan.TotalDirectories,
			Languages:        scan.Languages,
			Dependencies:     scan.Dependencies,
			Frameworks:       scan.Frameworks,
			Improvements:     insights.Improvements,
		},
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			// Lost a race against a concurrent analysis of the same URL.
			existing, lookupErr := s.db.GetRepositoryByUserAndURL(ctx, database.GetRepositoryByUserAndURLParams{UserID: userID, URL: url})
			if lookupErr == nil {
				s.cache.Set(url, userID, &existing)
				return &existing, nil
			}
		}
		return nil, err
	}

	s.cache.Set(url, userID, &record)
	logger.Info("Repository analysis complete", "score", record.ComplexityScore, "vibe", record.Vibe)
	return &record, nil
}

// Get returns one repository record scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*model.RepositoryRecord, error) {
	record, err := s.db.GetRepositoryByID(ctx, database.GetRepositoryByIDParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, apperrors.NewNotFound("Repository not found")
		}
		return nil, err
	}
	return &record, nil
}

// ListParams filters the repository listing.
type ListParams struct {
	Language   *string
	Difficulty *string
	Tags       []string
	Page       int
	Limit      int
}

// Page is one page of records plus pagination metadata.
type Page struct {
	Items []model.RepositoryRecord `json:"items"`
	Total int                      `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, params ListParams) (*Page, error) {
	page, limit := normalizePagination(params.Page, params.Limit)
	items, total, err := s.db.ListRepositories(ctx, database.ListRepositoriesParams{
		UserID:     userID,
		Language:   params.Language,
		Difficulty: params.Difficulty,
		Tags:       params.Tags,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) Search(ctx context.Context, userID uuid.UUID, query string, pageNum, limit int) (*Page, error) {
	page, limit := normalizePagination(pageNum, limit)
	items, total, err := s.db.SearchRepositories(ctx, database.SearchRepositoriesParams{
		UserID: userID,
		Query:  query,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// UpdateParams carries the user-editable repository fields.
type UpdateParams struct {
	Name        *string
	Description *string
	Tags        []string
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*model.RepositoryRecord, error) {
	record, err := s.db.UpdateRepository(ctx, database.UpdateRepositoryParams{
		ID:          id,
		UserID:      userID,
		Name:        params.Name,
		Description: params.Description,
		Tags:        params.Tags,
	})
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, apperrors.NewNotFound("Repository not found")
		}
		return nil, err
	}
	// Keep any cached copy consistent with the edit.
	s.cache.Set(record.URL, userID, &record)
	return &record, nil
}

// Delete removes the record, its log entries, and its cache entry. The logs
// go first: letting the foreign key null them out instead can collide with
// the uniqueness rule for repo-less entries on the same date. Each affected
// day's aggregate is then rebuilt from the rows that remain.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	record, err := s.db.GetRepositoryByID(ctx, database.GetRepositoryByIDParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return apperrors.NewNotFound("Repository not found")
		}
		return err
	}
	dates, err := s.db.DeleteLogsForRepository(ctx, database.DeleteLogsForRepositoryParams{RepositoryID: id, UserID: userID})
	if err != nil {
		return err
	}
	if err := s.db.DeleteRepository(ctx, database.DeleteRepositoryParams{ID: id, UserID: userID}); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return apperrors.NewNotFound("Repository not found")
		}
		return err
	}
	s.cache.Delete(record.URL)

	for _, date := range dates {
		day := model.Day(date)
		entries, err := s.db.ListDailyLogs(ctx, database.ListDailyLogsParams{UserID: userID, Date: &day})
		if err != nil {
			return err
		}
		if err := s.db.UpsertActivityAggregate(ctx, logs.Aggregate(userID, day, entries)); err != nil {
			return err
		}
	}
	return nil
}

func translateProviderError(err error) error {
	switch {
	case errors.Is(err, gh.ErrNotFound):
		return apperrors.NewNotFound("GitHub repository not found")
	case errors.Is(err, gh.ErrAccessDenied):
		return &apperrors.Error{Status: 403, Code: "access_denied", Message: "Access to this GitHub repository is denied", Err: apperrors.ErrForbidden}
	case errors.Is(err, gh.ErrRateLimited):
		return apperrors.NewRateLimited("GitHub rate limit exceeded, try again later")
	default:
		return apperrors.NewUpstream("Failed to fetch repository from GitHub", err)
	}
}

func normalizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
