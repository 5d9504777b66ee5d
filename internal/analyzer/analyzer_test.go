// internal/analyzer/analyzer_test.go
package analyzer

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"devtrack/internal/apperrors"
	"devtrack/internal/cache"
	"devtrack/internal/database"
	gh "devtrack/internal/github"
	"devtrack/internal/model"
)

// MockQuerier is a mock of the analyzer Querier interface.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) CreateRepository(ctx context.Context, arg database.CreateRepositoryParams) (model.RepositoryRecord, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.RepositoryRecord), args.Error(1)
}
func (m *MockQuerier) GetRepositoryByID(ctx context.Context, arg database.GetRepositoryByIDParams) (model.RepositoryRecord, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.RepositoryRecord), args.Error(1)
}
func (m *MockQuerier) GetRepositoryByUserAndURL(ctx context.Context, arg database.GetRepositoryByUserAndURLParams) (model.RepositoryRecord, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.RepositoryRecord), args.Error(1)
}
func (m *MockQuerier) ListRepositories(ctx context.Context, arg database.ListRepositoriesParams) ([]model.RepositoryRecord, int, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]model.RepositoryRecord), args.Int(1), args.Error(2)
}
func (m *MockQuerier) SearchRepositories(ctx context.Context, arg database.SearchRepositoriesParams) ([]model.RepositoryRecord, int, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]model.RepositoryRecord), args.Int(1), args.Error(2)
}
func (m *MockQuerier) UpdateRepository(ctx context.Context, arg database.UpdateRepositoryParams) (model.RepositoryRecord, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.RepositoryRecord), args.Error(1)
}
func (m *MockQuerier) DeleteRepository(ctx context.Context, arg database.DeleteRepositoryParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}
func (m *MockQuerier) DeleteLogsForRepository(ctx context.Context, arg database.DeleteLogsForRepositoryParams) ([]time.Time, error) {
	args := m.Called(ctx, arg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}
func (m *MockQuerier) ListDailyLogs(ctx context.Context, arg database.ListDailyLogsParams) ([]model.DailyLogEntry, error) {
	args := m.Called(ctx, arg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailyLogEntry), args.Error(1)
}
func (m *MockQuerier) UpsertActivityAggregate(ctx context.Context, agg model.ActivityAggregate) error {
	args := m.Called(ctx, agg)
	return args.Error(0)
}

// MockProvider is a mock of the ProviderClient interface.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetRepository(ctx context.Context, owner, name string) (*model.RepositoryInfo, error) {
	args := m.Called(ctx, owner, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RepositoryInfo), args.Error(1)
}
func (m *MockProvider) GetTree(ctx context.Context, owner, name, ref string) ([]model.TreeNode, error) {
	args := m.Called(ctx, owner, name, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TreeNode), args.Error(1)
}

// MockGenerator is a mock of the InsightGenerator interface.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateAll(ctx context.Context, info *model.RepositoryInfo, scan model.ScanResult) model.Insights {
	args := m.Called(ctx, info, scan)
	return args.Get(0).(model.Insights)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCache(t *testing.T) *cache.Cache {
	t.Helper()
	return cache.New(time.Hour, time.Hour, testLogger())
}

func sampleInfo() *model.RepositoryInfo {
	desc := "A test repository"
	lang := "Go"
	return &model.RepositoryInfo{
		Owner:         "octocat",
		Name:          "hello-world",
		URL:           "https://github.com/octocat/hello-world",
		Description:   &desc,
		Language:      &lang,
		StarsCount:    42,
		ForksCount:    7,
		DefaultBranch: "main",
	}
}

func sampleTree() []model.TreeNode {
	return []model.TreeNode{
		{Path: "main.go", Type: model.NodeFile, Size: 120},
		{Path: "internal", Type: model.NodeDirectory},
		{Path: "internal/server.go", Type: model.NodeFile, Size: 340},
		{Path: "go.mod", Type: model.NodeFile, Size: 80},
	}
}

func sampleInsights() model.Insights {
	return model.Insights{
		Summary:      "A small Go service.",
		Vibe:         "Personal Tool",
		Difficulty:   "Beginner",
		Improvements: []string{"[testing] Add tests: cover the server package"},
	}
}

func TestAnalyze_FullPipeline(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	mockQ := new(MockQuerier)
	mockP := new(MockProvider)
	mockG := new(MockGenerator)

	svc := NewService(mockQ, mockP, mockG, testCache(t), testLogger())

	canonical := "https://github.com/octocat/hello-world"
	mockQ.On("GetRepositoryByUserAndURL", ctx, database.GetRepositoryByUserAndURLParams{UserID: userID, URL: canonical}).
		Return(model.RepositoryRecord{}, database.ErrNoRows).Once()
	mockP.On("GetRepository", ctx, "octocat", "hello-world").Return(sampleInfo(), nil).Once()
	mockP.On("GetTree", ctx, "octocat", "hello-world", "main").Return(sampleTree(), nil).Once()
	mockG.On("GenerateAll", ctx, mock.Anything, mock.Anything).Return(sampleInsights()).Once()

	created := model.RepositoryRecord{ID: uuid.New(), UserID: userID, URL: canonical, Name: "hello-world", Vibe: "Personal Tool"}
	mockQ.On("CreateRepository", ctx, mock.MatchedBy(func(arg database.CreateRepositoryParams) bool {
		return arg.UserID == userID && arg.URL == canonical && arg.Name == "hello-world" && arg.Vibe == "Personal Tool"
	})).Return(created, nil).Once()

	record, err := svc.Analyze(ctx, userID, "github.com/octocat/hello-world.git")

	require.NoError(t, err)
	assert.Equal(t, created.ID, record.ID)
	mockQ.AssertExpectations(t)
	mockP.AssertExpectations(t)
	mockG.AssertExpectations(t)
}

func TestAnalyze_SecondCallServedFromCache(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	mockQ := new(MockQuerier)
	mockP := new(MockProvider)
	mockG := new(MockGenerator)

	svc := NewService(mockQ, mockP, mockG, testCache(t), testLogger())

	canonical := "https://github.com/octocat/hello-world"
	mockQ.On("GetRepositoryByUserAndURL", ctx, mock.Anything).Return(model.RepositoryRecord{}, database.ErrNoRows).Once()
	mockP.On("GetRepository", ctx, "octocat", "hello-world").Return(sampleInfo(), nil).Once()
	mockP.On("GetTree", ctx, "octocat", "hello-world", "main").Return(sampleTree(), nil).Once()
	mockG.On("GenerateAll", ctx, mock.Anything, mock.Anything).Return(sampleInsights()).Once()
	created := model.RepositoryRecord{ID: uuid.New(), UserID: userID, URL: canonical}
	mockQ.On("CreateRepository", ctx, mock.Anything).Return(created, nil).Once()

	first, err := svc.Analyze(ctx, userID, canonical)
	require.NoError(t, err)

	// Different spellings of the same URL must hit the same cache entry.
	second, err := svc.Analyze(ctx, userID, "http://www.github.com/octocat/hello-world")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	mockP.AssertNumberOfCalls(t, "GetRepository", 1)
	mockG.AssertNumberOfCalls(t, "GenerateAll", 1)
	mockQ.AssertNumberOfCalls(t, "CreateRepository", 1)
}

func TestAnalyze_CacheMissButPersisted(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	mockQ := new(MockQuerier)
	mockP := new(MockProvider)
	mockG := new(MockGenerator)

	svc := NewService(mockQ, mockP, mockG, testCache(t), testLogger())

	canonical := "https://github.com/octocat/hello-world"
	persisted := model.RepositoryRecord{ID: uuid.New(), UserID: userID, URL: canonical}
	mockQ.On("GetRepositoryByUserAndURL", ctx, database.GetRepositoryByUserAndURLParams{UserID: userID, URL: canonical}).
		Return(persisted, nil).Once()

	record, err := svc.Analyze(ctx, userID, canonical)

	require.NoError(t, err)
	assert.Equal(t, persisted.ID, record.ID)
	mockP.AssertNotCalled(t, "GetRepository")
	mockG.AssertNotCalled(t, "GenerateAll")
}

func TestAnalyze_CacheIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	mockQ := new(MockQuerier)
	mockP := new(MockProvider)
	mockG := new(MockGenerator)

	svc := NewService(mockQ, mockP, mockG, testCache(t), testLogger())

	canonical := "https://github.com/octocat/hello-world"
	mockQ.On("GetRepositoryByUserAndURL", ctx, mock.Anything).Return(model.RepositoryRecord{}, database.ErrNoRows).Twice()
	mockP.On("GetRepository", ctx, "octocat", "hello-world").Return(sampleInfo(), nil).Twice()
	mockP.On("GetTree", ctx, "octocat", "hello-world", "main").Return(sampleTree(), nil).Twice()
	mockG.On("GenerateAll", ctx, mock.Anything, mock.Anything).Return(sampleInsights()).Twice()
	mockQ.On("CreateRepository", ctx, mock.Anything).
		Return(model.RepositoryRecord{ID: uuid.New(), URL: canonical}, nil).Twice()

	_, err := svc.Analyze(ctx, alice, canonical)
	require.NoError(t, err)

	// Bob cannot be served Alice's cached record; his analysis runs in full.
	_, err = svc.Analyze(ctx, bob, canonical)
	require.NoError(t, err)

	mockP.AssertNumberOfCalls(t, "GetRepository", 2)
}

func TestAnalyze_ProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", gh.ErrNotFound, 404},
		{"access denied", gh.ErrAccessDenied, 403},
		{"rate limited", gh.ErrRateLimited, 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			userID := uuid.New()
			mockQ := new(MockQuerier)
			mockP := new(MockProvider)
			mockG := new(MockGenerator)

			svc := NewService(mockQ, mockP, mockG, testCache(t), testLogger())

			mockQ.On("GetRepositoryByUserAndURL", ctx, mock.Anything).Return(model.RepositoryRecord{}, database.ErrNoRows).Once()
			mockP.On("GetRepository", ctx, "octocat", "hello-world").Return(nil, tt.err).Once()

			_, err := svc.Analyze(ctx, userID, "https://github.com/octocat/hello-world")

			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, appErr.Status)
			mockQ.AssertNotCalled(t, "CreateRepository")
			mockG.AssertNotCalled(t, "GenerateAll")
		})
	}
}

func TestAnalyze_InvalidURL(t *testing.T) {
	svc := NewService(new(MockQuerier), new(MockProvider), new(MockGenerator), testCache(t), testLogger())

	_, err := svc.Analyze(context.Background(), uuid.New(), "https://gitlab.com/octocat/hello-world")

	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Status)
}

func TestAnalyze_UniqueViolationRace(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	mockQ := new(MockQuerier)
	mockP := new(MockProvider)
	mockG := new(MockGenerator)

	svc := NewService(mockQ, mockP, mockG, testCache(t), testLogger())

	canonical := "https://github.com/octocat/hello-world"
	winner := model.RepositoryRecord{ID: uuid.New(), UserID: userID, URL: canonical}

	mockQ.On("GetRepositoryByUserAndURL", ctx, mock.Anything).Return(model.RepositoryRecord{}, database.ErrNoRows).Once()
	mockP.On("GetRepository", ctx, "octocat", "hello-world").Return(sampleInfo(), nil).Once()
	mockP.On("GetTree", ctx, "octocat", "hello-world", "main").Return(sampleTree(), nil).Once()
	mockG.On("GenerateAll", ctx, mock.Anything, mock.Anything).Return(sampleInsights()).Once()
	mockQ.On("CreateRepository", ctx, mock.Anything).
		Return(model.RepositoryRecord{}, &pgconn.PgError{Code: "23505"}).Once()
	mockQ.On("GetRepositoryByUserAndURL", ctx, mock.Anything).Return(winner, nil).Once()

	record, err := svc.Analyze(ctx, userID, canonical)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, record.ID)
}

func TestDelete_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	mockQ := new(MockQuerier)
	c := testCache(t)

	svc := NewService(mockQ, new(MockProvider), new(MockGenerator), c, testLogger())

	canonical := "https://github.com/octocat/hello-world"
	record := model.RepositoryRecord{ID: uuid.New(), UserID: userID, URL: canonical}
	c.Set(canonical, userID, &record)

	mockQ.On("GetRepositoryByID", ctx, database.GetRepositoryByIDParams{ID: record.ID, UserID: userID}).Return(record, nil).Once()
	mockQ.On("DeleteLogsForRepository", ctx, database.DeleteLogsForRepositoryParams{RepositoryID: record.ID, UserID: userID}).
		Return(nil, nil).Once()
	mockQ.On("DeleteRepository", ctx, database.DeleteRepositoryParams{ID: record.ID, UserID: userID}).Return(nil).Once()

	err := svc.Delete(ctx, userID, record.ID)

	require.NoError(t, err)
	_, ok := c.Get(canonical, userID)
	assert.False(t, ok)
	mockQ.AssertNotCalled(t, "UpsertActivityAggregate")
}

func TestDelete_RemovesLogsAndRebuildsAggregates(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	mockQ := new(MockQuerier)

	svc := NewService(mockQ, new(MockProvider), new(MockGenerator), testCache(t), testLogger())

	record := model.RepositoryRecord{ID: uuid.New(), UserID: userID, URL: "https://github.com/octocat/hello-world"}
	day := model.Day(time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC))

	mockQ.On("GetRepositoryByID", ctx, database.GetRepositoryByIDParams{ID: record.ID, UserID: userID}).Return(record, nil).Once()
	mockQ.On("DeleteLogsForRepository", ctx, database.DeleteLogsForRepositoryParams{RepositoryID: record.ID, UserID: userID}).
		Return([]time.Time{day}, nil).Once()
	mockQ.On("DeleteRepository", ctx, database.DeleteRepositoryParams{ID: record.ID, UserID: userID}).Return(nil).Once()

	// A repo-less entry shares the date, so the rebuilt aggregate keeps it.
	remaining := model.DailyLogEntry{ID: uuid.New(), UserID: userID, LogDate: day, Content: "code review", HoursWorked: 1.5}
	mockQ.On("ListDailyLogs", ctx, database.ListDailyLogsParams{UserID: userID, Date: &day}).
		Return([]model.DailyLogEntry{remaining}, nil).Once()
	mockQ.On("UpsertActivityAggregate", ctx, model.ActivityAggregate{
		UserID:     userID,
		Date:       day,
		LogCount:   1,
		HoursTotal: 1.5,
		IsActive:   true,
	}).Return(nil).Once()

	err := svc.Delete(ctx, userID, record.ID)

	require.NoError(t, err)
	mockQ.AssertExpectations(t)
}

func TestGet_NotFoundForOtherOwner(t *testing.T) {
	ctx := context.Background()
	mockQ := new(MockQuerier)
	svc := NewService(mockQ, new(MockProvider), new(MockGenerator), testCache(t), testLogger())

	id := uuid.New()
	mockQ.On("GetRepositoryByID", ctx, mock.Anything).Return(model.RepositoryRecord{}, database.ErrNoRows).Once()

	_, err := svc.Get(ctx, uuid.New(), id)

	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Status)
}

func TestNormalizePagination(t *testing.T) {
	page, limit := normalizePagination(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = normalizePagination(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)
}
