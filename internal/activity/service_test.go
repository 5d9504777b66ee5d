// internal/activity/service_test.go
package activity

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"devtrack/internal/apperrors"
	"devtrack/internal/database"
	"devtrack/internal/model"
)

// MockQuerier is a mock of the activity Querier interface.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) GetAggregateByDate(ctx context.Context, arg database.GetAggregateByDateParams) (model.ActivityAggregate, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.ActivityAggregate), args.Error(1)
}
func (m *MockQuerier) GetAggregatesInRange(ctx context.Context, arg database.AggregateRangeParams) ([]model.ActivityAggregate, error) {
	args := m.Called(ctx, arg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityAggregate), args.Error(1)
}
func (m *MockQuerier) GetActiveAggregatesDesc(ctx context.Context, userID uuid.UUID) ([]model.ActivityAggregate, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityAggregate), args.Error(1)
}
func (m *MockQuerier) SumActivityInRange(ctx context.Context, arg database.AggregateRangeParams) (database.ActivityTotals, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.ActivityTotals), args.Error(1)
}
func (m *MockQuerier) CountDistinctReposInRange(ctx context.Context, arg database.AggregateRangeParams) (int, error) {
	args := m.Called(ctx, arg)
	return args.Int(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// active builds descending active-day aggregates from the given dates.
func active(dates ...time.Time) []model.ActivityAggregate {
	aggs := make([]model.ActivityAggregate, 0, len(dates))
	for _, d := range dates {
		aggs = append(aggs, model.ActivityAggregate{Date: d, LogCount: 1, HoursTotal: 1, IsActive: true})
	}
	return aggs
}

func fixedService(db Querier, today time.Time) *Service {
	svc := NewService(db, testLogger())
	svc.now = func() time.Time { return today }
	return svc
}

func TestCurrentStreak(t *testing.T) {
	today := day(2026, time.March, 15)

	t.Run("no activity", func(t *testing.T) {
		assert.Equal(t, 0, CurrentStreak(nil, today))
	})

	t.Run("unbroken run ending today", func(t *testing.T) {
		aggs := active(day(2026, time.March, 15), day(2026, time.March, 14), day(2026, time.March, 13))
		assert.Equal(t, 3, CurrentStreak(aggs, today))
	})

	t.Run("gap breaks the run", func(t *testing.T) {
		aggs := active(
			day(2026, time.March, 15), day(2026, time.March, 14), day(2026, time.March, 13),
			day(2026, time.March, 11),
		)
		assert.Equal(t, 3, CurrentStreak(aggs, today))
	})

	t.Run("nothing today means zero", func(t *testing.T) {
		aggs := active(day(2026, time.March, 14), day(2026, time.March, 13))
		assert.Equal(t, 0, CurrentStreak(aggs, today))
	})
}

func TestLongestStreak(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		assert.Equal(t, 0, LongestStreak(nil))
	})

	t.Run("single day", func(t *testing.T) {
		assert.Equal(t, 1, LongestStreak(active(day(2026, time.March, 1))))
	})

	t.Run("picks longest of several runs", func(t *testing.T) {
		aggs := active(
			day(2026, time.March, 20), day(2026, time.March, 19), day(2026, time.March, 18),
			day(2026, time.March, 10), day(2026, time.March, 9), day(2026, time.March, 8),
			day(2026, time.March, 1),
		)
		assert.Equal(t, 3, LongestStreak(aggs))
	})

	t.Run("old run can exceed the current one", func(t *testing.T) {
		aggs := active(
			day(2026, time.March, 20),
			day(2026, time.March, 5), day(2026, time.March, 4), day(2026, time.March, 3), day(2026, time.March, 2),
		)
		assert.Equal(t, 4, LongestStreak(aggs))
	})
}

func TestStreak(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	today := day(2026, time.March, 15)

	t.Run("no history", func(t *testing.T) {
		mockQ := new(MockQuerier)
		svc := fixedService(mockQ, today)
		mockQ.On("GetActiveAggregatesDesc", ctx, userID).Return([]model.ActivityAggregate{}, nil).Once()

		info, err := svc.Streak(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, 0, info.Current)
		assert.Equal(t, 0, info.Longest)
		assert.Nil(t, info.LastActive)
	})

	t.Run("reports last active day", func(t *testing.T) {
		mockQ := new(MockQuerier)
		svc := fixedService(mockQ, today)
		last := day(2026, time.March, 12)
		mockQ.On("GetActiveAggregatesDesc", ctx, userID).Return(active(last, day(2026, time.March, 11)), nil).Once()

		info, err := svc.Streak(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, 0, info.Current)
		assert.Equal(t, 2, info.Longest)
		require.NotNil(t, info.LastActive)
		assert.True(t, info.LastActive.Equal(last))
	})
}

func TestCalendar_ZeroFillsMissingDays(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	mockQ := new(MockQuerier)
	svc := fixedService(mockQ, day(2026, time.February, 20))

	mockQ.On("GetAggregatesInRange", ctx, database.AggregateRangeParams{
		UserID: userID,
		From:   day(2026, time.February, 1),
		To:     day(2026, time.February, 28),
	}).Return(active(day(2026, time.February, 3)), nil).Once()

	days, err := svc.Calendar(ctx, userID, 2, 2026)

	require.NoError(t, err)
	require.Len(t, days, 28)
	assert.True(t, days[0].Date.Equal(day(2026, time.February, 1)))
	assert.False(t, days[0].IsActive)
	assert.True(t, days[2].IsActive)
	assert.Equal(t, 1, days[2].LogCount)
	assert.False(t, days[27].IsActive)
}

func TestMetrics_Periods(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	today := day(2026, time.March, 15)

	tests := []struct {
		period   string
		wantFrom time.Time
	}{
		{"week", day(2026, time.March, 9)},
		{"month", day(2026, time.February, 15)},
		{"year", day(2025, time.March, 15)},
		{"all", day(2000, time.January, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			mockQ := new(MockQuerier)
			svc := fixedService(mockQ, today)

			rangeArg := database.AggregateRangeParams{UserID: userID, From: tt.wantFrom, To: today}
			mockQ.On("SumActivityInRange", ctx, rangeArg).
				Return(database.ActivityTotals{TotalLogs: 5, TotalHours: 12.5, ActiveDays: 4}, nil).Once()
			mockQ.On("CountDistinctReposInRange", ctx, rangeArg).Return(2, nil).Once()

			metrics, err := svc.Metrics(ctx, userID, tt.period)

			require.NoError(t, err)
			assert.Equal(t, tt.period, metrics.Period)
			assert.True(t, metrics.From.Equal(tt.wantFrom))
			assert.True(t, metrics.To.Equal(today))
			assert.Equal(t, 5, metrics.TotalLogs)
			assert.Equal(t, 12.5, metrics.TotalHours)
			assert.Equal(t, 4, metrics.ActiveDays)
			assert.Equal(t, 2, metrics.DistinctRepos)
			mockQ.AssertExpectations(t)
		})
	}
}

func TestMetrics_InvalidPeriod(t *testing.T) {
	svc := fixedService(new(MockQuerier), day(2026, time.March, 15))

	_, err := svc.Metrics(context.Background(), uuid.New(), "fortnight")

	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Status)
}

func TestSummarize_NoActivityToday(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	today := day(2026, time.March, 15)
	mockQ := new(MockQuerier)
	svc := fixedService(mockQ, today)

	mockQ.On("GetAggregateByDate", ctx, database.GetAggregateByDateParams{UserID: userID, Date: today}).
		Return(model.ActivityAggregate{}, database.ErrNoRows).Once()
	mockQ.On("GetActiveAggregatesDesc", ctx, userID).Return([]model.ActivityAggregate{}, nil).Once()
	mockQ.On("SumActivityInRange", ctx, mock.Anything).Return(database.ActivityTotals{}, nil).Once()
	mockQ.On("CountDistinctReposInRange", ctx, mock.Anything).Return(0, nil).Once()

	summary, err := svc.Summarize(ctx, userID)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Today.LogCount)
	assert.False(t, summary.Today.IsActive)
	assert.True(t, summary.Today.Date.Equal(today))
	assert.Equal(t, "week", summary.Week.Period)
}
