// internal/activity/service.go
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"devtrack/internal/apperrors"
	"devtrack/internal/database"
	"devtrack/internal/model"
)

// allTimeFloor bounds the "all" metrics period.
var allTimeFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Querier is the slice of the datastore the aggregator reads. It never
// writes: aggregates are owned by the log manager's recompute.
type Querier interface {
	GetAggregateByDate(ctx context.Context, arg database.GetAggregateByDateParams) (model.ActivityAggregate, error)
	GetAggregatesInRange(ctx context.Context, arg database.AggregateRangeParams) ([]model.ActivityAggregate, error)
	GetActiveAggregatesDesc(ctx context.Context, userID uuid.UUID) ([]model.ActivityAggregate, error)
	SumActivityInRange(ctx context.Context, arg database.AggregateRangeParams) (database.ActivityTotals, error)
	CountDistinctReposInRange(ctx context.Context, arg database.AggregateRangeParams) (int, error)
}

// Service derives calendar views, streaks and productivity metrics from the
// per-day aggregates.
type Service struct {
	db     Querier
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db Querier, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger, now: time.Now}
}

// Calendar enumerates every date of (month, year), left-joined with the
// user's aggregates; missing dates are zero-filled.
func (s *Service) Calendar(ctx context.Context, userID uuid.UUID, month, year int) ([]model.CalendarDay, error) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	aggs, err := s.db.GetAggregatesInRange(ctx, database.AggregateRangeParams{UserID: userID, From: first, To: last})
	if err != nil {
		return nil, err
	}
	byDate := make(map[time.Time]model.ActivityAggregate, len(aggs))
	for _, agg := range aggs {
		byDate[model.Day(agg.Date)] = agg
	}

	days := make([]model.CalendarDay, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := model.CalendarDay{Date: d}
		if agg, ok := byDate[d]; ok {
			day.LogCount = agg.LogCount
			day.Hours = agg.HoursTotal
			day.IsActive = agg.IsActive
		}
		days = append(days, day)
	}
	return days, nil
}

// Streak computes the current and longest runs of consecutive active days.
func (s *Service) Streak(ctx context.Context, userID uuid.UUID) (*model.StreakInfo, error) {
	aggs, err := s.db.GetActiveAggregatesDesc(ctx, userID)
	if err != nil {
		return nil, err
	}

	info := &model.StreakInfo{
		Current: CurrentStreak(aggs, model.Day(s.now())),
		Longest: LongestStreak(aggs),
	}
	if len(aggs) > 0 {
		last := model.Day(aggs[0].Date)
		info.LastActive = &last
	}
	return info, nil
}

// CurrentStreak counts consecutive active days ending today. aggs must be
// active days sorted by date descending. A day of no activity today breaks
// the streak at zero.
func CurrentStreak(aggs []model.ActivityAggregate, today time.Time) int {
	streak := 0
	expected := today
	for _, agg := range aggs {
		if !model.Day(agg.Date).Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak finds the longest run of dates exactly one day apart across
// the full active-day history. aggs must be sorted by date descending.
func LongestStreak(aggs []model.ActivityAggregate) int {
	longest, run := 0, 0
	var prev time.Time
	for i, agg := range aggs {
		date := model.Day(agg.Date)
		if i == 0 || prev.Sub(date) != 24*time.Hour {
			run = 1
		} else {
			run++
		}
		if run > longest {
			longest = run
		}
		prev = date
	}
	return longest
}

// Metrics sums activity over a trailing period and counts the distinct
// repositories the user logged against in it.
func (s *Service) Metrics(ctx context.Context, userID uuid.UUID, period string) (*model.ProductivityMetrics, error) {
	today := model.Day(s.now())

	var from time.Time
	switch period {
	case "week":
		from = today.AddDate(0, 0, -6)
	case "month":
		from = today.AddDate(0, -1, 0)
	case "year":
		from = today.AddDate(-1, 0, 0)
	case "all":
		from = allTimeFloor
	default:
		return nil, apperrors.NewValidation(
			fmt.Sprintf("invalid period %q", period),
			map[string]string{"period": "must be one of week, month, year, all"})
	}

	rangeArg := database.AggregateRangeParams{UserID: userID, From: from, To: today}
	totals, err := s.db.SumActivityInRange(ctx, rangeArg)
	if err != nil {
		return nil, err
	}
	repos, err := s.db.CountDistinctReposInRange(ctx, rangeArg)
	if err != nil {
		return nil, err
	}

	return &model.ProductivityMetrics{
		Period:        period,
		From:          from,
		To:            today,
		TotalLogs:     totals.TotalLogs,
		TotalHours:    totals.TotalHours,
		ActiveDays:    totals.ActiveDays,
		DistinctRepos: repos,
	}, nil
}

// Summary is today's aggregate plus the streak and the trailing week totals.
type Summary struct {
	Today  model.ActivityAggregate   `json:"today"`
	Streak model.StreakInfo          `json:"streak"`
	Week   model.ProductivityMetrics `json:"week"`
}

func (s *Service) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	today := model.Day(s.now())

	agg, err := s.db.GetAggregateByDate(ctx, database.GetAggregateByDateParams{UserID: userID, Date: today})
	if err != nil {
		if !errors.Is(err, database.ErrNoRows) {
			return nil, err
		}
		agg = model.ActivityAggregate{UserID: userID, Date: today}
	}

	streak, err := s.Streak(ctx, userID)
	if err != nil {
		return nil, err
	}
	week, err := s.Metrics(ctx, userID, "week")
	if err != nil {
		return nil, err
	}

	return &Summary{Today: agg, Streak: *streak, Week: *week}, nil
}
