// internal/database/activity.go
package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"devtrack/internal/model"
)

const aggregateColumns = `user_id, date, log_count, hours_total, is_active`

// UpsertActivityAggregate writes the freshly recomputed aggregate for a
// (user, date), replacing whatever was there before.
func (s *Store) UpsertActivityAggregate(ctx context.Context, agg model.ActivityAggregate) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO activity_aggregates (user_id, date, log_count, hours_total, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, date) DO UPDATE
		SET log_count = EXCLUDED.log_count,
		    hours_total = EXCLUDED.hours_total,
		    is_active = EXCLUDED.is_active`,
		agg.UserID, agg.Date, agg.LogCount, agg.HoursTotal, agg.IsActive)
	return err
}

type GetAggregateByDateParams struct {
	UserID uuid.UUID
	Date   time.Time
}

func (s *Store) GetAggregateByDate(ctx context.Context, arg GetAggregateByDateParams) (model.ActivityAggregate, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+aggregateColumns+` FROM activity_aggregates WHERE user_id = $1 AND date = $2`,
		arg.UserID, arg.Date)
	return scanAggregate(row)
}

type AggregateRangeParams struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
}

func (s *Store) GetAggregatesInRange(ctx context.Context, arg AggregateRangeParams) ([]model.ActivityAggregate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+aggregateColumns+` FROM activity_aggregates
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`,
		arg.UserID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAggregates(rows)
}

// GetActiveAggregatesDesc returns every active-day aggregate for the user,
// newest first. The full history is needed for the longest-streak scan.
func (s *Store) GetActiveAggregatesDesc(ctx context.Context, userID uuid.UUID) ([]model.ActivityAggregate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+aggregateColumns+` FROM activity_aggregates
		WHERE user_id = $1 AND is_active
		ORDER BY date DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAggregates(rows)
}

// ActivityTotals is the summed view over a date range.
type ActivityTotals struct {
	TotalLogs  int
	TotalHours float64
	ActiveDays int
}

func (s *Store) SumActivityInRange(ctx context.Context, arg AggregateRangeParams) (ActivityTotals, error) {
	var t ActivityTotals
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(log_count), 0),
		       COALESCE(SUM(hours_total), 0),
		       COUNT(*) FILTER (WHERE is_active)
		FROM activity_aggregates
		WHERE user_id = $1 AND date BETWEEN $2 AND $3`,
		arg.UserID, arg.From, arg.To).Scan(&t.TotalLogs, &t.TotalHours, &t.ActiveDays)
	return t, err
}

// CountDistinctReposInRange counts distinct repositories referenced by the
// user's logs in the range; logs without a repository are excluded.
func (s *Store) CountDistinctReposInRange(ctx context.Context, arg AggregateRangeParams) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT repository_id)
		FROM daily_logs
		WHERE user_id = $1 AND log_date BETWEEN $2 AND $3 AND repository_id IS NOT NULL`,
		arg.UserID, arg.From, arg.To).Scan(&n)
	return n, err
}

func collectAggregates(rows pgx.Rows) ([]model.ActivityAggregate, error) {
	var aggs []model.ActivityAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}

func scanAggregate(row pgx.Row) (model.ActivityAggregate, error) {
	var a model.ActivityAggregate
	err := row.Scan(&a.UserID, &a.Date, &a.LogCount, &a.HoursTotal, &a.IsActive)
	return a, err
}
