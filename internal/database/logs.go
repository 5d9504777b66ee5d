// internal/database/logs.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"devtrack/internal/model"
)

const dailyLogColumns = `id, user_id, repository_id, log_date, content, hours_worked, mood, created_at, updated_at`

type CreateDailyLogParams struct {
	UserID       uuid.UUID
	RepositoryID *uuid.UUID
	LogDate      time.Time
	Content      string
	HoursWorked  float64
	Mood         *string
}

// CreateDailyLog inserts a log entry. Duplicates of (user, repo-or-null,
// date) surface as a unique violation; see IsUniqueViolation.
func (s *Store) CreateDailyLog(ctx context.Context, arg CreateDailyLogParams) (model.DailyLogEntry, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO daily_logs (user_id, repository_id, log_date, content, hours_worked, mood)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+dailyLogColumns,
		arg.UserID, arg.RepositoryID, arg.LogDate, arg.Content, arg.HoursWorked, arg.Mood)
	return scanDailyLog(row)
}

type GetDailyLogByIDParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (s *Store) GetDailyLogByID(ctx context.Context, arg GetDailyLogByIDParams) (model.DailyLogEntry, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+dailyLogColumns+` FROM daily_logs WHERE id = $1 AND user_id = $2`,
		arg.ID, arg.UserID)
	return scanDailyLog(row)
}

// ListDailyLogsParams filters the listing. Date wins over From/To when both
// are set; RepositoryID may combine with a range.
type ListDailyLogsParams struct {
	UserID       uuid.UUID
	RepositoryID *uuid.UUID
	Date         *time.Time
	From         *time.Time
	To           *time.Time
}

func (s *Store) ListDailyLogs(ctx context.Context, arg ListDailyLogsParams) ([]model.DailyLogEntry, error) {
	query := `SELECT ` + dailyLogColumns + ` FROM daily_logs WHERE user_id = $1`
	args := []any{arg.UserID}

	if arg.RepositoryID != nil {
		args = append(args, *arg.RepositoryID)
		query += fmt.Sprintf(" AND repository_id = $%d", len(args))
	}
	if arg.Date != nil {
		args = append(args, *arg.Date)
		query += fmt.Sprintf(" AND log_date = $%d", len(args))
	} else {
		if arg.From != nil {
			args = append(args, *arg.From)
			query += fmt.Sprintf(" AND log_date >= $%d", len(args))
		}
		if arg.To != nil {
			args = append(args, *arg.To)
			query += fmt.Sprintf(" AND log_date <= $%d", len(args))
		}
	}

	query += " ORDER BY log_date DESC, created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.DailyLogEntry
	for rows.Next() {
		entry, err := scanDailyLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type UpdateDailyLogParams struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Content     *string
	HoursWorked *float64
	Mood        *string
}

func (s *Store) UpdateDailyLog(ctx context.Context, arg UpdateDailyLogParams) (model.DailyLogEntry, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE daily_logs
		SET content      = COALESCE($3, content),
		    hours_worked = COALESCE($4, hours_worked),
		    mood         = COALESCE($5, mood),
		    updated_at   = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+dailyLogColumns,
		arg.ID, arg.UserID, arg.Content, arg.HoursWorked, arg.Mood)
	return scanDailyLog(row)
}

type DeleteLogsForRepositoryParams struct {
	RepositoryID uuid.UUID
	UserID       uuid.UUID
}

// DeleteLogsForRepository removes every log entry attached to the repository
// and returns the affected dates, so the caller can recompute their
// aggregates. The per-repository uniqueness rule means each date appears at
// most once.
func (s *Store) DeleteLogsForRepository(ctx context.Context, arg DeleteLogsForRepositoryParams) ([]time.Time, error) {
	rows, err := s.db.Query(ctx, `
		DELETE FROM daily_logs WHERE repository_id = $1 AND user_id = $2
		RETURNING log_date`,
		arg.RepositoryID, arg.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

type DeleteDailyLogParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// DeleteDailyLog removes the entry and returns it, so the caller knows which
// date to recompute.
func (s *Store) DeleteDailyLog(ctx context.Context, arg DeleteDailyLogParams) (model.DailyLogEntry, error) {
	row := s.db.QueryRow(ctx, `
		DELETE FROM daily_logs WHERE id = $1 AND user_id = $2
		RETURNING `+dailyLogColumns,
		arg.ID, arg.UserID)
	return scanDailyLog(row)
}

func scanDailyLog(row pgx.Row) (model.DailyLogEntry, error) {
	var e model.DailyLogEntry
	err := row.Scan(&e.ID, &e.UserID, &e.RepositoryID, &e.LogDate, &e.Content,
		&e.HoursWorked, &e.Mood, &e.DBCreatedAt, &e.DBUpdatedAt)
	return e, err
}
