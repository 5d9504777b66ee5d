// internal/logs/service.go
package logs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"devtrack/internal/apperrors"
	"devtrack/internal/database"
	"devtrack/internal/model"
)

// Querier is the slice of the datastore the log manager needs. It includes
// the aggregate upsert because every log mutation ends with a recompute.
type Querier interface {
	CreateDailyLog(ctx context.Context, arg database.CreateDailyLogParams) (model.DailyLogEntry, error)
	GetDailyLogByID(ctx context.Context, arg database.GetDailyLogByIDParams) (model.DailyLogEntry, error)
	ListDailyLogs(ctx context.Context, arg database.ListDailyLogsParams) ([]model.DailyLogEntry, error)
	UpdateDailyLog(ctx context.Context, arg database.UpdateDailyLogParams) (model.DailyLogEntry, error)
	DeleteDailyLog(ctx context.Context, arg database.DeleteDailyLogParams) (model.DailyLogEntry, error)
	GetRepositoryByID(ctx context.Context, arg database.GetRepositoryByIDParams) (model.RepositoryRecord, error)
	UpsertActivityAggregate(ctx context.Context, agg model.ActivityAggregate) error
}

// Service owns daily log CRUD and keeps the per-day aggregates in sync by
// recomputing them after every mutation.
type Service struct {
	db     Querier
	logger *slog.Logger
}

func NewService(db Querier, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// CreateParams describes a new log entry. Validation of hours and content
// happens at the API boundary.
type CreateParams struct {
	RepositoryID *uuid.UUID
	LogDate      time.Time
	Content      string
	HoursWorked  float64
	Mood         *string
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*model.DailyLogEntry, error) {
	date := model.Day(params.LogDate)

	if params.RepositoryID != nil {
		_, err := s.db.GetRepositoryByID(ctx, database.GetRepositoryByIDParams{ID: *params.RepositoryID, UserID: userID})
		if err != nil {
			if errors.Is(err, database.ErrNoRows) {
				return nil, apperrors.NewNotFound("Repository not found")
			}
			return nil, err
		}
	}

	entry, err := s.db.CreateDailyLog(ctx, database.CreateDailyLogParams{
		UserID:       userID,
		RepositoryID: params.RepositoryID,
		LogDate:      date,
		Content:      params.Content,
		HoursWorked:  params.HoursWorked,
		Mood:         params.Mood,
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("A log entry for this date already exists")
		}
		return nil, err
	}

	if err := s.recompute(ctx, userID, date); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*model.DailyLogEntry, error) {
	entry, err := s.db.GetDailyLogByID(ctx, database.GetDailyLogByIDParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, apperrors.NewNotFound("Log entry not found")
		}
		return nil, err
	}
	return &entry, nil
}

// ListParams selects log entries. Precedence: Date, then RepositoryID with an
// optional range, then a bare range; with no filter the trailing 30 days are
// returned.
type ListParams struct {
	Date         *time.Time
	RepositoryID *uuid.UUID
	From         *time.Time
	To           *time.Time
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, params ListParams) ([]model.DailyLogEntry, error) {
	arg := database.ListDailyLogsParams{UserID: userID, RepositoryID: params.RepositoryID}

	switch {
	case params.Date != nil:
		date := model.Day(*params.Date)
		arg.Date = &date
		arg.RepositoryID = nil
	case params.From != nil || params.To != nil:
		if params.From != nil {
			from := model.Day(*params.From)
			arg.From = &from
		}
		if params.To != nil {
			to := model.Day(*params.To)
			arg.To = &to
		}
	case params.RepositoryID == nil:
		// Default window.
		to := model.Day(time.Now())
		from := to.AddDate(0, 0, -29)
		arg.From, arg.To = &from, &to
	}

	entries, err := s.db.ListDailyLogs(ctx, arg)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.DailyLogEntry{}
	}
	return entries, nil
}

// UpdateParams carries the editable log fields; nil leaves a field unchanged.
type UpdateParams struct {
	Content     *string
	HoursWorked *float64
	Mood        *string
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, params UpdateParams) (*model.DailyLogEntry, error) {
	entry, err := s.db.UpdateDailyLog(ctx, database.UpdateDailyLogParams{
		ID:          id,
		UserID:      userID,
		Content:     params.Content,
		HoursWorked: params.HoursWorked,
		Mood:        params.Mood,
	})
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, apperrors.NewNotFound("Log entry not found")
		}
		return nil, err
	}

	if err := s.recompute(ctx, userID, model.Day(entry.LogDate)); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	entry, err := s.db.DeleteDailyLog(ctx, database.DeleteDailyLogParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return apperrors.NewNotFound("Log entry not found")
		}
		return err
	}
	return s.recompute(ctx, userID, model.Day(entry.LogDate))
}

// recompute rebuilds the aggregate for (user, date) from that day's current
// rows. Always a full recompute, never an increment, so repeated mutation
// cycles cannot drift.
func (s *Service) recompute(ctx context.Context, userID uuid.UUID, date time.Time) error {
	entries, err := s.db.ListDailyLogs(ctx, database.ListDailyLogsParams{UserID: userID, Date: &date})
	if err != nil {
		return err
	}
	agg := Aggregate(userID, date, entries)
	if err := s.db.UpsertActivityAggregate(ctx, agg); err != nil {
		return err
	}
	s.logger.Debug("Recomputed activity aggregate",
		"user_id", userID, "date", date.Format("2006-01-02"),
		"log_count", agg.LogCount, "hours", agg.HoursTotal)
	return nil
}

// Aggregate is the pure recompute function: the aggregate for a date is
// exactly the count and hour sum of that date's entries.
func Aggregate(userID uuid.UUID, date time.Time, entries []model.DailyLogEntry) model.ActivityAggregate {
	agg := model.ActivityAggregate{UserID: userID, Date: date}
	for _, e := range entries {
		agg.LogCount++
		agg.HoursTotal += e.HoursWorked
	}
	agg.IsActive = agg.LogCount > 0
	return agg
}
