// internal/database/repositories.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"devtrack/internal/model"
)

const repositoryColumns = `id, user_id, url, name, description, language, stars_count, forks_count,
	complexity_score, difficulty, vibe, summary, tags, metadata, created_at, updated_at`

// CreateRepositoryParams holds a completed analysis ready to persist.
type CreateRepositoryParams struct {
	UserID          uuid.UUID
	URL             string
	Name            string
	Description     *string
	Language        *string
	StarsCount      int
	ForksCount      int
	ComplexityScore int
	Difficulty      string
	Vibe            string
	Summary         string
	Tags            []string
	Metadata        model.RepoMetadata
}

func (s *Store) CreateRepository(ctx context.Context, arg CreateRepositoryParams) (model.RepositoryRecord, error) {
	meta, err := json.Marshal(arg.Metadata)
	if err != nil {
		return model.RepositoryRecord{}, fmt.Errorf("marshal repository metadata: %w", err)
	}
	tags := arg.Tags
	if tags == nil {
		tags = []string{}
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO repositories
			(user_id, url, name, description, language, stars_count, forks_count,
			 complexity_score, difficulty, vibe, summary, tags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+repositoryColumns,
		arg.UserID, arg.URL, arg.Name, arg.Description, arg.Language,
		arg.StarsCount, arg.ForksCount, arg.ComplexityScore,
		arg.Difficulty, arg.Vibe, arg.Summary, tags, meta)
	return scanRepository(row)
}

// GetRepositoryByIDParams scopes a lookup by owner; a record owned by anyone
// else behaves as if it did not exist.
type GetRepositoryByIDParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (s *Store) GetRepositoryByID(ctx context.Context, arg GetRepositoryByIDParams) (model.RepositoryRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+repositoryColumns+` FROM repositories WHERE id = $1 AND user_id = $2`,
		arg.ID, arg.UserID)
	return scanRepository(row)
}

type GetRepositoryByUserAndURLParams struct {
	UserID uuid.UUID
	URL    string
}

func (s *Store) GetRepositoryByUserAndURL(ctx context.Context, arg GetRepositoryByUserAndURLParams) (model.RepositoryRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+repositoryColumns+` FROM repositories WHERE user_id = $1 AND url = $2`,
		arg.UserID, arg.URL)
	return scanRepository(row)
}

// ListRepositoriesParams filters the listing; nil/empty filters are skipped.
type ListRepositoriesParams struct {
	UserID     uuid.UUID
	Language   *string
	Difficulty *string
	Tags       []string
	Limit      int
	Offset     int
}

func (s *Store) ListRepositories(ctx context.Context, arg ListRepositoriesParams) ([]model.RepositoryRecord, int, error) {
	query := `SELECT ` + repositoryColumns + `, count(*) OVER() AS total
		FROM repositories WHERE user_id = $1`
	args := []any{arg.UserID}

	if arg.Language != nil {
		args = append(args, *arg.Language)
		query += fmt.Sprintf(" AND language ILIKE $%d", len(args))
	}
	if arg.Difficulty != nil {
		args = append(args, *arg.Difficulty)
		query += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	if len(arg.Tags) > 0 {
		args = append(args, arg.Tags)
		query += fmt.Sprintf(" AND tags @> $%d", len(args))
	}

	args = append(args, arg.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, arg.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	return s.queryRepositoriesWithTotal(ctx, query, args...)
}

type SearchRepositoriesParams struct {
	UserID uuid.UUID
	Query  string
	Limit  int
	Offset int
}

func (s *Store) SearchRepositories(ctx context.Context, arg SearchRepositoriesParams) ([]model.RepositoryRecord, int, error) {
	pattern := "%" + arg.Query + "%"
	query := `SELECT ` + repositoryColumns + `, count(*) OVER() AS total
		FROM repositories
		WHERE user_id = $1
		  AND (name ILIKE $2 OR description ILIKE $2 OR summary ILIKE $2 OR url ILIKE $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	return s.queryRepositoriesWithTotal(ctx, query, arg.UserID, pattern, arg.Limit, arg.Offset)
}

// UpdateRepositoryParams carries the user-editable fields; nil leaves a field
// unchanged.
type UpdateRepositoryParams struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        *string
	Description *string
	Tags        []string
}

func (s *Store) UpdateRepository(ctx context.Context, arg UpdateRepositoryParams) (model.RepositoryRecord, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE repositories
		SET name        = COALESCE($3, name),
		    description = COALESCE($4, description),
		    tags        = COALESCE($5, tags),
		    updated_at  = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+repositoryColumns,
		arg.ID, arg.UserID, arg.Name, arg.Description, arg.Tags)
	return scanRepository(row)
}

type DeleteRepositoryParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (s *Store) DeleteRepository(ctx context.Context, arg DeleteRepositoryParams) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM repositories WHERE id = $1 AND user_id = $2`, arg.ID, arg.UserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

func (s *Store) queryRepositoriesWithTotal(ctx context.Context, query string, args ...any) ([]model.RepositoryRecord, int, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []model.RepositoryRecord
	total := 0
	for rows.Next() {
		var r model.RepositoryRecord
		var meta []byte
		err := rows.Scan(&r.ID, &r.UserID, &r.URL, &r.Name, &r.Description, &r.Language,
			&r.StarsCount, &r.ForksCount, &r.ComplexityScore, &r.Difficulty, &r.Vibe,
			&r.Summary, &r.Tags, &meta, &r.DBCreatedAt, &r.DBUpdatedAt, &total)
		if err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(meta, &r.Metadata); err != nil {
			return nil, 0, fmt.Errorf("unmarshal repository metadata: %w", err)
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

func scanRepository(row pgx.Row) (model.RepositoryRecord, error) {
	var r model.RepositoryRecord
	var meta []byte
	err := row.Scan(&r.ID, &r.UserID, &r.URL, &r.Name, &r.Description, &r.Language,
		&r.StarsCount, &r.ForksCount, &r.ComplexityScore, &r.Difficulty, &r.Vibe,
		&r.Summary, &r.Tags, &meta, &r.DBCreatedAt, &r.DBUpdatedAt)
	if err != nil {
		return model.RepositoryRecord{}, err
	}
	if err := json.Unmarshal(meta, &r.Metadata); err != nil {
		return model.RepositoryRecord{}, fmt.Errorf("unmarshal repository metadata: %w", err)
	}
	return r, nil
}
