// internal/database/users.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"devtrack/internal/model"
)

const userProfileColumns = `id, display_name, avatar_url, created_at, updated_at`

// CreateUserProfileParams shadows the identity provider's user record.
type CreateUserProfileParams struct {
	ID          uuid.UUID
	DisplayName *string
	AvatarURL   *string
}

func (s *Store) CreateUserProfile(ctx context.Context, arg CreateUserProfileParams) (model.UserProfile, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO user_profiles (id, display_name, avatar_url)
		VALUES ($1, $2, $3)
		RETURNING `+userProfileColumns,
		arg.ID, arg.DisplayName, arg.AvatarURL)
	return scanUserProfile(row)
}

func (s *Store) GetUserProfile(ctx context.Context, id uuid.UUID) (model.UserProfile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+userProfileColumns+` FROM user_profiles WHERE id = $1`, id)
	return scanUserProfile(row)
}

// UpdateUserProfileParams carries the editable profile fields; nil leaves a
// field unchanged.
type UpdateUserProfileParams struct {
	ID          uuid.UUID
	DisplayName *string
	AvatarURL   *string
}

func (s *Store) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (model.UserProfile, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE user_profiles
		SET display_name = COALESCE($2, display_name),
		    avatar_url   = COALESCE($3, avatar_url),
		    updated_at   = now()
		WHERE id = $1
		RETURNING `+userProfileColumns,
		arg.ID, arg.DisplayName, arg.AvatarURL)
	return scanUserProfile(row)
}

func scanUserProfile(row pgx.Row) (model.UserProfile, error) {
	var p model.UserProfile
	err := row.Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.DBCreatedAt, &p.DBUpdatedAt)
	return p, err
}
