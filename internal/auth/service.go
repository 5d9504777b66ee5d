// internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"devtrack/internal/apperrors"
	"devtrack/internal/database"
	"devtrack/internal/model"
)

// ProfileStore is the slice of the datastore the auth service needs.
type ProfileStore interface {
	CreateUserProfile(ctx context.Context, arg database.CreateUserProfileParams) (model.UserProfile, error)
	GetUserProfile(ctx context.Context, id uuid.UUID) (model.UserProfile, error)
	UpdateUserProfile(ctx context.Context, arg database.UpdateUserProfileParams) (model.UserProfile, error)
}

// IdentityProvider abstracts the external identity service.
type IdentityProvider interface {
	Signup(ctx context.Context, email, password string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, id uuid.UUID) (*ProviderUser, error)
}

// Account merges the provider's identity record with the local profile shadow.
type Account struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName"`
	AvatarURL   *string   `json:"avatarUrl"`
}

// Service delegates credential handling to the identity provider and keeps a
// local profile shadow per user.
type Service struct {
	provider IdentityProvider
	store    ProfileStore
	logger   *slog.Logger
}

func NewService(provider IdentityProvider, store ProfileStore, logger *slog.Logger) *Service {
	return &Service{provider: provider, store: store, logger: logger}
}

// Register creates an identity at the provider and the matching profile
// shadow, returning the initial session.
func (s *Service) Register(ctx context.Context, email, password string, displayName *string) (*Session, error) {
	session, err := s.provider.Signup(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperrors.NewConflict("An account with this email already exists")
		}
		return nil, apperrors.NewUpstream("Registration is temporarily unavailable", err)
	}

	_, err = s.store.CreateUserProfile(ctx, database.CreateUserProfileParams{
		ID:          session.User.ID,
		DisplayName: displayName,
	})
	if err != nil && !database.IsUniqueViolation(err) {
		// The identity exists but the shadow does not; surface the failure so
		// the client retries rather than living with a half-created account.
		return nil, err
	}

	s.logger.Info("User registered", "user_id", session.User.ID)
	return session, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	session, err := s.provider.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, apperrors.NewUnauthorized("Invalid email or password")
		}
		return nil, apperrors.NewUpstream("Login is temporarily unavailable", err)
	}
	return session, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	session, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, apperrors.NewUnauthorized("Invalid or expired refresh token")
		}
		return nil, apperrors.NewUpstream("Token refresh is temporarily unavailable", err)
	}
	return session, nil
}

func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if err := s.provider.Logout(ctx, accessToken); err != nil {
		// Revocation is best effort; the access token still expires on its own.
		s.logger.Warn("Provider logout failed", "error", err)
	}
	return nil
}

// Me returns the merged account view for the authenticated caller.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*Account, error) {
	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, apperrors.NewNotFound("Account not found")
		}
		return nil, err
	}

	account := &Account{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	}

	user, err := s.provider.GetUser(ctx, userID)
	if err != nil {
		// The profile is authoritative for everything except email; serve it
		// without the email rather than failing the whole request.
		s.logger.Warn("Identity lookup failed", "user_id", userID, "error", err)
		return account, nil
	}
	account.Email = user.Email
	return account, nil
}

// UpdateProfile edits the local profile shadow.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarURL *string) (model.UserProfile, error) {
	profile, err := s.store.UpdateUserProfile(ctx, database.UpdateUserProfileParams{
		ID:          userID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	})
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return model.UserProfile{}, apperrors.NewNotFound("Account not found")
		}
		return model.UserProfile{}, err
	}
	return profile, nil
}
