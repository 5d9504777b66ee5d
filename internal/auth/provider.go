// internal/auth/provider.go
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Typed provider failures the service layer cares about.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("identity user not found")
)

// ProviderUser is the identity provider's view of a user.
type ProviderUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Session is an issued token pair.
type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         ProviderUser `json:"user"`
}

// Provider is an HTTP client for the external identity service. All
// credential handling lives there; this client only relays requests.
type Provider struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProvider creates a client for the identity service at baseURL. The
// service key authorizes admin lookups only.
func NewProvider(baseURL, serviceKey string, logger *slog.Logger) *Provider {
	return &Provider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Signup registers a new identity and returns its first session.
func (p *Provider) Signup(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := p.post(ctx, "/signup", map[string]string{"email": email, "password": password}, "", &session)
	if err != nil {
		var pe *providerError
		if errors.As(err, &pe) && (pe.status == http.StatusConflict || pe.status == http.StatusUnprocessableEntity) {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		return nil, err
	}
	return &session, nil
}

// Login exchanges a password for a session.
func (p *Provider) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := p.post(ctx, "/token?grant_type=password", map[string]string{"email": email, "password": password}, "", &session)
	if err != nil {
		var pe *providerError
		if errors.As(err, &pe) && (pe.status == http.StatusBadRequest || pe.status == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return &session, nil
}

// Refresh exchanges a refresh token for a fresh session.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var session Session
	err := p.post(ctx, "/token?grant_type=refresh_token", map[string]string{"refresh_token": refreshToken}, "", &session)
	if err != nil {
		var pe *providerError
		if errors.As(err, &pe) && (pe.status == http.StatusBadRequest || pe.status == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return &session, nil
}

// Logout revokes the session behind the given access token. Best effort: the
// provider treats an already-dead token as success.
func (p *Provider) Logout(ctx context.Context, accessToken string) error {
	return p.post(ctx, "/logout", struct{}{}, accessToken, nil)
}

// GetUser performs an admin lookup of an identity record by ID.
func (p *Provider) GetUser(ctx context.Context, id uuid.UUID) (*ProviderUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/admin/users/"+id.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)

	var user ProviderUser
	if err := p.do(req, &user); err != nil {
		var pe *providerError
		if errors.As(err, &pe) && pe.status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}

// providerError is a non-2xx answer from the identity service.
type providerError struct {
	status  int
	message string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.status, e.message)
}

func (p *Provider) post(ctx context.Context, path string, body any, bearer string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return p.do(req, out)
}

func (p *Provider) do(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error   string `json:"error"`
			Message string `json:"msg"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &body)
		message := body.Message
		if message == "" {
			message = body.Error
		}
		return &providerError{status: resp.StatusCode, message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode identity provider response: %w", err)
	}
	return nil
}
