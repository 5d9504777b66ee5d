// internal/auth/provider_test.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Signup(t *testing.T) {
	userID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/signup", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])

		_ = json.NewEncoder(w).Encode(Session{
			AccessToken:  "at",
			RefreshToken: "rt",
			ExpiresIn:    3600,
			User:         ProviderUser{ID: userID, Email: "ada@example.com"},
		})
	}))
	defer server.Close()

	provider := NewProvider(server.URL, "", testLogger())
	session, err := provider.Signup(context.Background(), "ada@example.com", "hunter2secret")

	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, userID, session.User.ID)
}

func TestProvider_SignupEmailTaken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
	}))
	defer server.Close()

	provider := NewProvider(server.URL, "", testLogger())
	_, err := provider.Signup(context.Background(), "ada@example.com", "hunter2secret")

	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestProvider_LoginGrantTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		switch r.URL.Query().Get("grant_type") {
		case "password":
			_ = json.NewEncoder(w).Encode(Session{AccessToken: "at"})
		case "refresh_token":
			_ = json.NewEncoder(w).Encode(Session{AccessToken: "at2"})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	provider := NewProvider(server.URL, "", testLogger())

	session, err := provider.Login(context.Background(), "ada@example.com", "hunter2secret")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)

	session, err = provider.Refresh(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, "at2", session.AccessToken)
}

func TestProvider_LoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer server.Close()

	provider := NewProvider(server.URL, "", testLogger())
	_, err := provider.Login(context.Background(), "ada@example.com", "wrong")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProvider_GetUserUsesServiceKey(t *testing.T) {
	userID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/users/"+userID.String(), r.URL.Path)
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(ProviderUser{ID: userID, Email: "ada@example.com"})
	}))
	defer server.Close()

	provider := NewProvider(server.URL, "service-key", testLogger())
	user, err := provider.GetUser(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestProvider_GetUserNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider := NewProvider(server.URL, "service-key", testLogger())
	_, err := provider.GetUser(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProvider_LogoutSendsBearer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	provider := NewProvider(server.URL, "", testLogger())
	err := provider.Logout(context.Background(), "user-access-token")

	require.NoError(t, err)
	assert.Equal(t, "Bearer user-access-token", gotAuth)
}
