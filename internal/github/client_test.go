// internal/github/client_test.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devtrack/internal/model"
)

// setupTestClient creates a httptest server and a github client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := NewClient("", logger)

	// Point the wrapped client's base URL at the test server.
	testClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	testClient.BaseURL = baseURL
	client.gh = testClient

	return client, server
}

func TestParseRepoURL(t *testing.T) {
	cases := []struct {
		in          string
		owner, name string
		wantErr     bool
	}{
		{in: "https://github.com/golang/go", owner: "golang", name: "go"},
		{in: "https://www.github.com/golang/go", owner: "golang", name: "go"},
		{in: "github.com/golang/go", owner: "golang", name: "go"},
		{in: "https://github.com/golang/go.git", owner: "golang", name: "go"},
		{in: "https://github.com/golang/go/tree/master/src", owner: "golang", name: "go"},
		{in: "https://gitlab.com/golang/go", wantErr: true},
		{in: "https://github.com/golang", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			owner, name, err := ParseRepoURL(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.owner, owner)
			assert.Equal(t, tc.name, name)
		})
	}
}

func TestClient_GetRepository_Retry(t *testing.T) {
	t.Run("succeeds on first try", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			assert.Equal(t, "/repos/test/repo", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `{"id": 1, "name": "repo", "owner": {"login": "test"}, "stargazers_count": 7, "default_branch": "main"}`)
		})
		client, _ := setupTestClient(t, handler)

		repo, err := client.GetRepository(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
		assert.Equal(t, "repo", repo.Name)
		assert.Equal(t, 7, repo.StarsCount)
	})

	t.Run("retries on 503 server error and succeeds", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(&requestCount, 1)
			if count == 1 {
				w.WriteHeader(http.StatusServiceUnavailable) // Fail first time
				return
			}
			w.WriteHeader(http.StatusOK) // Succeed second time
			fmt.Fprintln(w, `{"id": 1, "name": "repo", "owner": {"login": "test"}}`)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "test", "repo")

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount), "should have made two requests")
	})

	t.Run("404 fails immediately with typed error", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "test", "repo")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount), "4xx must not be retried")
	})

	t.Run("403 fails immediately with access denied", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintln(w, `{"message": "Must have push access"}`)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "test", "repo")

		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("rate limit 403 translates to rate limited", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", "2000000000")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "test", "repo")

		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("fails after max retries on persistent server error", func(t *testing.T) {
		var requestCount int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetRepository(context.Background(), "test", "repo")

		require.Error(t, err)
		var ghErr *github.ErrorResponse
		assert.ErrorAs(t, err, &ghErr)
		assert.Equal(t, http.StatusInternalServerError, ghErr.Response.StatusCode)
		assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&requestCount))
	})
}

func TestClient_GetTree(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/test/repo/git/trees/main", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"sha": "abc", "tree": [
			{"path": "src", "type": "tree"},
			{"path": "src/main.go", "type": "blob", "size": 240},
			{"path": "go.mod", "type": "blob", "size": 30}
		], "truncated": false}`)
	})
	client, _ := setupTestClient(t, handler)

	nodes, err := client.GetTree(context.Background(), "test", "repo", "main")

	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, model.TreeNode{Path: "src", Type: model.NodeDirectory}, nodes[0])
	assert.Equal(t, model.TreeNode{Path: "src/main.go", Type: model.NodeFile, Size: 240}, nodes[1])
}
