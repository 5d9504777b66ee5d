// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"devtrack/internal/model"
)

const (
	// maxRetries bounds the attempts for transient failures.
	maxRetries = 3
	// initialBackoff is doubled after each failed attempt.
	initialBackoff = 500 * time.Millisecond
	// requestTimeout applies to every provider call.
	requestTimeout = 15 * time.Second
)

// Typed provider failures. 404/403/429 fail immediately and abort the
// analysis pipeline; only transient server errors are retried.
var (
	ErrNotFound     = errors.New("repository not found")
	ErrAccessDenied = errors.New("repository access denied")
	ErrRateLimited  = errors.New("github rate limit exceeded")
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance. An empty token
// yields an unauthenticated client with GitHub's lower anonymous limits.
func NewClient(token string, logger *slog.Logger) *Client {
	httpClient := &http.Client{Timeout: requestTimeout}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = requestTimeout
	}

	return &Client{
		gh:     github.NewClient(httpClient),
		logger: logger,
	}
}

// ParseRepoURL extracts owner and name from a GitHub repository URL.
func ParseRepoURL(raw string) (owner, name string, err error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", fmt.Errorf("repository URL is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("invalid repository URL %q", raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "github.com" {
		return "", "", fmt.Errorf("unsupported repository host %q, expected github.com", u.Host)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository URL %q, expected github.com/owner/name", raw)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// CanonicalURL is the normalized form used as the cache and uniqueness key.
func CanonicalURL(owner, name string) string {
	return fmt.Sprintf("https://github.com/%s/%s", owner, name)
}

// GetRepository fetches repository metadata and translates it to our internal model.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*model.RepositoryInfo, error) {
	var repo *github.Repository
	err := c.withRetry(ctx, "get repository", func() error {
		var err error
		repo, _, err = c.gh.Repositories.Get(ctx, owner, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toInternalRepository(repo), nil
}

// GetTree fetches the full recursive file tree at the given ref. GitHub may
// truncate very large trees; a truncated listing is still scanned as-is.
func (c *Client) GetTree(ctx context.Context, owner, name, ref string) ([]model.TreeNode, error) {
	var tree *github.Tree
	err := c.withRetry(ctx, "get tree", func() error {
		var err error
		tree, _, err = c.gh.Git.GetTree(ctx, owner, name, ref, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	nodes := make([]model.TreeNode, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		nodeType := model.NodeFile
		if entry.GetType() == "tree" {
			nodeType = model.NodeDirectory
		}
		nodes = append(nodes, model.TreeNode{
			Path: entry.GetPath(),
			Type: nodeType,
			Size: int64(entry.GetSize()),
		})
	}

	if tree.GetTruncated() {
		c.logger.Warn("Repository tree truncated by provider", "owner", owner, "repo", name, "entries", len(nodes))
	}
	return nodes, nil
}

// withRetry runs fn with bounded exponential backoff. Only transient failures
// are retried; 404/403/429 are translated to their typed errors and returned
// immediately.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := initialBackoff
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return translateError(err)
		}
		if attempt < maxRetries {
			c.logger.Warn("Transient provider failure, retrying",
				"op", op, "attempt", attempt, "delay", delay.String(), "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return translateError(err)
}

// isTransient reports whether err is worth retrying: server-side 5xx or a
// transport-level failure. Anything with a definite 4xx answer is not.
func isTransient(err error) bool {
	var rle *github.RateLimitError
	var arle *github.AbuseRateLimitError
	if errors.As(err, &rle) || errors.As(err, &arle) {
		return false
	}
	var ghe *github.ErrorResponse
	if errors.As(err, &ghe) {
		return ghe.Response != nil && ghe.Response.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Network-level failure with no HTTP response.
	return true
}

func translateError(err error) error {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return fmt.Errorf("%w: resets at %s", ErrRateLimited, rle.Rate.Reset.Time.Format(time.RFC3339))
	}
	var arle *github.AbuseRateLimitError
	if errors.As(err, &arle) {
		return fmt.Errorf("%w: secondary limit", ErrRateLimited)
	}
	var ghe *github.ErrorResponse
	if errors.As(err, &ghe) && ghe.Response != nil {
		switch ghe.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, ghe.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAccessDenied, ghe.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, ghe.Message)
		}
	}
	return err
}

// toInternalRepository translates a github.Repository object to our internal model.
func toInternalRepository(r *github.Repository) *model.RepositoryInfo {
	branch := r.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}
	return &model.RepositoryInfo{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		URL:           r.GetHTMLURL(),
		Description:   r.Description,
		Language:      r.Language,
		StarsCount:    r.GetStargazersCount(),
		ForksCount:    r.GetForksCount(),
		DefaultBranch: branch,
	}
}
