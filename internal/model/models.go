// internal/model/models.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is a 1:1 shadow of the identity provider's user record,
// created automatically on signup.
type UserProfile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName *string   `json:"displayName"`
	AvatarURL   *string   `json:"avatarUrl"`
	DBCreatedAt time.Time `json:"createdAt"`
	DBUpdatedAt time.Time `json:"updatedAt"`
}

// RepositoryRecord is a persisted analysis of a GitHub repository.
// At most one record exists per (user, source URL).
type RepositoryRecord struct {
	ID              uuid.UUID    `json:"id"`
	UserID          uuid.UUID    `json:"userId"`
	URL             string       `json:"url"`
	Name            string       `json:"name"`
	Description     *string      `json:"description"`
	Language        *string      `json:"language"`
	StarsCount      int          `json:"starsCount"`
	ForksCount      int          `json:"forksCount"`
	ComplexityScore int          `json:"complexityScore"`
	Difficulty      string       `json:"difficulty"`
	Vibe            string       `json:"vibe"`
	Summary         string       `json:"summary"`
	Tags            []string     `json:"tags"`
	Metadata        RepoMetadata `json:"metadata"`
	DBCreatedAt     time.Time    `json:"createdAt"`
	DBUpdatedAt     time.Time    `json:"updatedAt"`
}

// RepoMetadata is the structured analysis blob stored alongside a repository
// record (jsonb column).
type RepoMetadata struct {
	TotalFiles       int            `json:"totalFiles"`
	TotalDirectories int            `json:"totalDirectories"`
	Languages        map[string]int `json:"languages"`
	Dependencies     []string       `json:"dependencies"`
	Frameworks       []string       `json:"frameworks"`
	Improvements     []string       `json:"improvements"`
}

// RepositoryInfo is the metadata fetched from the remote provider before any
// analysis has happened.
type RepositoryInfo struct {
	Owner         string
	Name          string
	URL           string
	Description   *string
	Language      *string
	StarsCount    int
	ForksCount    int
	DefaultBranch string
}

// TreeNode is one entry of a repository file tree.
type TreeNode struct {
	Path string
	Type NodeType
	Size int64
}

// NodeType distinguishes files from directories in a tree listing.
type NodeType string

const (
	NodeFile      NodeType = "file"
	NodeDirectory NodeType = "directory"
)

// ScanResult is the output of the codebase scanner. It is a pure function of
// the input tree: same tree, same result.
type ScanResult struct {
	TotalFiles       int            `json:"totalFiles"`
	TotalDirectories int            `json:"totalDirectories"`
	Languages        map[string]int `json:"languages"`
	Dependencies     []string       `json:"dependencies"`
	Frameworks       []string       `json:"frameworks"`
	ComplexityScore  int            `json:"complexityScore"`
}

// Insights holds the four generated texts for a repository.
type Insights struct {
	Summary      string
	Vibe         string
	Difficulty   string
	Improvements []string
}

// DailyLogEntry is one unit of logged work. A user may have at most one entry
// per (repository-or-absent, date).
type DailyLogEntry struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"userId"`
	RepositoryID *uuid.UUID `json:"repoId"`
	LogDate      time.Time  `json:"logDate"`
	Content      string     `json:"content"`
	HoursWorked  float64    `json:"hoursWorked"`
	Mood         *string    `json:"mood"`
	DBCreatedAt  time.Time  `json:"createdAt"`
	DBUpdatedAt  time.Time  `json:"updatedAt"`
}

// ActivityAggregate is the derived per-user, per-date activity record. It is
// always recomputed from that day's log rows, never patched incrementally.
type ActivityAggregate struct {
	UserID     uuid.UUID `json:"userId"`
	Date       time.Time `json:"date"`
	LogCount   int       `json:"logCount"`
	HoursTotal float64   `json:"hoursTotal"`
	IsActive   bool      `json:"isActive"`
}

// CalendarDay is one day of the monthly activity calendar. Days without an
// aggregate row are zero-filled.
type CalendarDay struct {
	Date     time.Time `json:"date"`
	LogCount int       `json:"logCount"`
	Hours    float64   `json:"hours"`
	IsActive bool      `json:"isActive"`
}

// StreakInfo is the computed streak state for a user.
type StreakInfo struct {
	Current    int        `json:"current"`
	Longest    int        `json:"longest"`
	LastActive *time.Time `json:"lastActive"`
}

// ProductivityMetrics summarizes activity over a trailing period.
type ProductivityMetrics struct {
	Period        string    `json:"period"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	TotalLogs     int       `json:"totalLogs"`
	TotalHours    float64   `json:"totalHours"`
	ActiveDays    int       `json:"activeDays"`
	DistinctRepos int       `json:"distinctRepos"`
}

// Day truncates t to midnight UTC. All calendar arithmetic in the service
// operates on these normalized values.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
