// internal/insights/generator.go
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"devtrack/internal/model"
)

const systemRole = "You are an experienced software engineer reviewing GitHub repositories. Answer concisely and only with what is asked."

// VibeCategories is the closed set of project archetype labels. Generated
// output outside this set is discarded in favor of the heuristic.
var VibeCategories = []string{
	"Enterprise",
	"Startup MVP",
	"Open Source Library",
	"Learning Project",
	"Experimental",
	"Personal Tool",
	"Portfolio Project",
	"Boilerplate",
}

// DifficultyCategories is the closed set of difficulty labels.
var DifficultyCategories = []string{"Beginner", "Intermediate", "Advanced", "Expert"}

// Generator produces the four repository insights. Every operation is
// LLM-first with a deterministic heuristic fallback: a failing or empty
// generation degrades output quality silently, it never fails a request.
type Generator struct {
	llm    Completer
	logger *slog.Logger
}

// NewGenerator creates a Generator. A nil Completer is valid and routes every
// operation straight to its heuristic.
func NewGenerator(llm Completer, logger *slog.Logger) *Generator {
	return &Generator{llm: llm, logger: logger}
}

// GenerateAll runs the four insight operations concurrently and joins them.
// The result is always complete: every operation absorbs its own failures,
// including a canceled context, through its local fallback, so the join
// itself cannot fail.
func (g *Generator) GenerateAll(ctx context.Context, info *model.RepositoryInfo, scan model.ScanResult) model.Insights {
	var ins model.Insights

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		ins.Summary = g.Summary(egctx, info, scan)
		return nil
	})
	eg.Go(func() error {
		ins.Vibe = g.Vibe(egctx, info, scan)
		return nil
	})
	eg.Go(func() error {
		ins.Difficulty = g.Difficulty(egctx, info, scan)
		return nil
	})
	eg.Go(func() error {
		ins.Improvements = g.Improvements(egctx, info, scan)
		return nil
	})

	_ = eg.Wait()
	return ins
}

// Summary generates a short prose summary of the repository.
func (g *Generator) Summary(ctx context.Context, info *model.RepositoryInfo, scan model.ScanResult) string {
	text, err := g.complete(ctx, summaryPrompt(info, scan), 0.4, 200)
	if err != nil {
		g.logger.Warn("Summary generation failed, using fallback", "repo", info.Name, "error", err)
		return FallbackSummary(info)
	}
	return text
}

// Vibe classifies the repository into one of VibeCategories.
func (g *Generator) Vibe(ctx context.Context, info *model.RepositoryInfo, scan model.ScanResult) string {
	text, err := g.complete(ctx, vibePrompt(info, scan), 0.3, 20)
	if err == nil {
		if label, ok := matchCategory(text, VibeCategories); ok {
			return label
		}
		err = fmt.Errorf("generated label %q not in the vibe set", text)
	}
	g.logger.Warn("Vibe generation failed, using fallback", "repo", info.Name, "error", err)
	return FallbackVibe(scan.ComplexityScore)
}

// Difficulty classifies the repository into one of DifficultyCategories.
func (g *Generator) Difficulty(ctx context.Context, info *model.RepositoryInfo, scan model.ScanResult) string {
	text, err := g.complete(ctx, difficultyPrompt(info, scan), 0.2, 10)
	if err == nil {
		if label, ok := matchCategory(text, DifficultyCategories); ok {
			return label
		}
		err = fmt.Errorf("generated label %q not in the difficulty set", text)
	}
	g.logger.Warn("Difficulty generation failed, using fallback", "repo", info.Name, "error", err)
	return FallbackDifficulty(scan.ComplexityScore)
}

// improvementItem is the structured shape the improvements prompt asks for.
type improvementItem struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Improvements generates a list of improvement suggestions, each formatted as
// one "[category] title: description" display line.
func (g *Generator) Improvements(ctx context.Context, info *model.RepositoryInfo, scan model.ScanResult) []string {
	text, err := g.complete(ctx, improvementsPrompt(info, scan), 0.5, 400)
	if err == nil {
		if lines, parseErr := parseImprovements(text); parseErr == nil {
			return lines
		} else {
			err = parseErr
		}
	}
	g.logger.Warn("Improvements generation failed, using fallback", "repo", info.Name, "error", err)
	return FallbackImprovements()
}

// complete funnels every operation through the shared failure policy: no
// completer, transport errors, and empty output all count as failure.
func (g *Generator) complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	if g.llm == nil {
		return "", fmt.Errorf("no text-generation service configured")
	}
	text, err := g.llm.Complete(ctx, systemRole, prompt, temperature, maxTokens)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

// parseImprovements decodes the structured suggestion list, tolerating a
// surrounding markdown code fence, and formats the display lines.
func parseImprovements(text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var items []improvementItem
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, fmt.Errorf("malformed improvement list: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("empty improvement list")
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item.Category == "" || item.Title == "" {
			return nil, fmt.Errorf("improvement item missing category or title")
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", item.Category, item.Title, item.Description))
	}
	return lines, nil
}

// matchCategory matches generated text against a closed label set, ignoring
// case and surrounding punctuation.
func matchCategory(text string, categories []string) (string, bool) {
	cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(text), `."'`))
	for _, c := range categories {
		if cleaned == strings.ToLower(c) {
			return c, true
		}
	}
	return "", false
}

// FallbackSummary builds the template sentence used when generation fails.
func FallbackSummary(info *model.RepositoryInfo) string {
	lang := "multi-language"
	if info.Language != nil && *info.Language != "" {
		lang = *info.Language
	}
	summary := fmt.Sprintf("%s is a %s repository with %d stars and %d forks.", info.Name, lang, info.StarsCount, info.ForksCount)
	if info.Description != nil && *info.Description != "" {
		summary += " " + *info.Description
	}
	return summary
}

// FallbackVibe is the score-banded vibe lookup.
func FallbackVibe(score int) string {
	switch {
	case score < 30:
		return "Learning Project"
	case score < 50:
		return "Personal Tool"
	case score < 70:
		return "Open Source Library"
	default:
		return "Enterprise"
	}
}

// FallbackDifficulty is the score-banded difficulty lookup.
func FallbackDifficulty(score int) string {
	switch {
	case score < 25:
		return "Beginner"
	case score < 50:
		return "Intermediate"
	case score < 75:
		return "Advanced"
	default:
		return "Expert"
	}
}

// FallbackImprovements is the fixed suggestion list used when generation fails.
func FallbackImprovements() []string {
	return []string{
		"[Documentation] Expand the README: Document setup steps, usage examples, and contribution guidelines.",
		"[Testing] Increase test coverage: Add unit tests around the core logic and run them in CI.",
		"[Tooling] Add continuous integration: Build and test the project automatically on every push.",
	}
}

func summaryPrompt(info *model.RepositoryInfo, scan model.ScanResult) string {
	var b strings.Builder
	b.WriteString("Summarize this GitHub repository in two to three sentences for a developer audience.\n\n")
	writeRepoFacts(&b, info, scan)
	return b.String()
}

func vibePrompt(info *model.RepositoryInfo, scan model.ScanResult) string {
	var b strings.Builder
	b.WriteString("Classify this repository as exactly one of the following labels, answering with the label only: ")
	b.WriteString(strings.Join(VibeCategories, ", "))
	b.WriteString(".\n\n")
	writeRepoFacts(&b, info, scan)
	return b.String()
}

func difficultyPrompt(info *model.RepositoryInfo, scan model.ScanResult) string {
	var b strings.Builder
	b.WriteString("Rate how difficult this repository is for a new contributor as exactly one of: ")
	b.WriteString(strings.Join(DifficultyCategories, ", "))
	b.WriteString(". Answer with the label only.\n\n")
	writeRepoFacts(&b, info, scan)
	return b.String()
}

func improvementsPrompt(info *model.RepositoryInfo, scan model.ScanResult) string {
	var b strings.Builder
	b.WriteString("Suggest three concrete improvements for this repository. ")
	b.WriteString(`Respond with a JSON array of objects, each {"category", "title", "description"}, and nothing else.`)
	b.WriteString("\n\n")
	writeRepoFacts(&b, info, scan)
	return b.String()
}

// writeRepoFacts renders the shared, deterministic fact block every prompt
// ends with. Languages are sorted so the same input yields the same prompt.
func writeRepoFacts(b *strings.Builder, info *model.RepositoryInfo, scan model.ScanResult) {
	fmt.Fprintf(b, "Repository: %s\n", info.Name)
	if info.Description != nil && *info.Description != "" {
		fmt.Fprintf(b, "Description: %s\n", *info.Description)
	}
	if info.Language != nil && *info.Language != "" {
		fmt.Fprintf(b, "Primary language: %s\n", *info.Language)
	}
	fmt.Fprintf(b, "Stars: %d, Forks: %d\n", info.StarsCount, info.ForksCount)
	fmt.Fprintf(b, "Files: %d, Directories: %d\n", scan.TotalFiles, scan.TotalDirectories)
	fmt.Fprintf(b, "Complexity score: %d/100\n", scan.ComplexityScore)

	if len(scan.Languages) > 0 {
		langs := make([]string, 0, len(scan.Languages))
		for lang, count := range scan.Languages {
			langs = append(langs, fmt.Sprintf("%s (%d files)", lang, count))
		}
		sort.Strings(langs)
		fmt.Fprintf(b, "Languages: %s\n", strings.Join(langs, ", "))
	}
	if len(scan.Frameworks) > 0 {
		fmt.Fprintf(b, "Frameworks and tools: %s\n", strings.Join(scan.Frameworks, ", "))
	}
	if len(scan.Dependencies) > 0 {
		fmt.Fprintf(b, "Dependency manifests: %s\n", strings.Join(scan.Dependencies, ", "))
	}
}
