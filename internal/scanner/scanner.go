// internal/scanner/scanner.go
package scanner

import (
	"path"
	"strings"

	"devtrack/internal/model"
)

// extensionLanguages is the fixed extension lookup table. Unknown extensions
// are ignored, not counted and not errors.
var extensionLanguages = map[string]string{
	".go":     "Go",
	".js":     "JavaScript",
	".jsx":    "JavaScript",
	".mjs":    "JavaScript",
	".ts":     "TypeScript",
	".tsx":    "TypeScript",
	".py":     "Python",
	".rb":     "Ruby",
	".java":   "Java",
	".kt":     "Kotlin",
	".swift":  "Swift",
	".c":      "C",
	".h":      "C",
	".cpp":    "C++",
	".cc":     "C++",
	".hpp":    "C++",
	".cs":     "C#",
	".php":    "PHP",
	".rs":     "Rust",
	".scala":  "Scala",
	".dart":   "Dart",
	".lua":    "Lua",
	".r":      "R",
	".ex":     "Elixir",
	".exs":    "Elixir",
	".erl":    "Erlang",
	".hs":     "Haskell",
	".clj":    "Clojure",
	".html":   "HTML",
	".css":    "CSS",
	".scss":   "SCSS",
	".vue":    "Vue",
	".svelte": "Svelte",
	".sh":     "Shell",
	".sql":    "SQL",
}

// dependencyManifests is the fixed allow-list of manifest filenames. Each
// occurrence counts, including duplicates in nested directories.
var dependencyManifests = map[string]bool{
	"package.json":     true,
	"yarn.lock":        true,
	"pnpm-lock.yaml":   true,
	"go.mod":           true,
	"requirements.txt": true,
	"Pipfile":          true,
	"pyproject.toml":   true,
	"Cargo.toml":       true,
	"pom.xml":          true,
	"build.gradle":     true,
	"composer.json":    true,
	"Gemfile":          true,
	"mix.exs":          true,
}

// frameworkMarkers maps lowercase path substrings to framework names.
var frameworkMarkers = []struct {
	marker string
	name   string
}{
	{"next.config", "Next.js"},
	{"nuxt.config", "Nuxt"},
	{"gatsby-config", "Gatsby"},
	{"remix.config", "Remix"},
	{"angular.json", "Angular"},
	{"vue.config", "Vue"},
	{"svelte.config", "Svelte"},
	{"vite.config", "Vite"},
	{"webpack.config", "Webpack"},
	{"tailwind.config", "Tailwind CSS"},
	{"jest.config", "Jest"},
	{"tsconfig.json", "TypeScript"},
	{"docker-compose", "Docker Compose"},
	{"dockerfile", "Docker"},
	{".github/workflows", "GitHub Actions"},
	{"manage.py", "Django"},
	{"artisan", "Laravel"},
}

// rootManifestFrameworks adds generic ecosystem names whenever the named
// manifest is present at the tree root. The manifest contents are never
// parsed; this is a deliberate heuristic stub, and replacing it with real
// dependency parsing would change observable output.
var rootManifestFrameworks = map[string][]string{
	"package.json":     {"Node.js", "Express", "React"},
	"go.mod":           {"Go Modules"},
	"requirements.txt": {"Flask", "Django"},
	"Cargo.toml":       {"Cargo"},
	"pom.xml":          {"Spring"},
	"Gemfile":          {"Rails"},
	"composer.json":    {"Laravel"},
}

// configExtensions and configFilenames define what counts as a "config-like"
// file for the complexity score.
var configExtensions = map[string]bool{
	".json":       true,
	".yml":        true,
	".yaml":       true,
	".toml":       true,
	".ini":        true,
	".cfg":        true,
	".conf":       true,
	".env":        true,
	".properties": true,
}

var configFilenames = map[string]bool{
	"Dockerfile":    true,
	"Makefile":      true,
	".gitignore":    true,
	".dockerignore": true,
	".editorconfig": true,
}

// Scan derives a ScanResult from a flat file-tree listing. It is deterministic
// and total: any input, including an empty tree, produces a score in [0,100].
func Scan(nodes []model.TreeNode) model.ScanResult {
	result := model.ScanResult{
		Languages:    map[string]int{},
		Dependencies: []string{},
		Frameworks:   []string{},
	}

	configFiles := 0
	seenFrameworks := map[string]bool{}
	addFramework := func(name string) {
		if !seenFrameworks[name] {
			seenFrameworks[name] = true
			result.Frameworks = append(result.Frameworks, name)
		}
	}

	for _, node := range nodes {
		if node.Type == model.NodeDirectory {
			result.TotalDirectories++
			continue
		}
		result.TotalFiles++

		base := path.Base(node.Path)
		ext := strings.ToLower(path.Ext(base))

		if lang, ok := extensionLanguages[ext]; ok {
			result.Languages[lang]++
		}
		if dependencyManifests[base] {
			result.Dependencies = append(result.Dependencies, base)
		}
		if configExtensions[ext] || configFilenames[base] {
			configFiles++
		}

		lower := strings.ToLower(node.Path)
		for _, fm := range frameworkMarkers {
			if strings.Contains(lower, fm.marker) {
				addFramework(fm.name)
			}
		}
		if !strings.Contains(node.Path, "/") {
			for _, name := range rootManifestFrameworks[base] {
				addFramework(name)
			}
		}
	}

	result.ComplexityScore = complexityScore(
		result.TotalFiles,
		result.TotalDirectories,
		len(result.Languages),
		len(result.Dependencies),
		configFiles,
	)

	return result
}

// complexityScore sums five banded contributions and clamps to [0,100].
// The bands are fixed; an empty tree scores 5+5+5+0+3 = 18.
func complexityScore(files, dirs, languages, manifests, configFiles int) int {
	score := 0

	// File count band, 0-30.
	switch {
	case files >= 500:
		score += 30
	case files >= 250:
		score += 25
	case files >= 100:
		score += 20
	case files >= 50:
		score += 15
	case files >= 10:
		score += 10
	default:
		score += 5
	}

	// Directory count band, 0-20.
	switch {
	case dirs >= 40:
		score += 20
	case dirs >= 15:
		score += 15
	case dirs >= 5:
		score += 10
	default:
		score += 5
	}

	// Distinct language band, 0-20. Zero detected languages still scores the
	// bottom band, as if there were a single language.
	switch {
	case languages > 5:
		score += 20
	case languages > 3:
		score += 15
	case languages > 1:
		score += 10
	default:
		score += 5
	}

	// Dependency manifest band, 0-15.
	switch {
	case manifests > 5:
		score += 15
	case manifests > 2:
		score += 10
	case manifests > 0:
		score += 5
	}

	// Config-like file band, 0-15.
	switch {
	case configFiles >= 20:
		score += 15
	case configFiles >= 10:
		score += 12
	case configFiles >= 5:
		score += 8
	default:
		score += 3
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
