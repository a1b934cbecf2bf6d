package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// Language is the closed set of checkers. LangUnsupported stands for any
// language without one; Resolution carries its name.
type Language int

const (
	LangUnsupported Language = iota
	LangTypeScript
	LangPython
	LangJava
	LangGo
)

// Supported lists every language with a checker, in tie-break order.
var Supported = []Language{LangTypeScript, LangPython, LangJava, LangGo}

func (l Language) String() string {
	switch l {
	case LangTypeScript:
		return "typescript"
	case LangPython:
		return "python"
	case LangJava:
		return "java"
	case LangGo:
		return "go"
	default:
		return "unsupported"
	}
}

// Profile returns the pattern table for l, or nil for LangUnsupported.
func (l Language) Profile() *Profile {
	switch l {
	case LangTypeScript:
		return typescriptProfile
	case LangPython:
		return pythonProfile
	case LangJava:
		return javaProfile
	case LangGo:
		return goProfile
	default:
		return nil
	}
}

var languageAliases = map[string]Language{
	"ts":         LangTypeScript,
	"typescript": LangTypeScript,
	"js":         LangTypeScript,
	"javascript": LangTypeScript,
	"node":       LangTypeScript,
	"nodejs":     LangTypeScript,
	"py":         LangPython,
	"python":     LangPython,
	"java":       LangJava,
	"go":         LangGo,
	"golang":     LangGo,
}

// ParseLanguage maps a user or manifest supplied name to a Language. The
// second result is false when no checker exists for the name.
func ParseLanguage(name string) (Language, bool) {
	l, ok := languageAliases[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

// alternatives suggests a native tool for languages without a checker.
var alternatives = map[string]string{
	"ruby":   "brakeman or rubocop",
	"php":    "phpstan",
	"rust":   "cargo clippy",
	"csharp": "dotnet format with the Roslyn analyzers",
	"kotlin": "detekt",
	"swift":  "swiftlint",
}

// censusExtensions maps extensions to language names, supported or not.
var censusExtensions = map[string]string{
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "typescript",
	".jsx":   "typescript",
	".mjs":   "typescript",
	".cjs":   "typescript",
	".py":    "python",
	".java":  "java",
	".go":    "go",
	".rb":    "ruby",
	".php":   "php",
	".rs":    "rust",
	".cs":    "csharp",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".swift": "swift",
}

// censusOrder breaks plurality ties: languages with a checker win.
var censusOrder = []string{
	"typescript", "python", "java", "go",
	"csharp", "kotlin", "php", "ruby", "rust", "swift",
}

// Resolution is the outcome of language dispatch.
type Resolution struct {
	Language Language
	Name     string // detected name, set for unsupported languages too
	Source   string // flag, manifest, census, extension
}

// Supported reports whether a checker exists for the resolution.
func (r Resolution) Supported() bool {
	return r.Language != LangUnsupported
}

func (r Resolution) String() string {
	if r.Supported() {
		return r.Language.String()
	}
	if r.Name == "" {
		return "unknown"
	}
	return r.Name
}

// Guidance explains an unsupported resolution and names an alternative tool.
func (r Resolution) Guidance() string {
	if r.Supported() {
		return ""
	}
	if r.Name == "" {
		return "no source files in a known language were found; nothing to review"
	}
	alt, ok := alternatives[r.Name]
	if !ok {
		alt = "the language's own vet or lint tool"
	}
	return fmt.Sprintf("no checker for %s; try %s", r.Name, alt)
}

func resolveName(name, source string) Resolution {
	if l, ok := ParseLanguage(name); ok {
		return Resolution{Language: l, Name: l.String(), Source: source}
	}
	return Resolution{Language: LangUnsupported, Name: strings.ToLower(strings.TrimSpace(name)), Source: source}
}

// ResolveLanguage picks one checker: the explicit override first, then the
// manifest's declared language, then the plurality of a file extension
// census under root.
func ResolveLanguage(root, override, declared string, ex *Excluder) Resolution {
	if override != "" {
		return resolveName(override, "flag")
	}
	if declared != "" {
		return resolveName(declared, "manifest")
	}
	counts := Census(root, ex)
	best, bestN := "", 0
	for _, name := range censusOrder {
		if n := counts[name]; n > bestN {
			best, bestN = name, n
		}
	}
	slog.Debug("language census", "counts", counts, "picked", best)
	if best == "" {
		return Resolution{Language: LangUnsupported, Source: "census"}
	}
	return resolveName(best, "census")
}

// Census counts non-excluded source files per language name under root.
func Census(root string, ex *Excluder) map[string]int {
	counts := make(map[string]int)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if ex.Dir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if ex.File(rel) {
			return nil
		}
		if name, ok := censusExtensions[strings.ToLower(filepath.Ext(rel))]; ok {
			counts[name]++
		}
		return nil
	})
	return counts
}

// LanguageForFile resolves a single file by its extension.
func LanguageForFile(path string) Resolution {
	name, ok := censusExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		return Resolution{Language: LangUnsupported, Name: ext, Source: "extension"}
	}
	return resolveName(name, "extension")
}
