package scan

import "regexp"

var goProfile = &Profile{
	Language:      LangGo,
	Extensions:    []string{".go"},
	LineComments:  []string{"//"},
	BlockComments: true,
	EntryPoints:   []string{"main.go"},

	Route:      regexp.MustCompile(`\.(?:HandleFunc|Handle|GET|POST|PUT|PATCH|DELETE|Get|Post|Put|Patch|Delete)\s*\(\s*"(?:[A-Z]+\s+)?/`),
	Auth:       regexp.MustCompile(`(?i)auth|jwt|session|guard|protect|requireUser|requireLogin|\.Use\s*\(`),
	AuthBefore: 5,
	AuthAfter:  0,

	Query: regexp.MustCompile(`\.(?:Find|First|Take|Where|Query|QueryRow|QueryContext|QueryRowContext|Select|Get)\s*\(\s*(?:ctx\s*,\s*)?[&"\x60]`),
	Debug: regexp.MustCompile(`\bfmt\.Print(?:ln|f)?\s*\(|^\s*print(?:ln)?\s*\(`),

	Discard:      regexp.MustCompile(`^\s*_\s*(?:,\s*_\s*)?=\s*[\w.]+(?:\[[^\]]*\])?\s*\(|^\s*\w+\s*,\s*_\s*:?=\s*[\w.]+\s*\(`),
	DiscardIdiom: regexp.MustCompile(`io\.Copy(?:N|Buffer)?\s*\(|\.Close\s*\(\s*\)|^\s*defer\b|fmt\.Fprint|\.Write(?:String|Byte|Rune)?\s*\(|\.\(\w|\brange\b`),
	ErrorBlock:   regexp.MustCompile(`\bif\s+(?:[^;{]*;\s*)?err\s*!=\s*nil\s*\{`),
	Blocks:       blockBraces,
	Handled:      regexp.MustCompile(`\breturn\b.*\berr\b|\bpanic\s*\(|\b(?:log|slog|logger)\.\w+\s*\(|\.(?:Error|Errorf|Warn|Warnf|Fatal|Fatalf)\s*\(|fmt\.Errorf|errors\.(?:Wrap|Join|New)|\bos\.Exit\s*\(|Fprint\w*\(\s*os\.Stderr`),

	Exec:   regexp.MustCompile(`\.(?:Exec|ExecContext|Query|QueryContext|QueryRow|QueryRowContext|Raw|Prepare|PrepareContext)\s*\(`),
	Concat: regexp.MustCompile(`"\s*\+\s*[\w(]|[\w)\]]\s*\+\s*"|\x60\s*\+\s*\w|fmt\.Sprintf\s*\(`),

	EnvAccess: regexp.MustCompile(`os\.Getenv|os\.LookupEnv|viper\.|\.Getenv\s*\(`),

	Listen: regexp.MustCompile(`\.ListenAndServe\s*\(|\bnet\.Listen\s*\(|\bhttp\.Serve\s*\(|\.(?:Run|Start)\s*\(\s*"[^"]*:\d`),
	TLS:    regexp.MustCompile(`(?i)tls|https|autocert`),

	Fixes: map[string]string{
		RuleHardcodedSecret: "Read the value with os.Getenv and keep the real secret out of source control.",
		RuleInjection:       "Pass values as query arguments (db.Query(q, id)) instead of building the SQL string.",
		RuleDebugOutput:     "Replace fmt.Print with slog or the package logger.",
		RuleSwallowedError:  "Return the error wrapped with fmt.Errorf(\"...: %w\", err), or log it.",
	},
}
