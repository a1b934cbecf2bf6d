package scan

import (
	"regexp"
	"strings"
)

var pythonProfile = &Profile{
	Language:     LangPython,
	Extensions:   []string{".py"},
	LineComments: []string{"#"},
	EntryPoints:  []string{"main.py", "__main__.py", "manage.py", "cli.py"},

	Route: regexp.MustCompile(`^\s*@\w+\.(?:route|get|post|put|patch|delete|api_route)\s*\(|^\s*@api_view\s*\(`),
	Auth:  regexp.MustCompile(`(?i)login_required|permission_required|jwt_required|auth_required|requires_auth|token_required|Depends\(\s*\w*(?:current|auth|verify|user)|current_user|permission_classes|IsAuthenticated|staff_member_required|user_passes_test|Security\(`),
	// decorators stack in either direction around the route decorator
	AuthBefore: 5,
	AuthAfter:  3,

	Query: regexp.MustCompile(`\.objects\.(?:filter|get|all|exclude)\s*\(|\bsession\.query\s*\(|\.query\.(?:filter|filter_by|get|all)\s*\(|\b(?:db|collection)(?:\.\w+)?\.find(?:_one)?\s*\(|\.execute\s*\(\s*[rfbuRFBU]{0,2}["'](?i:\s*select)`),
	Debug: regexp.MustCompile(`(?:^|[^.\w])p?print\s*\(`),

	Discard:      regexp.MustCompile(`^\s*_\s*=\s*[\w.]+\s*\(`),
	DiscardIdiom: regexp.MustCompile(`shutil\.copyfileobj|\.close\s*\(|\.write\s*\(`),
	ErrorBlock:   regexp.MustCompile(`^\s*except\b[^:]*:`),
	Blocks:       blockIndent,
	Handled:      regexp.MustCompile(`\braise\b|\blog(?:ger|ging)?\.\w+\s*\(|\bprint\s*\(|sys\.exit|traceback\.|warnings\.warn|\breturn\b.*\b(?:e|err|exc|error|ex)\b`),

	Exec:          regexp.MustCompile(`\.(?:execute|executemany|executescript|raw|extra)\s*\(|\b(?:text|RawSQL)\s*\(`),
	Concat:        regexp.MustCompile(`["']\s*\+\s*[\w(]|[\w)\]]\s*\+\s*["']|["']\s*%\s*[\w(]|["']\s*\.format\s*\(`),
	Interpolation: regexp.MustCompile(`(?:^|[^\w])(?:[fF][rR]?|[rR][fF])["']`),

	EnvAccess: regexp.MustCompile(`os\.getenv|os\.environ|environ\.get|\bgetenv\s*\(|\bconfig\s*\(|\benv\s*\(|settings\.`),

	Listen: regexp.MustCompile(`\bapp\.run\s*\(|\buvicorn\.run\s*\(|\bHTTPServer\s*\(|\.serve_forever\s*\(|\bweb\.run_app\s*\(|\bTCPServer\s*\(`),
	TLS:    regexp.MustCompile(`(?i)ssl|https|certfile|keyfile|tls`),

	Fixes: map[string]string{
		RuleHardcodedSecret: "Read the value with os.environ[...] and keep the real secret out of source control.",
		RuleInjection:       "Pass values as query parameters: cursor.execute(sql, (value,)).",
		RuleDebugOutput:     "Replace print with the logging module.",
		RuleSwallowedError:  "Log the exception or re-raise it; add a comment if ignoring it is intended.",
	},
	Extra: []*Rule{
		lineRule(Rule{
			ID: RuleDynamicExec, Category: "injection", Severity: SeverityCritical, Confidence: 95,
			Message: "Dynamic code execution via eval or exec",
			Fix:     "Use ast.literal_eval for data, or an explicit dispatch table for behaviour.",
		}, regexp.MustCompile(`(?:^|[^.\w])(?:eval|exec)\s*\(`)),
		lineRule(Rule{
			ID: RuleBroadCatch, Category: "errors", Severity: SeverityWarning, Confidence: 90,
			Message: "Bare except catches SystemExit and KeyboardInterrupt",
			Fix:     "Catch the specific exception type, or at least Exception.",
		}, regexp.MustCompile(`^\s*except\s*:`)),
		{
			ID: RuleMissingReturnType, Category: "typing", Severity: SeverityWarning, Confidence: 70,
			Message: "Public function without a return type annotation",
			Fix:     "Annotate the return type (-> None when nothing is returned).",
			match:   matchMissingReturnType,
		},
	},
}

var (
	pyDef   = regexp.MustCompile(`^\s*(async\s+)?def\s+(\w+)\s*\(`)
	pyClass = regexp.MustCompile(`^\s*class\s+\w+`)
)

// maxSignatureLines bounds how far a multi-line def is followed.
const maxSignatureLines = 15

type pyScope struct {
	indent int
	def    bool
}

// matchMissingReturnType covers module-level functions and methods. Nested
// functions and coroutines are left alone.
func matchMissingReturnType(src *Source, _ *Profile, _ *ruleEnv) []Match {
	var (
		out   []Match
		scope []pyScope
	)
	src.eachCode(func(i int, line string) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.ContainsAny(trimmed[:1], ")]}") {
			return
		}
		indent := indentOf(line)
		for len(scope) > 0 && scope[len(scope)-1].indent >= indent {
			scope = scope[:len(scope)-1]
		}
		nested := len(scope) > 0 && scope[len(scope)-1].def

		m := pyDef.FindStringSubmatch(line)
		if m == nil {
			if pyClass.MatchString(line) {
				scope = append(scope, pyScope{indent: indent})
			}
			return
		}
		scope = append(scope, pyScope{indent: indent, def: true})
		if nested || m[1] != "" || strings.HasPrefix(m[2], "_") {
			return
		}
		sig := stripPyComment(line)
		for j := i + 1; !strings.HasSuffix(strings.TrimSpace(sig), ":") && j < len(src.Lines) && j <= i+maxSignatureLines; j++ {
			sig += " " + stripPyComment(src.Lines[j])
		}
		if !strings.Contains(sig, "->") {
			out = append(out, Match{Line: i})
		}
	})
	return out
}

func stripPyComment(line string) string {
	if i := strings.Index(line, " #"); i >= 0 {
		return line[:i]
	}
	return line
}
