package scan

import (
	"fmt"
	"regexp"
	"strings"
)

// Tunables for the swallowed-error heuristic.
const (
	maxSwallowedStatements = 2
	maxBlockScanLines      = 50
)

const (
	RuleMissingAuth       = "missing-auth-context"
	RuleUnscopedAccess    = "unscoped-data-access"
	RuleDebugOutput       = "debug-output"
	RuleSwallowedError    = "swallowed-error"
	RuleInjection         = "injection-via-concatenation"
	RuleHardcodedSecret   = "hardcoded-secret"
	RuleUnencrypted       = "unencrypted-listener"
	RuleDynamicExec       = "dynamic-code-execution"
	RuleBroadCatch        = "broad-exception-catch"
	RuleMissingReturnType = "missing-return-type"
)

// sharedRules is the catalog every language runs; each rule reads its
// patterns from the profile.
var sharedRules = []*Rule{
	{
		ID: RuleMissingAuth, Category: "auth", Severity: SeverityWarning, Confidence: 70,
		Message: "Route registered without an auth guard or middleware nearby",
		Fix:     "Attach the project's auth middleware or guard to this route, or document why it is public.",
		match:   matchMissingAuth,
	},
	{
		ID: RuleUnscopedAccess, Category: "data", Severity: SeverityWarning, Confidence: 65,
		Message: "Data query without the tenant scoping field nearby",
		Fix:     "Filter the query by the tenant scoping field so one tenant cannot read another tenant's rows.",
		match:   matchUnscoped,
	},
	{
		ID: RuleDebugOutput, Category: "hygiene", Severity: SeverityWarning, Confidence: 75,
		Message: "Debug output left in production code",
		Fix:     "Remove the statement or route it through the structured logger.",
		Aggregate: &Aggregation{
			Threshold:  3,
			Confidence: 80,
			Message:    "%d debug output statements in this file",
		},
		match: matchDebug,
	},
	{
		ID: RuleSwallowedError, Category: "errors", Severity: SeverityWarning, Confidence: 70,
		Message: "Error is caught but neither re-raised, wrapped nor logged",
		Fix:     "Propagate the error, wrap it with context, or log it before continuing.",
		match:   matchSwallowed,
	},
	{
		ID: RuleInjection, Category: "injection", Severity: SeverityCritical, Confidence: 90,
		Message: "Query built by string concatenation or formatting",
		Fix:     "Use parameter binding (placeholders) instead of building the query text.",
		match:   matchInjection,
	},
	{
		ID: RuleHardcodedSecret, Category: "secrets", Severity: SeverityCritical, Confidence: 90,
		Message: "Hardcoded secret assigned to a credential-like name",
		Fix:     "Load the value from the environment or a secrets manager and rotate the exposed credential.",
		match:   matchSecret,
	},
	{
		ID: RuleUnencrypted, Category: "transport", Severity: SeverityWarning, Confidence: 60,
		Message: "Server started without TLS",
		Fix:     "Serve over TLS, or confirm TLS terminates at a proxy in front of this listener.",
		match:   matchListener,
	},
}

func matchMissingAuth(src *Source, p *Profile, _ *ruleEnv) []Match {
	if p.Route == nil || p.Auth == nil {
		return nil
	}
	var out []Match
	src.eachCode(func(i int, line string) {
		if !p.Route.MatchString(line) {
			return
		}
		if p.Auth.MatchString(Window(src.Lines, i, p.AuthBefore, p.AuthAfter)) {
			return
		}
		out = append(out, Match{Line: i})
	})
	return out
}

func matchUnscoped(src *Source, p *Profile, env *ruleEnv) []Match {
	if p.Query == nil || env.scopingField == "" {
		return nil
	}
	var out []Match
	src.eachCode(func(i int, line string) {
		if !p.Query.MatchString(line) {
			return
		}
		if strings.Contains(normalizeIdent(Window(src.Lines, i, 3, 3)), env.scopingField) {
			return
		}
		out = append(out, Match{
			Line:    i,
			Message: fmt.Sprintf("Data query without %s within 3 lines", env.scopingName),
		})
	})
	return out
}

func matchDebug(src *Source, p *Profile, _ *ruleEnv) []Match {
	if p.Debug == nil || src.EntryPoint {
		return nil
	}
	var out []Match
	src.eachCode(func(i int, line string) {
		if p.Debug.MatchString(line) {
			out = append(out, Match{Line: i})
		}
	})
	return out
}

func matchSwallowed(src *Source, p *Profile, _ *ruleEnv) []Match {
	var out []Match
	src.eachCode(func(i int, line string) {
		if p.Discard != nil && p.Discard.MatchString(line) {
			if p.DiscardIdiom == nil || !p.DiscardIdiom.MatchString(line) {
				out = append(out, Match{
					Line:       i,
					Confidence: 80,
					Message:    "Call result discarded with a blank identifier",
				})
			}
			return
		}
		if p.ErrorBlock == nil {
			return
		}
		loc := p.ErrorBlock.FindStringIndex(line)
		if loc == nil {
			return
		}
		var body []string
		var ok bool
		if p.Blocks == blockIndent {
			body, ok = indentBody(src.Lines, i, line[loc[1]:])
		} else {
			body, ok = braceBody(src.Lines, i, loc[1])
		}
		if ok && swallows(body, p) {
			out = append(out, Match{Line: i})
		}
	})
	return out
}

// swallows reports whether a handler body is short and does nothing with the
// error. A comment inside the body marks the swallow as intentional.
func swallows(body []string, p *Profile) bool {
	stmts := 0
	for _, seg := range body {
		if hasComment(seg, p.LineComments[:1]) {
			return false
		}
		if p.Handled != nil && p.Handled.MatchString(seg) {
			return false
		}
		stmts++
	}
	return stmts <= maxSwallowedStatements
}

func hasComment(seg string, markers []string) bool {
	for _, m := range markers {
		if strings.HasPrefix(seg, m) || strings.Contains(seg, " "+m) || strings.Contains(seg, "\t"+m) {
			return true
		}
	}
	return strings.HasPrefix(seg, "/*")
}

// braceBody returns the statements between the brace that ends at col on
// line i and its matching close brace.
func braceBody(lines []string, i, col int) ([]string, bool) {
	var b strings.Builder
	depth := 1
	rest := lines[i][col:]
	for j := i; j < len(lines) && j < i+maxBlockScanLines; j++ {
		if j > i {
			rest = lines[j]
			b.WriteByte('\n')
		}
		for k := 0; k < len(rest); k++ {
			switch rest[k] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return splitStatements(b.String()), true
				}
			}
			b.WriteByte(rest[k])
		}
	}
	return nil, false
}

func splitStatements(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		for _, seg := range strings.Split(line, ";") {
			seg = strings.TrimSpace(seg)
			if seg == "" || seg == "{" || seg == "}" {
				continue
			}
			out = append(out, seg)
		}
	}
	return out
}

// indentBody collects the block under an indentation-delimited header. inline
// is whatever follows the header's colon on the same line.
func indentBody(lines []string, i int, inline string) ([]string, bool) {
	inline = strings.TrimSpace(inline)
	if inline != "" {
		return []string{inline}, true
	}
	header := indentOf(lines[i])
	var out []string
	for j := i + 1; j < len(lines) && j < i+maxBlockScanLines; j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		if indentOf(lines[j]) <= header {
			break
		}
		out = append(out, trimmed)
	}
	return out, len(out) > 0
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

func matchInjection(src *Source, p *Profile, _ *ruleEnv) []Match {
	if p.Exec == nil || p.Concat == nil {
		return nil
	}
	var out []Match
	src.eachCode(func(i int, line string) {
		loc := p.Exec.FindStringIndex(line)
		if loc == nil {
			return
		}
		arg := line[loc[1]:]
		if strings.TrimSpace(arg) == "" && i+1 < len(src.Lines) {
			arg = src.Lines[i+1]
		}
		switch {
		case p.Interpolation != nil && p.Interpolation.MatchString(arg):
			out = append(out, Match{
				Line:       i,
				Confidence: 95,
				Message:    "Query built by string interpolation",
			})
		case p.Concat.MatchString(arg):
			out = append(out, Match{Line: i})
		}
	})
	return out
}

type credentialPattern struct {
	label      string
	re         *regexp.Regexp
	confidence int
}

// credentialPatterns are fixed-format provider keys. They are reported
// regardless of the identifier they are assigned to.
var credentialPatterns = []credentialPattern{
	{"AWS access key", regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`), 95},
	{"GitHub token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}`), 95},
	{"Slack token", regexp.MustCompile(`\bxox[bporas]-[A-Za-z0-9-]{10,}`), 95},
	{"Stripe key", regexp.MustCompile(`\b(?:sk|pk|rk)_(?:live|test)_[A-Za-z0-9]{16,}`), 95},
	{"private key", regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY`), 95},
	{"bearer token", regexp.MustCompile(`(?i)["'\x60]Bearer\s+[A-Za-z0-9._~+/-]{20,}=*`), 90},
}

var secretAssignment = regexp.MustCompile(`(?i)[\w.$-]*(?:api[_-]?key|secret[_-]?key|client[_-]?secret|secret|auth[_-]?token|access[_-]?token|refresh[_-]?token|private[_-]?key|password|passwd|credentials?|token)s?\b["']?(?:\s*:\s*[\w\[\].]+|\s+[A-Za-z_][\w\[\].]*)?\s*(?::=|=>|=|:)\s*["'\x60]([^"'\x60\s]{8,})["'\x60]`)

var placeholderWords = []string{
	"example", "placeholder", "xxxx", "changeme", "change_me", "your_", "your-",
	"dummy", "sample", "redacted", "<", "${", "{{", "****",
}

func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	if lower == "" {
		return true
	}
	for _, w := range placeholderWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return strings.Count(lower, lower[:1]) == len(lower)
}

func matchSecret(src *Source, p *Profile, _ *ruleEnv) []Match {
	var out []Match
	src.eachCode(func(i int, line string) {
		for _, cp := range credentialPatterns {
			if m := cp.re.FindString(line); m != "" && !isPlaceholder(m) {
				out = append(out, Match{
					Line:       i,
					Confidence: cp.confidence,
					Message:    "Hardcoded " + cp.label,
				})
				return
			}
		}
		m := secretAssignment.FindStringSubmatch(line)
		if m == nil || isPlaceholder(m[1]) {
			return
		}
		if p.EnvAccess != nil && p.EnvAccess.MatchString(line) {
			return
		}
		out = append(out, Match{Line: i})
	})
	return out
}

func matchListener(src *Source, p *Profile, _ *ruleEnv) []Match {
	if p.Listen == nil {
		return nil
	}
	var out []Match
	src.eachCode(func(i int, line string) {
		if !p.Listen.MatchString(line) {
			return
		}
		if p.TLS != nil && p.TLS.MatchString(line) {
			return
		}
		out = append(out, Match{Line: i})
	})
	return out
}

// lineRule builds a language-only rule that fires on every code line
// matching re.
func lineRule(r Rule, re *regexp.Regexp) *Rule {
	r.match = func(src *Source, _ *Profile, _ *ruleEnv) []Match {
		var out []Match
		src.eachCode(func(i int, line string) {
			if re.MatchString(line) {
				out = append(out, Match{Line: i})
			}
		})
		return out
	}
	return &r
}
