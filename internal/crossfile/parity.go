package crossfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/reviewgate/internal/scan"
)

// methodAny is the method of a server route that accepts every verb.
const methodAny = "ALL"

// paramSegment replaces every path parameter in a template.
const paramSegment = "{}"

// methodLookahead bounds how far a fetch options object is followed.
const methodLookahead = 4

// Endpoint is one client call site or server route declaration.
type Endpoint struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Template string `json:"template"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

func (e Endpoint) String() string {
	return e.Method + " " + e.Template
}

func (e Endpoint) segments() []string {
	if e.Template == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(e.Template, "/"), "/")
}

// ParityOptions configures an endpoint parity check.
type ParityOptions struct {
	Root        string // findings are reported relative to Root
	ClientRoot  string
	ServerRoot  string
	APIPrefixes []string
	Exclude     []string
	IncludeDead bool
}

// ParityReport is the outcome of a parity check.
type ParityReport struct {
	Calls    []Endpoint     `json:"calls"`
	Routes   []Endpoint     `json:"routes"`
	Findings []scan.Finding `json:"findings"`
	Notes    []scan.Note    `json:"notes,omitempty"`
}

// Parity extracts client call sites and server routes independently and
// reports calls no route serves. It never executes code.
func Parity(ctx context.Context, opts ParityOptions) (*ParityReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, &scan.ConfigError{Msg: "resolve root path", Err: err}
	}
	client, server := areaPath(root, opts.ClientRoot), areaPath(root, opts.ServerRoot)
	if err := checkDir(client, "client path"); err != nil {
		return nil, err
	}
	if err := checkDir(server, "server path"); err != nil {
		return nil, err
	}

	ex := scan.NewExcluder(opts.Exclude)
	report := &ParityReport{Calls: []Endpoint{}, Routes: []Endpoint{}}

	clientFiles, notes := readArea(root, client, ex, scan.LangTypeScript.Profile().HasExtension)
	report.Notes = append(report.Notes, notes...)
	for _, f := range clientFiles {
		report.Calls = append(report.Calls, ExtractCalls(f.src, opts.APIPrefixes)...)
	}

	serverFiles, notes := readArea(root, server, ex, isServerSource)
	report.Notes = append(report.Notes, notes...)
	for _, f := range serverFiles {
		report.Routes = append(report.Routes, ExtractRoutes(f.src, opts.APIPrefixes)...)
	}

	slog.Debug("endpoint parity", "calls", len(report.Calls), "routes", len(report.Routes))
	report.Findings = Reconcile(report.Calls, report.Routes, opts.IncludeDead)
	return report, nil
}

func areaPath(root, area string) string {
	switch {
	case area == "":
		return root
	case filepath.IsAbs(area):
		return area
	default:
		return filepath.Join(root, filepath.FromSlash(area))
	}
}

func isServerSource(rel string) bool {
	for _, l := range scan.Supported {
		if l.Profile().HasExtension(rel) {
			return true
		}
	}
	return false
}

// Reconcile matches calls against routes. Unmatched calls become
// endpoint-parity findings at the call site; with includeDead, routes
// nothing calls become dead-endpoint findings at the declaration.
func Reconcile(calls, routes []Endpoint, includeDead bool) []scan.Finding {
	findings := []scan.Finding{}
	used := make([]bool, len(routes))
	for _, c := range calls {
		matched := false
		for i, r := range routes {
			if Match(c, r) {
				matched = true
				used[i] = true
			}
		}
		if !matched {
			findings = append(findings, newFinding(RuleEndpointParity, c.File, c.Line,
				fmt.Sprintf("No server route matches %s %s; the call will likely 404", c.Method, c.Path),
				"Declare the route on the server, or fix the client path or method.",
				c.String()))
		}
	}
	if includeDead {
		for i, r := range routes {
			if used[i] {
				continue
			}
			findings = append(findings, newFinding(RuleDeadEndpoint, r.File, r.Line,
				fmt.Sprintf("No client call reaches %s %s", r.Method, r.Path),
				"Remove the route if it is unused, or confirm it serves clients outside this repository.",
				r.String()))
		}
	}
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].FilePath != findings[j].FilePath {
			return findings[i].FilePath < findings[j].FilePath
		}
		return findings[i].Line < findings[j].Line
	})
	return findings
}

// Match reports whether route serves call: same method (a route for ALL
// serves every method), same segment count, equal static segments. A
// parameter on either side matches any segment.
func Match(call, route Endpoint) bool {
	if route.Method != methodAny && call.Method != route.Method {
		return false
	}
	cs, rs := call.segments(), route.segments()
	if len(cs) != len(rs) {
		return false
	}
	for i := range cs {
		if cs[i] == paramSegment || rs[i] == paramSegment {
			continue
		}
		if cs[i] != rs[i] {
			return false
		}
	}
	return true
}

var (
	originPrefix   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://[^/]*`)
	templateBase   = regexp.MustCompile(`^\$\{[^}]*\}`)
	wholeParam     = regexp.MustCompile(`^(?:\{[^}]*\}|<[^>]*>|\[[^\]]*\]|\*)$`)
	concatAfterURL = regexp.MustCompile(`^\s*\+\s*[\w$.()\[\]]+`)
)

// NormalizePath reduces a literal path to a template: origin, leading
// template base, query string and API prefix removed, every parameter
// collapsed to one token. It returns false for anything that is not an
// absolute path.
func NormalizePath(raw string, prefixes []string) (string, bool) {
	p := strings.TrimSpace(raw)
	p = originPrefix.ReplaceAllString(p, "")
	p = templateBase.ReplaceAllString(p, "")
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		return "", false
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	p = stripPrefix(p, prefixes)

	var segs []string
	for _, s := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		switch {
		case s == "":
			continue
		case isParam(s):
			segs = append(segs, paramSegment)
		default:
			segs = append(segs, s)
		}
	}
	return "/" + strings.Join(segs, "/"), true
}

func isParam(seg string) bool {
	return strings.HasPrefix(seg, ":") || strings.Contains(seg, "${") || wholeParam.MatchString(seg)
}

func stripPrefix(p string, prefixes []string) string {
	sorted := make([]string, 0, len(prefixes))
	for _, pre := range prefixes {
		pre = "/" + strings.Trim(strings.TrimSpace(pre), "/")
		if pre != "/" {
			sorted = append(sorted, pre)
		}
	}
	// longest first so /api/v2 wins over /api
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, pre := range sorted {
		if p == pre {
			return "/"
		}
		if strings.HasPrefix(p, pre+"/") {
			return strings.TrimPrefix(p, pre)
		}
	}
	return p
}

func endpoint(src *scan.Source, i int, method, raw string, prefixes []string) (Endpoint, bool) {
	tmpl, ok := NormalizePath(raw, prefixes)
	if !ok {
		return Endpoint{}, false
	}
	return Endpoint{
		Method:   strings.ToUpper(method),
		Path:     raw,
		Template: tmpl,
		File:     src.Path,
		Line:     i + 1,
	}, true
}
