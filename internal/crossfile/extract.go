package crossfile

import (
	"path"
	"regexp"
	"strings"

	"github.com/ppiankov/reviewgate/internal/scan"
)

const quoted = `["'\x60]([^"'\x60]+)["'\x60]`

// Client call sites.
var (
	fetchCall   = regexp.MustCompile(`\bfetch\s*\(\s*` + quoted)
	verbCall    = regexp.MustCompile(`\b(?:axios|api|http|client|apiClient|httpClient|request)\.(get|post|put|patch|delete|head|options)\s*(?:<[^>()]*>)?\s*\(\s*` + quoted)
	axiosConfig = regexp.MustCompile(`\baxios\s*\(\s*\{`)
	urlProperty = regexp.MustCompile(`\burl\s*:\s*` + quoted)
	methodProp  = regexp.MustCompile(`\bmethod\s*:\s*["'\x60](\w+)["'\x60]`)
)

// Server route declarations.
var (
	expressRoute    = regexp.MustCompile(`\b(?:app|router|server|fastify|routes?)\.(get|post|put|patch|delete|all|head|options)\s*\(\s*` + quoted)
	nestController  = regexp.MustCompile(`@Controller\s*\(\s*(?:["'\x60]([^"'\x60]*)["'\x60])?`)
	nestRoute       = regexp.MustCompile(`@(Get|Post|Put|Patch|Delete|All|Head|Options)\s*\(\s*(?:["'\x60]([^"'\x60]*)["'\x60])?\s*\)`)
	flaskRoute      = regexp.MustCompile(`@\w+\.route\s*\(\s*["']([^"']+)["'](.*)`)
	flaskMethods    = regexp.MustCompile(`methods\s*=\s*[\[(]([^\])]*)[\])]`)
	fastapiRoute    = regexp.MustCompile(`@\w+\.(get|post|put|patch|delete|head|options|api_route)\s*\(\s*["']([^"']+)["']`)
	pyRouterPrefix  = regexp.MustCompile(`\b(?:APIRouter|Blueprint)\s*\(.*\b(?:prefix|url_prefix)\s*=\s*["']([^"']+)["']`)
	springClassMap  = regexp.MustCompile(`@RequestMapping\s*\(\s*(?:(?:value|path)\s*=\s*)?\{?\s*"([^"]*)"`)
	springMethodMap = regexp.MustCompile(`@(Get|Post|Put|Patch|Delete|Request)Mapping\b(?:\s*\(\s*(?:(?:value|path)\s*=\s*)?\{?\s*"([^"]*)")?`)
	springVerb      = regexp.MustCompile(`RequestMethod\.(\w+)`)
	javaClass       = regexp.MustCompile(`\b(?:class|interface)\s+\w+`)
	goHandleFunc    = regexp.MustCompile(`\.(?:HandleFunc|Handle)\s*\(\s*"(?:([A-Z]+)\s+)?(/[^"]*)"`)
	goVerbRoute     = regexp.MustCompile(`\.(GET|POST|PUT|PATCH|DELETE|HEAD|Get|Post|Put|Patch|Delete|Head|Any)\s*\(\s*"(/[^"]*)"`)
	quotedWord      = regexp.MustCompile(`["'](\w+)["']`)
)

// ExtractCalls finds HTTP calls in client code: fetch(url, {method}),
// axios.<verb>(url), axios({url, method}) and api/http/client.<verb>(url).
func ExtractCalls(src *scan.Source, prefixes []string) []Endpoint {
	var out []Endpoint
	for i, line := range src.Lines {
		if src.IsComment(i) {
			continue
		}
		if m := fetchCall.FindStringSubmatchIndex(line); m != nil {
			raw := withConcatParam(line[m[2]:m[3]], line[m[1]:])
			if e, ok := endpoint(src, i, lookaheadMethod(src, i, m[1]), raw, prefixes); ok {
				out = append(out, e)
			}
			continue
		}
		if m := verbCall.FindStringSubmatchIndex(line); m != nil {
			raw := withConcatParam(line[m[4]:m[5]], line[m[1]:])
			if e, ok := endpoint(src, i, line[m[2]:m[3]], raw, prefixes); ok {
				out = append(out, e)
			}
			continue
		}
		if axiosConfig.MatchString(line) {
			if raw, ok := lookaheadURL(src, i); ok {
				if e, ok := endpoint(src, i, lookaheadMethod(src, i, 0), raw, prefixes); ok {
					out = append(out, e)
				}
			}
		}
	}
	return out
}

// withConcatParam turns `"/users/" + id` into "/users/:param".
func withConcatParam(literal, rest string) string {
	if strings.HasSuffix(literal, "/") && concatAfterURL.MatchString(rest) {
		return literal + ":param"
	}
	return literal
}

// lookaheadMethod reads the method from an options object on the same line
// (after col) or the next few lines. GET when absent.
func lookaheadMethod(src *scan.Source, i, col int) string {
	if m := methodProp.FindStringSubmatch(src.Lines[i][col:]); m != nil {
		return m[1]
	}
	for j := i + 1; j < len(src.Lines) && j <= i+methodLookahead; j++ {
		l := src.Lines[j]
		if fetchCall.MatchString(l) || verbCall.MatchString(l) {
			break
		}
		if m := methodProp.FindStringSubmatch(l); m != nil {
			return m[1]
		}
	}
	return "GET"
}

func lookaheadURL(src *scan.Source, i int) (string, bool) {
	for j := i; j < len(src.Lines) && j <= i+methodLookahead; j++ {
		if m := urlProperty.FindStringSubmatch(src.Lines[j]); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExtractRoutes finds route declarations in server code. The framework
// patterns are picked by file extension.
func ExtractRoutes(src *scan.Source, prefixes []string) []Endpoint {
	switch scan.LanguageForFile(src.Path).Language {
	case scan.LangTypeScript:
		return tsRoutes(src, prefixes)
	case scan.LangPython:
		return pyRoutes(src, prefixes)
	case scan.LangJava:
		return javaRoutes(src, prefixes)
	case scan.LangGo:
		return goRoutes(src, prefixes)
	default:
		return nil
	}
}

func tsRoutes(src *scan.Source, prefixes []string) []Endpoint {
	var out []Endpoint
	controller := ""
	for i, line := range src.Lines {
		if src.IsComment(i) {
			continue
		}
		if m := nestController.FindStringSubmatch(line); m != nil {
			controller = m[1]
			continue
		}
		if m := nestRoute.FindStringSubmatch(line); m != nil {
			if e, ok := endpoint(src, i, m[1], joinRoute(controller, m[2]), prefixes); ok {
				out = append(out, e)
			}
			continue
		}
		if m := expressRoute.FindStringSubmatch(line); m != nil {
			if e, ok := endpoint(src, i, m[1], m[2], prefixes); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

func pyRoutes(src *scan.Source, prefixes []string) []Endpoint {
	var out []Endpoint
	prefix := ""
	for i, line := range src.Lines {
		if src.IsComment(i) {
			continue
		}
		if m := pyRouterPrefix.FindStringSubmatch(line); m != nil {
			prefix = m[1]
			continue
		}
		if m := flaskRoute.FindStringSubmatch(line); m != nil {
			methods := []string{"GET"}
			if mm := flaskMethods.FindStringSubmatch(m[2]); mm != nil {
				methods = methods[:0]
				for _, q := range quotedWord.FindAllStringSubmatch(mm[1], -1) {
					methods = append(methods, q[1])
				}
			}
			for _, method := range methods {
				if e, ok := endpoint(src, i, method, joinRoute(prefix, m[1]), prefixes); ok {
					out = append(out, e)
				}
			}
			continue
		}
		if m := fastapiRoute.FindStringSubmatch(line); m != nil {
			method := m[1]
			if method == "api_route" {
				method = methodAny
			}
			if e, ok := endpoint(src, i, method, joinRoute(prefix, m[2]), prefixes); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

func javaRoutes(src *scan.Source, prefixes []string) []Endpoint {
	var out []Endpoint
	prefix := ""
	inClass := false
	for i, line := range src.Lines {
		if src.IsComment(i) {
			continue
		}
		if !inClass {
			if m := springClassMap.FindStringSubmatch(line); m != nil {
				prefix = m[1]
				continue
			}
			if javaClass.MatchString(line) {
				inClass = true
			}
			continue
		}
		m := springMethodMap.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		method := m[1]
		if method == "Request" {
			method = methodAny
			if v := springVerb.FindStringSubmatch(line); v != nil {
				method = v[1]
			}
		}
		if e, ok := endpoint(src, i, method, joinRoute(prefix, m[2]), prefixes); ok {
			out = append(out, e)
		}
	}
	return out
}

func goRoutes(src *scan.Source, prefixes []string) []Endpoint {
	var out []Endpoint
	for i, line := range src.Lines {
		if src.IsComment(i) {
			continue
		}
		if m := goHandleFunc.FindStringSubmatch(line); m != nil {
			method := m[1]
			if method == "" {
				method = methodAny
			}
			if e, ok := endpoint(src, i, method, m[2], prefixes); ok {
				out = append(out, e)
			}
			continue
		}
		if m := goVerbRoute.FindStringSubmatch(line); m != nil {
			method := m[1]
			if method == "Any" {
				method = methodAny
			}
			if e, ok := endpoint(src, i, method, m[2], prefixes); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// joinRoute prefixes a route with its controller or router path.
func joinRoute(prefix, route string) string {
	return path.Join("/", prefix, route)
}
