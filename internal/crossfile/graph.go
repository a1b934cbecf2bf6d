package crossfile

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/reviewgate/internal/scan"
)

// Graph is a directed import graph. Nodes are files for TypeScript and
// Python, packages for Go (directories) and Java (package names).
type Graph struct {
	lang     scan.Language
	nodes    []string
	edges    map[string][]string      // importer → imported, sorted
	sites    map[[2]string]importSite // first import statement per edge
	inDegree map[string]int
	files    map[string]*scan.Source // file nodes only
	owner    map[string]string       // package node → first file declaring it
}

type importSite struct {
	file string
	line int
}

// GraphOptions configures BuildGraph.
type GraphOptions struct {
	Root        string
	Language    scan.Language
	Exclude     []string
	EntryPoints []string
}

// GraphReport is the outcome of Analyze.
type GraphReport struct {
	Language string         `json:"language"`
	Nodes    int            `json:"nodes"`
	Edges    int            `json:"edges"`
	Cycles   [][]string     `json:"cycles"`
	Orphans  []string       `json:"orphans"`
	Findings []scan.Finding `json:"findings"`
	Notes    []scan.Note    `json:"notes,omitempty"`
}

// BuildGraph reads every source file of opts.Language under opts.Root and
// links the imports that resolve inside the tree.
func BuildGraph(ctx context.Context, opts GraphOptions) (*Graph, []scan.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	p := opts.Language.Profile()
	if p == nil {
		return nil, nil, &scan.ConfigError{Msg: fmt.Sprintf("no import graph for language %s", opts.Language)}
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, nil, &scan.ConfigError{Msg: "resolve root path", Err: err}
	}
	if err := checkDir(root, "root path"); err != nil {
		return nil, nil, err
	}

	files, notes := readArea(root, root, scan.NewExcluder(opts.Exclude), p.HasExtension)
	g := &Graph{
		lang:     opts.Language,
		edges:    make(map[string][]string),
		sites:    make(map[[2]string]importSite),
		inDegree: make(map[string]int),
		files:    make(map[string]*scan.Source),
		owner:    make(map[string]string),
	}

	nodeOf := make(map[string]string, len(files))
	for _, f := range files {
		node := f.rel
		switch opts.Language {
		case scan.LangGo:
			node = path.Dir(f.rel)
		case scan.LangJava:
			if node = javaPackageOf(f.src); node == "" {
				continue
			}
		default:
			g.files[f.rel] = f.src
		}
		nodeOf[f.rel] = node
		if _, ok := g.owner[node]; !ok {
			g.owner[node] = f.rel
			g.nodes = append(g.nodes, node)
		}
	}
	sort.Strings(g.nodes)
	known := make(map[string]bool, len(g.nodes))
	for _, n := range g.nodes {
		known[n] = true
		g.inDegree[n] = 0
	}

	module := ""
	if opts.Language == scan.LangGo {
		module = readGoModule(root)
	}
	for _, f := range files {
		from, ok := nodeOf[f.rel]
		if !ok {
			continue
		}
		var refs []importRef
		switch opts.Language {
		case scan.LangTypeScript:
			refs = tsImports(f, known)
		case scan.LangPython:
			refs = pyImports(f, known)
		case scan.LangGo:
			refs = goImports(f, module, known)
		case scan.LangJava:
			refs = javaImports(f, known)
		}
		for _, r := range refs {
			g.addEdge(from, r.target, importSite{file: f.rel, line: r.line})
		}
	}
	for from := range g.edges {
		sort.Strings(g.edges[from])
	}
	slog.Debug("import graph", "language", opts.Language.String(), "nodes", len(g.nodes), "edges", g.EdgeCount())
	return g, notes, nil
}

func (g *Graph) addEdge(from, to string, site importSite) {
	if from == to {
		return
	}
	key := [2]string{from, to}
	if _, dup := g.sites[key]; dup {
		return
	}
	g.sites[key] = site
	g.edges[from] = append(g.edges[from], to)
	g.inDegree[to]++
}

// Nodes returns the node names in sorted order.
func (g *Graph) Nodes() []string { return g.nodes }

// Imports returns the nodes that from imports.
func (g *Graph) Imports(from string) []string { return g.edges[from] }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return len(g.sites) }

// Cycles returns every distinct import cycle found, each rotated to start
// at its smallest node. Kahn's algorithm first peels off every node that
// cannot be on a cycle; a DFS over the residue then extracts the cycles.
func (g *Graph) Cycles() [][]string {
	inDegree := make(map[string]int, len(g.inDegree))
	for n, d := range g.inDegree {
		inDegree[n] = d
	}
	var queue []string
	for _, n := range g.nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	removed := make(map[string]bool)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		removed[n] = true
		for _, child := range g.edges[n] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	if len(removed) == len(g.nodes) {
		return nil
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)
	seen := make(map[string]bool)
	var cycles [][]string
	var stack []string
	var visit func(n string)
	visit = func(n string) {
		color[n] = grey
		stack = append(stack, n)
		for _, next := range g.edges[n] {
			if removed[next] {
				continue
			}
			switch color[next] {
			case white:
				visit(next)
			case grey:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						cycle := canonicalCycle(stack[i:])
						if key := strings.Join(cycle, "\x00"); !seen[key] {
							seen[key] = true
							cycles = append(cycles, cycle)
						}
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}
	for _, n := range g.nodes {
		if !removed[n] && color[n] == white {
			visit(n)
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], "\x00") < strings.Join(cycles[j], "\x00")
	})
	return cycles
}

// canonicalCycle copies a cycle rotated so its smallest node comes first.
func canonicalCycle(nodes []string) []string {
	start := 0
	for i, n := range nodes {
		if n < nodes[start] {
			start = i
		}
	}
	out := make([]string, 0, len(nodes))
	out = append(out, nodes[start:]...)
	return append(out, nodes[:start]...)
}

// Orphans lists file nodes nobody imports that are not entry points,
// package indexes or scripts. Only file-level graphs have orphans.
func (g *Graph) Orphans(entryPoints []string) []string {
	if g.lang != scan.LangTypeScript && g.lang != scan.LangPython {
		return nil
	}
	p := g.lang.Profile()
	var out []string
	for _, n := range g.nodes {
		if g.inDegree[n] > 0 || p.IsEntryPoint(n, entryPoints) || isPackageIndex(n) {
			continue
		}
		if g.lang == scan.LangPython && isPyScript(g.files[n]) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func isPackageIndex(rel string) bool {
	base := path.Base(rel)
	if base == "__init__.py" || base == "__main__.py" || base == "setup.py" {
		return true
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	return stem == "index" || strings.HasSuffix(stem, ".config")
}

// Analyze builds the graph and reports cycles and orphans as findings.
func Analyze(ctx context.Context, opts GraphOptions) (*GraphReport, error) {
	g, notes, err := BuildGraph(ctx, opts)
	if err != nil {
		return nil, err
	}
	report := &GraphReport{
		Language: opts.Language.String(),
		Nodes:    len(g.nodes),
		Edges:    g.EdgeCount(),
		Cycles:   g.Cycles(),
		Orphans:  g.Orphans(opts.EntryPoints),
		Findings: []scan.Finding{},
		Notes:    notes,
	}
	if report.Cycles == nil {
		report.Cycles = [][]string{}
	}
	if report.Orphans == nil {
		report.Orphans = []string{}
	}

	for _, c := range report.Cycles {
		site := g.sites[[2]string{c[0], c[1%len(c)]}]
		chain := strings.Join(append(append([]string{}, c...), c[0]), " -> ")
		report.Findings = append(report.Findings, newFinding(RuleCircularImport, site.file, site.line,
			"Import cycle: "+chain,
			"Break the cycle by moving the shared code into a module both sides import.",
			strings.Join(c, "\x00")))
	}
	for _, o := range report.Orphans {
		report.Findings = append(report.Findings, newFinding(RuleOrphanFile, o, 1,
			"File is not imported by any other file and is not an entry point",
			"Delete the file if it is dead code, or list it under review.entry_points in the manifest.",
			o))
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		if report.Findings[i].FilePath != report.Findings[j].FilePath {
			return report.Findings[i].FilePath < report.Findings[j].FilePath
		}
		return report.Findings[i].Line < report.Findings[j].Line
	})
	return report, nil
}
