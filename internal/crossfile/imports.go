package crossfile

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ppiankov/reviewgate/internal/scan"
)

// importRef is one import statement that resolved to a node in the graph.
type importRef struct {
	target string
	line   int // 1-based
}

var (
	tsImportFrom = regexp.MustCompile(`^\s*(?:import|export)\s+.*\bfrom\s+["']([^"']+)["']`)
	tsSideEffect = regexp.MustCompile(`^\s*import\s+["']([^"']+)["']`)
	tsRequire    = regexp.MustCompile(`\brequire\s*\(\s*["']([^"']+)["']\s*\)`)
	tsDynamic    = regexp.MustCompile(`\bimport\s*\(\s*["']([^"']+)["']\s*\)`)

	pyFromImport = regexp.MustCompile(`^\s*from\s+(\.*)([\w.]*)\s+import\s+\(?\s*([\w\s,*]+)`)
	pyImport     = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\s+as\s+\w+)?(?:\s*,\s*[\w.]+(?:\s+as\s+\w+)?)*)`)
	pyMainGuard  = regexp.MustCompile(`^if\s+__name__\s*==\s*["']__main__["']`)

	goModule      = regexp.MustCompile(`^module\s+(\S+)`)
	goImportOne   = regexp.MustCompile(`^\s*import\s+(?:[\w.]+\s+)?"([^"]+)"`)
	goImportBlock = regexp.MustCompile(`^\s*import\s*\(`)
	goImportSpec  = regexp.MustCompile(`^\s*(?:[\w.]+\s+)?"([^"]+)"`)

	javaPackage = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;`)
	javaImport  = regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w.]+?)(?:\.\*)?\s*;`)
)

var tsExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// tsImports resolves relative specifiers against the set of known files,
// trying extensions and index files the way bundlers do.
func tsImports(f sourceFile, known map[string]bool) []importRef {
	var out []importRef
	dir := path.Dir(f.rel)
	for i, line := range f.src.Lines {
		if f.src.IsComment(i) {
			continue
		}
		for _, re := range []*regexp.Regexp{tsImportFrom, tsSideEffect, tsRequire, tsDynamic} {
			m := re.FindStringSubmatch(line)
			if m == nil || !strings.HasPrefix(m[1], ".") {
				continue
			}
			if target, ok := resolveTS(path.Join(dir, m[1]), known); ok {
				out = append(out, importRef{target: target, line: i + 1})
			}
			break
		}
	}
	return out
}

func resolveTS(base string, known map[string]bool) (string, bool) {
	if known[base] {
		return base, true
	}
	stem := base
	if ext := path.Ext(base); ext == ".js" || ext == ".jsx" || ext == ".mjs" || ext == ".cjs" {
		// compiled-extension imports point at the TypeScript source
		stem = strings.TrimSuffix(base, ext)
	}
	for _, ext := range tsExtensions {
		if known[stem+ext] {
			return stem + ext, true
		}
	}
	for _, ext := range tsExtensions {
		if idx := stem + "/index" + ext; known[idx] {
			return idx, true
		}
	}
	return "", false
}

// pyImports resolves relative imports against the importing package and
// absolute imports against the root and a src/ layout.
func pyImports(f sourceFile, known map[string]bool) []importRef {
	var out []importRef
	pkg := path.Dir(f.rel)
	add := func(target string, line int) {
		if target != "" && target != f.rel {
			out = append(out, importRef{target: target, line: line})
		}
	}
	for i, line := range f.src.Lines {
		if f.src.IsComment(i) {
			continue
		}
		if m := pyFromImport.FindStringSubmatch(line); m != nil {
			dots, mod := m[1], m[2]
			var bases []string
			if dots != "" {
				base := pkg
				for n := 1; n < len(dots); n++ {
					base = path.Dir(base)
				}
				bases = []string{base}
			} else {
				bases = []string{".", "src"}
			}
			for _, base := range bases {
				if targets := pyFromTargets(base, mod, m[3], known); len(targets) > 0 {
					for _, t := range targets {
						add(t, i+1)
					}
					break
				}
			}
			continue
		}
		if m := pyImport.FindStringSubmatch(line); m != nil {
			for _, part := range strings.Split(m[1], ",") {
				mod := strings.Fields(part)[0]
				for _, base := range []string{".", "src"} {
					if target, ok := resolvePy(path.Join(base, strings.ReplaceAll(mod, ".", "/")), known); ok {
						add(target, i+1)
						break
					}
				}
			}
		}
	}
	return out
}

// pyFromTargets resolves "from mod import names" under base. Imported names
// that are submodules win; otherwise the module itself is the target.
func pyFromTargets(base, mod, names string, known map[string]bool) []string {
	modPath := path.Join(base, strings.ReplaceAll(mod, ".", "/"))
	var out []string
	for _, name := range strings.Split(names, ",") {
		fields := strings.Fields(name)
		if len(fields) == 0 || fields[0] == "*" {
			continue
		}
		if target, ok := resolvePy(path.Join(modPath, fields[0]), known); ok {
			out = append(out, target)
		}
	}
	if len(out) > 0 || mod == "" {
		return out
	}
	if target, ok := resolvePy(modPath, known); ok {
		return []string{target}
	}
	return nil
}

func resolvePy(modPath string, known map[string]bool) (string, bool) {
	if known[modPath+".py"] {
		return modPath + ".py", true
	}
	if init := modPath + "/__init__.py"; known[init] {
		return init, true
	}
	return "", false
}

func isPyScript(src *scan.Source) bool {
	for _, l := range src.Lines {
		if pyMainGuard.MatchString(l) {
			return true
		}
	}
	return false
}

// readGoModule returns the module path declared in root/go.mod, or "".
func readGoModule(root string) string {
	f, err := os.Open(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if m := goModule.FindStringSubmatch(strings.TrimSpace(sc.Text())); m != nil {
			return m[1]
		}
	}
	return ""
}

// goImports maps module-internal import paths to package directories.
func goImports(f sourceFile, module string, packages map[string]bool) []importRef {
	if module == "" {
		return nil
	}
	var out []importRef
	inBlock := false
	for i, line := range f.src.Lines {
		if f.src.IsComment(i) {
			continue
		}
		var spec string
		switch {
		case inBlock:
			if strings.HasPrefix(strings.TrimSpace(line), ")") {
				inBlock = false
				continue
			}
			if m := goImportSpec.FindStringSubmatch(line); m != nil {
				spec = m[1]
			}
		case goImportBlock.MatchString(line):
			inBlock = true
			continue
		default:
			if m := goImportOne.FindStringSubmatch(line); m != nil {
				spec = m[1]
			}
		}
		if spec == "" {
			continue
		}
		var dir string
		switch {
		case spec == module:
			dir = "."
		case strings.HasPrefix(spec, module+"/"):
			dir = strings.TrimPrefix(spec, module+"/")
		default:
			continue
		}
		if packages[dir] {
			out = append(out, importRef{target: dir, line: i + 1})
		}
	}
	return out
}

func javaPackageOf(src *scan.Source) string {
	for i, l := range src.Lines {
		if src.IsComment(i) {
			continue
		}
		if m := javaPackage.FindStringSubmatch(l); m != nil {
			return m[1]
		}
	}
	return ""
}

// javaImports resolves a.b.C, a.b.* and static a.b.C.m to the longest
// declared package prefix.
func javaImports(f sourceFile, packages map[string]bool) []importRef {
	var out []importRef
	for i, line := range f.src.Lines {
		if f.src.IsComment(i) {
			continue
		}
		m := javaImport.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		if strings.HasSuffix(strings.TrimSpace(line), ".*;") && packages[name] {
			out = append(out, importRef{target: name, line: i + 1})
			continue
		}
		for name != "" {
			j := strings.LastIndex(name, ".")
			if j < 0 {
				break
			}
			name = name[:j]
			if packages[name] {
				out = append(out, importRef{target: name, line: i + 1})
				break
			}
		}
	}
	return out
}
