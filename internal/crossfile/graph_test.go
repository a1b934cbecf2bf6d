package crossfile

import (
	"context"
	"reflect"
	"testing"

	"github.com/ppiankov/reviewgate/internal/scan"
)

func buildGraph(t *testing.T, dir string, lang scan.Language) *Graph {
	t.Helper()
	g, _, err := BuildGraph(context.Background(), GraphOptions{Root: dir, Language: lang})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGraph_TypeScriptCycleAndOrphan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/index.ts", "import { a } from './a';\n")
	writeFile(t, dir, "src/a.ts", "import { b } from './b';\nexport const a = 1;\n")
	writeFile(t, dir, "src/b.ts", "import { c } from \"./c.js\";\nexport const b = 2;\n")
	writeFile(t, dir, "src/c.ts", "const { a } = require('./a');\nexport const c = 3;\n")
	writeFile(t, dir, "src/util/index.ts", "export * from './strings';\n")
	writeFile(t, dir, "src/util/strings.ts", "import React from 'react';\n")
	writeFile(t, dir, "src/unused.ts", "// import { a } from './a';\nexport const x = 1;\n")
	writeFile(t, dir, "src/a.test.ts", "import { a } from './a';\n")

	g := buildGraph(t, dir, scan.LangTypeScript)
	if got := g.Imports("src/b.ts"); !reflect.DeepEqual(got, []string{"src/c.ts"}) {
		t.Errorf("b imports = %v, want [src/c.ts] via .js specifier", got)
	}

	cycles := g.Cycles()
	want := [][]string{{"src/a.ts", "src/b.ts", "src/c.ts"}}
	if !reflect.DeepEqual(cycles, want) {
		t.Errorf("cycles = %v, want %v", cycles, want)
	}

	orphans := g.Orphans(nil)
	if !reflect.DeepEqual(orphans, []string{"src/unused.ts"}) {
		t.Errorf("orphans = %v, want [src/unused.ts]", orphans)
	}
}

func TestGraph_PythonImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/__init__.py", "")
	writeFile(t, dir, "app/models.py", "from .services import billing\n")
	writeFile(t, dir, "app/services/__init__.py", "")
	writeFile(t, dir, "app/services/billing.py", "from app.models import Invoice\nimport os\n")
	writeFile(t, dir, "app/views.py", "from . import models\n")
	writeFile(t, dir, "scripts/seed.py", "import app.models\n\nif __name__ == \"__main__\":\n    main()\n")
	writeFile(t, dir, "app/legacy.py", "def old(): pass\n")

	g := buildGraph(t, dir, scan.LangPython)
	cycles := g.Cycles()
	want := [][]string{{"app/models.py", "app/services/billing.py"}}
	if !reflect.DeepEqual(cycles, want) {
		t.Errorf("cycles = %v, want %v", cycles, want)
	}

	orphans := g.Orphans([]string{"app/views.py"})
	if !reflect.DeepEqual(orphans, []string{"app/legacy.py"}) {
		t.Errorf("orphans = %v, want [app/legacy.py]", orphans)
	}
}

func TestGraph_GoPackages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/shop\n\ngo 1.22\n")
	writeFile(t, dir, "main.go", "package main\n\nimport \"example.com/shop/internal/orders\"\n")
	writeFile(t, dir, "internal/orders/orders.go", "package orders\n\nimport (\n\t\"fmt\"\n\tpay \"example.com/shop/internal/payments\"\n)\n")
	writeFile(t, dir, "internal/payments/payments.go", "package payments\n\nimport \"example.com/shop/internal/orders\"\n")
	writeFile(t, dir, "internal/payments/payments_test.go", "package payments\n\nimport \"example.com/shop\"\n")

	g := buildGraph(t, dir, scan.LangGo)
	if !reflect.DeepEqual(g.Nodes(), []string{".", "internal/orders", "internal/payments"}) {
		t.Errorf("nodes = %v", g.Nodes())
	}
	want := [][]string{{"internal/orders", "internal/payments"}}
	if got := g.Cycles(); !reflect.DeepEqual(got, want) {
		t.Errorf("cycles = %v, want %v", got, want)
	}
	if g.Orphans(nil) != nil {
		t.Error("package graphs report no orphans")
	}
}

func TestGraph_JavaPackages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/com/acme/api/UserController.java", "package com.acme.api;\n\nimport com.acme.service.UserService;\nimport java.util.List;\n")
	writeFile(t, dir, "src/com/acme/service/UserService.java", "package com.acme.service;\n\nimport static com.acme.api.Routes.BASE;\n")
	writeFile(t, dir, "src/com/acme/api/Routes.java", "package com.acme.api;\n")
	writeFile(t, dir, "src/com/acme/util/Strings.java", "package com.acme.util;\n\nimport com.acme.service.*;\n")

	g := buildGraph(t, dir, scan.LangJava)
	want := [][]string{{"com.acme.api", "com.acme.service"}}
	if got := g.Cycles(); !reflect.DeepEqual(got, want) {
		t.Errorf("cycles = %v, want %v", got, want)
	}
	if got := g.Imports("com.acme.util"); !reflect.DeepEqual(got, []string{"com.acme.service"}) {
		t.Errorf("wildcard import = %v", got)
	}
}

func TestGraph_NoCycles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.js", "const a = require('./a');\n")
	writeFile(t, dir, "a.js", "const b = require('./b');\n")
	writeFile(t, dir, "b.js", "module.exports = {};\n")

	if cycles := buildGraph(t, dir, scan.LangTypeScript).Cycles(); len(cycles) != 0 {
		t.Errorf("cycles = %v, want none", cycles)
	}
}

func TestAnalyze_Findings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.py", "import a\n")
	writeFile(t, dir, "a.py", "import b\n")
	writeFile(t, dir, "b.py", "\nfrom a import thing\n")
	writeFile(t, dir, "dead.py", "x = 1\n")

	report, err := Analyze(context.Background(), GraphOptions{Root: dir, Language: scan.LangPython})
	if err != nil {
		t.Fatal(err)
	}
	if report.Nodes != 4 || report.Edges != 3 {
		t.Errorf("nodes = %d edges = %d, want 4 and 3", report.Nodes, report.Edges)
	}
	if len(report.Findings) != 2 {
		t.Fatalf("findings = %+v, want cycle and orphan", report.Findings)
	}
	cycle, orphan := report.Findings[0], report.Findings[1]
	if cycle.Rule != RuleCircularImport || cycle.FilePath != "a.py" || cycle.Line != 1 || cycle.Confidence != 80 {
		t.Errorf("cycle finding = %+v", cycle)
	}
	if cycle.Message != "Import cycle: a.py -> b.py -> a.py" {
		t.Errorf("cycle message = %q", cycle.Message)
	}
	if orphan.Rule != RuleOrphanFile || orphan.FilePath != "dead.py" || orphan.Confidence != 70 {
		t.Errorf("orphan finding = %+v", orphan)
	}
}
