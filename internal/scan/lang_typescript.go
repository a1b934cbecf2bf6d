package scan

import "regexp"

var typescriptProfile = &Profile{
	Language:      LangTypeScript,
	Extensions:    []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
	LineComments:  []string{"//"},
	BlockComments: true,
	EntryPoints: []string{
		"index.ts", "index.js", "main.ts", "main.js", "server.ts", "server.js", "cli.ts", "cli.js",
	},

	Route: regexp.MustCompile(`\b(?:app|router|server|api|fastify)\.(?:get|post|put|patch|delete|all)\s*\(\s*["'\x60]|@(?:Get|Post|Put|Patch|Delete|All)\s*\(`),
	Auth:  regexp.MustCompile(`(?i)auth|guard|protect|jwt|passport|session|requireUser|isLoggedIn|verifyToken|@Public\(`),
	// route middleware is registered inline or on a group above
	AuthBefore: 5,
	AuthAfter:  0,

	Query: regexp.MustCompile(`\.(?:findMany|findFirst|findUnique|findOne|findAll|findById|findAndCountAll|aggregate)\s*\(|\b(?:db|knex|pool|client|repository|repo)\.(?:query|find|select|where)\s*\(`),
	Debug: regexp.MustCompile(`\bconsole\.(?:log|debug|info|trace|dir|table)\s*\(`),

	Discard:      regexp.MustCompile(`^\s*void\s+[\w$.]+\s*\(|\.catch\(\s*\(\s*\w*\s*\)\s*=>\s*\{\s*\}\s*\)|\.catch\(\s*\(\s*\)\s*=>\s*(?:null|undefined)\s*\)`),
	DiscardIdiom: regexp.MustCompile(`\.(?:close|destroy|end|pipe|unref)\s*\(`),
	ErrorBlock:   regexp.MustCompile(`\bcatch\s*(?:\([^)]*\))?\s*\{`),
	Blocks:       blockBraces,
	Handled:      regexp.MustCompile(`\bthrow\b|\bconsole\.(?:error|warn|log)\s*\(|\blog(?:ger)?\.\w+\s*\(|\breject\s*\(|\bnext\s*\(\s*\w+|\breturn\b.*\b(?:err|error|e)\b`),

	// exec is also RegExp.prototype.exec, so it needs a database receiver
	Exec:          regexp.MustCompile(`\.(?:query|execute|raw|\$queryRawUnsafe|\$executeRawUnsafe|queryRaw|whereRaw|sequelize\.query)\s*\(|\b(?:db|pool|client|connection|conn|knex|sequelize|trx|tx)\.exec\s*\(`),
	Concat:        regexp.MustCompile(`["'\x60]\s*\+\s*[\w$(]|[\w$)\]]\s*\+\s*["'\x60]|\.concat\s*\(`),
	Interpolation: regexp.MustCompile("`[^`]*\\$\\{"),

	EnvAccess: regexp.MustCompile(`process\.env|import\.meta\.env|config\.get\(|configService\.get\(|Deno\.env`),

	Listen: regexp.MustCompile(`\b(?:app|server|http|fastify)\.listen\s*\(|\bhttp\.createServer\s*\(`),
	TLS:    regexp.MustCompile(`(?i)https|tls|\bcert\b|\bkey\s*:`),

	Fixes: map[string]string{
		RuleHardcodedSecret: "Read the value from process.env and keep the real secret out of source control.",
		RuleInjection:       "Pass values as bound parameters ($1, ?) or use the ORM's tagged-template query.",
		RuleDebugOutput:     "Remove console output or switch to the application logger.",
	},
	Extra: []*Rule{
		lineRule(Rule{
			ID: RuleDynamicExec, Category: "injection", Severity: SeverityCritical, Confidence: 95,
			Message: "Dynamic code execution via eval or the Function constructor",
			Fix:     "Replace eval/new Function with explicit parsing or a lookup table.",
		}, regexp.MustCompile(`(?:^|[^.\w$])eval\s*\(|\bnew\s+Function\s*\(`)),
	},
}
