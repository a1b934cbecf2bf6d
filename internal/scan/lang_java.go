package scan

import "regexp"

var javaProfile = &Profile{
	Language:      LangJava,
	Extensions:    []string{".java"},
	LineComments:  []string{"//", "*"},
	BlockComments: true,
	EntryPoints:   []string{"Main.java", "Application.java"},

	Route:      regexp.MustCompile(`@(?:Get|Post|Put|Patch|Delete)Mapping\b|@RequestMapping\s*\([^)]*method`),
	Auth:       regexp.MustCompile(`@PreAuthorize|@PostAuthorize|@Secured|@RolesAllowed|@AuthenticationPrincipal|isAuthenticated|hasRole|hasAuthority|SecurityContextHolder`),
	AuthBefore: 5,
	AuthAfter:  2,

	Query: regexp.MustCompile(`\.(?:findAll|findBy\w*|findOne|findById|createQuery|createNativeQuery|queryForList|queryForObject|queryForMap|query)\s*\(`),
	Debug: regexp.MustCompile(`\bSystem\.(?:out|err)\.print(?:ln|f)?\s*\(|\.printStackTrace\s*\(\s*\)`),

	ErrorBlock: regexp.MustCompile(`\bcatch\s*\([^)]*\)\s*\{`),
	Blocks:     blockBraces,
	Handled:    regexp.MustCompile(`\bthrow\b|\b(?:log|logger|LOG|LOGGER)\.\w+\s*\(|\.printStackTrace\s*\(|System\.(?:err|out)\.print`),

	Exec:   regexp.MustCompile(`\.(?:executeQuery|executeUpdate|execute|prepareStatement|createQuery|createNativeQuery|queryForList|queryForObject|update|query)\s*\(`),
	Concat: regexp.MustCompile(`"\s*\+\s*[\w(]|[\w)\]]\s*\+\s*"|String\.format\s*\(|\.formatted\s*\(`),

	EnvAccess: regexp.MustCompile(`System\.getenv|System\.getProperty|@Value\s*\(|\.getProperty\s*\(|getRequiredProperty`),

	Listen: regexp.MustCompile(`\bnew\s+ServerSocket\s*\(|\bHttpServer\.create\s*\(|\bJavalin\.create\s*\(|\.start\s*\(\s*\d{2,5}\s*\)`),
	TLS:    regexp.MustCompile(`(?i)ssl|https|tls`),

	Fixes: map[string]string{
		RuleHardcodedSecret: "Inject the value with System.getenv or @Value and keep the real secret out of source control.",
		RuleInjection:       "Use a PreparedStatement with ? placeholders or named JPA parameters.",
		RuleDebugOutput:     "Replace System.out and printStackTrace with the SLF4J logger.",
	},
}
