package scan

import (
	"fmt"
	"sort"
)

// minCriticalConfidence is the floor for CRITICAL findings. A hit below it is
// reported as a WARNING instead.
const minCriticalConfidence = 85

// DefaultScopingField is used when neither flags nor the manifest name one.
const DefaultScopingField = "tenantId"

// CheckerOptions tunes a Checker.
type CheckerOptions struct {
	ScopingField string
	EntryPoints  []string
	DeepSecrets  bool
}

// Checker runs a language profile through the rule catalog. It holds no
// per-file state and is safe for concurrent use.
type Checker struct {
	profile     *Profile
	rules       []*Rule
	env         ruleEnv
	entryPoints []string
	deep        *deepSecrets
}

// NewChecker builds the checker for a profile.
func NewChecker(p *Profile, opts CheckerOptions) (*Checker, error) {
	if p == nil {
		return nil, fmt.Errorf("no profile")
	}
	field := opts.ScopingField
	if field == "" {
		field = DefaultScopingField
	}
	c := &Checker{
		profile:     p,
		rules:       p.Rules(),
		env:         ruleEnv{scopingName: field, scopingField: normalizeIdent(field)},
		entryPoints: opts.EntryPoints,
	}
	if opts.DeepSecrets {
		d, err := newDeepSecrets()
		if err != nil {
			return nil, fmt.Errorf("load gitleaks rules: %w", err)
		}
		c.deep = d
	}
	return c, nil
}

// Profile returns the checker's pattern table.
func (c *Checker) Profile() *Profile { return c.profile }

// Rules returns the rules the checker evaluates.
func (c *Checker) Rules() []*Rule { return c.rules }

// Check evaluates every rule against one file. Findings come back in line
// order with aggregable rules already collapsed; Sequence is left unset.
func (c *Checker) Check(rel string, content []byte) []Finding {
	src := NewSource(rel, content, c.profile)
	src.EntryPoint = c.profile.IsEntryPoint(rel, c.entryPoints)

	var raw []Finding
	secretLines := make(map[int]bool)
	for _, r := range c.rules {
		for _, m := range r.match(src, c.profile, &c.env) {
			if r.ID == RuleHardcodedSecret {
				secretLines[m.Line] = true
			}
			raw = append(raw, c.finding(src, r, m))
		}
	}
	if c.deep != nil {
		r := c.ruleByID(RuleHardcodedSecret)
		for _, m := range c.deep.match(src) {
			if secretLines[m.Line] {
				continue
			}
			secretLines[m.Line] = true
			raw = append(raw, c.finding(src, r, m))
		}
	}

	sort.SliceStable(raw, func(i, j int) bool { return raw[i].Line < raw[j].Line })
	return Aggregate(raw, c.rules)
}

func (c *Checker) ruleByID(id string) *Rule {
	for _, r := range c.rules {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (c *Checker) finding(src *Source, r *Rule, m Match) Finding {
	f := Finding{
		Rule:         r.ID,
		Category:     r.Category,
		Language:     c.profile.Language.String(),
		FilePath:     src.Path,
		Line:         m.Line + 1,
		Severity:     r.Severity,
		Confidence:   r.Confidence,
		Message:      r.Message,
		SuggestedFix: c.profile.fixFor(r),
		Fingerprint:  Fingerprint(r.ID, src.Path, src.Lines[m.Line]),
	}
	if m.Confidence > 0 {
		f.Confidence = m.Confidence
	}
	if m.Message != "" {
		f.Message = m.Message
	}
	if f.Severity == SeverityCritical && f.Confidence < minCriticalConfidence {
		f.Severity = SeverityWarning
	}
	return f
}
