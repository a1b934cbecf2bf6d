package scan

import "fmt"

// Aggregate collapses aggregable rules whose hit count in one file exceeds
// the rule's threshold into a single finding at the first hit, carrying the
// total count. Everything else keeps its order. Counting is per file and per
// rule.
func Aggregate(findings []Finding, rules []*Rule) []Finding {
	policies := make(map[string]*Aggregation)
	for _, r := range rules {
		if r.Aggregate != nil {
			policies[r.ID] = r.Aggregate
		}
	}
	if len(policies) == 0 {
		return findings
	}

	type key struct{ file, rule string }
	counts := make(map[key]int)
	for _, f := range findings {
		if _, ok := policies[f.Rule]; ok {
			counts[key{f.FilePath, f.Rule}]++
		}
	}

	out := make([]Finding, 0, len(findings))
	emitted := make(map[key]bool)
	for _, f := range findings {
		p, ok := policies[f.Rule]
		k := key{f.FilePath, f.Rule}
		if !ok || counts[k] <= p.Threshold {
			out = append(out, f)
			continue
		}
		if emitted[k] {
			continue
		}
		emitted[k] = true
		f.Count = counts[k]
		f.Confidence = p.Confidence
		f.Message = fmt.Sprintf(p.Message, f.Count)
		out = append(out, f)
	}
	return out
}
