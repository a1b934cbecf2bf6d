package scan

import (
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// deepSecrets runs the gitleaks default rule pack line by line so that hits
// map onto exact line numbers.
type deepSecrets struct {
	mu       sync.Mutex
	detector *detect.Detector
}

func newDeepSecrets() (*deepSecrets, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, err
	}
	return &deepSecrets{detector: d}, nil
}

func (d *deepSecrets) match(src *Source) []Match {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Match
	src.eachCode(func(i int, line string) {
		for _, f := range d.detector.DetectString(line) {
			if isPlaceholder(f.Secret) {
				continue
			}
			out = append(out, Match{
				Line:       i,
				Confidence: 90,
				Message:    "Hardcoded secret matched gitleaks rule " + f.RuleID,
			})
			return
		}
	})
	return out
}
