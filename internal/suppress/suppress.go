// Package suppress applies the optional suppressions file to a finding
// list. Suppressed findings stay in the report, flagged and excluded from
// scoring and rule synthesis.
package suppress

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// Load reads and parses suppression rules from a YAML file.
// Returns nil rules and nil error if the file does not exist.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return nil, nil
	}
	var sf suppressionsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse suppressions: %w", err)
	}
	for i, rule := range sf.Suppressions {
		if strings.TrimSpace(rule.Reason) == "" {
			return nil, fmt.Errorf("suppression rule %d: reason is required", i+1)
		}
	}
	return sf.Suppressions, nil
}

// Apply marks findings matched by a non-expired rule as suppressed, keeping
// list order. Expired rules are ignored (the finding stays active).
func Apply(findings []model.Finding, rules []Rule, now time.Time) (out []model.Finding, suppressed int) {
	if len(findings) == 0 {
		return findings, 0
	}
	out = make([]model.Finding, len(findings))
	copy(out, findings)
	if len(rules) == 0 {
		return out, 0
	}
	for i := range out {
		if reason, ok := matchRules(out[i], rules, now); ok {
			out[i].Suppressed = true
			out[i].SuppressionReason = reason
			suppressed++
		}
	}
	return out, suppressed
}

// matchRules returns the reason of the first non-expired rule matching the
// finding.
func matchRules(f model.Finding, rules []Rule, now time.Time) (string, bool) {
	for _, r := range rules {
		if r.IsExpired(now) {
			continue
		}
		if ruleMatches(f, r) {
			return r.Reason, true
		}
	}
	return "", false
}

// ruleMatches returns true if ALL specified fields in the rule match the
// finding.
func ruleMatches(f model.Finding, r Rule) bool {
	// A bare wildcard pattern would blanket-silence the whole run.
	if r.Pattern == "*" {
		return false
	}
	if r.Pattern != "" && !matchGlob(r.Pattern, f.PatternID) {
		return false
	}
	if r.Category != "" && !strings.EqualFold(r.Category, f.Category) {
		return false
	}
	if r.Severity != "" && !strings.EqualFold(r.Severity, string(f.Severity)) {
		return false
	}
	if r.Files != "" && !matchAnyEvidence(r.Files, f.Evidence) {
		return false
	}
	if r.Pattern == "" && r.Category == "" && r.Severity == "" && r.Files == "" {
		return false
	}
	return true
}

// matchAnyEvidence returns true if the glob pattern matches any evidence
// path.
func matchAnyEvidence(pattern string, evidence []model.Location) bool {
	for _, loc := range evidence {
		path := strings.TrimSpace(loc.Path)
		if path == "" {
			continue
		}
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

// matchGlob performs case-insensitive glob matching using filepath.Match
// semantics, with an extension: ** matches any path segment.
func matchGlob(pattern, value string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	value = strings.ToLower(strings.TrimSpace(value))

	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, value)
	}

	matched, _ := filepath.Match(pattern, value)
	return matched
}

// matchDoublestar handles ** glob patterns.
func matchDoublestar(pattern, value string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		matched, _ := filepath.Match(pattern, value)
		return matched
	}
	prefix := parts[0]
	suffix := strings.TrimPrefix(parts[1], "/")
	suffix = strings.TrimPrefix(suffix, string(filepath.Separator))

	if prefix != "" {
		if !strings.HasPrefix(value, prefix) {
			return false
		}
		value = value[len(prefix):]
	}

	if suffix == "" {
		return true
	}

	for i := 0; i <= len(value); i++ {
		tail := value[i:]
		if matched, _ := filepath.Match(suffix, tail); matched {
			return true
		}
		if i < len(value) && (value[i] == '/' || value[i] == filepath.Separator) {
			if matched, _ := filepath.Match(suffix, value[i+1:]); matched {
				return true
			}
		}
	}
	return false
}
