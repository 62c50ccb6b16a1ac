package suppress

import "time"

// Rule silences findings matched by its fields. Pattern globs against the
// finding's pattern id, Files against any evidence path. Empty fields do not
// constrain; a rule with no constraining field matches nothing.
type Rule struct {
	Pattern  string `yaml:"pattern,omitempty"`
	Files    string `yaml:"files,omitempty"`
	Category string `yaml:"category,omitempty"`
	Severity string `yaml:"severity,omitempty"`

	Reason  string `yaml:"reason"`
	Expires string `yaml:"expires,omitempty"`
}

// IsExpired returns true if the rule has an expiration date that has passed.
func (r Rule) IsExpired(now time.Time) bool {
	if r.Expires == "" {
		return false
	}
	t, err := time.Parse("2006-01-02", r.Expires)
	if err != nil {
		return false
	}
	return now.After(t)
}

// HasInvalidExpiry returns true when the expires field is set but not
// parseable.
func (r Rule) HasInvalidExpiry() bool {
	if r.Expires == "" {
		return false
	}
	_, err := time.Parse("2006-01-02", r.Expires)
	return err != nil
}

// suppressionsFile is the top-level YAML structure.
type suppressionsFile struct {
	Suppressions []Rule `yaml:"suppressions"`
}
