package toast

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Filter suppresses toasts per page and per message class.
type Filter struct {
	// BlockedPaths are path prefixes on which no toast is shown.
	BlockedPaths []string `yaml:"blocked_paths"`
	// BlockedKeywords suppress any message containing one of them,
	// compared case-insensitively.
	BlockedKeywords []string `yaml:"blocked_keywords"`
}

// DefaultFilter silences the subscription page and internal diagnostics
// that should never reach the user.
func DefaultFilter() Filter {
	return Filter{
		BlockedPaths: []string{"/subscription"},
		BlockedKeywords: []string{
			"undefined",
			"[object object]",
			"typeerror",
			"referenceerror",
			"debug:",
		},
	}
}

// Blocks reports whether a toast with message on path must be dropped,
// and why.
func (f Filter) Blocks(path, message string) (bool, string) {
	for _, p := range f.BlockedPaths {
		if p != "" && strings.HasPrefix(path, p) {
			return true, "path " + p
		}
	}
	lower := strings.ToLower(message)
	for _, k := range f.BlockedKeywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true, "keyword " + k
		}
	}
	return false, ""
}

// LoadFilter reads filter rules from a YAML file.
func LoadFilter(path string) (Filter, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Filter{}, err
	}
	var f Filter
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Filter{}, fmt.Errorf("parse toast filter %s: %w", path, err)
	}
	return f, nil
}
