package calendar

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOverrides reads an ad-hoc closure list from a YAML file containing
// a sequence of YYYY-MM-DD dates. The file is read once at startup; the
// resulting dates are handed to New and never reloaded.
func LoadOverrides(path string) ([]Date, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar overrides: %w", err)
	}

	var raw []string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse calendar overrides: %w", err)
	}

	dates := make([]Date, 0, len(raw))
	for _, s := range raw {
		d, err := ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("calendar override %q: %w", s, err)
		}
		dates = append(dates, d)
	}

	return dates, nil
}
