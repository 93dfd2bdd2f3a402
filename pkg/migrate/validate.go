package migrate

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var migrationFilePattern = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every migration filename follows the
// YYYYMMDDHHMMSS_snake_case.sql convention and that no two files share a
// version prefix.
func ValidateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	seen := map[string]string{}
	var problems []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := migrationFilePattern.FindStringSubmatch(name)
		if m == nil {
			problems = append(problems, fmt.Sprintf("%s: does not match YYYYMMDDHHMMSS_name.sql", name))
			continue
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			problems = append(problems, fmt.Sprintf("%s: duplicate version with %s", name, prev))
			continue
		}
		seen[version] = name
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid migrations:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
