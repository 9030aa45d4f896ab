package team

import (
	"fmt"
	"strings"
)

// Team is one football club as seen by the scrapers. Names are canonical:
// resolution is exact-match on the trimmed string, never fuzzy.
type Team struct {
	ID      int64
	Name    string
	Country string
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}

// NormalizeName is the only transformation applied before lookup.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
