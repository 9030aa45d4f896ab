package competition

import (
	"fmt"
	"strings"
)

// Competition is a league or cup a match belongs to.
type Competition struct {
	ID   int64
	Name string
}

func (c Competition) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("competition name is required")
	}

	return nil
}
