package entity

import (
	"fmt"
	"regexp"
	"time"
)

// Entity is one growing unit (a plant, a tray, a tent).
type Entity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Position  int       `json:"position"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

const maxIDLength = 64

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateID checks that id is usable as a log file name.
func ValidateID(id string) error {
	if len(id) == 0 || len(id) > maxIDLength {
		return fmt.Errorf("%w: %q must be 1-%d characters", ErrInvalidID, id, maxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q may only contain letters, digits, '.', '_' and '-'", ErrInvalidID, id)
	}
	return nil
}
