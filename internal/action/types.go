package action

import (
	"time"

	"github.com/nerrad567/gray-logic-grow/internal/command"
)

// Attribute keys added to every entry's metadata.
const (
	MetaAction  = "action"
	MetaCommand = "command"

	// AttrType selects the light variant (veg, flow, full).
	AttrType = "type"
)

// DefaultPriority is used for both start and stop entries.
const DefaultPriority = 1

// Request is one declarative action window. It is not modified after
// loading.
type Request struct {
	Kind       Kind
	StartTime  string
	Duration   string
	Attributes map[string]string
}

// Entry is a single command due at an absolute instant.
type Entry struct {
	At       time.Time         `json:"at"`
	Priority int               `json:"priority"`
	Command  command.Token     `json:"command"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Actor returns the request kind that produced the entry.
func (e Entry) Actor() string {
	return e.Metadata[MetaAction]
}
