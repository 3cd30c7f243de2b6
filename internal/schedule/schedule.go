// Package schedule loads the YAML schedule file into action requests.
//
// File format:
//
//	actions:
//	  - kind: water
//	    start: "06:00:00"
//	    duration: "20 minutes"
//	  - kind: light
//	    start: "20:00"
//	    duration: "4 hours"
//	    attributes: {type: veg}
//
// Start and duration strings are kept verbatim; the action resolver parses
// them against the day being planned.
package schedule

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-grow/internal/action"
)

// ErrInvalidSchedule is returned when the file cannot be used.
var ErrInvalidSchedule = errors.New("invalid schedule")

// File is the on-disk schedule document.
type File struct {
	Actions []Action `yaml:"actions"`
}

// Action is one entry in the actions list.
type Action struct {
	Kind       string            `yaml:"kind"`
	Start      string            `yaml:"start"`
	Duration   string            `yaml:"duration"`
	Attributes map[string]string `yaml:"attributes,omitempty"`

	// Disabled entries are skipped without error.
	Disabled bool `yaml:"disabled,omitempty"`
}

// Load reads and parses the schedule file at path.
func Load(path string) ([]action.Request, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator configuration
	if err != nil {
		return nil, fmt.Errorf("reading schedule file: %w", err)
	}
	reqs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reqs, nil
}

// Parse decodes a schedule document. Unknown keys and unknown kinds are
// errors; every problem is reported, not just the first.
func Parse(data []byte) ([]action.Request, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	var errs []error
	reqs := make([]action.Request, 0, len(f.Actions))
	for i, a := range f.Actions {
		if a.Disabled {
			continue
		}
		kind, err := action.ParseKind(a.Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: actions[%d]: %w", ErrInvalidSchedule, i, err))
			continue
		}
		reqs = append(reqs, action.Request{
			Kind:       kind,
			StartTime:  a.Start,
			Duration:   a.Duration,
			Attributes: a.Attributes,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reqs, nil
}
