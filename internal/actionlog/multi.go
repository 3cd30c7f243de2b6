package actionlog

import (
	"context"
	"errors"
)

// Multi appends to every sink in order. A failing sink does not stop the
// rest; the errors are joined.
type Multi []Sink

// Append implements Sink.
func (m Multi) Append(ctx context.Context, records []Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
