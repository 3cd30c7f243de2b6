package actionlog

import "errors"

var (
	// ErrLogWrite is returned when a record could not be durably appended.
	ErrLogWrite = errors.New("action log write failed")

	// ErrInvalidEntity is returned for entity ids that cannot name a log file.
	ErrInvalidEntity = errors.New("invalid entity id")
)
