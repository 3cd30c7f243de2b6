package command

import "errors"

var (
	// ErrUnknownCommand is returned when a token is outside the command set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrCodecTable is returned by Validate when the wire table is not total
	// or not injective.
	ErrCodecTable = errors.New("invalid command codec table")
)
