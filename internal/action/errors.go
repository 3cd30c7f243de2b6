package action

import "errors"

var (
	// ErrInvalidRequest is returned when a request is missing fields, has an
	// unparseable time or duration, a non-positive duration, or an unknown
	// kind or light type.
	ErrInvalidRequest = errors.New("invalid action request")

	// ErrUnsupported is returned for request kinds that are recognised but
	// not implemented (image capture).
	ErrUnsupported = errors.New("unsupported action")

	// ErrInvalidExpression is returned by the time and duration parsers.
	ErrInvalidExpression = errors.New("invalid expression")
)
