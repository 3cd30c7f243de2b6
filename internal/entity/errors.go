package entity

import "errors"

var (
	// ErrEntityNotFound is returned when an entity does not exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityExists is returned when creating an entity whose id is taken.
	ErrEntityExists = errors.New("entity already exists")

	// ErrInvalidID is returned for ids that cannot name a log file.
	ErrInvalidID = errors.New("invalid entity id")

	// ErrReadOnly is returned when modifying a static entity list.
	ErrReadOnly = errors.New("entity source is read-only")
)
