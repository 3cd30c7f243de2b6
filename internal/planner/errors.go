package planner

import "errors"

var (
	// ErrInvalidCron is returned when schedule.plan_cron cannot be parsed.
	ErrInvalidCron = errors.New("invalid plan cron expression")

	// ErrInvalidCommand is returned for malformed manual command messages.
	ErrInvalidCommand = errors.New("invalid manual command")
)
