package scheduler

import "errors"

// ErrRunning is returned when Run or Serve is called while a loop is
// already active on the same Scheduler.
var ErrRunning = errors.New("scheduler already running")
