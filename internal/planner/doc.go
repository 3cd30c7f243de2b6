// Package planner turns the schedule into scheduler entries and drives the
// dispatch loop.
//
// Two modes are supported:
//
//   - Run plans a single day, dispatches every entry in order and returns
//     when the queue is empty.
//   - Daemon plans yesterday's still-open windows and today, then keeps
//     serving while a cron expression (schedule.plan_cron) decides when the
//     following day is planned.
//
// The schedule source and the entity registry are read again for every
// plan, so edits to either take effect at the next plan without a restart.
//
// Manual commands (from the CLI or the MQTT command topic) are inserted
// into the same scheduler as entries due now, so only the scheduler loop
// ever talks to the hardware.
package planner
