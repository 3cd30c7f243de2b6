// Package dispatch executes one scheduled entry: it encodes the command,
// sends it to the controller, then appends one action log record per
// registered entity.
//
// The hardware is always driven first and the log written second. A
// transport failure still produces log records, marked with
// status=failed and the failure reason in their metadata, so the log
// shows every attempt. A log write failure is reported and counted but
// never stops the run.
//
// Each dispatch walks the states
//
//	Pending -> Due -> Dispatching -> Logged | LoggedFailed
//	Pending -> Due -> DroppedUnknownCommand
//
// and never leaves a terminal state.
package dispatch
