// Package scheduler holds pending entries in due-time order and runs them.
//
// Entries are ordered by (At, Priority, insertion sequence). The run loop
// takes the head, sleeps until it is due using the injected clock.Sleeper,
// then hands it to the Handler. An entry whose time has already passed is
// handed over on the next iteration without waiting.
//
// Insert and Cancel may be called from other goroutines while the loop is
// sleeping; either wakes the loop so it re-reads the head. Cancelling the
// run context discards every pending entry without handling it.
package scheduler
