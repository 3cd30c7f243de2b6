// Package entity holds the registry of growing units that receive a row in
// the action log for every dispatched command.
//
// Entities come from one of two sources:
//
//   - a static list in the configuration file (entities.static)
//   - the SQLite entities table (entities.source: database)
//
// The Registry loads the list once with Refresh and serves it from memory.
// A run uses the same ordered list for every dispatch, so a plant added
// while the daemon is running only starts receiving rows after the next
// Refresh.
package entity
