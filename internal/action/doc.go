// Package action turns declarative action requests into absolute-time
// scheduler entries.
//
// A Request names a kind (water, light, fan, image), a time of day and a
// duration. Resolve combines the time of day with a reference date and adds
// the duration, then expands the request into start/stop command pairs:
//
//	water          pump_on  @ start, pump_off  @ stop
//	light type=veg vlight_on @ start, vlight_off @ stop
//	light type=flow flight_on @ start, flight_off @ stop
//	light type=full both light pairs sharing start/stop
//	fan            fan_on   @ start, fan_off   @ stop
//	image          ErrUnsupported
//
// Time and duration strings are read by a small restricted parser; nothing
// is ever evaluated as code. See ParseTimeOfDay and ParseDuration for the
// accepted forms.
package action
