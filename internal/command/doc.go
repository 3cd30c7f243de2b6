// Package command defines the fixed actuator command set and its wire codec.
//
// Each Token maps to a single ASCII byte understood by the controller
// firmware. The table is the compatibility contract with the firmware and
// must not change silently: Validate is run once at startup and a failure
// stops the daemon before any entry is scheduled.
//
//	Token       Wire
//	pump_on     'P'
//	pump_off    'p'
//	vlight_on   'V'
//	vlight_off  'v'
//	flight_on   'F'
//	flight_off  'f'
//	fan_on      'A'
//	fan_off     'a'
package command
