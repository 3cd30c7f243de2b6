package command

import (
	"fmt"
	"strings"
)

// Token is the logical identifier of one actuator action.
type Token string

// The command set.
const (
	PumpOn    Token = "pump_on"
	PumpOff   Token = "pump_off"
	VLightOn  Token = "vlight_on"
	VLightOff Token = "vlight_off"
	FLightOn  Token = "flight_on"
	FLightOff Token = "flight_off"
	FanOn     Token = "fan_on"
	FanOff    Token = "fan_off"
)

// All lists every token in the command set, in table order.
var All = []Token{
	PumpOn, PumpOff,
	VLightOn, VLightOff,
	FLightOn, FLightOff,
	FanOn, FanOff,
}

// wire is the firmware table. Do not renumber.
var wire = map[Token]byte{
	PumpOn:    'P',
	PumpOff:   'p',
	VLightOn:  'V',
	VLightOff: 'v',
	FLightOn:  'F',
	FLightOff: 'f',
	FanOn:     'A',
	FanOff:    'a',
}

// String returns the token name.
func (t Token) String() string {
	return string(t)
}

// Valid reports whether t belongs to the command set.
func (t Token) Valid() bool {
	_, ok := wire[t]
	return ok
}

// Encode returns the wire bytes for t.
func Encode(t Token) ([]byte, error) {
	b, ok := wire[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, string(t))
	}
	return []byte{b}, nil
}

// Parse converts operator input such as "pump_on" or "PUMP-ON" to a Token.
func Parse(s string) (Token, error) {
	t := Token(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	return t, nil
}

// Validate checks that every token in All has a wire byte, that no two
// tokens share one, and that the table holds nothing outside All.
func Validate() error {
	return validateTable(All, wire)
}

func validateTable(tokens []Token, table map[Token]byte) error {
	seen := make(map[byte]Token, len(table))
	for _, t := range tokens {
		b, ok := table[t]
		if !ok {
			return fmt.Errorf("%w: %s has no wire byte", ErrCodecTable, t)
		}
		if prev, dup := seen[b]; dup {
			return fmt.Errorf("%w: %s and %s share wire byte %q", ErrCodecTable, prev, t, b)
		}
		seen[b] = t
	}
	if len(table) != len(tokens) {
		return fmt.Errorf("%w: table has %d entries for %d tokens", ErrCodecTable, len(table), len(tokens))
	}
	return nil
}
