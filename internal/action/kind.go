package action

import (
	"fmt"
	"strings"
)

// Kind identifies the actuator family a request drives.
type Kind int

// Request kinds. Add new kinds before kindCount and give them a name in
// kindNames; the build fails until both are done.
const (
	kindInvalid Kind = iota
	KindWater
	KindLight
	KindFan
	KindImage
	kindCount
)

var kindNames = [...]string{
	kindInvalid: "",
	KindWater:   "water",
	KindLight:   "light",
	KindFan:     "fan",
	KindImage:   "image",
}

// Compile-time guard: kindNames must have exactly one name per kind.
var _ = [1]struct{}{}[len(kindNames)-int(kindCount)]

// String returns the lower-case kind name.
func (k Kind) String() string {
	if k <= kindInvalid || k >= kindCount {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts a schedule file kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k := KindWater; k < kindCount; k++ {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return kindInvalid, fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Light types accepted in the "type" attribute.
const (
	LightVeg  = "veg"
	LightFlow = "flow"
	LightFull = "full"
)
