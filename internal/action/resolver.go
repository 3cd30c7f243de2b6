package action

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-grow/internal/command"
)

// Resolver expands requests into entries relative to a reference date.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a Resolver that interprets times of day in loc.
// A nil loc uses the reference date's own location.
func NewResolver(loc *time.Location) *Resolver {
	return &Resolver{loc: loc}
}

// pair is a start/stop command pair for one actuator.
type pair struct {
	on, off command.Token
}

var (
	pumpPair   = pair{command.PumpOn, command.PumpOff}
	vlightPair = pair{command.VLightOn, command.VLightOff}
	flightPair = pair{command.FLightOn, command.FLightOff}
	fanPair    = pair{command.FanOn, command.FanOff}
)

// Resolve validates req and returns its entries in start/stop order, with
// stop strictly after start. The time window is checked before the kind,
// so a missing or non-positive duration is ErrInvalidRequest for every
// kind. The date part of ref selects the day; its clock part is ignored.
func (r *Resolver) Resolve(req Request, ref time.Time) ([]Entry, error) {
	start, stop, err := r.window(req, ref)
	if err != nil {
		return nil, err
	}

	pairs, err := pairsFor(req)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, 2*len(pairs))
	for _, p := range pairs {
		entries = append(entries,
			newEntry(req, start, p.on),
			newEntry(req, stop, p.off),
		)
	}
	return entries, nil
}

// ResolveAll resolves every request. Entries from valid requests are
// returned even when others fail; the failures are joined into the error.
func (r *Resolver) ResolveAll(reqs []Request, ref time.Time) ([]Entry, error) {
	var (
		entries []Entry
		errs    []error
	)
	for i, req := range reqs {
		resolved, err := r.Resolve(req, ref)
		if err != nil {
			errs = append(errs, fmt.Errorf("request %d (%s): %w", i, req.Kind, err))
			continue
		}
		entries = append(entries, resolved...)
	}
	return entries, errors.Join(errs...)
}

// pairsFor maps the request kind to the command pairs it drives.
func pairsFor(req Request) ([]pair, error) {
	switch req.Kind {
	case KindWater:
		return []pair{pumpPair}, nil
	case KindFan:
		return []pair{fanPair}, nil
	case KindLight:
		switch lt := strings.ToLower(strings.TrimSpace(req.Attributes[AttrType])); lt {
		case LightVeg:
			return []pair{vlightPair}, nil
		case LightFlow:
			return []pair{flightPair}, nil
		case LightFull:
			return []pair{vlightPair, flightPair}, nil
		default:
			return nil, fmt.Errorf("%w: light type %q", ErrInvalidRequest, lt)
		}
	case KindImage:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, req.Kind)
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrInvalidRequest, req.Kind)
	}
}

func (r *Resolver) window(req Request, ref time.Time) (start, stop time.Time, err error) {
	if strings.TrimSpace(req.StartTime) == "" {
		return start, stop, fmt.Errorf("%w: missing start time", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Duration) == "" {
		return start, stop, fmt.Errorf("%w: missing duration", ErrInvalidRequest)
	}

	tod, err := ParseTimeOfDay(req.StartTime)
	if err != nil {
		return start, stop, fmt.Errorf("%w: start time: %w", ErrInvalidRequest, err)
	}
	d, err := ParseDuration(req.Duration)
	if err != nil {
		return start, stop, fmt.Errorf("%w: duration: %w", ErrInvalidRequest, err)
	}
	if d <= 0 {
		return start, stop, fmt.Errorf("%w: duration %q must be positive", ErrInvalidRequest, req.Duration)
	}

	if r.loc != nil {
		ref = ref.In(r.loc)
	}
	start = tod.On(ref)
	return start, start.Add(d), nil
}

func newEntry(req Request, at time.Time, tok command.Token) Entry {
	meta := make(map[string]string, len(req.Attributes)+2)
	maps.Copy(meta, req.Attributes)
	meta[MetaAction] = req.Kind.String()
	meta[MetaCommand] = tok.String()
	return Entry{
		At:       at,
		Priority: DefaultPriority,
		Command:  tok,
		Metadata: meta,
	}
}
