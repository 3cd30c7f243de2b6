package action

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// On returns the instant at t on the calendar date of ref, in ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	y, m, d := ref.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, ref.Location())
}

// String formats t as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseTimeOfDay reads a time of day in one of these forms:
//
//	06:30
//	06:30:15
//	hour=6, minute=30, second=15
//
// Omitted keywords default to zero.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeOfDay{}, fmt.Errorf("%w: empty time of day", ErrInvalidExpression)
	}

	var tod TimeOfDay
	if strings.Contains(s, "=") {
		kw, err := parseKeywords(s, map[string]bool{"hour": true, "minute": true, "second": true})
		if err != nil {
			return TimeOfDay{}, err
		}
		tod = TimeOfDay{Hour: int(kw["hour"]), Minute: int(kw["minute"]), Second: int(kw["second"])}
		for k, v := range kw {
			if v != math.Trunc(v) {
				return TimeOfDay{}, fmt.Errorf("%w: %s must be whole, got %v", ErrInvalidExpression, k, v)
			}
		}
	} else {
		parts, err := parseClock(s)
		if err != nil {
			return TimeOfDay{}, err
		}
		tod = TimeOfDay{Hour: parts[0], Minute: parts[1], Second: parts[2]}
	}

	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 || tod.Second < 0 || tod.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: time of day %q out of range", ErrInvalidExpression, s)
	}
	return tod, nil
}

// ParseDuration reads a duration in one of these forms:
//
//	1h30m                      Go duration literal
//	01:30:00                   HH:MM:SS (or HH:MM)
//	20 minutes, 1 hour 30 min  phrase
//	hours=1, minutes=30        keywords (days, hours, minutes, seconds)
//
// The result may be zero or negative; callers decide whether that is valid.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty duration", ErrInvalidExpression)
	}

	switch {
	case strings.Contains(s, "="):
		kw, err := parseKeywords(s, map[string]bool{"days": true, "hours": true, "minutes": true, "seconds": true})
		if err != nil {
			return 0, err
		}
		return seconds(s, kw["days"]*86400+kw["hours"]*3600+kw["minutes"]*60+kw["seconds"])

	case strings.Contains(s, ":"):
		parts, err := parseClock(s)
		if err != nil {
			return 0, err
		}
		if int64(parts[0]) > maxClockHours {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidExpression, s)
		}
		return time.Duration(parts[0])*time.Hour +
			time.Duration(parts[1])*time.Minute +
			time.Duration(parts[2])*time.Second, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	return parsePhrase(s)
}

// parseClock reads HH:MM or HH:MM:SS into [h, m, s].
func parseClock(s string) ([3]int, error) {
	var out [3]int
	fields := strings.Split(s, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return out, fmt.Errorf("%w: %q is not HH:MM[:SS]", ErrInvalidExpression, s)
	}
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 0 {
			return out, fmt.Errorf("%w: %q is not HH:MM[:SS]", ErrInvalidExpression, s)
		}
		out[i] = n
	}
	if out[1] > 59 || out[2] > 59 {
		return out, fmt.Errorf("%w: %q has minutes or seconds above 59", ErrInvalidExpression, s)
	}
	return out, nil
}

// parseKeywords reads "a=1, b=2.5" restricted to the allowed names.
func parseKeywords(s string, allowed map[string]bool) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, val, ok := strings.Cut(pair, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || !allowed[key] {
			return nil, fmt.Errorf("%w: unexpected term %q", ErrInvalidExpression, pair)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: %s given twice", ErrInvalidExpression, key)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidExpression, key, val)
		}
		out[key] = n
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q has no terms", ErrInvalidExpression, s)
	}
	return out, nil
}

var phraseUnits = map[string]float64{
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"d": 86400, "day": 86400, "days": 86400,
}

// parsePhrase reads "<number> <unit>" groups such as "1 hour 30 minutes".
// "and" and commas between groups are ignored.
func parsePhrase(s string) (time.Duration, error) {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})

	var words []string
	for _, tok := range tokens {
		if tok != "and" {
			words = append(words, tok)
		}
	}
	if len(words) == 0 || len(words)%2 != 0 {
		return 0, fmt.Errorf("%w: %q is not a duration", ErrInvalidExpression, s)
	}

	var total float64
	for i := 0; i < len(words); i += 2 {
		n, err := strconv.ParseFloat(words[i], 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%w: %q is not a number in %q", ErrInvalidExpression, words[i], s)
		}
		unit, ok := phraseUnits[words[i+1]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalidExpression, words[i+1], s)
		}
		total += n * unit
	}
	return seconds(s, total)
}

// maxClockHours keeps HH:MM:SS sums inside time.Duration; the minute and
// second fields are at most 59 each.
const maxClockHours = (math.MaxInt64 - int64(59*time.Minute+59*time.Second)) / int64(time.Hour)

// maxSeconds is the largest magnitude time.Duration can hold, in seconds.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// seconds converts sec to a Duration. expr is only used in the error.
func seconds(expr string, sec float64) (time.Duration, error) {
	if math.Abs(sec) >= maxSeconds {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidExpression, expr)
	}
	return time.Duration(math.Round(sec * float64(time.Second))), nil
}
