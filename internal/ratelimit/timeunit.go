package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// TimeUnit names the length of one rate limit window.
type TimeUnit int

const (
	Nanosecond TimeUnit = iota
	Microsecond
	Millisecond
	Second
	Minute
	Hour
	Day
)

var unitNames = map[TimeUnit]string{
	Nanosecond:  "nanosecond",
	Microsecond: "microsecond",
	Millisecond: "millisecond",
	Second:      "second",
	Minute:      "minute",
	Hour:        "hour",
	Day:         "day",
}

// Duration returns the length of one unit.
func (u TimeUnit) Duration() time.Duration {
	switch u {
	case Nanosecond:
		return time.Nanosecond
	case Microsecond:
		return time.Microsecond
	case Millisecond:
		return time.Millisecond
	case Second:
		return time.Second
	case Minute:
		return time.Minute
	case Hour:
		return time.Hour
	case Day:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (u TimeUnit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return fmt.Sprintf("TimeUnit(%d)", int(u))
}

// ParseTimeUnit converts a unit name such as "second" or "minutes" to a TimeUnit.
// Matching is case-insensitive and accepts a trailing "s".
func ParseTimeUnit(s string) (TimeUnit, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for unit, n := range unitNames {
		if n == name {
			return unit, nil
		}
	}
	return 0, fmt.Errorf("unsupported time unit: %q", s)
}
