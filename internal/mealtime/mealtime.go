// Package mealtime parses free-form meal time strings and computes
// reminder fire times.
package mealtime

import (
	"fmt"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// Clock is a wall-clock time of day, timezone-agnostic.
type Clock struct {
	Hour   int // 0..23
	Minute int // 0..59
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Accepted formats, tried in order. Mirrors the plan generator's output:
// "7:00 AM", "19:00" and the occasional "7:00AM" without the space.
var layouts = []string{"3:04 PM", "15:04", "3:04PM"}

// Parse converts a free-form meal time string into a Clock.
//
// Parse failures are expected input (plans carry free text); callers skip
// the meal and keep going rather than failing the whole request.
func Parse(raw string) (Clock, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return Clock{}, fmt.Errorf("empty meal time")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return Clock{}, fmt.Errorf("unparseable meal time %q", raw)
}

// Minus returns the clock lead minutes earlier, wrapping within one day.
// Negative leads are treated as zero. Lead times are expected to stay well
// under 24h; anything larger still wraps correctly.
func (c Clock) Minus(leadMinutes int) Clock {
	if leadMinutes < 0 {
		leadMinutes = 0
	}
	total := (c.Hour*60 + c.Minute - leadMinutes) % minutesPerDay
	if total < 0 {
		total += minutesPerDay
	}
	return Clock{Hour: total / 60, Minute: total % 60}
}
