package domain

import (
	"fmt"
	"time"

	dErrors "fichaje/pkg/domain-errors"
)

// Weekday follows the domain convention 1=Monday … 7=Sunday.
type Weekday int

const (
	Monday    Weekday = 1
	Tuesday   Weekday = 2
	Wednesday Weekday = 3
	Thursday  Weekday = 4
	Friday    Weekday = 5
	Saturday  Weekday = 6
	Sunday    Weekday = 7
)

func (w Weekday) IsValid() bool {
	return w >= Monday && w <= Sunday
}

// WeekdayOf converts a native time.Time day (Sunday=0) to the domain weekday.
// This is the only place the conversion lives; ad-hoc copies of this mapping
// were a recurring source of bugs in earlier revisions of the platform.
func WeekdayOf(t time.Time) Weekday {
	if d := t.Weekday(); d == time.Sunday {
		return Sunday
	} else {
		return Weekday(d)
	}
}

// DateOf truncates a timestamp to midnight in its own location. Exceptions and
// day-level queries key on this value.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// TimeOfDay is a wall-clock instant within a day, stored as minutes since
// midnight. Shift boundaries are same-day, so the range is [0, 24h).
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "invalid time %q, want HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "time %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// MustTimeOfDay panics on a malformed literal; reserved for tests and seeds.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// TimeOfDay marshals as "HH:MM" on the wire.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	*t = parsed
	return err
}

func (t TimeOfDay) Before(other TimeOfDay) bool { return t < other }
func (t TimeOfDay) After(other TimeOfDay) bool  { return t > other }

// Sub returns the signed difference t - other in minutes.
func (t TimeOfDay) Sub(other TimeOfDay) int { return int(t) - int(other) }

// At materializes the time-of-day on a concrete date.
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, date.Location())
}

// MinutesOf projects a timestamp onto its minute-of-day, the evaluator's
// comparison axis.
func MinutesOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}
