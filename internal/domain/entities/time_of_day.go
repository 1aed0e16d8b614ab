package entities

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInput is returned for malformed times of day, periods or intervals.
var ErrInvalidInput = errors.New("invalid input")

// Period is the AM/PM tag used by 12-hour clock representations.
type Period string

const (
	AM Period = "AM"
	PM Period = "PM"
)

// ParsePeriod parses "am"/"pm" in any case.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToUpper(strings.TrimSpace(s))) {
	case AM:
		return AM, nil
	case PM:
		return PM, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrInvalidInput, s)
}

// TimeOfDay is a canonical 24-hour wall-clock time without a date.
type TimeOfDay struct {
	Hour   int // 0-23
	Minute int // 0-59
}

// NewTimeOfDay validates hour and minute and returns a TimeOfDay.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	t := TimeOfDay{Hour: hour, Minute: minute}
	if err := t.Validate(); err != nil {
		return TimeOfDay{}, err
	}
	return t, nil
}

// TimeOfDayOf returns the hour and minute of tm in its own location.
func TimeOfDayOf(tm time.Time) TimeOfDay {
	return TimeOfDay{Hour: tm.Hour(), Minute: tm.Minute()}
}

// Validate checks that the time of day is normalized.
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range 0-23", ErrInvalidInput, t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range 0-59", ErrInvalidInput, t.Minute)
	}
	return nil
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String renders the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Format12 renders the time on a 12-hour clock, e.g. "8:05 PM".
func (t TimeOfDay) Format12() string {
	h, m, p := To12Hour(t)
	return fmt.Sprintf("%d:%02d %s", h, m, p)
}

// To24Hour converts a 12-hour clock reading to a TimeOfDay.
// 12 AM is midnight, 12 PM is noon.
func To24Hour(hour12, minute int, period Period) (TimeOfDay, error) {
	if hour12 < 1 || hour12 > 12 {
		return TimeOfDay{}, fmt.Errorf("%w: hour %d out of range 1-12", ErrInvalidInput, hour12)
	}

	hour := hour12
	switch period {
	case AM:
		if hour12 == 12 {
			hour = 0
		}
	case PM:
		if hour12 != 12 {
			hour = hour12 + 12
		}
	default:
		return TimeOfDay{}, fmt.Errorf("%w: unknown period %q", ErrInvalidInput, period)
	}

	return NewTimeOfDay(hour, minute)
}

// To12Hour converts a TimeOfDay to its 12-hour clock reading.
func To12Hour(t TimeOfDay) (hour12, minute int, period Period) {
	switch {
	case t.Hour == 0:
		return 12, t.Minute, AM
	case t.Hour == 12:
		return 12, t.Minute, PM
	case t.Hour > 12:
		return t.Hour - 12, t.Minute, PM
	default:
		return t.Hour, t.Minute, AM
	}
}

// ParseTimeOfDay accepts "HH:MM" (24-hour) and "H:MM AM" / "H:MMPM" (12-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var period Period
	for _, p := range []Period{AM, PM} {
		if strings.HasSuffix(s, string(p)) {
			period = p
			s = strings.TrimSpace(strings.TrimSuffix(s, string(p)))
			break
		}
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("%w: time %q must look like HH:MM", ErrInvalidInput, s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: hour %q", ErrInvalidInput, hh)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: minute %q", ErrInvalidInput, mm)
	}

	if period != "" {
		return To24Hour(h, m, period)
	}
	return NewTimeOfDay(h, m)
}
