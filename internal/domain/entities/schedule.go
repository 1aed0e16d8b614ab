package entities

import (
	"fmt"
	"time"
)

// ErrInvalidInterval is returned for non-positive feeding intervals.
var ErrInvalidInterval = fmt.Errorf("%w: interval must be a positive number of hours", ErrInvalidInput)

const (
	MinSelectableInterval = 1
	MaxSelectableInterval = 6
)

// Interval is the number of hours between two feedings.
type Interval int

// Validate rejects zero and negative intervals.
func (i Interval) Validate() error {
	if i <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, int(i))
	}
	return nil
}

// WallHours is the interval reduced to at most one day: the stored schedule
// carries no date, so 30h feeds every 6h and 24h once a day.
func (i Interval) WallHours() int {
	h := int(i % 24)
	if h == 0 {
		return 24
	}
	return h
}

// Selectable reports whether the interval is one the user can pick (1-6 hours).
func (i Interval) Selectable() bool {
	return i >= MinSelectableInterval && i <= MaxSelectableInterval
}

// Schedule is the persisted feeding plan.
type Schedule struct {
	Anchor      TimeOfDay // user-set base time
	Interval    Interval
	NextInstant TimeOfDay // next time of day a feeding fires
}

// Validate checks ranges and that NextInstant is reachable from Anchor.
func (s Schedule) Validate() error {
	if err := s.Anchor.Validate(); err != nil {
		return fmt.Errorf("anchor: %w", err)
	}
	if err := s.Interval.Validate(); err != nil {
		return err
	}
	if err := s.NextInstant.Validate(); err != nil {
		return fmt.Errorf("next instant: %w", err)
	}
	if !Reachable(s.Anchor, s.Interval, s.NextInstant) {
		return fmt.Errorf("%w: next instant %s is not reachable from %s every %dh",
			ErrInvalidInput, s.NextInstant, s.Anchor, int(s.Interval))
	}
	return nil
}

// RollForward advances t by interval hours, wrapping past midnight.
// The minute never changes. interval must be positive.
func RollForward(t TimeOfDay, interval Interval) TimeOfDay {
	hour := (t.Hour + int(interval)%24) % 24
	if hour < 0 {
		hour += 24
	}
	return TimeOfDay{Hour: hour, Minute: t.Minute}
}

// NextOccurrenceAfterNow walks anchor, anchor+interval, anchor+2*interval, ...
// and returns the first occurrence strictly later than now. Positions are
// counted from the anchor's day, so an occurrence that wrapped past 24:00 is
// always later than now.
func NextOccurrenceAfterNow(anchor TimeOfDay, interval Interval, now TimeOfDay) (TimeOfDay, error) {
	if err := interval.Validate(); err != nil {
		return TimeOfDay{}, err
	}
	if err := anchor.Validate(); err != nil {
		return TimeOfDay{}, fmt.Errorf("anchor: %w", err)
	}
	if err := now.Validate(); err != nil {
		return TimeOfDay{}, fmt.Errorf("now: %w", err)
	}

	pos := anchor.Minutes()
	limit := now.Minutes()

	// From a day onwards the second occurrence is already past 24:00.
	if interval >= 24 {
		if pos > limit {
			return anchor, nil
		}
		return RollForward(anchor, interval), nil
	}

	step := int(interval) * 60
	for pos <= limit {
		pos += step
	}

	return TimeOfDay{Hour: (pos / 60) % 24, Minute: pos % 60}, nil
}

// UpcomingOccurrences returns the next count occurrences after now.
func UpcomingOccurrences(anchor TimeOfDay, interval Interval, now TimeOfDay, count int) ([]TimeOfDay, error) {
	next, err := NextOccurrenceAfterNow(anchor, interval, now)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}

	out := make([]TimeOfDay, 0, count)
	for range count {
		out = append(out, next)
		next = RollForward(next, interval)
	}
	return out, nil
}

// Reachable reports whether target equals anchor rolled forward a
// non-negative number of times.
func Reachable(anchor TimeOfDay, interval Interval, target TimeOfDay) bool {
	if interval <= 0 || anchor.Minute != target.Minute {
		return false
	}
	t := anchor
	for range 24 {
		if t == target {
			return true
		}
		t = RollForward(t, interval)
	}
	return false
}

// NextWallClock returns the first instant at or after from whose wall-clock
// hour and minute equal t, with zero seconds, in from's location.
func NextWallClock(t TimeOfDay, from time.Time) time.Time {
	loc := from.Location()
	c := time.Date(from.Year(), from.Month(), from.Day(), t.Hour, t.Minute, 0, 0, loc)
	if c.Before(from) {
		c = time.Date(from.Year(), from.Month(), from.Day()+1, t.Hour, t.Minute, 0, 0, loc)
	}
	return c
}

// AdvanceDue moves due forward by whole intervals until it is after now.
// It returns the new due instant and the number of intervals skipped (>= 1).
// Intervals of a day or more are reduced by WallHours.
func AdvanceDue(due time.Time, interval Interval, now time.Time) (time.Time, int) {
	hours := interval.WallHours()
	step := time.Duration(hours) * time.Hour

	k := 1
	if now.After(due) {
		k = int(now.Sub(due)/step) + 1
	}

	next := addWallHours(due, k*hours)
	for !next.After(now) {
		k++
		next = addWallHours(due, k*hours)
	}
	for k > 1 {
		prev := addWallHours(due, (k-1)*hours)
		if !prev.After(now) {
			break
		}
		k--
		next = prev
	}

	return next, k
}

// addWallHours adds hours on the wall clock so the minute is kept across
// DST transitions.
func addWallHours(t time.Time, hours int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+hours, t.Minute(), t.Second(), 0, t.Location())
}
