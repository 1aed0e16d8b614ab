package entities

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollForward(t *testing.T) {
	for h := 0; h < 24; h++ {
		for interval := Interval(1); interval <= 30; interval++ {
			in := TimeOfDay{Hour: h, Minute: 17}
			got := RollForward(in, interval)
			assert.Equal(t, (h+int(interval))%24, got.Hour)
			assert.Equal(t, 17, got.Minute)
		}
	}
}

func TestNextOccurrenceAfterNow(t *testing.T) {
	tests := []struct {
		name     string
		anchor   TimeOfDay
		interval Interval
		now      TimeOfDay
		want     TimeOfDay
	}{
		{
			name:     "one interval after a just-passed anchor",
			anchor:   TimeOfDay{8, 0},
			interval: 3,
			now:      TimeOfDay{8, 1},
			want:     TimeOfDay{11, 0},
		},
		{
			name:     "wraps past midnight",
			anchor:   TimeOfDay{23, 0},
			interval: 2,
			now:      TimeOfDay{23, 30},
			want:     TimeOfDay{1, 0},
		},
		{
			name:     "anchor itself when still ahead",
			anchor:   TimeOfDay{20, 0},
			interval: 4,
			now:      TimeOfDay{7, 0},
			want:     TimeOfDay{20, 0},
		},
		{
			name:     "equal to now is not later",
			anchor:   TimeOfDay{9, 30},
			interval: 1,
			now:      TimeOfDay{9, 30},
			want:     TimeOfDay{10, 30},
		},
		{
			name:     "skips several intervals",
			anchor:   TimeOfDay{6, 15},
			interval: 2,
			now:      TimeOfDay{13, 0},
			want:     TimeOfDay{14, 15},
		},
		{
			name:     "interval longer than a day",
			anchor:   TimeOfDay{10, 0},
			interval: 30,
			now:      TimeOfDay{12, 0},
			want:     TimeOfDay{16, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrenceAfterNow(tt.anchor, tt.interval, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextOccurrenceAfterNow_HugeIntervalTerminates(t *testing.T) {
	huge := Interval(math.MaxInt64 / 30)

	got, err := NextOccurrenceAfterNow(TimeOfDay{8, 0}, huge, TimeOfDay{9, 0})
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{20, 0}, got)

	got, err = NextOccurrenceAfterNow(TimeOfDay{10, 0}, huge, TimeOfDay{9, 0})
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{10, 0}, got)

	got, err = NextOccurrenceAfterNow(TimeOfDay{8, 0}, 25, TimeOfDay{9, 0})
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{9, 0}, got)
}

func TestNextOccurrenceAfterNow_InvalidInterval(t *testing.T) {
	for _, interval := range []Interval{0, -1, -24} {
		_, err := NextOccurrenceAfterNow(TimeOfDay{8, 0}, interval, TimeOfDay{9, 0})
		assert.ErrorIs(t, err, ErrInvalidInterval)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestNextOccurrenceAfterNow_Properties(t *testing.T) {
	for interval := Interval(1); interval <= 7; interval++ {
		for a := 0; a < 24*60; a += 37 {
			for n := 0; n < 24*60; n += 53 {
				anchor := TimeOfDay{a / 60, a % 60}
				now := TimeOfDay{n / 60, n % 60}

				got, err := NextOccurrenceAfterNow(anchor, interval, now)
				require.NoError(t, err)
				require.True(t, Reachable(anchor, interval, got), "%s not reachable from %s", got, anchor)

				// Some step from the anchor lands on got and is later than now,
				// counting wrapped occurrences as the next day.
				later := false
				for k := 0; k <= 24; k++ {
					pos := anchor.Minutes() + k*int(interval)*60
					if pos%(24*60) == got.Minutes() && pos > now.Minutes() {
						later = true
						break
					}
				}
				require.True(t, later, "anchor %s interval %d now %s got %s", anchor, interval, now, got)
			}
		}
	}
}

func TestUpcomingOccurrences(t *testing.T) {
	got, err := UpcomingOccurrences(TimeOfDay{8, 0}, 3, TimeOfDay{8, 1}, 8)
	require.NoError(t, err)

	want := []TimeOfDay{
		{11, 0}, {14, 0}, {17, 0}, {20, 0}, {23, 0}, {2, 0}, {5, 0}, {8, 0},
	}
	assert.Equal(t, want, got)

	_, err = UpcomingOccurrences(TimeOfDay{8, 0}, 0, TimeOfDay{8, 1}, 3)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestSchedule_Validate(t *testing.T) {
	valid := Schedule{Anchor: TimeOfDay{8, 0}, Interval: 3, NextInstant: TimeOfDay{2, 0}}
	require.NoError(t, valid.Validate())

	unreachable := Schedule{Anchor: TimeOfDay{8, 0}, Interval: 3, NextInstant: TimeOfDay{9, 0}}
	assert.ErrorIs(t, unreachable.Validate(), ErrInvalidInput)

	wrongMinute := Schedule{Anchor: TimeOfDay{8, 0}, Interval: 3, NextInstant: TimeOfDay{11, 5}}
	assert.ErrorIs(t, wrongMinute.Validate(), ErrInvalidInput)

	noInterval := Schedule{Anchor: TimeOfDay{8, 0}, Interval: 0, NextInstant: TimeOfDay{8, 0}}
	assert.ErrorIs(t, noInterval.Validate(), ErrInvalidInterval)
}

func TestNextWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+08:00", 8*3600)
	from := time.Date(2026, 5, 10, 9, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2026, 5, 10, 11, 0, 0, 0, loc), NextWallClock(TimeOfDay{11, 0}, from))
	assert.Equal(t, time.Date(2026, 5, 11, 8, 0, 0, 0, loc), NextWallClock(TimeOfDay{8, 0}, from))
	assert.Equal(t, from, NextWallClock(TimeOfDay{9, 30}, from))
}

func TestAdvanceDue(t *testing.T) {
	due := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

	next, skipped := AdvanceDue(due, 3, due)
	assert.Equal(t, time.Date(2026, 5, 10, 11, 0, 0, 0, time.UTC), next)
	assert.Equal(t, 1, skipped)

	next, skipped = AdvanceDue(due, 3, due.Add(40*time.Second))
	assert.Equal(t, time.Date(2026, 5, 10, 11, 0, 0, 0, time.UTC), next)
	assert.Equal(t, 1, skipped)

	// Suspended for seven hours: 11:00 and 14:00 were missed.
	next, skipped = AdvanceDue(due, 3, due.Add(7*time.Hour))
	assert.Equal(t, time.Date(2026, 5, 10, 17, 0, 0, 0, time.UTC), next)
	assert.Equal(t, 3, skipped)

	// Exactly on a later boundary moves past it.
	next, skipped = AdvanceDue(due, 3, due.Add(6*time.Hour))
	assert.Equal(t, time.Date(2026, 5, 10, 17, 0, 0, 0, time.UTC), next)
	assert.Equal(t, 3, skipped)

	next, _ = AdvanceDue(time.Date(2026, 5, 10, 23, 0, 0, 0, time.UTC), 2, time.Date(2026, 5, 10, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 5, 11, 1, 0, 0, 0, time.UTC), next)
}

func TestAdvanceDue_HugeIntervalTerminates(t *testing.T) {
	due := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	huge := Interval(math.MaxInt64 / 30)

	next, skipped := AdvanceDue(due, huge, due)
	assert.Equal(t, time.Date(2026, 5, 10, 20, 0, 0, 0, time.UTC), next)
	assert.Equal(t, 1, skipped)

	next, skipped = AdvanceDue(due, 24, due.Add(49*time.Hour))
	assert.Equal(t, time.Date(2026, 5, 13, 8, 0, 0, 0, time.UTC), next)
	assert.Equal(t, 3, skipped)
}

func TestInterval_WallHours(t *testing.T) {
	assert.Equal(t, 3, Interval(3).WallHours())
	assert.Equal(t, 24, Interval(24).WallHours())
	assert.Equal(t, 6, Interval(30).WallHours())
	assert.Equal(t, 12, Interval(math.MaxInt64/30).WallHours())
}

func TestFeedingAmountByLabel(t *testing.T) {
	a, err := FeedingAmountByLabel("just right")
	require.NoError(t, err)
	assert.Equal(t, AmountJustRight, a)

	_, err = FeedingAmountByLabel("buffet")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
