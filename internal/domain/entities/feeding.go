package entities

import (
	"fmt"
	"strings"
	"time"
)

// FeedingAmount is how much food the feeder dispenses, expressed as the
// number of seconds the dispenser runs.
type FeedingAmount struct {
	Label    string
	Duration int // seconds
}

// Feeding amount presets.
var (
	AmountLittle    = FeedingAmount{Label: "Little", Duration: 3}
	AmountJustRight = FeedingAmount{Label: "Just Right", Duration: 5}
	AmountALot      = FeedingAmount{Label: "A Lot", Duration: 10}
)

// DefaultFeedingAmount is used until the user picks one.
var DefaultFeedingAmount = AmountJustRight

// FeedingAmounts lists the presets in display order.
func FeedingAmounts() []FeedingAmount {
	return []FeedingAmount{AmountLittle, AmountJustRight, AmountALot}
}

// FeedingAmountByLabel looks up a preset, ignoring case.
func FeedingAmountByLabel(label string) (FeedingAmount, error) {
	for _, a := range FeedingAmounts() {
		if strings.EqualFold(a.Label, strings.TrimSpace(label)) {
			return a, nil
		}
	}
	return FeedingAmount{}, fmt.Errorf("%w: unknown feeding amount %q", ErrInvalidInput, label)
}

// FeedingEvent records a single fired feeding.
type FeedingEvent struct {
	ID        string
	Scheduled TimeOfDay // the instant that fired
	Next      TimeOfDay // the instant armed afterwards
	FiredAt   time.Time
	Late      bool // fired after the scheduled minute had passed
	Skipped   int  // whole intervals missed while the monitor was not ticking
}

// Notification is the payload handed to a notification dispatcher.
type Notification struct {
	Title     string
	Body      string
	PlaySound bool
}

// FeedingTitle is the title of every feeding notification.
const FeedingTitle = "🐟 Feeding Time!"

// FeedingMessages are picked at random for the notification body.
var FeedingMessages = []string{
	"Dinner is served, fish squad! 🐠",
	"Food is on the way, swim up! 🍽️",
	"Feeding time, nobody panic 😄",
	"Fins out, snacks incoming! 🐡",
	"The feeder just did its job 🌊",
	"Hungry fish detected, feeding now 🎣",
	"Another meal, right on schedule 🐟",
	"Breakfast, lunch or dinner, it's food 🍲",
}

// DefaultVibrationPattern buzzes three times for a second each.
var DefaultVibrationPattern = []time.Duration{
	1000 * time.Millisecond,
	1000 * time.Millisecond,
	1000 * time.Millisecond,
}
