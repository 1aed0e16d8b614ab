package service

import (
	"context"
	"time"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
)

// ScheduleRepository is the Schedule Store as seen by the user-facing service.
type ScheduleRepository interface {
	Load(ctx context.Context) (*entities.Schedule, error)
	LoadAnchor(ctx context.Context) (entities.TimeOfDay, error)
	LoadInterval(ctx context.Context) (entities.Interval, error)
	Save(ctx context.Context, s entities.Schedule) error
	SaveInterval(ctx context.Context, interval entities.Interval) error
	LoadFeedingAmount(ctx context.Context) (entities.FeedingAmount, error)
	SaveFeedingAmount(ctx context.Context, amount entities.FeedingAmount) error
}

// MonitorRepository is the part of the Schedule Store the monitor uses.
type MonitorRepository interface {
	Load(ctx context.Context) (*entities.Schedule, error)
	LoadUnchecked(ctx context.Context) (*entities.Schedule, error)
	AdvanceNextInstant(ctx context.Context, from entities.Schedule, next entities.TimeOfDay) error
	AppendFeedingEvent(ctx context.Context, ev entities.FeedingEvent) error
}

// Notifier delivers a notification immediately; timing is the caller's job.
type Notifier interface {
	Notify(ctx context.Context, n entities.Notification) error
}

// Vibrator plays a vibration pattern of on/off durations.
type Vibrator interface {
	Vibrate(ctx context.Context, pattern []time.Duration) error
}

// NodeWriter writes several store nodes at once.
type NodeWriter interface {
	Update(ctx context.Context, values map[string]any) error
}
