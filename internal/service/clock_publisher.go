package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/store"
)

// DefaultClockPath is where the device-facing wall clock is published.
const DefaultClockPath = "HISTORY/philippineTime"

// ClockPublisher mirrors the current hour and minute of a zone into the store
// so that devices without a reliable clock can read it.
type ClockPublisher struct {
	writer   NodeWriter
	clock    Clock
	location *time.Location
	path     string
	timeout  time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	last entities.TimeOfDay
	sent bool
}

// NewClockPublisher creates a ClockPublisher writing under path.
func NewClockPublisher(writer NodeWriter, clock Clock, location *time.Location, path string, logger *zap.Logger) (*ClockPublisher, error) {
	if location == nil {
		location = time.Local
	}
	if path == "" {
		path = DefaultClockPath
	}
	clean, err := store.CleanPath(path)
	if err != nil {
		return nil, fmt.Errorf("clock path: %w", err)
	}
	return &ClockPublisher{
		writer:   writer,
		clock:    clock,
		location: location,
		path:     clean,
		timeout:  5 * time.Second,
		logger:   logger,
	}, nil
}

// Run publishes once per second and blocks until ctx is done.
func (p *ClockPublisher) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(p.location),
		cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(p.logger.Named("cron")))),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err := c.AddFunc("@every 1s", func() {
		if err := p.Publish(ctx); err != nil {
			p.logger.Warn("failed to publish wall clock", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("add clock job: %w", err)
	}

	c.Start()
	p.logger.Info("clock publisher started",
		zap.String("location", p.location.String()),
		zap.String("path", p.path),
	)

	<-ctx.Done()

	<-c.Stop().Done()
	p.logger.Info("clock publisher stopped")

	return nil
}

// Publish writes the current hour and minute if the minute changed since the
// last successful write.
func (p *ClockPublisher) Publish(ctx context.Context) error {
	now := entities.TimeOfDayOf(p.clock.Now().In(p.location))

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sent && p.last == now {
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.writer.Update(writeCtx, map[string]any{
		p.path + "/hour":   now.Hour,
		p.path + "/minute": now.Minute,
	})
	if err != nil {
		return fmt.Errorf("publish clock %s: %w", now, err)
	}

	p.last = now
	p.sent = true
	return nil
}
