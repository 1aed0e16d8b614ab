// Package device holds the dispatchers used when no phone or bot is attached:
// they record what would have been played on the device.
package device

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
)

// Vibrator logs vibration patterns. The service has no motor of its own.
type Vibrator struct {
	logger *zap.Logger
}

func NewVibrator(logger *zap.Logger) *Vibrator {
	return &Vibrator{logger: logger}
}

func (v *Vibrator) Vibrate(ctx context.Context, pattern []time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var total time.Duration
	for _, d := range pattern {
		total += d
	}

	v.logger.Info("vibrate",
		zap.Durations("pattern", pattern),
		zap.Duration("total", total),
	)
	return nil
}

// LogNotifier writes notifications to the log instead of a chat.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg entities.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.logger.Info("notification",
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.Bool("sound", msg.PlaySound),
	)
	return nil
}
