package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
)

var ErrNoChat = errors.New("telegram chat id is not configured")

// Notifier delivers feeding notifications to a single chat.
type Notifier struct {
	bot     Bot
	chatID  int64
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewNotifier creates a Notifier sending at most one message per every.
func NewNotifier(bot Bot, chatID int64, every time.Duration, logger *zap.Logger) (*Notifier, error) {
	if chatID == 0 {
		return nil, ErrNoChat
	}

	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}

	return &Notifier{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

// Notify sends n right away, waiting only for the rate limiter.
// A notification without sound is delivered silently.
func (n *Notifier) Notify(ctx context.Context, msg entities.Notification) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}

	m := newHTMLMessage(n.chatID, formatNotification(msg))
	m.DisableNotification = !msg.PlaySound

	sent, err := n.bot.Send(m)
	if err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}

	n.logger.Debug("telegram notification sent",
		zap.Int64("chat_id", n.chatID),
		zap.Int("message_id", sent.MessageID),
	)
	return nil
}
