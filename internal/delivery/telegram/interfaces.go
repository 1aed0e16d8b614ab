package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
)

// Bot is the subset of *tgbotapi.BotAPI the package uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type ScheduleService interface {
	SetAnchor(ctx context.Context, anchor entities.TimeOfDay) (*entities.Schedule, error)
	SetInterval(ctx context.Context, interval entities.Interval) (*entities.Schedule, error)
	Current(ctx context.Context) (*entities.Schedule, error)
	Upcoming(ctx context.Context, count int) ([]entities.TimeOfDay, error)
	SetFeedingAmount(ctx context.Context, label string) (entities.FeedingAmount, error)
	FeedingAmount(ctx context.Context) (entities.FeedingAmount, error)
}
