package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Handler serves the feeding schedule commands over Telegram.
type Handler struct {
	bot             Bot
	logger          *zap.Logger
	scheduleService ScheduleService
	allowedChatID   int64 // 0 accepts every chat
}

func NewHandler(
	bot Bot,
	logger *zap.Logger,
	scheduleService ScheduleService,
	allowedChatID int64,
) *Handler {
	return &Handler{
		bot:             bot,
		logger:          logger,
		scheduleService: scheduleService,
		allowedChatID:   allowedChatID,
	}
}

// Commands lists the bot commands for the Telegram menu.
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "set", Description: "Set the first feeding time (/set 8:00 AM)"},
		{Command: "interval", Description: "Feed every N hours"},
		{Command: "schedule", Description: "Show upcoming feeding times"},
		{Command: "amount", Description: "Choose the feeding amount"},
		{Command: "help", Description: "Help"},
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.logger.Debug("callback received",
			zap.Int64("user_id", update.CallbackQuery.From.ID),
			zap.String("data", update.CallbackQuery.Data),
		)
		if cb := update.CallbackQuery; cb.Message != nil && h.allowed(cb.Message.Chat.ID) {
			h.handleCallback(ctx, cb)
		}
		return
	}

	if update.Message == nil {
		h.logger.Debug("update without message and callback")
		return
	}

	chatID := update.Message.Chat.ID
	if !h.allowed(chatID) {
		h.logger.Debug("update from foreign chat ignored", zap.Int64("chat_id", chatID))
		return
	}

	h.logger.Debug("update received",
		zap.Int64("chat_id", chatID),
		zap.String("text", update.Message.Text),
	)

	if !update.Message.IsCommand() {
		h.send(newHTMLMessage(chatID, msgUnknownCommand))
		return
	}

	args := update.Message.CommandArguments()

	switch update.Message.Command() {
	case "start":
		h.send(newHTMLMessage(chatID, msgWelcome))

	case "help":
		h.send(newHTMLMessage(chatID, msgHelp))

	case "set":
		_ = h.withErrorHandling(h.setHandler(args))(ctx, chatID)

	case "interval":
		_ = h.withErrorHandling(h.intervalHandler(args))(ctx, chatID)

	case "schedule":
		_ = h.withErrorHandling(h.scheduleHandler())(ctx, chatID)

	case "amount":
		_ = h.withErrorHandling(h.amountHandler(args))(ctx, chatID)

	default:
		h.send(newHTMLMessage(chatID, msgUnknownCommand))
	}
}

func (h *Handler) allowed(chatID int64) bool {
	return h.allowedChatID == 0 || h.allowedChatID == chatID
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Error("failed to send telegram message",
			zap.Error(err),
		)
	}
}
