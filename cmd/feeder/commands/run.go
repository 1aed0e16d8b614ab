package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aliskhannn/fish-feeder/internal/delivery/device"
	"github.com/aliskhannn/fish-feeder/internal/delivery/telegram"
	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/service"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the feeding monitor until interrupted",
		Long: `Run the feeding monitor, the device clock publisher and, when a Telegram
token is configured, the Telegram bot. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: runFeeder,
	}
}

func runFeeder(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.logger
	cfg := a.cfg
	scheduleService := a.scheduleService()

	var wg sync.WaitGroup
	defer wg.Wait()

	// Cancelled before wg.Wait on every return path.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var notifier service.Notifier = device.NewLogNotifier(log.Named("notifier"))

	if cfg.TelegramAPIToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			return fmt.Errorf("telegram bot: %w", err)
		}
		log.Info("authorized on telegram", zap.String("account", bot.Self.UserName))

		if cfg.Telegram.ChatID != 0 {
			notifier, err = telegram.NewNotifier(bot, cfg.Telegram.ChatID, cfg.Telegram.RateEvery, log.Named("telegram"))
			if err != nil {
				return err
			}
		} else {
			log.Warn("telegram.chat_id not set, feeding notifications go to the log")
		}

		if cfg.Telegram.Commands {
			if _, err := bot.Request(tgbotapi.NewSetMyCommands(telegram.Commands()...)); err != nil {
				log.Warn("failed to set bot commands", zap.Error(err))
			}

			handler := telegram.NewHandler(bot, log.Named("telegram"), scheduleService, cfg.Telegram.ChatID)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := handler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("telegram handler failed", zap.Error(err))
				}
			}()
		}
	}

	monitor := service.NewFeedingMonitor(
		a.repo,
		notifier,
		device.NewVibrator(log.Named("vibrator")),
		service.RealClock{},
		service.MonitorConfig{
			Location:         a.location,
			MaxSleep:         cfg.Monitor.MaxSleep,
			IdleRetry:        cfg.Monitor.IdleRetry,
			StoreTimeout:     cfg.Monitor.StoreTimeout,
			VibrationPattern: cfg.Monitor.VibrationPattern,
			Messages:         entities.FeedingMessages,
		},
		log.Named("monitor"),
	)
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	cancelWatch, err := a.repo.Watch(ctx, monitor.Reload)
	if err != nil {
		return fmt.Errorf("watch schedule: %w", err)
	}
	defer cancelWatch()

	if cfg.Clock.Enabled {
		clockLoc, err := entities.LoadLocation(cfg.Clock.Timezone)
		if err != nil {
			return fmt.Errorf("clock timezone: %w", err)
		}

		publisher, err := service.NewClockPublisher(a.kv, service.RealClock{}, clockLoc, cfg.Clock.Path, log.Named("clock"))
		if err != nil {
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := publisher.Run(ctx); err != nil {
				log.Error("clock publisher failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}
