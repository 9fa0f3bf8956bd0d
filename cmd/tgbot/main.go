package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alias1177/FraudShield/internal/classifier"
	"github.com/Alias1177/FraudShield/internal/config"
	"github.com/Alias1177/FraudShield/internal/history"
	"github.com/Alias1177/FraudShield/internal/logger"
	"github.com/Alias1177/FraudShield/internal/session"
	"github.com/Alias1177/FraudShield/internal/storage"
	"github.com/Alias1177/FraudShield/internal/telegram"
	"github.com/Alias1177/FraudShield/internal/theme"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Bot failed")
	}
	log.Info().Msg("Bot stopped")
}

// run serves updates until an interrupt and releases storage on every return path
func run(cfg *config.Config) error {
	// Get bot token from environment
	if cfg.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN not set in environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	client := classifier.NewClient(cfg)
	if msg, err := client.Health(ctx); err != nil {
		log.Warn().Err(err).Str("url", client.BaseURL()).Msg("Classification service not reachable yet")
	} else {
		log.Info().Str("url", client.BaseURL()).Str("message", msg).Msg("Classification service is up")
	}

	// Each chat gets its own history and theme under a chat-scoped prefix
	factory := func(ctx context.Context, chatID int64) (*session.Session, error) {
		scoped := storage.Scoped(store, fmt.Sprintf("chat:%d", chatID))
		hist := history.NewStore(history.NewKVPersister(scoped))
		hist.Load(ctx)
		return session.New(client, hist, theme.NewPrefs(scoped),
			session.WithMaxLength(cfg.MaxLength),
			session.WithLogger(log.With().Str("component", "session").Int64("chat_id", chatID).Logger()),
		), nil
	}

	// Initialize Telegram bot
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)
	defer api.StopReceivingUpdates()

	telegram.NewBot(api, factory, time.Local).Run(ctx, updates)
	return nil
}
