package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/garagebot/internal/category"
	"github.com/dvloznov/garagebot/internal/config"
	"github.com/dvloznov/garagebot/internal/engine"
	"github.com/dvloznov/garagebot/internal/flow"
	"github.com/dvloznov/garagebot/internal/ledger/sheets"
	"github.com/dvloznov/garagebot/internal/logger"
	"github.com/dvloznov/garagebot/internal/reminder"
	"github.com/dvloznov/garagebot/internal/telegram"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := sheets.NewClient(ctx, cfg.SpreadsheetID, cfg.GoogleCredentials, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the spreadsheet")
	}
	if err := client.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Spreadsheet schema check failed")
	}
	store := sheets.NewStore(client)

	sessions := flow.NewSessionStore(cfg.SessionTTL)
	machine := flow.New(store, engine.New(store), category.NewRegistry(store.Categories), sessions, log)

	bot, err := telegram.New(cfg.TelegramToken, machine, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}

	if broadcast := telegram.NewBroadcast(bot, cfg.BroadcastChatID); broadcast != nil {
		machine.WithNotifier(broadcast)

		scanner := reminder.New(store.Cars, broadcast, log).
			WithThreshold(cfg.RemindBeforeDays)
		go scanner.Run(ctx)
	} else {
		log.Warn().Msg("REMINDER_CHAT_ID not set, deadline reminders disabled")
	}

	if cfg.SessionTTL > 0 {
		go sessions.Run(ctx, 5*time.Minute)
	}

	go bot.Start()
	log.Info().Msg("Bot started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	bot.Stop()
	log.Info().Msg("Bot exited")
}
