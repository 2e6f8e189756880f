package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"modlog-bot/bot"
	"modlog-bot/config"
	"modlog-bot/handlers"
	"modlog-bot/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Log.WithError(err).Fatal("Error loading configuration")
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	b, err := bot.New(ctx, cfg)
	if err != nil {
		utils.Log.WithError(err).Fatal("Error creating bot")
	}
	defer b.Close()

	handlers.Register(b)

	if err := b.Run(ctx); err != nil {
		utils.Log.WithError(err).Error("Bot stopped")
	}
}
