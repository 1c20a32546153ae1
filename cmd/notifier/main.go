package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/logger"
	"github.com/mansoorceksport/mentorlink/internal/notify"
	"github.com/mansoorceksport/mentorlink/internal/queue"
	"github.com/mansoorceksport/mentorlink/internal/repository"
	"go.uber.org/zap"
)

// notifier consumes workflow events and sends Telegram messages
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)
	defer log.Sync()

	if err := cfg.ValidateNotifier(); err != nil {
		log.Fatal("invalid notifier configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close(context.Background())

	b, err := bot.New(cfg.Telegram.Token)
	if err != nil {
		log.Fatal("Failed to create Telegram bot", zap.Error(err))
	}

	notifier := notify.NewTelegramNotifier(b, store.Users, log)
	consumer := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, log)

	log.Info("Notifier started", zap.String("queue", cfg.RabbitMQ.Queue))
	if err := consumer.Run(ctx, notifier.Handle); err != nil && ctx.Err() == nil {
		log.Fatal("Consumer stopped", zap.Error(err))
	}
	log.Info("Notifier stopped")
}
