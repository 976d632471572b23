package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"qbooking/internal/config"
	"qbooking/internal/database"
	"qbooking/internal/logger"
	"qbooking/internal/mailer"
	"qbooking/internal/push"
	"qbooking/internal/repository"
	"qbooking/internal/service"
	"qbooking/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	repos := repository.NewRepositories(db)

	// The worker only reads and updates the queue; it never pushes, so the
	// noop channel is fine here.
	notifications := service.NewNotificationService(repos.Notifications, push.Noop{})

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP)

	deliveryWorker := worker.NewDeliveryWorker(
		notifications,
		repos.Users,
		smtpMailer,
		cfg.Worker.PollInterval,
		cfg.Worker.BatchSize,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveryWorker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down delivery worker...")
	deliveryWorker.Stop()
	logger.Get().Info("Delivery worker stopped")
}
