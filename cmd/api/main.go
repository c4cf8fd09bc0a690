package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
	config "github.com/wisdomAdida/edmerge/configs"
	"github.com/wisdomAdida/edmerge/database"
	"github.com/wisdomAdida/edmerge/events"
	"github.com/wisdomAdida/edmerge/handlers"
	"github.com/wisdomAdida/edmerge/jobs"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/notifications"
	"github.com/wisdomAdida/edmerge/payments"
	"github.com/wisdomAdida/edmerge/routes"
	"github.com/wisdomAdida/edmerge/services"
	"github.com/wisdomAdida/edmerge/storage"
	"github.com/wisdomAdida/edmerge/storage/memstore"
	"github.com/wisdomAdida/edmerge/utils"
	"github.com/wisdomAdida/edmerge/websocket"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log.SetLevel(cfg.LogrusLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}

	ids, err := utils.NewTransactionIDs(cfg.NodeID)
	if err != nil {
		log.WithError(err).Fatal("Failed to start transaction id generator")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.BootstrapServers != "" {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.BootstrapServers, cfg.Kafka.LedgerTopic)
		if err != nil {
			log.WithError(err).Fatal("Failed to create Kafka producer")
		}
		publisher = kp
		log.WithField("topic", cfg.Kafka.LedgerTopic).Info("Publishing ledger events to Kafka")
	}
	defer publisher.Close()

	var mailer notifications.EmailSender
	if cfg.SMTP.Host != "" {
		mailer = notifications.NewSMTPMailer(notifications.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		log.Warn("SMTP_HOST not set, admin email alerts disabled")
	}

	hub := websocket.NewHub()
	dispatcher := notifications.NewDispatcher(hub, publisher, mailer, cfg.AdminEmail)

	flutterwave := payments.NewFlutterwaveGateway(payments.FlutterwaveConfig{
		SecretKey:   cfg.Flutterwave.SecretKey,
		WebhookHash: cfg.Flutterwave.WebhookHash,
		BaseURL:     cfg.Flutterwave.BaseURL,
		Timeout:     cfg.Flutterwave.Timeout,
	})
	stripe := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	withdrawals := services.NewWithdrawalService(store, withdrawalLimits(cfg.Limits), ids, dispatcher)
	subscriptions := services.NewSubscriptionService(store, flutterwave, ids, dispatcher, cfg.AppURL)
	h := handlers.New(handlers.Deps{
		Balances:      services.NewBalanceService(store),
		Withdrawals:   withdrawals,
		Payouts:       services.NewPayoutService(withdrawals, flutterwave, cfg.AppURL),
		Purchases:     services.NewPurchaseService(store, stripe, dispatcher),
		Mentors:       services.NewMentorService(store, dispatcher),
		Subscriptions: subscriptions,
		Stripe:        stripe,
		Flutterwave:   flutterwave,
		Hub:           hub,
		JWTSecret:     cfg.SessionSecret,
	})

	scheduler, err := jobs.NewScheduler(ctx, jobs.Schedule{
		WithdrawalExpiry:     cfg.Jobs.WithdrawalExpiryCron,
		SubscriptionExpiry:   cfg.Jobs.SubscriptionExpiryCron,
		WithdrawalStaleAfter: cfg.Jobs.WithdrawalStaleAfter,
	}, withdrawals, subscriptions)
	if err != nil {
		log.WithError(err).Fatal("Invalid job schedule")
	}
	scheduler.Start()
	log.Info("Cron jobs scheduled successfully")

	app := fiber.New(fiber.Config{
		AppName:       "EdMerge Payments",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  handlers.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Stripe-Signature, verif-hash, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	routes.Setup(app, h, cfg.SessionSecret)

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		<-scheduler.Stop().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).Info("Server is running")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Server failed to start")
	}
	dispatcher.Wait()
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("Using in-memory storage; data is lost on restart")
		return memstore.New(), nil
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.SeedAdmin(ctx, db, cfg.AdminEmail, cfg.AdminFullName); err != nil {
		return nil, err
	}
	return database.NewStore(db), nil
}

func withdrawalLimits(l config.Limits) map[string]services.WithdrawalLimits {
	return map[string]services.WithdrawalLimits{
		models.RoleTutor:      {Min: l.TutorMin, Max: l.TutorMax},
		models.RoleMentor:     {Min: l.MentorMin, Max: l.MentorMax},
		models.RoleResearcher: {Min: l.ResearcherMin, Max: l.ResearcherMax},
	}
}
