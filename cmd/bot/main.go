package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MallardLabs/celeris/internal/app"
	"github.com/MallardLabs/celeris/internal/infra/config"
	idb "github.com/MallardLabs/celeris/internal/infra/database"
	infraledger "github.com/MallardLabs/celeris/internal/infra/ledger"
	"github.com/MallardLabs/celeris/internal/infra/logger"
	"github.com/MallardLabs/celeris/internal/infra/scheduler"
	"github.com/MallardLabs/celeris/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Celeris points distribution bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.Get().WithField("component", "main")
	mainLogger.WithField("environment", cfg.Environment).Info("Configuration loaded")

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established")

	// Initialize Repositories
	scheduleRepo := idb.NewPostgresScheduleRepository(db)
	orgRepo := idb.NewPostgresOrganizationRepository(db)

	// Initialize Ledger Client
	ledgerClient := infraledger.NewHTTPClient(infraledger.Config{
		BaseURL: cfg.LedgerBaseURL,
		APIKey:  cfg.LedgerAPIKey,
		RealmID: cfg.LedgerRealmID,
		Timeout: cfg.LedgerTimeout,
	})
	mainLogger.Info("Ledger client initialized")

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Get().WithField("component", "telebot").WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Unhandled bot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	// Initialize Services
	adminID := strconv.FormatInt(cfg.AdminTelegramID, 10)
	scheduleService := app.NewScheduleService(scheduleRepo, orgRepo, ledgerClient,
		logger.Get().WithField("component", "schedule_service"))
	orgService := app.NewOrganizationService(orgRepo,
		logger.Get().WithField("component", "organization_service"))
	economyService := app.NewEconomyService(ledgerClient, adminID,
		logger.Get().WithField("component", "economy_service"))

	// Initialize Notification Dispatcher
	notifier := telegram.NewNotifier(telegram.NewTelebotAdapter(bot),
		logger.Get().WithField("component", "notifier"))

	// Initialize Distribution Engine
	engine := app.NewDistributionEngine(scheduleRepo, ledgerClient, notifier,
		logger.Get().WithField("component", "distribution_engine"),
		cfg.EngineMinSleep, cfg.EngineMaxSleep)

	// Initialize Reconciliation Scheduler
	reconciler := scheduler.NewReconciliationScheduler(scheduleRepo,
		logger.Get().WithField("component", "reconciler"),
		cfg.CronSpecReconcile, cfg.ExhaustedRetention)
	if err := reconciler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start reconciliation scheduler")
	}

	// Register Handlers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handlerLogger := logger.Get().WithField("component", "telegram_handlers")
	telegram.RegisterPaymentHandlers(ctx, bot, scheduleService, handlerLogger)
	telegram.RegisterOrganizationHandlers(ctx, bot, orgService, handlerLogger)
	telegram.RegisterEconomyHandlers(ctx, bot, economyService, handlerLogger)
	mainLogger.Info("Command handlers registered")

	// Start the engine and the bot
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		engine.Run(ctx)
	}()
	go bot.Start()
	mainLogger.Info("Application setup complete. Bot and distribution engine are running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	cancel()
	<-engineDone
	reconciler.Stop()
	bot.Stop()
	mainLogger.Info("Application shut down gracefully")
}
