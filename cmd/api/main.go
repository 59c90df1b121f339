package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/config"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/game"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/handler"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/journal"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/repository"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/scheduler"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/service"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/validator"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

func main() {
	// A missing .env is fine: the environment may be set by the container.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()
	clock := clockwork.NewRealClock()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		log.Info().Msg("database schema applied")
	}

	catalog, err := game.Load(cfg.Rewards.GamesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Rewards.GamesFile).Msg("failed to load game catalog")
	}

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	completionRepo := repository.NewCompletionRepository(pool)
	verificationRepo := repository.NewVerificationRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	claimRepo := repository.NewClaimRepository(pool)
	withdrawalRepo := repository.NewWithdrawalRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	ledgerRepo := repository.NewLedgerEntryRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	// Ledger and its optional journal
	var ledgerJournal service.Journal
	var journalWriter *journal.Writer
	if cfg.Journal.Dir != "" {
		journalWriter = journal.NewWriter(cfg.Journal.Dir, cfg.Journal.Prefix, clock)
		ledgerJournal = journalWriter
		log.Info().Str("dir", cfg.Journal.Dir).Msg("ledger journal enabled")
	}
	ledger := service.NewLedger(userRepo, ledgerRepo, ledgerJournal, clock)

	// Services
	userService := service.NewUserService(pool, userRepo, completionRepo, claimRepo, settingsRepo, ledger, clock, cfg.Rewards.InitialGrant)
	taskService := service.NewTaskService(pool, userRepo, taskRepo, completionRepo, verificationRepo, ledger, clock, service.TaskTimings{
		Verification: cfg.Rewards.TaskVerification(),
		AbandonAfter: cfg.Rewards.TaskVerifyTTL,
	})
	couponService := service.NewCouponService(pool, userRepo, couponRepo, claimRepo, ledger, clock)
	bonusService := service.NewBonusService(pool, userRepo, settingsRepo, ledger, clock, cfg.Rewards.BonusInterval)
	gameService := service.NewGameService(pool, userRepo, catalog, ledger)
	withdrawalService := service.NewWithdrawalService(pool, userRepo, withdrawalRepo, settingsRepo, ledger, clock)
	adminService := service.NewAdminService(pool, userRepo, settingsRepo, statsRepo, clock)

	// Background jobs
	sched, err := scheduler.New(clock, cfg.Scheduler.VerificationSweepInterval, taskService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	sched.Start()
	// Verifications abandoned while the process was down are swept at boot.
	if err := sched.RunNow(); err != nil {
		log.Error().Err(err).Msg("failed to trigger startup sweep")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Coin Rewards Ledger",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(compress.New())

	validate := validator.New()
	handlers := &handler.Handlers{
		Health:     handler.NewHealthHandler(pool),
		User:       handler.NewUserHandler(userService),
		Settings:   handler.NewSettingsHandler(adminService, validate),
		Task:       handler.NewTaskHandler(taskService, validate),
		Coupon:     handler.NewCouponHandler(couponService, validate),
		Bonus:      handler.NewBonusHandler(bonusService),
		Game:       handler.NewGameHandler(gameService, validate),
		Withdrawal: handler.NewWithdrawalHandler(withdrawalService, validate),
		Admin:      handler.NewAdminHandler(adminService),
	}

	var adminGate fiber.Handler
	if cfg.Admin.Enabled() {
		adminGate = middleware.Admin(cfg.Admin)
	} else {
		log.Warn().Msg("ADMIN_PASSWORD is not set, admin routes are disabled")
	}
	handler.Register(app, handlers, middleware.Identity(cfg.Identity), adminGate)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("identity_mode", cfg.Identity.Mode).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if err := sched.Shutdown(); err != nil {
		log.Error().Err(err).Msg("error during scheduler shutdown")
	}

	// The journal is closed after the server so no committed entry is dropped.
	if journalWriter != nil {
		if err := journalWriter.Close(); err != nil {
			log.Error().Err(err).Msg("error closing ledger journal")
		}
	}

	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
