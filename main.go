package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"survey-rewards-system/config"
	"survey-rewards-system/handlers"
	"survey-rewards-system/middleware"
	"survey-rewards-system/models"
	"survey-rewards-system/services"
	"survey-rewards-system/utils"
	"survey-rewards-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if !dotenv {
		logger.Info("⚠️  No .env file found, reading environment variables directly")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.Models()...); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger := services.NewRewardsLedger(services.NewGormRecordStore(db), logger.Named("ledger"))
	surveyService := services.NewSurveyService(db, logger.Named("surveys"))
	responseService := services.NewResponseService(db, logger.Named("responses"))

	var statementService *services.StatementService
	if cfg.R2.Enabled() {
		uploader, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		statementService = services.NewStatementService(db, uploader, logger.Named("statements"))
	} else {
		logger.Warn("R2 not configured, statement export disabled")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
	})
	app.Use(recover.New())

	// Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayServiceToken, logger.Named("gateway")))

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	allowedOrigins := strings.Join(origins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	secured := app.Group("/s", middleware.UserContextMiddleware(logger.Named("user_ctx")))

	var streamAuth fiber.Handler
	if cfg.AuthServiceURL != "" {
		authClient := services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.ServiceToken)
		authClient.Client = utils.NewHTTPClient(10 * time.Second)
		streamAuth = middleware.SSEAuthMiddleware(authClient, logger.Named("sse_auth"))
	} else {
		logger.Warn("AUTH_SERVICE_URL not set, rewards stream disabled")
	}

	handlers.SetupRewardsRoutes(app, &handlers.RewardsHandler{
		Ledger:         ledger,
		Statements:     statementService,
		StreamInterval: cfg.SnapshotStreamTick,
		Done:           ctx.Done(),
		Log:            logger.Named("rewards_api"),
	}, secured, streamAuth)
	handlers.SetupSurveyRoutes(app, &handlers.SurveyHandler{
		Surveys:   surveyService,
		Responses: responseService,
		Log:       logger.Named("surveys_api"),
	}, secured)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.WalletServiceURL != "" {
		wallet := services.NewWalletClient(cfg.WalletServiceURL, cfg.ServiceToken)
		wallet.Client = utils.NewHTTPClient(10 * time.Second)
		payouts := services.NewPayoutService(db, wallet, logger.Named("payouts"))
		sched, err := payouts.StartPayoutScheduler(gctx, cfg.PayoutEvery, cfg.PayoutBatchSize)
		if err != nil {
			logger.Fatal("failed to start payout scheduler", zap.Error(err))
		}
		defer func() { _ = sched.Shutdown() }()
		logger.Info("✅ Payout dispatch running", zap.Duration("every", cfg.PayoutEvery))
	} else {
		logger.Warn("WALLET_SERVICE_URL not set, commerce payouts stay pending")
	}

	if cfg.ProfileServiceURL != "" {
		syncWorker := workers.NewRespondentSyncWorker(db, logger.Named("respondent_sync"),
			cfg.ProfileServiceURL, cfg.ProfileSyncPath, cfg.ServiceToken, cfg.ProfileSyncEvery,
			utils.NewHTTPClient(30*time.Second))
		g.Go(func() error {
			syncWorker.Run(gctx)
			return nil
		})
	} else {
		logger.Warn("PROFILE_SERVICE_URL not set, respondent sync disabled")
	}

	g.Go(func() error {
		logger.Info("✅ Server running", zap.String("addr", cfg.ListenAddr), zap.String("cors", allowedOrigins))
		return app.Listen(cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
	}
}
