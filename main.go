package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pickup-match-system/config"
	"pickup-match-system/events"
	"pickup-match-system/handlers"
	"pickup-match-system/middleware"
	"pickup-match-system/models"
	"pickup-match-system/services"
	"pickup-match-system/utils"
	"pickup-match-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogPretty)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // photos are capped at 5MB
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))
	app.Use(middleware.PlayerContextMiddleware())

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Player-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// --- Photo storage: R2 when configured, local disk otherwise ---
	var photos services.PhotoStore
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Store(ctx, cfg.R2)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize R2 client")
		}
		photos = r2
	} else {
		local := utils.NewLocalStore(cfg.UploadDir)
		if err := local.EnsureDir(); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure upload dir")
		}
		app.Static(local.URLPrefix, local.Dir)
		photos = local
	}

	// --- Match events: RabbitMQ fanout when configured ---
	var emitter events.Emitter = events.LogEmitter{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitEmitter(cfg.RabbitMQURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rabbit.Close()
		emitter = rabbit
	}

	clock := clockwork.NewRealClock()
	playerService := services.NewPlayerService(db, photos)
	matchService := services.NewMatchService(db, clock)
	evaluationService := services.NewEvaluationService(db)
	notificationService := services.NewNotificationService(db, clock, cfg.NotifyMaxAttempts)
	closingService := services.NewClosingService(db, clock, cfg.MatchResultTimeout, notificationService, emitter)

	scheduler, err := services.StartClosingScheduler(closingService, cfg.CloseTickInterval, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start closing scheduler")
	}

	var sender workers.Sender = workers.LogSender{}
	if cfg.NotifyWebhookURL != "" {
		sender = workers.NewWebhookSender(cfg.NotifyWebhookURL, cfg.NotifyServiceToken, utils.HTTPClient)
	}
	workers.NewNotificationWorker(notificationService, sender, cfg.NotifyPollInterval).Start(ctx)

	handlers.SetupPlayerRoutes(app, playerService, evaluationService)
	handlers.SetupMatchRoutes(app, matchService)
	handlers.SetupNotificationRoutes(app, notificationService)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("✅ Server running")
	log.Info().Dur("every", cfg.CloseTickInterval).Dur("timeout", cfg.MatchResultTimeout).Msg("✅ Match closing scheduler running")
	log.Info().Str("origins", allowedOrigins).Msg("✅ CORS configured")

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown")
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
