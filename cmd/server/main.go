package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/order-bot/internal/auth"
	"github.com/ksred/order-bot/internal/bot"
	"github.com/ksred/order-bot/internal/config"
	"github.com/ksred/order-bot/internal/conversation"
	"github.com/ksred/order-bot/internal/database"
	"github.com/ksred/order-bot/internal/orders"
	"github.com/ksred/order-bot/internal/presentation"
	"github.com/ksred/order-bot/internal/replication"
	"github.com/ksred/order-bot/internal/telegram"
	"github.com/ksred/order-bot/pkg/middleware"
	"github.com/ksred/order-bot/pkg/response"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
)

const webhookPath = "/telegram/webhook"

// init configures logging before the configuration is loaded.
// Console output is used outside production; DEBUG=true lowers the level.
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main wires the store, the report mirror and the bot, then serves until SIGINT/SIGTERM
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Report mirror
	processor := replication.NewProcessor(newSpreadsheet(cfg), replication.Config{
		QueueSize:      cfg.ReplicationQueueSize,
		CallTimeout:    cfg.ReplicationCallTimeout,
		DrainTimeout:   cfg.ReplicationDrainTimeout,
		OrdersSheet:    cfg.OrdersSheet,
		PlatformsSheet: cfg.PlatformsSheet,
	})
	sink := replication.NewSink(processor, presentation.FixedZone(cfg.ReportUTCOffsetHours))

	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()
	go processor.Start(processorCtx)

	orderService := orders.NewService(db, sink)

	// The sheet is rebuilt before any event is accepted
	syncCtx, syncCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := sink.Resync(syncCtx, orderService); err != nil {
		zlog.Error().Err(err).Msg("Startup synchronization failed")
	}
	syncCancel()

	sessions, closeSessions := newSessionStore(cfg)
	defer closeSessions()

	dispatcher := bot.NewDispatcher(orderService, sessions, bot.Config{
		AdminIDs:           cfg.AdminIDs,
		OrdersPerPage:      cfg.OrdersPerPage,
		Location:           presentation.FixedZone(cfg.ReportUTCOffsetHours),
		SheetURL:           cfg.SheetURL(),
		RateLimitPerMinute: cfg.UserRateLimitPerMin,
	})

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()
	go dispatcher.Run(appCtx)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to connect to the Bot API")
	}
	api.Debug = cfg.Debug

	transport := telegram.NewTransport(dispatcher, telegram.NewSender(api), 8, 64)
	transportCtx, transportCancel := context.WithCancel(context.Background())
	defer transportCancel()
	transportDone := make(chan struct{})
	go func() {
		transport.Start(transportCtx)
		close(transportDone)
	}()

	// HTTP surface: health, operator API and, in webhook mode, update delivery
	router := gin.Default()

	authService := auth.NewService(cfg.JWTSecret, cfg.OperatorAPIKey, cfg.OperatorAPISecret)
	setupRoutes(router, cfg,
		auth.NewGinHandlers(authService),
		authService,
		replication.NewGinHandlers(sink, orderService),
		transport,
	)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	if cfg.Transport == "webhook" {
		if err := telegram.RegisterWebhook(api, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			zlog.Fatal().Err(err).Msg("Failed to register webhook")
		}
	} else {
		go func() {
			if err := transport.Poll(appCtx, api); err != nil {
				zlog.Fatal().Err(err).Msg("Polling failed")
			}
		}()
	}

	zlog.Info().
		Str("transport", cfg.Transport).
		Str("addr", cfg.HTTPAddr).
		Int("admins", len(cfg.AdminIDs)).
		Msg("Bot started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down...")

	// Stop intake first, then finish queued events, then drain the mirror
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("Server forced to shutdown")
	}

	transportCancel()
	<-transportDone

	processorCancel()
	select {
	case <-processor.Stopped():
	case <-time.After(cfg.ReplicationDrainTimeout + cfg.ReplicationCallTimeout):
		zlog.Warn().Msg("Replication did not stop in time")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	zlog.Info().Msg("Server exiting")
}

// newSpreadsheet picks the report backend. Without a sheet key rows stay in memory;
// a Google client that cannot be created leaves replication failing and logged.
func newSpreadsheet(cfg config.Config) replication.Spreadsheet {
	if cfg.SheetKey == "" {
		zlog.Warn().Msg("GOOGLE_SHEET_KEY not set, report is kept in memory only")
		return replication.NewMemorySpreadsheet()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sheet, err := replication.NewGoogleSheets(ctx, cfg.SheetKey, cfg.SheetCredentials)
	if err != nil {
		zlog.Error().Err(err).Msg("Failed to create Google Sheets client, replication disabled")
		return replication.Unavailable(err)
	}
	return sheet
}

// newSessionStore returns the conversation store and a function releasing it
func newSessionStore(cfg config.Config) (conversation.SessionStore, func()) {
	if cfg.SessionBackend != "redis" {
		return conversation.NewMemoryStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
	}

	return conversation.NewRedisStore(client, cfg.SessionTTL), func() {
		if err := client.Close(); err != nil {
			zlog.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}

// setupRoutes configures the HTTP endpoints:
//   - /healthz: liveness
//   - /api/v1/auth: operator token issuance
//   - /api/v1/internal: replication controls, operator token required
//   - /telegram/webhook: update delivery when running in webhook mode
func setupRoutes(
	router *gin.Engine,
	cfg config.Config,
	authHandlers *auth.GinHandlers,
	validator middleware.TokenValidator,
	replicationHandlers *replication.GinHandlers,
	transport *telegram.Transport,
) {
	router.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit())
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		internal := v1.Group("/internal")
		internal.Use(middleware.OperatorAuth(validator), middleware.RateLimit())
		{
			internal.POST("/resync", replicationHandlers.ResyncHandler())
			internal.GET("/stats", replicationHandlers.StatsHandler())
		}
	}

	if cfg.Transport == "webhook" {
		router.POST(webhookPath, middleware.WebhookSecret(cfg.WebhookSecret), transport.WebhookHandler())
	}
}
