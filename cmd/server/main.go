package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"

	"github.com/irrelevantclub/toolkit-backend/internal/auth"
	"github.com/irrelevantclub/toolkit-backend/internal/config"
	"github.com/irrelevantclub/toolkit-backend/internal/handlers"
	"github.com/irrelevantclub/toolkit-backend/internal/logging"
	"github.com/irrelevantclub/toolkit-backend/internal/middleware"
	"github.com/irrelevantclub/toolkit-backend/internal/notify"
	"github.com/irrelevantclub/toolkit-backend/internal/routes"
	"github.com/irrelevantclub/toolkit-backend/internal/services"
	"github.com/irrelevantclub/toolkit-backend/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	st, err := store.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	// System log sink (ERROR+ async batch) and retention cleanup
	var sinkHandler *logging.SinkHandler
	cleanupDone := make(chan struct{})
	if sink, ok := st.(store.LogSink); ok {
		sinkHandler = logging.NewSinkHandler(sink, stdout)
		slog.SetDefault(slog.New(logging.Fanout{stdout, sinkHandler}))
		logging.StartCleanup(sink, cfg.LogRetention, cleanupDone)
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Services
	issuer := auth.NewIssuer(cfg.SecretKey, cfg.TokenTTL)
	phrase, err := auth.NewPhraseVerifier(cfg.SecretPhrase)
	if err != nil {
		slog.Error("invalid secret phrase", "error", err)
		os.Exit(1)
	}
	userService := services.NewUserService(st, cfg)

	senderCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	sender, err := notify.NewSender(senderCtx, cfg)
	cancel()
	if err != nil {
		slog.Error("email sender init failed", "provider", cfg.EmailProvider, "error", err)
		os.Exit(1)
	}
	notifier := notify.New(sender, cfg)

	// Handlers
	userHandler := handlers.NewUserHandler(userService, issuer, phrase, notifier)
	healthHandler := handlers.NewHealthHandler(st)
	adminHandler := handlers.NewAdminHandler(userService)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, issuer, userService, userHandler, healthHandler, adminHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "email_provider", cfg.EmailProvider)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Let in-flight emails finish before the sink and store go away.
	notifier.Wait()

	close(cleanupDone)
	if sinkHandler != nil {
		sinkHandler.Stop()
		slog.SetDefault(slog.New(stdout))
	}
	sentry.Flush(2 * time.Second)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Close(closeCtx); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Error interno del servidor"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error",
			"method", c.Method(), "path", c.Path(),
			"request_id", c.Locals("requestid"), "error", err.Error())
		message = "Error interno del servidor"
	}

	return c.Status(code).JSON(fiber.Map{
		"message": message,
	})
}
