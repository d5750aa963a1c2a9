package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/giro-sh/license-server/internal/config"
	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/logx"
	"github.com/giro-sh/license-server/internal/metrics"
)

func main() {
	cfg := config.Load()
	switch cfg.LogLevel {
	case "debug":
		logx.SetLevel(logx.LevelDebug)
	case "warn":
		logx.SetLevel(logx.LevelWarn)
	case "error":
		logx.SetLevel(logx.LevelError)
	default:
		logx.SetLevel(logx.LevelInfo)
	}

	if missing := config.MissingRequired(); len(missing) > 0 {
		logx.Fatalf("missing required environment variables: %v", missing)
	}

	logx.Info("starting giro license server")

	metrics.Register()
	metrics.Info.WithLabelValues(getEnv("APP_VERSION", "1.0.0")).Set(1)

	container := NewContainer(cfg)
	defer container.Cleanup()

	bgCtx, cancelBg := signalContext()
	defer cancelBg()
	container.StartBackgroundServices(bgCtx)

	app := fiber.New(fiber.Config{
		AppName:               "giro-license-server",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		BodyLimit:             2 * 1024 * 1024,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Header: "X-Request-ID"}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.FrontendURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Client-Time, X-Request-ID",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
	}))
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))

	container.Services.RegisterRoutes(app)

	app.Use(notFoundHandler)

	startServer(app, cfg)
}

func globalErrorHandler(c *fiber.Ctx, err error) error {
	logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"request_id": c.Get("X-Request-ID"),
	}).Errorf("request error: %v", err)

	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{"error": fiber.Map{"code": "FIBER_ERROR", "message": e.Message}})
	}

	if e, ok := err.(*errx.Error); ok {
		body := fiber.Map{"code": e.Code, "message": e.Message}
		if len(e.Details) > 0 {
			body["details"] = e.Details
		}
		return c.Status(e.HTTPStatus).JSON(fiber.Map{"error": body})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{"code": "INTERNAL", "message": "an unexpected error occurred"},
	})
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": fiber.Map{"code": "NOT_FOUND", "message": fmt.Sprintf("no route for %s %s", c.Method(), c.Path())},
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func startServer(app *fiber.App, cfg *config.Config) {
	addr := fmt.Sprintf("%s:%d", cfg.Listen.Host, cfg.Listen.Port)

	go func() {
		logx.Infof("listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			logx.Fatalf("server error: %v", err)
		}
	}()

	gracefulShutdown(app)
}

func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logx.Infof("received signal: %v", sig)
	logx.Info("shutting down gracefully")

	if err := app.ShutdownWithTimeout(30); err != nil {
		logx.Errorf("server forced to shutdown: %v", err)
	}

	logx.Info("server exited successfully")
}
