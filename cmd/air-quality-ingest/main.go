package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/air-quality-ingest/internal/airquality"
	"github.com/i474232898/air-quality-ingest/internal/airquality/providers"
	httpapi "github.com/i474232898/air-quality-ingest/internal/api/http"
	"github.com/i474232898/air-quality-ingest/internal/config"
	"github.com/i474232898/air-quality-ingest/internal/logging"
	"github.com/i474232898/air-quality-ingest/internal/metrics"
	"github.com/i474232898/air-quality-ingest/internal/scheduler"
	"github.com/i474232898/air-quality-ingest/internal/store"
)

const appName = "air-quality-ingest"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel, version, appName)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"port", cfg.Port,
		"latitude", cfg.Latitude,
		"longitude", cfg.Longitude,
		"pastDays", cfg.PastDays,
		"timezone", cfg.Timezone,
		"fetchInterval", cfg.FetchInterval,
		"dbDriver", cfg.Database.Driver,
		"dbSource", cfg.Database.DSNSource,
	)

	readingStore, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	fetcher := providers.NewOpenMeteoProvider(httpClient, cfg.AirQualityBaseURL, cfg.Timezone)

	m := metrics.New()

	service := airquality.NewService(fetcher, readingStore, m, airquality.ServiceConfig{
		Coordinate: airquality.Coordinate{Latitude: cfg.Latitude, Longitude: cfg.Longitude},
		PastDays:   cfg.PastDays,
		Location:   cfg.Location,
		RunTimeout: cfg.RunTimeout,
	}, log)

	sched := scheduler.New(service, cfg.FetchInterval, log)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RunTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":              "ok",
			"service":             appName,
			"runActive":           sched.Running(),
			"consecutiveFailures": sched.ConsecutiveFailures(),
		})
	})

	httpapi.RegisterRoutes(app, service, sched, m.Registry())

	go func() {
		log.Info("http listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (airquality.Store, func(), error) {
	if cfg.Database.Driver == store.DriverMemory {
		log.Warn("using in-memory store; readings are lost on exit")
		return store.NewMemoryStore(), func() {}, nil
	}

	s, err := store.Open(ctx, store.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		SQLitePath:      cfg.Database.SQLitePath,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("database connection successful", "driver", cfg.Database.Driver)

	return s, func() {
		if err := s.Close(); err != nil {
			log.Error("db close", "error", err)
		}
	}, nil
}
