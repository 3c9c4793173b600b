package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kawach/docs"
	"kawach/internal/auth"
	"kawach/internal/config"
	"kawach/internal/database"
	"kawach/internal/database/migration"
	"kawach/internal/encoder"
	"kawach/internal/events"
	"kawach/internal/expiry"
	handlers "kawach/internal/http/handler"
	"kawach/internal/http/middleware"
	"kawach/internal/logging"
	"kawach/internal/otel"
	"kawach/internal/repository/postgres"
	"kawach/internal/service"
	"kawach/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// @title       Kawach API
// @version     1.0
// @description Time-boxed document access through scannable grants.
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Location())
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// PostgreSQL (pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	objStore, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		nats, closeNATS, err := events.Connect(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer closeNATS()
		publisher = nats
		logger.Info("event publishing enabled", "nats_url", cfg.NATS.URL)
	}

	metrics := service.NewMetrics(prometheus.DefaultRegisterer)
	docRepo := postgres.NewDocumentPostgres(db)
	grantRepo := postgres.NewGrantPostgres(db)

	revoker := service.NewRevocationExecutor(service.RevocationDeps{
		Store:     objStore,
		Documents: docRepo,
		Grants:    grantRepo,
		Events:    publisher,
		Metrics:   metrics,
		Logger:    logger,
	})

	countdowns := expiry.NewRegistry(func(ctx context.Context, documentID string) error {
		_, err := revoker.Revoke(ctx, documentID, service.ReasonExpired)
		return err
	},
		expiry.WithInterval(cfg.Grant.TickInterval),
		expiry.WithRevokeTimeout(cfg.Grant.RevokeTimeout),
		expiry.WithLogger(logger.With("component", "countdown")),
		expiry.WithObserver(metrics.CountdownsRunning),
	)

	docSvc := service.NewDocumentService(objStore, docRepo, revoker, countdowns)
	grantSvc := service.NewGrantService(service.GrantDeps{
		Documents:     docRepo,
		Grants:        grantRepo,
		Store:         objStore,
		Encoder:       encoder.NewQR(cfg.Grant.QRSize),
		Signer:        auth.NewSigner(cfg.Grant.SigningSecret),
		Countdown:     countdowns,
		Events:        publisher,
		Metrics:       metrics,
		Logger:        logger,
		PublicBaseURL: cfg.Grant.PublicBaseURL,
		TTL:           cfg.Grant.TTL,
	})

	// Grants issued before a restart keep their original deadline.
	if _, err := grantSvc.ResumeCountdowns(ctx); err != nil {
		logger.Error("failed to resume countdowns", "error", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register http metrics: %w", err)
	}

	// RequestID first so the logger and error envelope can see it
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(cfg.Location()))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:            db,
		Documents:     docSvc,
		Grants:        grantSvc,
		Verifier:      auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		RetrieveRPS:   cfg.RateLimit.RPS,
		RetrieveBurst: cfg.RateLimit.Burst,
		Location:      cfg.Location(),
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listen(":" + cfg.Port)
	}()
	logger.Info("server started", "addr", ":"+cfg.Port)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.ShutdownWithContext(sctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	// Stop every countdown before the database handle closes.
	if err := countdowns.Shutdown(sctx); err != nil {
		errs = append(errs, fmt.Errorf("countdown shutdown: %w", err))
	}
	return errors.Join(errs...)
}

func newStorage(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "local":
		logger.Info("using local object storage", "path", cfg.Storage.LocalPath)
		return storage.NewLocalStorage(cfg.Storage.LocalPath, logger.With("component", "storage"))
	default:
		return storage.NewMinIO(ctx, cfg.MinIO)
	}
}
