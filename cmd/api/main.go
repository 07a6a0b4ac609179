package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	activitypg "filevault/internal/activity/postgres"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/database/migration"
	handlers "filevault/internal/http/handler"
	"filevault/internal/http/middleware"
	"filevault/internal/otel"
	quotapg "filevault/internal/quota/postgres"
	repopg "filevault/internal/repository/postgres"
	"filevault/internal/service"
	"filevault/internal/storage"
	"filevault/internal/sweep"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	// Initialize OpenTelemetry tracing (no-op when OTEL_SDK_DISABLED=true)
	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Initialize repositories, collaborators and services
	fileRepo := repopg.NewFilePostgres(db)
	versionRepo := repopg.NewVersionPostgres(db)
	ledger := quotapg.NewLedgerPostgres(db)
	recorder := activitypg.NewRecorderPostgres(db)

	fileSvc := service.NewFileService(objStore, fileRepo, ledger, recorder)
	versionSvc := service.NewVersionService(objStore, fileRepo, versionRepo, ledger, recorder)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	// Acting-user resolution plus lazy quota-ledger row creation
	app.Use(middleware.User(ledger, cfg.Quota.DefaultQuotaBytes))

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register prometheus metrics: %v", err)
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, fileSvc, versionSvc)

	// Retention sweep runs on its own schedule, concurrently with requests
	if cfg.Retention.Enabled {
		sweeper, err := sweep.New(versionSvc, cfg.Retention.MaxVersions,
			time.Duration(cfg.Retention.SweepIntervalSec)*time.Second,
			prometheus.DefaultRegisterer)
		if err != nil {
			log.Fatalf("failed to initialize retention sweep: %v", err)
		}
		go sweeper.Run(ctx)
	}

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
