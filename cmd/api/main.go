package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"uploadapi/internal/audit"
	"uploadapi/internal/config"
	"uploadapi/internal/database"
	"uploadapi/internal/database/migration"
	"uploadapi/internal/filesec"
	handlers "uploadapi/internal/http/handler"
	"uploadapi/internal/http/middleware"
	"uploadapi/internal/ocr"
	"uploadapi/internal/otel"
	"uploadapi/internal/ratelimit"
	"uploadapi/internal/repository/postgres"
	"uploadapi/internal/service"
	"uploadapi/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.UTC
	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Accepted files land in MinIO by default; single-node deployments can
	// select the local-disk driver instead.
	var objStore storage.Storage
	switch cfg.Storage.Driver {
	case "local":
		objStore, err = storage.NewLocal(cfg.Storage.LocalDir)
	default:
		objStore, err = storage.NewMinIO(cfg.MinIO)
	}
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	fileRepo := postgres.NewStoredFilePostgres(db)
	eventRepo := postgres.NewSecurityEventPostgres(db)

	// The audit trail drains into Postgres through a single writer
	// goroutine; Close waits for the queue before the process exits.
	recorder := audit.NewQueueRecorder(eventRepo, 256)
	defer recorder.Close()

	uploadValidator := filesec.NewValidator(cfg.Upload.MaxUploadBytes)
	ocrValidator := filesec.NewValidator(cfg.Upload.MaxOCRBytes)
	scanner := filesec.NewScanner(filesec.DefaultSignatures()...)

	uploadSvc := service.NewUploadService(objStore, fileRepo, eventRepo, recorder, uploadValidator, scanner)
	ocrClient := ocr.NewClient(cfg.OCR.Endpoint, time.Duration(cfg.OCR.TimeoutSec)*time.Second)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Leave headroom above the OCR ceiling for multipart framing; the
		// per-path size checks reject oversize files with a proper reason.
		BodyLimit: int(cfg.Upload.MaxOCRBytes) + 1<<20,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(middleware.SecurityHeaders())

	reg := prometheus.NewRegistry()
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMW.Handler())

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	if cfg.RateLimit.Enabled {
		var store ratelimit.Store
		if cfg.RateLimit.RedisAddr != "" {
			rs := ratelimit.NewRedisStore(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB)
			defer rs.Close()
			store = rs
		} else {
			store = ratelimit.NewMemoryStore()
		}
		app.Use(middleware.RateLimit(store, cfg.RateLimit.Limit, time.Duration(cfg.RateLimit.WindowSec)*time.Second))
	}

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:           db,
		Upload:       uploadSvc,
		OCR:          ocrClient,
		OCRValidator: ocrValidator,
		Recorder:     recorder,
		JWTSecret:    cfg.Auth.JWTSecret,
	})

	// Stop accepting connections on SIGINT/SIGTERM, then let the deferred
	// recorder.Close drain pending audit events.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
