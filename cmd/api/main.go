package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/counsel-report/internal/config"
	"alfredoptarigan/counsel-report/internal/handlers"
	"alfredoptarigan/counsel-report/internal/repositories"
	"alfredoptarigan/counsel-report/internal/services"
)

func main() {
	// Load configuration
	cfg, dotenv := config.Load()
	log := config.NewLogger(cfg.Log)
	if !dotenv {
		log.Info().Msg("no .env file found, using environment and defaults")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize database
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	jobRepo := repositories.NewReportJobRepository(db)

	// Collaborators
	converter := services.NewGotenbergConverter(cfg.Gotenberg.URL, cfg.Timeouts.Convert, log)
	storage := services.NewStorageService(
		cfg.Backend.URL,
		cfg.Server.InternalAPISecret,
		services.StorageTimeouts{
			Resolve:  cfg.Timeouts.Resolve,
			Download: cfg.Timeouts.Download,
			Upload:   cfg.Timeouts.Upload,
		},
		log,
	)
	notifier := services.NewWebhookNotifier(cfg.Backend.URL, cfg.Server.InternalAPISecret, cfg.Timeouts.Notify, log)

	if n, err := services.RecoverInterrupted(context.Background(), jobRepo, notifier, log); err != nil {
		log.Warn().Err(err).Msg("failed to close interrupted jobs")
	} else if n > 0 {
		log.Warn().Int("jobs", n).Msg("closed jobs interrupted by previous shutdown")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Gemini is optional: without a key every recommender opinion is the fallback text.
	var gemini services.GeminiService
	if cfg.Gemini.APIKey != "" {
		gemini, err = services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Gemini")
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, recommender opinions use fallback text")
	}
	opinions := services.NewOpinionGenerator(gemini, cfg.Gemini.MaxRetries, log)

	// Templates are read once here; a missing template aborts startup.
	referral, err := services.NewReferralProducer(cfg.Templates.ReferralPath, converter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load referral template")
	}
	recommendation, err := services.NewRecommendationProducer(cfg.Templates.RecommendationPath, opinions, converter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load recommendation template")
	}

	pipeline := services.NewReportPipeline(services.PipelineDeps{
		Recommendation: recommendation,
		Referral:       referral,
		Storage:        storage,
		Merger:         services.NewPDFMerger(),
		Inspector:      services.NewPDFParserService(),
		AccessURLTTL:   cfg.Backend.AccessURLTTL,
	}, log)

	worker := services.NewWorker(jobRepo, pipeline, notifier, cfg.Worker.Concurrency, cfg.Worker.QueueSize, log)
	worker.Start(ctx)

	// Handlers
	reportHandler := handlers.NewReportHandler(jobRepo, worker, log)
	healthHandler := handlers.NewHealthHandler(converter)

	app := fiber.New(fiber.Config{
		AppName:      "Counsel Report API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(handlers.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + services.InternalAPIKeyHeader,
	}))

	api := app.Group("/api/v1")
	api.Get("/health", healthHandler.HandleHealth)

	reports := api.Group("/integrated-reports", handlers.RequireInternalKey(cfg.Server.InternalAPISecret))
	reports.Post("/", reportHandler.HandleCreate)
	reports.Get("/:id", reportHandler.HandleGet)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Counsel Report API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/integrated-reports",
				"GET /api/v1/integrated-reports/:id",
				"GET /api/v1/health",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		<-quit
		log.Info().Msg("shutting down server")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
		worker.Stop()
		cancel()
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("addr", addr).Str("env", cfg.Server.Env).Msg("server starting")

	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
	<-stopped
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
