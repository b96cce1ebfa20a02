package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"lessonlens/api-gateway/config"
	"lessonlens/api-gateway/handlers"
	"lessonlens/api-gateway/internal/reportstore"
	"lessonlens/api-gateway/internal/scoring"
	"lessonlens/api-gateway/internal/storage"
	"lessonlens/api-gateway/internal/transcription"
	"lessonlens/api-gateway/middleware"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	logger := config.NewLogger(settings.LogLevel)

	supabaseClient, err := config.NewSupabaseClient(settings)
	if err != nil {
		logger.Fatalf("Failed to initialize Supabase: %v", err)
	}

	store := reportstore.NewStore(supabaseClient)
	staging := storage.NewClient(supabaseClient, settings.SupabaseURL, settings.VideoBucket)
	transcriber := transcription.NewClient(transcription.Config{
		APIKey:       settings.AssemblyAIAPIKey,
		LanguageCode: settings.TranscriptionLanguage,
	})
	scorer := scoring.NewClient(scoring.Config{
		APIKey:  settings.OpenRouterAPIKey,
		Model:   settings.OpenRouterModel,
		Referer: settings.AppReferer,
		Title:   settings.AppTitle,
	})

	h := handlers.NewApplicationHandler(logger, store, staging, transcriber, scorer)

	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024, // lesson recordings routed through the gateway
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RequestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "API Gateway is healthy",
		})
	})

	apiV1 := app.Group("/api/v1")

	// Analysis pipeline routes
	apiV1.Post("/analyses", h.StartAnalysis)
	apiV1.Post("/analyses/:reportId/upload", h.UploadMedia)
	apiV1.Post("/analyses/:reportId/transcribe", h.BeginTranscription)
	apiV1.Get("/analyses/:reportId/status", h.GetAnalysisStatus)
	apiV1.Post("/analyses/:reportId/complete", h.CompleteAnalysis)

	// Report routes
	apiV1.Get("/reports/:reportId", h.GetReport)
	apiV1.Patch("/reports/:reportId/title", h.UpdateReportTitle)
	apiV1.Get("/teachers/:teacherName/reports", h.ListTeacherReports)

	logger.Infof("Starting API Gateway on port %s", settings.Port)
	logger.Fatal(app.Listen(":" + settings.Port))
}
