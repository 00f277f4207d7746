package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/strategyfactory/api/internal/client"
	"github.com/strategyfactory/api/internal/config"
	"github.com/strategyfactory/api/internal/handler"
	"github.com/strategyfactory/api/internal/jobs"
	"github.com/strategyfactory/api/internal/middleware"
	"github.com/strategyfactory/api/internal/orchestrator"
	"github.com/strategyfactory/api/internal/pipeline"
	"github.com/strategyfactory/api/internal/service"
	ws "github.com/strategyfactory/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client (rate limiting only; jobs stay in-process)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available, rate limiting disabled: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// API clients for the pipeline collaborators
	perplexity := client.NewPerplexityClient(&cfg.Perplexity)
	gemini := client.NewGeminiClient(&cfg.Gemini)

	if !perplexity.IsConfigured() {
		log.Println("Warning: Perplexity API key not set, research will use mock data")
	}
	if !gemini.IsConfigured() {
		log.Println("Warning: Gemini API key not set, synthesis will use mock output")
	}

	outputDir := cfg.Pipeline.OutputDir
	collab := pipeline.Collaborators{
		NewResearcher: func() pipeline.Researcher {
			return orchestrator.NewResearchOrchestrator(perplexity)
		},
		NewSynthesizer: func() pipeline.Synthesizer {
			return orchestrator.NewSynthesisOrchestrator(gemini, outputDir)
		},
		NewGenerator: func() pipeline.Generator {
			return orchestrator.NewGenerationOrchestrator(outputDir)
		},
	}

	// Job registry, runner, service
	jobRegistry := jobs.NewRegistry()
	runner := pipeline.NewRunner(jobRegistry, collab, outputDir)
	analysisService := service.NewAnalysisService(jobRegistry, runner, hub, outputDir)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg.Auth, authMiddleware, validate)
	analysisHandler := handler.NewAnalysisHandler(analysisService, validate)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes
	app.Post("/api/auth/login", authHandler.Login)

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	analysis := api.Group("/analysis")
	analysis.Post("/start", rateLimiter.StartLimit(cfg.RateLimit.StartPerHour), analysisHandler.Start)
	analysis.Post("/continue/:slug", rateLimiter.StartLimit(cfg.RateLimit.StartPerHour), analysisHandler.Continue)
	analysis.Post("/cancel/:jobId", rateLimiter.CancelLimit(cfg.RateLimit.CancelPerMin), analysisHandler.Cancel)
	analysis.Get("/summary/:slug", rateLimiter.SummaryLimit(cfg.RateLimit.SummaryPerMin), analysisHandler.Summary)
	analysis.Get("/list", analysisHandler.List)
	analysis.Delete("/:slug", analysisHandler.Delete)

	// WebSocket routes
	app.Use("/ws", authMiddleware.Authenticate(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
