package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/config"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/database"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/handlers"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/metrics"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/middleware"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/repository"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/router"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/services"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/storage"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/websocket"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/worker"
)

func main() {
	log.Println("🚀 Starting Presentation Generator...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("✗ Failed to create %s: %v", dir, err)
		}
	}
	log.Printf("✓ Upload dir %s, output dir %s", cfg.UploadDir, cfg.OutputDir)

	// ──── Step 2: Metrics ────
	recorder, err := metrics.NewRecorder("", prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("✗ Metrics registration failed: %v", err)
	}
	log.Println("✓ Metrics registered")

	// ──── Step 3: Optional Redis ────
	var (
		registry     storage.Registry
		pubsubClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		registry = storage.NewRedisRegistry(redisClients.Store, cfg.OutputDir)
		pubsubClient = redisClients.PubSub
		log.Println("✓ Redis connected (output registry + progress pub/sub)")
	} else {
		registry = storage.NewMemoryRegistry(cfg.OutputDir, cfg.OutputTTL, cfg.JanitorInt)
		log.Println("✓ In-memory output registry (REDIS_URL not set)")
	}

	// ──── Step 4: Optional PostgreSQL ────
	var generationRepo *repository.GenerationRepo
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		if err := database.RunMigrations(pool, cfg.MigrationsDir); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")
		generationRepo = repository.NewGenerationRepo(pool)
	} else {
		log.Println("✓ Generation history disabled (DATABASE_URL not set)")
	}

	// ──── Step 5: WebSocket Hub ────
	wsHub := websocket.NewHub(pubsubClient)
	log.Println("✓ WebSocket hub started")

	// ──── Step 6: Services ────
	llmService := services.NewLLMService(
		services.DefaultProviders(cfg.HTTPReferer),
		services.RetryPolicy{MaxAttempts: cfg.LLMMaxAttempts, InitialInterval: cfg.LLMInitialBackoff},
		recorder,
	)
	deps := services.GenerationDeps{
		LLM:       llmService,
		Templates: services.NewTemplateService(recorder),
		Decks:     services.NewPresentationService(),
		Registry:  registry,
		Progress:  wsHub,
		Metrics:   recorder,
		OutputDir: cfg.OutputDir,
		OutputTTL: cfg.OutputTTL,
	}
	if generationRepo != nil {
		deps.History = generationRepo
	}
	generationService := services.NewGenerationService(deps)
	log.Printf("✓ LLM providers: %d (%d attempts, %s initial backoff)", len(llmService.SupportedProviders()), cfg.LLMMaxAttempts, cfg.LLMInitialBackoff)

	// ──── Step 7: Janitor ────
	janitor := worker.NewJanitor(registry, cfg.OutputDir, cfg.UploadDir, cfg.OutputTTL, cfg.UploadTTL, cfg.JanitorInt)
	janitor.Start()
	log.Printf("✓ Janitor started (every %s)", cfg.JanitorInt)

	// ──── Step 8: Handlers ────
	presentationHandler := handlers.NewPresentationHandler(
		generationService,
		llmService,
		services.NewFileExtractService(),
		cfg.UploadDir,
		cfg.MaxTemplateBytes(),
		cfg.MaxTextLength,
	)
	downloadHandler := handlers.NewDownloadHandler(cfg.OutputDir, registry)
	systemHandler := handlers.NewSystemHandler(cfg.Env, cfg.Port, llmService)
	generationsHandler := handlers.NewGenerationsHandler(nil)
	if generationRepo != nil {
		generationsHandler = handlers.NewGenerationsHandler(generationRepo)
	}

	generateLimiter := middleware.NewRateLimiter(cfg.GenerateRatePerMin, time.Minute)

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		presentationHandler,
		downloadHandler,
		systemHandler,
		generationsHandler,
		generateLimiter,
		router.Options{
			CORSOrigins: cfg.CORSOrigins,
			ClientDir:   cfg.ClientDir,
			Metrics:     recorder.Handler(),
			WebSocket:   wsHub.HandleWebSocket,
		},
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		janitor.Stop()
		generateLimiter.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Presentation Generator ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/ws?jobId=<uuid>", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
