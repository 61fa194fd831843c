package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/config"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/database"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/handlers"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/logging"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/metrics"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/middleware"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/router"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/services"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/storage"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/websocket"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/worker"
)

const cleanupWorkers = 2

func main() {
	log.Println("🚀 Starting Interview Analyzer...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Printf("✓ Environment variables loaded (env=%s)", cfg.Env)

	// ──── Step 2: Open Log Files ────
	logFiles, err := logging.Setup(cfg.LogDir)
	if err != nil {
		log.Printf("✗ Log files unavailable, logging to stdout only: %v", err)
		logFiles = logging.Discard()
	} else {
		log.Printf("✓ Logging to %s", cfg.LogDir)
	}
	defer logFiles.Close()

	recorder := metrics.New()

	// ──── Step 3: Prepare Upload Directory ────
	store, err := storage.NewTempStore(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatalf("✗ Upload directory setup failed: %v", err)
	}
	log.Printf("✓ Upload directory ready: %s (limit %d MB)", store.Dir(), cfg.MaxUploadBytes/(1024*1024))

	// ──── Step 4: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)

	// ──── Step 5: Connect Redis (optional) ────
	var (
		progress     services.ProgressPublisher = services.NopProgress{}
		retries      services.RemoteCleanupQueue
		workerPool   *worker.Pool
		redisClients *database.RedisClients
	)
	if cfg.RedisEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		redisClients, err = database.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		progress = services.NewRedisProgress(redisClients.PubSub)
		workerPool = worker.NewPool(redisClients.Queue, geminiService, recorder, cleanupWorkers)
		retries = workerPool
		workerPool.Start()
		log.Printf("✓ Redis connected, cleanup worker pool started (%d goroutines)", cleanupWorkers)
	} else {
		log.Println("✓ Redis not configured: progress stream and delete retries disabled")
	}

	// ──── Step 6: Initialize Services ────
	ticketSecret := cfg.TicketSecret
	if ticketSecret == "" {
		ticketSecret = randomSecret()
		log.Println("✓ TICKET_SECRET not set, using a per-process secret")
	}
	tickets := middleware.NewTickets(ticketSecret, cfg.TicketTTL)

	analysisService := services.NewAnalysisService(geminiService, store, progress, retries, recorder, services.AnalysisOptions{
		PollInterval:    cfg.PollInterval,
		PollMaxAttempts: cfg.PollMaxAttempts,
		Timeout:         cfg.AnalysisTimeout,
	})
	youtubeService := services.NewYouTubeService(store, cfg.MaxUploadBytes, cfg.FetchTimeout)

	sweeper := storage.NewSweeper(store.Dir(), cfg.TempFileMaxAge)
	sweeper.Start()

	// ──── Step 7: Start WebSocket Hub ────
	var pubsubClient *redis.Client
	if redisClients != nil {
		pubsubClient = redisClients.PubSub
	}
	wsHub := websocket.NewHub(pubsubClient, tickets, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	analyzeHandler := handlers.NewAnalyzeHandler(analysisService, store, youtubeService, tickets, cfg.MaxUploadBytes)
	analyzeLimiter := middleware.NewRateLimiter(cfg.AnalyzePerMinute, time.Minute)

	r := router.New(
		analyzeHandler,
		tickets,
		analyzeLimiter,
		wsHub,
		recorder,
		logFiles,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       cfg.UploadTimeout,
		WriteTimeout:      cfg.RequestBudget(),
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}

		wsHub.Close()
		sweeper.Stop()
		analyzeLimiter.Stop()
		if workerPool != nil {
			workerPool.Stop()
		}
		close(done)
	}()

	log.Printf("✓ Interview Analyzer ready on http://localhost:%s", cfg.Port)
	log.Printf("  Analyze: POST http://localhost:%s/analyze", cfg.Port)
	log.Printf("  WS:      ws://localhost:%s/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-done
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("✗ Failed to generate ticket secret: %v", err)
	}
	return hex.EncodeToString(buf)
}
