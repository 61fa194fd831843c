package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/handlers"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/logging"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/metrics"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/middleware"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/websocket"
)

func New(
	analyzeHandler *handlers.AnalyzeHandler,
	tickets *middleware.Tickets,
	analyzeLimiter *middleware.RateLimiter,
	wsHub *websocket.Hub,
	recorder *metrics.Recorder,
	logFiles *logging.Files,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestLogger(&chimiddleware.DefaultLogFormatter{Logger: log.Default(), NoColor: true}))
	r.Use(middleware.Recover(logFiles))
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", recorder.Handler())

	// ──── Analysis ────
	r.Group(func(r chi.Router) {
		r.Use(analyzeLimiter.Middleware)
		r.Use(tickets.Middleware)
		r.Post("/analyze", analyzeHandler.Analyze)
		r.Post("/analyze/url", analyzeHandler.AnalyzeURL)
	})
	r.Post("/analyze/tickets", analyzeHandler.IssueTicket)

	// ──── WebSocket ────
	r.Get("/ws", wsHub.HandleWebSocket)

	return r
}
