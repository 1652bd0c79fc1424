package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/leasing-assistant/internal/middleware"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Messages *MessageHandler
	Health   *HealthHandler
	// MCP is mounted at /mcp when set.
	MCP http.Handler

	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	Logger            *logger.Logger
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Leasing assistant API is running"})
	})
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}
		r.Post("/reply", cfg.Messages.Reply)
		r.Get("/messages", cfg.Messages.List)
	})

	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
	}

	return r
}
