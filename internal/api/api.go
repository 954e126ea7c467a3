// Package api provides the analytics HTTP API consumed by automation
// orchestrators and the dashboard.
package api

import (
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/kamilpajak/fieldscope/internal/analytics"
	"github.com/kamilpajak/fieldscope/internal/auth"
	"github.com/kamilpajak/fieldscope/internal/database"
)

// Server is the API server.
type Server struct {
	engine       *analytics.Engine
	db           *database.DB
	authVerifier *auth.Verifier
	limiter      *rate.Limiter
	mux          *http.ServeMux
}

// Config holds API server configuration.
type Config struct {
	Engine       *analytics.Engine
	DB           *database.DB
	AuthVerifier *auth.Verifier // nil disables authentication (local use)

	// RateLimit is the sustained requests-per-second budget across all
	// clients; RateBurst is the burst allowance. Zero values disable
	// rate limiting.
	RateLimit float64
	RateBurst int
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		engine:       cfg.Engine,
		db:           cfg.DB,
		authVerifier: cfg.AuthVerifier,
		mux:          http.NewServeMux(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	authMiddleware := s.authMiddleware()

	// Public endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Session lifecycle
	s.mux.HandleFunc("POST /api/sessions", s.withAuth(authMiddleware, s.handleStartSession))
	s.mux.HandleFunc("GET /api/sessions/{sessionID}", s.withAuth(authMiddleware, s.handleGetSession))
	s.mux.HandleFunc("POST /api/sessions/{sessionID}/interactions", s.withAuth(authMiddleware, s.handleLogSessionInteraction))
	s.mux.HandleFunc("POST /api/sessions/{sessionID}/end", s.withAuth(authMiddleware, s.handleEndSession))

	// Session-less interaction logging
	s.mux.HandleFunc("POST /api/interactions", s.withAuth(authMiddleware, s.handleLogInteraction))

	// Dashboard
	s.mux.HandleFunc("GET /api/dashboard", s.withAuth(authMiddleware, s.handleDashboard))
}

// authMiddleware returns the JWT middleware, or a pass-through when no
// verifier is configured.
func (s *Server) authMiddleware() func(http.Handler) http.Handler {
	if s.authVerifier == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.Middleware(s.authVerifier)
}

func (s *Server) withAuth(middleware func(http.Handler) http.Handler, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware(http.HandlerFunc(handler)).ServeHTTP(w, r)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
