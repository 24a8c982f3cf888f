package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/conversation"
	"github.com/salesdesk/salesdesk/internal/log"
)

// ServerConfig contains everything needed to build the API server.
type ServerConfig struct {
	Logger        log.Logger
	Auth          *auth.Service       // Required
	Tokens        *auth.TokenService  // Required
	Asker         conversation.Asker  // Required: the grounded chat pipeline
	Conversations conversationService // Required
	Pool          *pgxpool.Pool       // Optional: nil disables pool stats in /ready
	CORSOrigins   []string            // Allowed origins for CORS
	TrustProxy    bool                // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst     int                 // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Auth == nil || cfg.Tokens == nil {
		return nil, errors.New("auth service and token service are required")
	}
	if cfg.Asker == nil {
		return nil, errors.New("chat pipeline is required")
	}
	if cfg.Conversations == nil {
		return nil, errors.New("conversation service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ah := &authHandler{service: cfg.Auth, logger: logger}
	ch := &chatHandler{asker: cfg.Asker, logger: logger}
	cv := &conversationHandler{service: cfg.Conversations, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/login", ah.login)

	// One-shot chat is open to anonymous callers; they get guest visibility.
	mux.HandleFunc("POST /v1/chat", ch.ask)

	// Conversation history requires at least an analyst.
	mux.HandleFunc("POST /v1/conversations", requireRoleLevel(auth.LevelAnalyst, logger, cv.create))
	mux.HandleFunc("POST /v1/conversations/{id}/messages", requireRoleLevel(auth.LevelAnalyst, logger, cv.addMessage))
	mux.HandleFunc("GET /v1/conversations/{id}", requireRoleLevel(auth.LevelAnalyst, logger, cv.get))
	mux.HandleFunc("GET /v1/conversations/{id}/messages", requireRoleLevel(auth.LevelAnalyst, logger, cv.listMessages))

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Identity → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = identityMiddleware(cfg.Tokens, logger)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
