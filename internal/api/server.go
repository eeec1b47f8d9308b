package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neuralos/neuralos/internal/indexer"
	"github.com/neuralos/neuralos/internal/note"
	"github.com/neuralos/neuralos/internal/rag"
	"github.com/neuralos/neuralos/internal/user"
)

// ServerConfig carries the dependencies for the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Notes       *note.Store     // Required
	Users       *user.Store     // Required
	Engine      *rag.Engine     // Required
	Worker      *indexer.Worker // Required
	Pool        *pgxpool.Pool   // Optional: nil degrades /ready to liveness
	AuthSecret  []byte          // Required: 32+ bytes, HS256 verification key
	CORSOrigins []string
	IsDev       bool // disables HSTS
	TrustProxy  bool // trust X-Real-IP/X-Forwarded-For
	RateBurst   int  // per-IP burst, 0 = default 60
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires all routes and the middleware stack.
func NewServer(cfg ServerConfig) (*Server, error) {
	switch {
	case cfg.Notes == nil:
		return nil, errors.New("note store is required")
	case cfg.Users == nil:
		return nil, errors.New("user store is required")
	case cfg.Engine == nil:
		return nil, errors.New("rag engine is required")
	case cfg.Worker == nil:
		return nil, errors.New("index worker is required")
	case len(cfg.AuthSecret) < 32:
		return nil, errors.New("auth secret must be at least 32 bytes")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	nh := &noteHandler{notes: cfg.Notes, worker: cfg.Worker, logger: logger}
	ah := &answerHandler{engine: cfg.Engine, users: cfg.Users, logger: logger}
	sh := &statsHandler{notes: cfg.Notes, users: cfg.Users, logger: logger}
	ph := &preferencesHandler{users: cfg.Users, logger: logger}
	fh := &notificationHandler{users: cfg.Users, logger: logger}

	mux := http.NewServeMux()

	// Notes. The trash route must stay above {id} so the literal wins.
	mux.HandleFunc("DELETE /api/v1/notes/trash", nh.emptyTrash)
	mux.HandleFunc("POST /api/v1/notes", nh.create)
	mux.HandleFunc("GET /api/v1/notes", nh.list)
	mux.HandleFunc("GET /api/v1/notes/{id}", nh.get)
	mux.HandleFunc("PATCH /api/v1/notes/{id}", nh.patch)
	mux.HandleFunc("DELETE /api/v1/notes/{id}", nh.delete)
	mux.HandleFunc("POST /api/v1/notes/{id}/restore", nh.restore)
	mux.HandleFunc("POST /api/v1/notes/{id}/favorite", nh.toggleFavorite)
	mux.HandleFunc("POST /api/v1/notes/{id}/archive", nh.toggleArchive)

	// Retrieval
	mux.HandleFunc("GET /api/v1/answer", ah.answer)

	// Dashboard
	mux.HandleFunc("GET /api/v1/stats", sh.getStats)

	// Preferences
	mux.HandleFunc("GET /api/v1/preferences", ph.get)
	mux.HandleFunc("PUT /api/v1/preferences", ph.put)

	// Notifications
	mux.HandleFunc("GET /api/v1/notifications", fh.list)
	mux.HandleFunc("POST /api/v1/notifications", fh.create)
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", fh.markRead)
	mux.HandleFunc("POST /api/v1/notifications/read-all", fh.markAllRead)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → Logging → CORS → RateLimit → Auth → Routes
	// CORS sits above RateLimit so preflight OPTIONS gets its headers.
	var handler http.Handler = mux
	handler = authMiddleware(cfg.AuthSecret, logger)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass auth and rate limiting.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
