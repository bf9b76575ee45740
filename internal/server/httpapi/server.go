// Package httpapi provides the HTTP REST API and WebSocket endpoint for the
// auth service: registration, login, refresh rotation, logout, session
// listing, and an authenticated WebSocket upgrade.
package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"splendoura/backend/internal/auth/service"
	"splendoura/backend/internal/config"
	sessiondomain "splendoura/backend/internal/session/domain"
	userdomain "splendoura/backend/internal/user/domain"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// AuthEngine is the slice of the auth service the transport layer needs.
type AuthEngine interface {
	Register(ctx context.Context, email, password string) (*userdomain.User, error)
	Login(ctx context.Context, email, password string, meta service.DeviceMeta) (*service.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string, meta service.DeviceMeta) (*service.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*service.Principal, error)
	RevokeByPresentedToken(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config *config.Config
	Auth   AuthEngine
	DB     *sql.DB // health check only; may be nil in tests
	Logger *slog.Logger
}

// Server is the HTTP API server. Created with New, started with Start,
// stopped with Close.
type Server struct {
	cfg    *config.Config
	auth   AuthEngine
	db     *sql.DB
	logger *slog.Logger
	server *http.Server
}

// New creates an API server with the given dependencies.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth engine is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    deps.Config,
		auth:   deps.Auth,
		db:     deps.DB,
		logger: logger,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Router(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		s.logger.Info("http server starting", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Close gracefully shuts the server down, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// handleHealth reports liveness, including a database round-trip when a
// database handle is configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Error("health check database ping failed", "error", err)
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{"status": status})
}
