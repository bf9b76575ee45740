package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router creates the HTTP router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			// Logout is deliberately unauthenticated: a client holding only
			// an expired access token and a live refresh cookie must still
			// be able to invalidate it.
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/logout-all", s.handleLogoutAll)
				r.Get("/sessions", s.handleListSessions)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/users/me", s.handleMe)
		})

		// WebSocket authenticates during the handshake inside the handler;
		// browser clients cannot send an Authorization header here.
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}
