package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"splendoura/backend/internal/auth/service"
)

// credentialsRequest is the request body for register and login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest is the optional request body for POST /auth/refresh and
// POST /auth/logout.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is the response body carrying a fresh token pair. Tokens are
// also set as cookies for browser clients.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// sessionResponse is one entry in the GET /auth/sessions listing.
type sessionResponse struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	Current    bool       `json:"current"`
}

func newTokenResponse(pair *service.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(pair.AccessExpiresAt) / time.Second),
	}
}

// handleRegister creates a user account. It does not log the user in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	user, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyRegistered):
			writeConflict(w, "email already registered")
		case service.IsRejection(err):
			writeUnauthorized(w)
		default:
			// Validation failures carry a caller-actionable message.
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// handleLogin authenticates credentials and issues a new session. Tokens are
// returned in the body and as cookies.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	pair, err := s.auth.Login(r.Context(), req.Email, req.Password, deviceMetaFrom(r))
	if err != nil {
		if service.IsRejection(err) {
			writeUnauthorized(w)
			return
		}
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	s.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

// handleRefresh rotates a refresh token. The token is resolved from the
// bearer header, then the body, then the cookie; the first present source
// wins. All rejections collapse to the opaque 401 and clear the auth
// cookies, since whatever the client holds is no longer usable.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.Body != nil {
		//nolint:errcheck // An absent or malformed body just leaves the field empty.
		json.NewDecoder(r.Body).Decode(&req)
	}
	token := refreshTokenFrom(r, req.RefreshToken)
	if token == "" {
		writeUnauthorized(w)
		return
	}
	pair, err := s.auth.Rotate(r.Context(), token, deviceMetaFrom(r))
	if err != nil {
		if service.IsRejection(err) {
			s.clearAuthCookies(w)
			writeUnauthorized(w)
			return
		}
		s.logger.Error("refresh failed", "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	s.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

// handleLogout revokes whichever credentials the request presents and clears
// the auth cookies. Best-effort: invalid tokens are ignored, and the
// response is 204 regardless so logout never fails from the client's view.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.Body != nil {
		//nolint:errcheck // An absent or malformed body just leaves the field empty.
		json.NewDecoder(r.Body).Decode(&req)
	}
	seen := map[string]bool{}
	for _, tok := range []string{
		fromBearerHeader(r),
		req.RefreshToken,
		fromCookie(accessCookieName)(r),
		fromCookie(refreshCookieName)(r),
	} {
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		if err := s.auth.RevokeByPresentedToken(r.Context(), tok); err != nil {
			s.logger.Error("logout revoke failed", "error", err)
		}
	}
	s.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleLogoutAll revokes every session the caller owns.
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	if err := s.auth.RevokeAllForUser(r.Context(), principal.UserID); err != nil {
		s.logger.Error("logout-all failed", "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	s.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleListSessions returns the caller's active sessions, newest first.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	sessions, err := s.auth.ListSessions(r.Context(), principal.UserID)
	if err != nil {
		s.logger.Error("list sessions failed", "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionResponse{
			ID:         sess.ID,
			CreatedAt:  sess.CreatedAt,
			ExpiresAt:  sess.ExpiresAt,
			LastUsedAt: sess.LastUsedAt,
			IPAddress:  sess.IPAddress,
			UserAgent:  sess.UserAgent,
			Current:    sess.ID == principal.SessionID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// handleMe returns the authenticated principal.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    principal.UserID,
		"session_id": principal.SessionID,
		"expires_at": principal.ExpiresAt,
	})
}
