package httpapi

import (
	"net/http"
	"time"

	"splendoura/backend/internal/auth/service"
)

// refreshCookiePath scopes the refresh cookie to the auth endpoint group so
// it never rides along on ordinary API calls.
const refreshCookiePath = "/api/v1/auth"

// setAuthCookies sets the access and refresh cookies for a freshly issued
// token pair. Max-age mirrors each token's TTL.
func (s *Server) setAuthCookies(w http.ResponseWriter, pair *service.TokenPair) {
	now := time.Now().UTC()
	http.SetCookie(w, s.authCookie(accessCookieName, pair.AccessToken, "/", pair.AccessExpiresAt.Sub(now)))
	http.SetCookie(w, s.authCookie(refreshCookieName, pair.RefreshToken, refreshCookiePath, pair.RefreshExpiresAt.Sub(now)))
}

// clearAuthCookies expires both cookies immediately.
func (s *Server) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.authCookie(accessCookieName, "", "/", -time.Second))
	http.SetCookie(w, s.authCookie(refreshCookieName, "", refreshCookiePath, -time.Second))
}

func (s *Server) authCookie(name, value, path string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   s.cfg.CookieDomain,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: s.cfg.SameSite(),
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
	} else {
		c.MaxAge = -1
	}
	return c
}
