package httpapi

import (
	"net/http"
	"strings"
)

// Cookie names. The refresh cookie is scoped to the auth endpoint group
// only; the access cookie rides on every request.
const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

// tokenExtractor pulls a token candidate from one source of a request.
// Returns "" when the source has no candidate.
type tokenExtractor func(r *http.Request) string

// firstToken tries each extractor in order and returns the first non-empty
// candidate. No fallback merging: the first present source wins even if its
// token turns out invalid.
func firstToken(r *http.Request, extractors ...tokenExtractor) string {
	for _, extract := range extractors {
		if tok := extract(r); tok != "" {
			return tok
		}
	}
	return ""
}

// fromBearerHeader extracts a token from "Authorization: Bearer <token>".
func fromBearerHeader(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// fromCookie returns an extractor reading the named cookie.
func fromCookie(name string) tokenExtractor {
	return func(r *http.Request) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return c.Value
	}
}

// fromValue returns an extractor for a token already parsed out of the
// request body.
func fromValue(token string) tokenExtractor {
	return func(*http.Request) string {
		return strings.TrimSpace(token)
	}
}

// fromQuery returns an extractor reading the named query parameter. Used
// only for the WebSocket handshake, where headers are not always available
// to browser clients.
func fromQuery(param string) tokenExtractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(param)
	}
}

// fromWSProtocol extracts a token smuggled through the WebSocket subprotocol
// list as "bearer.<token>". Browser WebSocket clients cannot set arbitrary
// headers, but they can set subprotocols.
func fromWSProtocol(r *http.Request) string {
	const prefix = "bearer."
	for _, part := range strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, prefix) && len(part) > len(prefix) {
			return part[len(prefix):]
		}
	}
	return ""
}

// accessTokenFrom resolves the access token for an ordinary API request:
// bearer header first, cookie second.
func accessTokenFrom(r *http.Request) string {
	return firstToken(r, fromBearerHeader, fromCookie(accessCookieName))
}

// refreshTokenFrom resolves the refresh token for the refresh endpoint:
// bearer header, then the request body field, then the cookie.
func refreshTokenFrom(r *http.Request, bodyToken string) string {
	return firstToken(r, fromBearerHeader, fromValue(bodyToken), fromCookie(refreshCookieName))
}

// wsTokenFrom resolves the access token for a WebSocket handshake: query
// parameter, then subprotocol, then cookie.
func wsTokenFrom(r *http.Request) string {
	return firstToken(r, fromQuery("token"), fromWSProtocol, fromCookie(accessCookieName))
}
