package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAccessTokenFrom_BearerBeatsCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	r.AddCookie(&http.Cookie{Name: accessCookieName, Value: "cookie-token"})

	if got := accessTokenFrom(r); got != "header-token" {
		t.Errorf("got %q, want header token to win", got)
	}
}

func TestAccessTokenFrom_FallsBackToCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: accessCookieName, Value: "cookie-token"})

	if got := accessTokenFrom(r); got != "cookie-token" {
		t.Errorf("got %q, want cookie token", got)
	}
}

func TestRefreshTokenFrom_Ordering(t *testing.T) {
	newReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "cookie-token"})
		return r
	}

	r := newReq()
	r.Header.Set("Authorization", "Bearer header-token")
	if got := refreshTokenFrom(r, "body-token"); got != "header-token" {
		t.Errorf("got %q, want header first", got)
	}

	if got := refreshTokenFrom(newReq(), "body-token"); got != "body-token" {
		t.Errorf("got %q, want body before cookie", got)
	}

	if got := refreshTokenFrom(newReq(), ""); got != "cookie-token" {
		t.Errorf("got %q, want cookie last", got)
	}

	if got := refreshTokenFrom(httptest.NewRequest(http.MethodPost, "/", nil), ""); got != "" {
		t.Errorf("got %q, want empty when no source present", got)
	}
}

func TestWSTokenFrom_Ordering(t *testing.T) {
	newReq := func(target string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		r.Header.Set("Sec-WebSocket-Protocol", "bearer.proto-token, bearer")
		r.AddCookie(&http.Cookie{Name: accessCookieName, Value: "cookie-token"})
		return r
	}

	if got := wsTokenFrom(newReq("/ws?token=query-token")); got != "query-token" {
		t.Errorf("got %q, want query parameter first", got)
	}
	if got := wsTokenFrom(newReq("/ws")); got != "proto-token" {
		t.Errorf("got %q, want subprotocol before cookie", got)
	}

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.AddCookie(&http.Cookie{Name: accessCookieName, Value: "cookie-token"})
	if got := wsTokenFrom(r); got != "cookie-token" {
		t.Errorf("got %q, want cookie last", got)
	}
}

func TestFromWSProtocol(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"bearer.abc123", "abc123"},
		{"bearer.abc123, bearer", "abc123"},
		{"graphql-ws, bearer.abc123", "abc123"},
		{"bearer.", ""},
		{"bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tc.header != "" {
			r.Header.Set("Sec-WebSocket-Protocol", tc.header)
		}
		if got := fromWSProtocol(r); got != tc.want {
			t.Errorf("header %q: got %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestFromBearerHeader(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer tok", "tok"},
		{"bearer tok", "tok"},
		{"Bearer  tok ", "tok"},
		{"Basic dXNlcg==", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		if got := fromBearerHeader(r); got != tc.want {
			t.Errorf("header %q: got %q, want %q", tc.header, got, tc.want)
		}
	}
}
