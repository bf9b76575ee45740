package config

import (
	"net/http"
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "splendoura-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "splendoura-auth")
	}
	if cfg.JWTAudience != "splendoura-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "splendoura-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.JWTRefreshTTL != "720h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "720h")
	}
	if cfg.MaxActiveSessions != 10 {
		t.Errorf("MaxActiveSessions = %d, want 10", cfg.MaxActiveSessions)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.CookieSameSite != "lax" {
		t.Errorf("CookieSameSite = %q, want lax", cfg.CookieSameSite)
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("MAX_ACTIVE_SESSIONS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.MaxActiveSessions != 3 {
		t.Errorf("MaxActiveSessions = %d, want 3", cfg.MaxActiveSessions)
	}
}

func TestLoad_SessionCapFloor(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("MAX_ACTIVE_SESSIONS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxActiveSessions != 1 {
		t.Errorf("MaxActiveSessions = %d, want floor 1", cfg.MaxActiveSessions)
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for out-of-range BCRYPT_COST")
	}
}

func TestLoad_InvalidSameSite(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("COOKIE_SAMESITE", "bogus")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for invalid COOKIE_SAMESITE")
	}
}

func TestTTLParsing(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "5m", JWTRefreshTTL: "48h"}
	if got := cfg.AccessTTL(); got != 5*time.Minute {
		t.Errorf("AccessTTL = %v, want 5m", got)
	}
	if got := cfg.RefreshTTL(); got != 48*time.Hour {
		t.Errorf("RefreshTTL = %v, want 48h", got)
	}

	bad := &Config{JWTAccessTTL: "not-a-duration", JWTRefreshTTL: "-1h"}
	if got := bad.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL fallback = %v, want 15m", got)
	}
	if got := bad.RefreshTTL(); got != 720*time.Hour {
		t.Errorf("RefreshTTL fallback = %v, want 720h", got)
	}
}

func TestSameSite(t *testing.T) {
	for in, want := range map[string]http.SameSite{
		"lax":    http.SameSiteLaxMode,
		"strict": http.SameSiteStrictMode,
		"none":   http.SameSiteNoneMode,
		"":       http.SameSiteLaxMode,
	} {
		cfg := &Config{CookieSameSite: in}
		if got := cfg.SameSite(); got != want {
			t.Errorf("SameSite(%q) = %v, want %v", in, got, want)
		}
	}
}
