package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"splendoura/backend/internal/audit"
	auditrepo "splendoura/backend/internal/audit/repository"
	authservice "splendoura/backend/internal/auth/service"
	"splendoura/backend/internal/config"
	"splendoura/backend/internal/db"
	"splendoura/backend/internal/logging"
	"splendoura/backend/internal/security"
	"splendoura/backend/internal/server/httpapi"
	sessionrepo "splendoura/backend/internal/session/repository"
	"splendoura/backend/internal/telemetry/otel"
	userrepo "splendoura/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "splendoura-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(
		privateKey, publicKey,
		cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTTL(), cfg.RefreshTTL(),
	)

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), nil, logger)
	auth := authservice.NewAuthService(
		userrepo.NewPostgresRepository(conn),
		sessionrepo.NewPostgresRepository(conn),
		security.NewHasher(cfg.BcryptCost),
		tokens,
		auditLogger,
		cfg.MaxActiveSessions,
		logger,
	)

	srv, err := httpapi.New(httpapi.Deps{
		Config: cfg,
		Auth:   auth,
		DB:     conn,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("server: %v", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatalf("serve: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := srv.Close(); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
