// Package audit records security events emitted by the auth engine.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"splendoura/backend/internal/audit/domain"
	auditrepo "splendoura/backend/internal/audit/repository"
)

// Actions recorded by the auth subsystem. ActionReuseDetected is the
// compromise signal: an already-rotated refresh token was replayed.
const (
	ActionLogin         = "auth.login"
	ActionRotate        = "auth.rotate"
	ActionLogout        = "auth.logout"
	ActionLogoutAll     = "auth.logout_all"
	ActionRejected      = "auth.rejected"
	ActionReuseDetected = "auth.reuse_detected"
	ActionCapEviction   = "auth.cap_eviction"
)

// IPExtractor returns the client IP for the request context, or "" if unknown.
type IPExtractor func(context.Context) string

// Recorder writes a single security event. Best-effort: failures must not
// affect the caller's auth decision.
type Recorder interface {
	Record(ctx context.Context, userID, sessionID, action, reason, metadata string)
}

// Logger implements Recorder using the event repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         *slog.Logger
}

// NewLogger returns a Recorder that persists to repo and uses ipExtractor for
// client IP. ipExtractor may be nil; then IP is recorded as empty.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log}
}

// Record writes one security event. Best-effort: errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, userID, sessionID, action, reason, metadata string) {
	if l.repo == nil {
		return
	}
	ip := ""
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	e := &domain.SecurityEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		Action:    action,
		Reason:    reason,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		l.log.Error("audit: failed to record event",
			"action", action, "reason", reason, "error", err)
	}
}
