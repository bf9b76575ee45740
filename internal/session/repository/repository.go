// Package repository defines persistence for sessions.
package repository

import (
	"context"
	"time"

	"splendoura/backend/internal/session/domain"
)

// Repository defines persistence for session rows. All reads that feed a
// security decision must happen inside the same transaction as the resulting
// writes; use InTx for those paths.
type Repository interface {
	// Create persists a new session row.
	Create(ctx context.Context, s *domain.Session) error
	// FindActive returns the session with the given id and owner that is
	// neither revoked nor expired, or nil if there is none.
	FindActive(ctx context.Context, id, userID string, now time.Time) (*domain.Session, error)
	// FindAny returns the session with the given id and owner regardless of
	// revocation or expiry. Reuse-chain traversal depends on seeing revoked
	// rows. Inside InTx the row is locked for update.
	FindAny(ctx context.Context, id, userID string) (*domain.Session, error)
	// ListActiveForUser returns the user's non-revoked, unexpired sessions
	// ordered by created_at descending.
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	// Revoke sets revoked_at on the session if not already set.
	Revoke(ctx context.Context, id string, at time.Time) error
	// MarkRotated terminates the session as the predecessor of replacementID:
	// sets revoked_at, last_used_at, and replaced_by_session_id in one update.
	MarkRotated(ctx context.Context, id, replacementID string, at time.Time) error
	// RevokeAllForUser revokes every non-revoked session owned by the user.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error
	// InTx runs fn against a transaction-scoped Repository. Reads performed
	// through that repository take row-level locks so a concurrent rotation
	// of the same session serializes behind this one. fn returning an error
	// rolls the transaction back.
	InTx(ctx context.Context, fn func(Repository) error) error
}
