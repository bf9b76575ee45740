package service

import (
	"context"
	"fmt"
	"time"

	"splendoura/backend/internal/audit"
	"splendoura/backend/internal/security"
	sessiondomain "splendoura/backend/internal/session/domain"
	sessionrepo "splendoura/backend/internal/session/repository"
)

// Rotate exchanges a valid refresh token for a new token pair, revoking the
// presented session and linking it to its replacement. The whole decision —
// lookup, defensive revocations, replacement insert, cap enforcement — runs
// in one transaction with the presented session row locked, so a concurrent
// rotation of the same token observes this one's outcome instead of racing
// it.
//
// Replay of an already-rotated token is treated as theft: every session
// reachable forward through replaced_by_session_id is revoked before the
// caller is rejected.
func (s *AuthService) Rotate(ctx context.Context, presentedToken string, meta DeviceMeta) (*TokenPair, error) {
	claims, err := s.tokens.Decode(presentedToken, security.KindRefresh)
	if err != nil {
		s.metrics.rejected(ctx, Reason(err))
		return nil, err
	}
	userID := claims.Subject
	sessionID := claims.SessionID
	if userID == "" || sessionID == "" {
		s.metrics.rejected(ctx, "invalid_token")
		return nil, ErrInvalidToken
	}

	now := time.Now().UTC()
	var (
		rejected     error
		reuseRevoked int
		evicted      []string
		pair         *TokenPair
	)
	err = s.sessions.InTx(ctx, func(r sessionrepo.Repository) error {
		sess, err := r.FindAny(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if sess == nil {
			rejected = ErrUnknownSession
			return nil
		}
		if !security.TokenHashEqual(presentedToken, sess.TokenHash) {
			// A correctly signed token for this session id whose hash does
			// not match the stored one means key compromise or internal
			// inconsistency. Revoke the session before rejecting.
			if err := r.Revoke(ctx, sess.ID, now); err != nil {
				return err
			}
			rejected = ErrTokenMismatch
			return nil
		}
		if sess.RevokedAt != nil {
			// Reuse of a rotated token. The replayer may also hold every
			// later token in the lineage, so revoke the entire forward
			// chain. Visited set bounds the walk against pointer cycles.
			n, err := s.revokeLineage(ctx, r, sess, now)
			if err != nil {
				return err
			}
			reuseRevoked = n
			rejected = ErrSessionRevoked
			return nil
		}
		if !sess.ExpiresAt.After(now) {
			if err := r.Revoke(ctx, sess.ID, now); err != nil {
				return err
			}
			rejected = ErrSessionExpired
			return nil
		}

		newID, err := security.NewSessionID()
		if err != nil {
			return err
		}
		refreshToken, refreshExp, err := s.tokens.IssueRefresh(userID, newID)
		if err != nil {
			return err
		}
		replacement := &sessiondomain.Session{
			ID:        newID,
			UserID:    userID,
			TokenHash: security.HashToken(refreshToken),
			ExpiresAt: refreshExp,
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
			CreatedAt: now,
		}
		if err := r.Create(ctx, replacement); err != nil {
			return err
		}
		if err := r.MarkRotated(ctx, sess.ID, newID, now); err != nil {
			return err
		}
		evicted, err = s.enforceCap(ctx, r, userID, now)
		if err != nil {
			return err
		}
		pair = &TokenPair{
			RefreshToken:     refreshToken,
			RefreshExpiresAt: refreshExp,
			UserID:           userID,
			SessionID:        newID,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	if rejected != nil {
		s.rejectRotation(ctx, userID, sessionID, rejected, reuseRevoked)
		return nil, rejected
	}

	pair.AccessToken, pair.AccessExpiresAt, err = s.tokens.IssueAccess(userID, pair.SessionID)
	if err != nil {
		return nil, err
	}
	s.recordEvictions(ctx, userID, evicted)
	s.record(ctx, userID, pair.SessionID, audit.ActionRotate, "")
	s.metrics.add(ctx, s.metrics.rotations, 1)
	return pair, nil
}

// revokeLineage revokes every session reachable forward from sess via
// replaced_by_session_id, returning how many rows it revoked.
func (s *AuthService) revokeLineage(ctx context.Context, r sessionrepo.Repository, sess *sessiondomain.Session, now time.Time) (int, error) {
	visited := map[string]bool{sess.ID: true}
	next := sess.ReplacedBySessionID
	revoked := 0
	for next != nil && !visited[*next] {
		visited[*next] = true
		cur, err := r.FindAny(ctx, *next, sess.UserID)
		if err != nil {
			return revoked, err
		}
		if cur == nil {
			break
		}
		if cur.RevokedAt == nil {
			if err := r.Revoke(ctx, cur.ID, now); err != nil {
				return revoked, err
			}
			revoked++
		}
		next = cur.ReplacedBySessionID
	}
	return revoked, nil
}

func (s *AuthService) rejectRotation(ctx context.Context, userID, sessionID string, rejected error, reuseRevoked int) {
	reason := Reason(rejected)
	if rejected == ErrSessionRevoked {
		s.log.Warn("refresh token reuse detected",
			"user_id", userID,
			"session_id", sessionID,
			"lineage_revoked", reuseRevoked,
		)
		s.record(ctx, userID, sessionID, audit.ActionReuseDetected, reason)
		s.metrics.add(ctx, s.metrics.reuseDetected, 1)
	} else {
		s.log.Info("refresh rotation rejected",
			"user_id", userID,
			"session_id", sessionID,
			"reason", reason,
		)
		s.record(ctx, userID, sessionID, audit.ActionRejected, reason)
	}
	s.metrics.rejected(ctx, reason)
}
