// Package service implements the session issuance and rotation engine:
// credential login, single-use refresh rotation with reuse detection,
// live-session authentication, and revocation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"splendoura/backend/internal/audit"
	"splendoura/backend/internal/security"
	sessiondomain "splendoura/backend/internal/session/domain"
	sessionrepo "splendoura/backend/internal/session/repository"
	userdomain "splendoura/backend/internal/user/domain"
	userrepo "splendoura/backend/internal/user/repository"
)

// DeviceMeta carries request metadata stamped onto new session rows.
type DeviceMeta struct {
	IP        string
	UserAgent string
}

// TokenPair is the outcome of login and rotation: a fresh access/refresh
// token pair bound to one session.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	UserID           string
	SessionID        string
}

// Principal identifies the caller behind a validated access token.
type Principal struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// AuthService implements register, login, refresh rotation, authenticate,
// and logout. It holds no mutable state; all session state lives in the
// repository.
type AuthService struct {
	users    userrepo.Repository
	sessions sessionrepo.Repository
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	audit    audit.Recorder
	log      *slog.Logger
	metrics  *authMetrics

	// maxActiveSessions bounds concurrently active sessions per user.
	// Floor of 1: the newest session always survives cap enforcement.
	maxActiveSessions int
}

// NewAuthService returns an AuthService with the given dependencies.
// auditRec may be nil; audit recording is best-effort throughout.
func NewAuthService(
	users userrepo.Repository,
	sessions sessionrepo.Repository,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditRec audit.Recorder,
	maxActiveSessions int,
	log *slog.Logger,
) *AuthService {
	if maxActiveSessions < 1 {
		maxActiveSessions = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		users:             users,
		sessions:          sessions,
		hasher:            hasher,
		tokens:            tokens,
		audit:             auditRec,
		log:               log,
		metrics:           newAuthMetrics(),
		maxActiveSessions: maxActiveSessions,
	}
}

// Register creates a user with the given email and password. It does not
// issue tokens; callers log in afterwards.
func (s *AuthService) Register(ctx context.Context, email, password string) (*userdomain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates email/password and issues a new session.
func (s *AuthService) Login(ctx context.Context, email, password string, meta DeviceMeta) (*TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.IssueNewSession(ctx, user.ID, meta)
}

// IssueNewSession creates a session for an already-authenticated user and
// returns a fresh token pair. The session row, including the hash of the
// refresh token, is committed together with cap enforcement.
func (s *AuthService) IssueNewSession(ctx context.Context, userID string, meta DeviceMeta) (*TokenPair, error) {
	now := time.Now().UTC()
	sessionID, err := security.NewSessionID()
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.tokens.IssueRefresh(userID, sessionID)
	if err != nil {
		return nil, err
	}
	var evicted []string
	err = s.sessions.InTx(ctx, func(r sessionrepo.Repository) error {
		sess := &sessiondomain.Session{
			ID:        sessionID,
			UserID:    userID,
			TokenHash: security.HashToken(refreshToken),
			ExpiresAt: refreshExp,
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
			CreatedAt: now,
		}
		if err := r.Create(ctx, sess); err != nil {
			return err
		}
		evicted, err = s.enforceCap(ctx, r, userID, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(userID, sessionID)
	if err != nil {
		return nil, err
	}
	s.recordEvictions(ctx, userID, evicted)
	s.record(ctx, userID, sessionID, audit.ActionLogin, "")
	s.metrics.add(ctx, s.metrics.logins, 1)
	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
		UserID:           userID,
		SessionID:        sessionID,
	}, nil
}

// Authenticate validates an access token and cross-checks the backing
// session row. A correctly signed, unexpired token whose session has been
// revoked or expired is rejected, which makes logout take effect
// immediately rather than at the token's natural expiry.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := s.tokens.Decode(accessToken, security.KindAccess)
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
	sess, err := s.sessions.FindActive(ctx, sessionID, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Deliberately indistinguishable: unknown, revoked, and expired
		// sessions all look the same here.
		s.metrics.rejected(ctx, "unauthorized")
		return nil, ErrUnauthorized
	}
	return &Principal{
		UserID:    userID,
		SessionID: sessionID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RevokeByPresentedToken revokes the session named by whichever token the
// caller still holds. Best-effort: undecodable tokens and unknown sessions
// are a no-op, never an error.
func (s *AuthService) RevokeByPresentedToken(ctx context.Context, token string) error {
	claims, err := s.tokens.Decode(token, security.KindAccess)
	if err != nil {
		claims, err = s.tokens.Decode(token, security.KindRefresh)
	}
	if err != nil || claims.Subject == "" || claims.SessionID == "" {
		return nil
	}
	sess, err := s.sessions.FindAny(ctx, claims.SessionID, claims.Subject)
	if err != nil {
		return err
	}
	if sess == nil || sess.RevokedAt != nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sess.ID, time.Now().UTC()); err != nil {
		return err
	}
	s.record(ctx, claims.Subject, sess.ID, audit.ActionLogout, "")
	s.metrics.add(ctx, s.metrics.revocations, 1)
	return nil
}

// RevokeAllForUser revokes every active session the user owns. Subsequent
// Authenticate calls with previously valid access tokens fail.
func (s *AuthService) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeAllForUser(ctx, userID, time.Now().UTC()); err != nil {
		return err
	}
	s.record(ctx, userID, "", audit.ActionLogoutAll, "")
	s.metrics.add(ctx, s.metrics.revocations, 1)
	return nil
}

// ListSessions returns the user's active sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return s.sessions.ListActiveForUser(ctx, userID, time.Now().UTC())
}

// enforceCap revokes the oldest active sessions beyond the per-user cap.
// It runs inside the caller's transaction after the newest session is
// inserted, so the newest entry always survives. Returns evicted ids.
func (s *AuthService) enforceCap(ctx context.Context, r sessionrepo.Repository, userID string, now time.Time) ([]string, error) {
	active, err := r.ListActiveForUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	var evicted []string
	for i := s.maxActiveSessions; i < len(active); i++ {
		if err := r.Revoke(ctx, active[i].ID, now); err != nil {
			return nil, err
		}
		evicted = append(evicted, active[i].ID)
	}
	return evicted, nil
}

func (s *AuthService) recordEvictions(ctx context.Context, userID string, evicted []string) {
	for _, id := range evicted {
		s.record(ctx, userID, id, audit.ActionCapEviction, "session_cap")
	}
	s.metrics.add(ctx, s.metrics.capEvictions, int64(len(evicted)))
}

func (s *AuthService) record(ctx context.Context, userID, sessionID, action, reason string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, userID, sessionID, action, reason, "")
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return fmt.Errorf("password must be at least 12 characters")
	}
	var hasUpper, hasLower, hasNumber bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		}
	}
	if !hasUpper || !hasLower || !hasNumber {
		return fmt.Errorf("password must contain upper, lower, and numeric characters")
	}
	return nil
}
