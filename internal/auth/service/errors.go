package service

import (
	"errors"

	"splendoura/backend/internal/security"
)

// Sentinel errors for the auth service. The transport layer collapses every
// rejection below to one opaque unauthorized response; the distinct values
// exist for internal logging and alerting only.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")

	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
	ErrUnknownSession = errors.New("unknown session")
	ErrTokenMismatch  = errors.New("refresh token does not match session")
	ErrSessionRevoked = errors.New("session revoked")
	ErrSessionExpired = errors.New("session expired")
	ErrUnauthorized   = errors.New("unauthorized")
)

// Reason returns the stable reason code logged for a rejection. Codes never
// cross the trust boundary; callers surface a generic 401 instead.
func Reason(err error) string {
	switch {
	case errors.Is(err, security.ErrWrongTokenType), errors.Is(err, ErrWrongTokenType):
		return "wrong_token_type"
	case errors.Is(err, security.ErrInvalidToken), errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrUnknownSession):
		return "unknown_session"
	case errors.Is(err, ErrTokenMismatch):
		return "token_mismatch"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}

// IsRejection reports whether err is a credential rejection rather than an
// infrastructure failure. Rejections map to 401; everything else is a 500.
func IsRejection(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidCredentials,
		ErrInvalidToken,
		ErrWrongTokenType,
		ErrUnknownSession,
		ErrTokenMismatch,
		ErrSessionRevoked,
		ErrSessionExpired,
		ErrUnauthorized,
		security.ErrInvalidToken,
		security.ErrWrongTokenType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
