// Package domain defines the session entity: the persisted record binding a
// refresh-token lineage to a user.
package domain

import "time"

// Session is one node in a refresh-token lineage. Rotation revokes the row
// and links it forward via ReplacedBySessionID, so sessions for one login
// form a singly-linked chain. Rows are never deleted; revoked rows remain as
// the audit and theft-detection trail.
type Session struct {
	ID     string
	UserID string
	// TokenHash is the SHA-256 hash of the current valid refresh token for
	// this session. The raw token is never stored.
	TokenHash string
	ExpiresAt time.Time
	// RevokedAt is nil while the session is live; once set the session is
	// terminal for minting purposes.
	RevokedAt *time.Time
	// ReplacedBySessionID points at the session that superseded this one via
	// rotation; nil at the head of a lineage.
	ReplacedBySessionID *string
	LastUsedAt          *time.Time
	IPAddress           string
	UserAgent           string
	CreatedAt           time.Time
}

// Active reports whether the session may still mint or authenticate at now:
// not revoked and not past its expiry.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
