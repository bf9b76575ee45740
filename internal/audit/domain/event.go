// Package domain defines the security event entity.
package domain

import "time"

// SecurityEvent records one security-relevant action: logins, rotations,
// revocations, and detection signals. Reuse detection must be recorded with
// a distinct action so operational alerting can tell token theft apart from
// ordinary user-initiated logout.
type SecurityEvent struct {
	ID        string
	UserID    string
	SessionID string
	Action    string
	Reason    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
