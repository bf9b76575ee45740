// Package domain defines the user entity consumed by the auth subsystem.
package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the owning principal for sessions. Only the fields the auth
// subsystem needs are modeled here; profile data lives elsewhere.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Validate checks structural invariants before persistence.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("user: id is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("user: email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("user: password hash is required")
	}
	return nil
}
