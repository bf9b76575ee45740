// Package repository defines persistence for users.
package repository

import (
	"context"

	"splendoura/backend/internal/user/domain"
)

// Repository defines the user persistence the auth subsystem needs.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Exists reports whether a user row exists for the id.
	Exists(ctx context.Context, id string) (bool, error)
}
