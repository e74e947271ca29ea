// Package repository defines storage interfaces implemented by concrete backends.
//
// Every method taking a userID scopes its statement on that owner, so a row owned by
// someone else is indistinguishable from a missing one (errs.ErrNotFound).
package repository

import (
	"context"

	"github.com/and161185/taskboard/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateName sets the display name.
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*model.User, error)
	// SetAvatar replaces avatar_url and returns the previous value.
	SetAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (prev string, err error)
}
