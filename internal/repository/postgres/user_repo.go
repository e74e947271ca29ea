package postgres

import (
	"context"
	"errors"

	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, pwd_hash, name, avatar_url, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.PwdHash, &u.Name, &u.AvatarURL, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, email, pwd_hash, name)
VALUES ($1, $2, $3, $4)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, u.ID, u.Email, u.PwdHash, u.Name).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// UpdateName sets the display name and returns the updated user.
func (r *UserRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) (*model.User, error) {
	const q = `UPDATE users SET name=$2 WHERE id=$1 RETURNING ` + userColumns
	return scanUser(r.db.Pool.QueryRow(ctx, q, id, name))
}

// SetAvatar replaces avatar_url and returns the previous value.
func (r *UserRepo) SetAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (string, error) {
	const q = `
UPDATE users u SET avatar_url=$2
FROM (SELECT avatar_url FROM users WHERE id=$1 FOR UPDATE) old
WHERE u.id=$1
RETURNING old.avatar_url`
	var prev string
	if err := r.db.Pool.QueryRow(ctx, q, id, avatarURL).Scan(&prev); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	return prev, nil
}
