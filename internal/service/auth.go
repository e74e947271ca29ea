package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/taskboard/internal/blobstore"
	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/limiter"
	"github.com/and161185/taskboard/internal/model"
	"github.com/and161185/taskboard/internal/repository"
)

const minPasswordLen = 6

// AuthService is the identity store: accounts, credentials and profile.
type AuthService interface {
	// Register creates an account and signs the caller in.
	Register(ctx context.Context, email, password, name string) (model.Tokens, *model.User, error)
	// Login applies rate-limiting by (email, ip) and authenticates the user.
	Login(ctx context.Context, email, password, ip string) (model.Tokens, *model.User, error)
	// Me returns the caller's profile.
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
	// UpdateProfile applies a sparse profile patch.
	UpdateProfile(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.User, error)
	// SetAvatar stores a new avatar image and drops the previous one.
	SetAvatar(ctx context.Context, userID uuid.UUID, up Upload) (*model.User, error)
}

type AuthServiceImpl struct {
	users   repository.UserRepository
	hasher  PasswordHasher
	tokens  TokenManager
	lim     limiter.Limiter
	blobs   blobstore.Store
	cleaner *Cleaner
	origin  string
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, hasher PasswordHasher, tokens TokenManager, lim limiter.Limiter, blobs blobstore.Store, cleaner *Cleaner, origin string) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, hasher: hasher, tokens: tokens, lim: lim, blobs: blobs, cleaner: cleaner, origin: origin}
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (s *AuthServiceImpl) Register(ctx context.Context, email, password, name string) (model.Tokens, *model.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return model.Tokens{}, nil, errs.Validation("email", "a valid email is required")
	}
	if len(password) < minPasswordLen {
		return model.Tokens{}, nil, errs.Validation("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	uid, err := newID()
	if err != nil {
		return model.Tokens{}, nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	u := &model.User{ID: uid, Email: email, PwdHash: hash, Name: strings.TrimSpace(name)}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Tokens{}, nil, err
	}
	tok, err := s.issue(u.ID)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return tok, s.present(u), nil
}

// Login reports every credential failure as errs.ErrUnauthorized so a caller cannot
// learn whether the email exists.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (model.Tokens, *model.User, error) {
	email = normalizeEmail(email)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	if !allowed {
		return model.Tokens{}, nil, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, nil, fmt.Errorf("login lookup: %w", err)
	}
	if err != nil || !s.hasher.Verify(password, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, nil, errs.ErrRateLimited
		}
		return model.Tokens{}, nil, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)

	tok, err := s.issue(u.ID)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return tok, s.present(u), nil
}

func (s *AuthServiceImpl) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.present(u), nil
}

func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.User, error) {
	if patch.Name == nil {
		return nil, errs.ErrNoFields
	}
	u, err := s.users.UpdateName(ctx, userID, strings.TrimSpace(*patch.Name))
	if err != nil {
		return nil, err
	}
	return s.present(u), nil
}

func (s *AuthServiceImpl) SetAvatar(ctx context.Context, userID uuid.UUID, up Upload) (*model.User, error) {
	if up.Body == nil {
		return nil, errs.Validation("avatar", "avatar file is required")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	key, _, err := s.blobs.Put(ctx, up.Name, up.Body)
	if err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}
	prev, err := s.users.SetAvatar(ctx, userID, s.blobs.URL(key))
	if err != nil {
		s.cleaner.Remove(ctx, key)
		return nil, err
	}
	if old, ok := s.blobs.Key(prev); ok && old != key {
		s.cleaner.Remove(ctx, old)
	}
	return s.Me(ctx, userID)
}

func (s *AuthServiceImpl) issue(userID uuid.UUID) (model.Tokens, error) {
	access, exp, err := s.tokens.Issue(userID)
	if err != nil {
		return model.Tokens{}, fmt.Errorf("issue token: %w", err)
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, nil
}

// present returns a copy safe to hand to callers: no hash, absolute avatar URL.
func (s *AuthServiceImpl) present(u *model.User) *model.User {
	c := *u
	c.PwdHash = ""
	c.AvatarURL = resolveURL(s.origin, c.AvatarURL)
	return &c
}
