package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
	"github.com/and161185/taskboard/internal/repository"
)

// Guard proves that a caller owns the resource it is about to touch. A resource owned
// by someone else yields errs.ErrNotFound, the same as a missing one. Attachments and
// tags carry no owner of their own and are checked through their parent task.
type Guard struct {
	users  repository.UserRepository
	tokens TokenManager
	boards repository.BoardRepository
	tasks  repository.TaskRepository
}

// NewGuard constructs a Guard.
func NewGuard(users repository.UserRepository, tokens TokenManager, boards repository.BoardRepository, tasks repository.TaskRepository) *Guard {
	return &Guard{users: users, tokens: tokens, boards: boards, tasks: tasks}
}

// Authorize resolves a bearer credential to its user. Any failure is errs.ErrUnauthorized,
// except storage errors which propagate.
func (g *Guard) Authorize(ctx context.Context, credential string) (*model.User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, errs.ErrUnauthorized
	}
	id, err := g.tokens.Verify(credential)
	if err != nil {
		return nil, errs.ErrUnauthorized
	}
	u, err := g.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

// OwnsBoard returns the board if userID owns it.
func (g *Guard) OwnsBoard(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, error) {
	if userID == uuid.Nil || boardID == uuid.Nil {
		return nil, errs.ErrNotFound
	}
	return g.boards.Get(ctx, userID, boardID)
}

// OwnsTask returns the task (without relations) if userID owns it.
func (g *Guard) OwnsTask(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	if userID == uuid.Nil || taskID == uuid.Nil {
		return nil, errs.ErrNotFound
	}
	return g.tasks.Get(ctx, userID, taskID)
}
