package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
	"github.com/and161185/taskboard/internal/repository"
)

// BoardService manages board lifecycle including the default-board bootstrap.
type BoardService interface {
	// EnsureDefault returns the user's earliest board, creating one if none exists,
	// and moves board-less tasks onto it. Idempotent.
	EnsureDefault(ctx context.Context, userID uuid.UUID) (*model.Board, error)
	// Create adds a board; blank names are rejected.
	Create(ctx context.Context, userID uuid.UUID, name, description string) (*model.Board, error)
	// List bootstraps and returns boards in creation order with task counts.
	List(ctx context.Context, userID uuid.UUID) ([]model.Board, error)
	// Get returns one owned board.
	Get(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, error)
	// Update applies a sparse patch.
	Update(ctx context.Context, userID, boardID uuid.UUID, patch model.BoardPatch) (*model.Board, error)
	// Delete removes the board with its tasks and cleans up their files.
	Delete(ctx context.Context, userID, boardID uuid.UUID) error
}

type BoardServiceImpl struct {
	boards  repository.BoardRepository
	guard   *Guard
	cleaner *Cleaner
}

// NewBoardService constructs BoardService.
func NewBoardService(boards repository.BoardRepository, guard *Guard, cleaner *Cleaner) *BoardServiceImpl {
	return &BoardServiceImpl{boards: boards, guard: guard, cleaner: cleaner}
}

func (s *BoardServiceImpl) EnsureDefault(ctx context.Context, userID uuid.UUID) (*model.Board, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrNotFound
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	b, err := s.boards.EnsureDefault(ctx, userID, model.Board{ID: id, UserID: userID, Name: model.DefaultBoardName})
	if err != nil {
		return nil, fmt.Errorf("ensure default board: %w", err)
	}
	return b, nil
}

func (s *BoardServiceImpl) Create(ctx context.Context, userID uuid.UUID, name, description string) (*model.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation("name", "board name is required")
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	b := &model.Board{ID: id, UserID: userID, Name: name, Description: description}
	if err := s.boards.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	return b, nil
}

func (s *BoardServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.Board, error) {
	if _, err := s.EnsureDefault(ctx, userID); err != nil {
		return nil, err
	}
	return s.boards.List(ctx, userID)
}

func (s *BoardServiceImpl) Get(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, error) {
	return s.guard.OwnsBoard(ctx, userID, boardID)
}

func (s *BoardServiceImpl) Update(ctx context.Context, userID, boardID uuid.UUID, patch model.BoardPatch) (*model.Board, error) {
	if patch.Empty() {
		return nil, errs.ErrNoFields
	}
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		if n == "" {
			return nil, errs.Validation("name", "board name cannot be empty")
		}
		patch.Name = &n
	}
	if _, err := s.guard.OwnsBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}
	b, err := s.boards.Update(ctx, userID, boardID, patch.Fields())
	if err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}
	return b, nil
}

func (s *BoardServiceImpl) Delete(ctx context.Context, userID, boardID uuid.UUID) error {
	if _, err := s.guard.OwnsBoard(ctx, userID, boardID); err != nil {
		return err
	}
	paths, err := s.boards.Delete(ctx, userID, boardID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	s.cleaner.Remove(ctx, paths...)
	return nil
}
