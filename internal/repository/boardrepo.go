package repository

import (
	"context"

	"github.com/and161185/taskboard/internal/model"
	"github.com/gofrs/uuid/v5"
)

// BoardRepository provides owner-scoped access to boards.
type BoardRepository interface {
	// Create inserts a board and fills CreatedAt.
	Create(ctx context.Context, b *model.Board) error
	// Get returns a board owned by userID.
	Get(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, error)
	// List returns the user's boards in creation order with task counts.
	List(ctx context.Context, userID uuid.UUID) ([]model.Board, error)
	// EnsureDefault returns the earliest board, creating fallback if the user has none,
	// and reassigns board-less tasks to it. Runs atomically per user.
	EnsureDefault(ctx context.Context, userID uuid.UUID, fallback model.Board) (*model.Board, error)
	// Update applies the patch fields to an owned board.
	Update(ctx context.Context, userID, boardID uuid.UUID, fields []model.Field) (*model.Board, error)
	// Delete removes an owned board (cascading its tasks) and returns the storage
	// paths of every file attachment that was removed with it.
	Delete(ctx context.Context, userID, boardID uuid.UUID) ([]string, error)
}
