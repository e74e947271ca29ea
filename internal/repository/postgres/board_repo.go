package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// BoardRepo implements BoardRepository using PostgreSQL.
type BoardRepo struct{ db *DB }

// NewBoardRepo constructs a board repository.
func NewBoardRepo(db *DB) *BoardRepo { return &BoardRepo{db: db} }

var boardColumnsAllowed = map[string]bool{"name": true, "description": true}

func scanBoard(row pgx.Row) (*model.Board, error) {
	var b model.Board
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Description, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Create inserts a board row.
func (r *BoardRepo) Create(ctx context.Context, b *model.Board) error {
	const q = `
INSERT INTO boards (id, user_id, name, description)
VALUES ($1, $2, $3, $4)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, b.ID, b.UserID, b.Name, b.Description).Scan(&b.CreatedAt)
	if isFKViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// Get returns a board owned by userID.
func (r *BoardRepo) Get(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, error) {
	const q = `
SELECT b.id, b.user_id, b.name, b.description, b.created_at, COUNT(t.id)
FROM boards b LEFT JOIN tasks t ON t.board_id = b.id
WHERE b.id=$1 AND b.user_id=$2
GROUP BY b.id`
	var b model.Board
	err := r.db.Pool.QueryRow(ctx, q, boardID, userID).
		Scan(&b.ID, &b.UserID, &b.Name, &b.Description, &b.CreatedAt, &b.TaskCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// List returns boards in creation order with task counts.
func (r *BoardRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Board, error) {
	const q = `
SELECT b.id, b.user_id, b.name, b.description, b.created_at, COUNT(t.id)
FROM boards b LEFT JOIN tasks t ON t.board_id = b.id
WHERE b.user_id=$1
GROUP BY b.id
ORDER BY b.created_at ASC, b.seq ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Board{}
	for rows.Next() {
		var b model.Board
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Description, &b.CreatedAt, &b.TaskCount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// EnsureDefault serializes on the user row so concurrent bootstraps cannot both insert.
func (r *BoardRepo) EnsureDefault(ctx context.Context, userID uuid.UUID, fallback model.Board) (*model.Board, error) {
	const lockUser = `SELECT id FROM users WHERE id=$1 FOR UPDATE`
	const first = `
SELECT id, user_id, name, description, created_at
FROM boards WHERE user_id=$1
ORDER BY created_at ASC, seq ASC
LIMIT 1`
	const ins = `
INSERT INTO boards (id, user_id, name, description)
VALUES ($1, $2, $3, $4)
RETURNING created_at`
	const adopt = `UPDATE tasks SET board_id=$2 WHERE user_id=$1 AND board_id IS NULL`

	var board *model.Board
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		var id uuid.UUID
		if err := tx.QueryRow(ctx, lockUser, userID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}

		b, err := scanBoard(tx.QueryRow(ctx, first, userID))
		switch {
		case err == nil:
			board = b
		case errors.Is(err, errs.ErrNotFound):
			nb := fallback
			nb.UserID = userID
			if err := tx.QueryRow(ctx, ins, nb.ID, nb.UserID, nb.Name, nb.Description).Scan(&nb.CreatedAt); err != nil {
				return fmt.Errorf("insert default board: %w", err)
			}
			board = &nb
		default:
			return err
		}

		if _, err := tx.Exec(ctx, adopt, userID, board.ID); err != nil {
			return fmt.Errorf("adopt orphan tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

// Update applies fields to an owned board.
func (r *BoardRepo) Update(ctx context.Context, userID, boardID uuid.UUID, fields []model.Field) (*model.Board, error) {
	if len(fields) == 0 {
		return nil, errs.ErrNoFields
	}
	set, args, err := setClause(fields, boardColumnsAllowed, 3)
	if err != nil {
		return nil, err
	}
	q := `UPDATE boards SET ` + set + ` WHERE id=$1 AND user_id=$2
RETURNING id, user_id, name, description, created_at`
	return scanBoard(r.db.Pool.QueryRow(ctx, q, append([]any{boardID, userID}, args...)...))
}

// Delete removes an owned board; tasks, attachments and tags go with it via ON DELETE CASCADE.
func (r *BoardRepo) Delete(ctx context.Context, userID, boardID uuid.UUID) ([]string, error) {
	const lock = `SELECT id FROM boards WHERE id=$1 AND user_id=$2 FOR UPDATE`
	const files = `
SELECT a.path
FROM attachments a JOIN tasks t ON t.id = a.task_id
WHERE t.board_id=$1 AND t.user_id=$2 AND a.kind='file'`
	const del = `DELETE FROM boards WHERE id=$1 AND user_id=$2`

	var paths []string
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		var id uuid.UUID
		if err := tx.QueryRow(ctx, lock, boardID, userID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		var err error
		if paths, err = collectPaths(ctx, tx, files, boardID, userID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, del, boardID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func collectPaths(ctx context.Context, tx pgx.Tx, q string, args ...any) ([]string, error) {
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
