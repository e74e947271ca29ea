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

// TaskRepo implements TaskRepository using PostgreSQL.
type TaskRepo struct{ db *DB }

// NewTaskRepo constructs a task repository.
func NewTaskRepo(db *DB) *TaskRepo { return &TaskRepo{db: db} }

const taskColumns = `id, user_id, board_id, title, description, status, color, created_at`

var taskColumnsAllowed = map[string]bool{
	"title": true, "description": true, "status": true, "color": true, "board_id": true,
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var (
		t     model.Task
		board uuid.NullUUID
	)
	if err := row.Scan(&t.ID, &t.UserID, &board, &t.Title, &t.Description, &t.Status, &t.Color, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if board.Valid {
		t.BoardID = board.UUID
	}
	return &t, nil
}

// Create inserts a task only if the referenced board belongs to the same user.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	const q = `
INSERT INTO tasks (id, user_id, board_id, title, description, status, color)
SELECT $1::uuid, b.user_id, b.id, $4::text, $5::text, $6::text, $7::text
FROM boards b WHERE b.id=$3 AND b.user_id=$2
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, t.ID, t.UserID, t.BoardID, t.Title, t.Description, t.Status, t.Color).
		Scan(&t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isFKViolation(err) {
			return errs.ErrNotFound
		}
		return err
	}
	return nil
}

// Get returns an owned task.
func (r *TaskRepo) Get(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1 AND user_id=$2`
	return scanTask(r.db.Pool.QueryRow(ctx, q, taskID, userID))
}

// ListByBoard returns tasks in insertion order.
func (r *TaskRepo) ListByBoard(ctx context.Context, userID, boardID uuid.UUID) ([]model.Task, error) {
	const q = `
SELECT ` + taskColumns + `
FROM tasks
WHERE board_id=$1 AND user_id=$2
ORDER BY seq ASC`
	rows, err := r.db.Pool.Query(ctx, q, boardID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update applies fields to an owned task. Moving to another board is guarded in the
// same statement so a concurrent board delete or foreign board cannot be referenced.
func (r *TaskRepo) Update(ctx context.Context, userID, taskID uuid.UUID, fields []model.Field) (*model.Task, error) {
	if len(fields) == 0 {
		return nil, errs.ErrNoFields
	}
	set, args, err := setClause(fields, taskColumnsAllowed, 3)
	if err != nil {
		return nil, err
	}
	q := `UPDATE tasks SET ` + set + ` WHERE id=$1 AND user_id=$2`
	if n := fieldIndex(fields, "board_id", 3); n > 0 {
		q += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM boards b WHERE b.id=$%d AND b.user_id=$2)`, n)
	}
	q += ` RETURNING ` + taskColumns

	t, err := scanTask(r.db.Pool.QueryRow(ctx, q, append([]any{taskID, userID}, args...)...))
	if isFKViolation(err) {
		return nil, errs.ErrNotFound
	}
	return t, err
}

// Delete removes an owned task and returns the paths of its file attachments.
func (r *TaskRepo) Delete(ctx context.Context, userID, taskID uuid.UUID) ([]string, error) {
	const lock = `SELECT id FROM tasks WHERE id=$1 AND user_id=$2 FOR UPDATE`
	const files = `SELECT path FROM attachments WHERE task_id=$1 AND kind='file'`
	const del = `DELETE FROM tasks WHERE id=$1 AND user_id=$2`

	var paths []string
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		var id uuid.UUID
		if err := tx.QueryRow(ctx, lock, taskID, userID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		var err error
		if paths, err = collectPaths(ctx, tx, files, taskID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, del, taskID, userID)
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

// idStrings renders ids for a uuid[] parameter.
func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
