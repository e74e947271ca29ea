package postgres

import (
	"context"
	"errors"

	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TagRepo implements TagRepository using PostgreSQL.
type TagRepo struct{ db *DB }

// NewTagRepo constructs a tag repository.
func NewTagRepo(db *DB) *TagRepo { return &TagRepo{db: db} }

var tagColumnsAllowed = map[string]bool{"label": true, "color": true}

func scanTag(row pgx.Row) (*model.Tag, error) {
	var g model.Tag
	if err := row.Scan(&g.ID, &g.TaskID, &g.Label, &g.Color, &g.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Create inserts a tag on a task owned by userID.
func (r *TagRepo) Create(ctx context.Context, userID uuid.UUID, g *model.Tag) error {
	const q = `
INSERT INTO tags (id, task_id, label, color)
SELECT $1::uuid, t.id, $4::text, $5::text
FROM tasks t WHERE t.id=$2 AND t.user_id=$3
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, g.ID, g.TaskID, userID, g.Label, g.Color).Scan(&g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isFKViolation(err) {
			return errs.ErrNotFound
		}
		return err
	}
	return nil
}

// ListByTasks fetches tags for all given tasks in one round trip.
func (r *TagRepo) ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]model.Tag, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	const q = `
SELECT id, task_id, label, color, created_at
FROM tags
WHERE task_id = ANY($1::uuid[])
ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Pool.Query(ctx, q, idStrings(taskIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		g, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// Update applies fields to a tag whose parent task is owned by userID.
func (r *TagRepo) Update(ctx context.Context, userID, tagID uuid.UUID, fields []model.Field) (*model.Tag, error) {
	if len(fields) == 0 {
		return nil, errs.ErrNoFields
	}
	set, args, err := setClause(fields, tagColumnsAllowed, 3)
	if err != nil {
		return nil, err
	}
	q := `UPDATE tags g SET ` + set + `
FROM tasks t
WHERE g.id=$1 AND g.task_id = t.id AND t.user_id=$2
RETURNING g.id, g.task_id, g.label, g.color, g.created_at`
	return scanTag(r.db.Pool.QueryRow(ctx, q, append([]any{tagID, userID}, args...)...))
}

// Delete removes one tag scoped through its parent task owner.
func (r *TagRepo) Delete(ctx context.Context, userID, tagID uuid.UUID) error {
	const q = `DELETE FROM tags g USING tasks t WHERE g.id=$1 AND g.task_id = t.id AND t.user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, tagID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
