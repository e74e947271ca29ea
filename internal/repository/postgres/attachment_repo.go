package postgres

import (
	"context"
	"errors"

	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// AttachmentRepo implements AttachmentRepository using PostgreSQL.
type AttachmentRepo struct{ db *DB }

// NewAttachmentRepo constructs an attachment repository.
func NewAttachmentRepo(db *DB) *AttachmentRepo { return &AttachmentRepo{db: db} }

func scanAttachment(row pgx.Row) (*model.Attachment, error) {
	var (
		a    model.Attachment
		kind string
	)
	if err := row.Scan(&a.ID, &a.TaskID, &kind, &a.Name, &a.URL, &a.MimeType, &a.Size, &a.Path, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	a.Kind = model.AttachmentKind(kind)
	return &a, nil
}

// Create inserts an attachment on a task owned by userID.
func (r *AttachmentRepo) Create(ctx context.Context, userID uuid.UUID, a *model.Attachment) error {
	const q = `
INSERT INTO attachments (id, task_id, kind, name, url, mime_type, size, path)
SELECT $1::uuid, t.id, $4::text, $5::text, $6::text, $7::text, $8::bigint, $9::text
FROM tasks t WHERE t.id=$2 AND t.user_id=$3
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q,
		a.ID, a.TaskID, userID, string(a.Kind), a.Name, a.URL, a.MimeType, a.Size, a.Path,
	).Scan(&a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isFKViolation(err) {
			return errs.ErrNotFound
		}
		return err
	}
	return nil
}

// Get returns an attachment whose parent task is owned by userID.
func (r *AttachmentRepo) Get(ctx context.Context, userID, attachmentID uuid.UUID) (*model.Attachment, error) {
	const q = `
SELECT a.id, a.task_id, a.kind, a.name, a.url, a.mime_type, a.size, a.path, a.created_at
FROM attachments a JOIN tasks t ON t.id = a.task_id
WHERE a.id=$1 AND t.user_id=$2`
	return scanAttachment(r.db.Pool.QueryRow(ctx, q, attachmentID, userID))
}

// ListByTasks fetches attachments for all given tasks in one round trip.
func (r *AttachmentRepo) ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]model.Attachment, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	const q = `
SELECT id, task_id, kind, name, url, mime_type, size, path, created_at
FROM attachments
WHERE task_id = ANY($1::uuid[])
ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Pool.Query(ctx, q, idStrings(taskIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Delete removes one attachment scoped through its parent task owner.
func (r *AttachmentRepo) Delete(ctx context.Context, userID, attachmentID uuid.UUID) (*model.Attachment, error) {
	const q = `
DELETE FROM attachments a USING tasks t
WHERE a.id=$1 AND a.task_id = t.id AND t.user_id=$2
RETURNING a.id, a.task_id, a.kind, a.name, a.url, a.mime_type, a.size, a.path, a.created_at`
	return scanAttachment(r.db.Pool.QueryRow(ctx, q, attachmentID, userID))
}
