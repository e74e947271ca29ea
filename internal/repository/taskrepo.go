package repository

import (
	"context"

	"github.com/and161185/taskboard/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TaskRepository provides owner-scoped access to tasks.
type TaskRepository interface {
	// Create inserts a task; the board must be owned by t.UserID.
	Create(ctx context.Context, t *model.Task) error
	// Get returns an owned task without relations.
	Get(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error)
	// ListByBoard returns the board's tasks in insertion order, without relations.
	ListByBoard(ctx context.Context, userID, boardID uuid.UUID) ([]model.Task, error)
	// Update applies fields to an owned task. A board_id field is accepted only when
	// the target board is owned by the same user.
	Update(ctx context.Context, userID, taskID uuid.UUID, fields []model.Field) (*model.Task, error)
	// Delete removes an owned task (cascading attachments and tags) and returns the
	// storage paths of its file attachments.
	Delete(ctx context.Context, userID, taskID uuid.UUID) ([]string, error)
}

// AttachmentRepository stores attachments; ownership is checked through the parent task.
type AttachmentRepository interface {
	// Create inserts an attachment on a task owned by userID.
	Create(ctx context.Context, userID uuid.UUID, a *model.Attachment) error
	// Get returns an attachment whose parent task is owned by userID.
	Get(ctx context.Context, userID, attachmentID uuid.UUID) (*model.Attachment, error)
	// ListByTasks returns attachments of the given tasks with one query.
	ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]model.Attachment, error)
	// Delete removes one attachment and returns the deleted row.
	Delete(ctx context.Context, userID, attachmentID uuid.UUID) (*model.Attachment, error)
}

// TagRepository stores tags; ownership is checked through the parent task.
type TagRepository interface {
	// Create inserts a tag on a task owned by userID.
	Create(ctx context.Context, userID uuid.UUID, t *model.Tag) error
	// ListByTasks returns tags of the given tasks with one query.
	ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]model.Tag, error)
	// Update applies fields to a tag whose parent task is owned by userID.
	Update(ctx context.Context, userID, tagID uuid.UUID, fields []model.Field) (*model.Tag, error)
	// Delete removes one tag.
	Delete(ctx context.Context, userID, tagID uuid.UUID) error
}
