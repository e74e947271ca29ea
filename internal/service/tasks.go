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

// NewTask is the input of TaskService.Create. Blank Status and Color take defaults.
type NewTask struct {
	BoardID     uuid.UUID
	Title       string
	Description string
	Status      string
	Color       string
}

// TaskService is the task mutation engine. Every returned task carries its relations.
type TaskService interface {
	// List returns the board's tasks in insertion order.
	List(ctx context.Context, userID, boardID uuid.UUID) ([]model.Task, error)
	// Create adds a task to an owned board.
	Create(ctx context.Context, userID uuid.UUID, in NewTask) (*model.Task, error)
	// Get returns one owned task.
	Get(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error)
	// Update applies a sparse patch and returns the merged task.
	Update(ctx context.Context, userID, taskID uuid.UUID, patch model.TaskPatch) (*model.Task, error)
	// Delete removes the task with its attachments and tags and cleans up its files.
	Delete(ctx context.Context, userID, taskID uuid.UUID) error
}

type TaskServiceImpl struct {
	tasks   repository.TaskRepository
	boards  BoardService
	guard   *Guard
	agg     *Aggregator
	cleaner *Cleaner
}

// NewTaskService constructs TaskService.
func NewTaskService(tasks repository.TaskRepository, boards BoardService, guard *Guard, agg *Aggregator, cleaner *Cleaner) *TaskServiceImpl {
	return &TaskServiceImpl{tasks: tasks, boards: boards, guard: guard, agg: agg, cleaner: cleaner}
}

func (s *TaskServiceImpl) List(ctx context.Context, userID, boardID uuid.UUID) ([]model.Task, error) {
	// Bootstrap first so legacy board-less tasks become visible on the default board.
	if _, err := s.boards.EnsureDefault(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.guard.OwnsBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByBoard(ctx, userID, boardID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if err := s.agg.Merge(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskServiceImpl) Create(ctx context.Context, userID uuid.UUID, in NewTask) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errs.Validation("title", "title is required")
	}
	if in.BoardID == uuid.Nil {
		return nil, errs.Validation("boardId", "boardId is required")
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = model.StatusTodo
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = model.DefaultTaskColor
	}
	if _, err := s.guard.OwnsBoard(ctx, userID, in.BoardID); err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}
	t := &model.Task{
		ID:          id,
		UserID:      userID,
		BoardID:     in.BoardID,
		Title:       title,
		Description: in.Description,
		Status:      status,
		Color:       color,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t.Attachments, t.Tags = []model.Attachment{}, []model.Tag{}
	return t, nil
}

func (s *TaskServiceImpl) Get(ctx context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	t, err := s.guard.OwnsTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.agg.MergeOne(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update validates present fields only. Title and status cannot be cleared; description can.
func (s *TaskServiceImpl) Update(ctx context.Context, userID, taskID uuid.UUID, patch model.TaskPatch) (*model.Task, error) {
	if patch.Empty() {
		return nil, errs.ErrNoFields
	}
	if patch.Title != nil {
		v := strings.TrimSpace(*patch.Title)
		if v == "" {
			return nil, errs.Validation("title", "title cannot be empty")
		}
		patch.Title = &v
	}
	if patch.Status != nil {
		v := strings.TrimSpace(*patch.Status)
		if v == "" {
			return nil, errs.Validation("status", "status cannot be empty")
		}
		patch.Status = &v
	}
	if patch.Color != nil {
		v := strings.TrimSpace(*patch.Color)
		if v == "" {
			return nil, errs.Validation("color", "color cannot be empty")
		}
		patch.Color = &v
	}

	if _, err := s.guard.OwnsTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	if patch.BoardID != nil {
		if _, err := s.guard.OwnsBoard(ctx, userID, *patch.BoardID); err != nil {
			return nil, err
		}
	}

	t, err := s.tasks.Update(ctx, userID, taskID, patch.Fields())
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := s.agg.MergeOne(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete drops the row first; blob cleanup afterwards is best-effort.
func (s *TaskServiceImpl) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	if _, err := s.guard.OwnsTask(ctx, userID, taskID); err != nil {
		return err
	}
	paths, err := s.tasks.Delete(ctx, userID, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.cleaner.Remove(ctx, paths...)
	return nil
}
