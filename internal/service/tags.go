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

// TagService manages colored labels on tasks.
type TagService interface {
	List(ctx context.Context, userID, taskID uuid.UUID) ([]model.Tag, error)
	// Create adds a tag; a blank color takes the default.
	Create(ctx context.Context, userID, taskID uuid.UUID, label, color string) (*model.Tag, error)
	Update(ctx context.Context, userID, tagID uuid.UUID, patch model.TagPatch) (*model.Tag, error)
	Delete(ctx context.Context, userID, tagID uuid.UUID) error
}

type TagServiceImpl struct {
	repo  repository.TagRepository
	guard *Guard
}

// NewTagService constructs TagService.
func NewTagService(repo repository.TagRepository, guard *Guard) *TagServiceImpl {
	return &TagServiceImpl{repo: repo, guard: guard}
}

func (s *TagServiceImpl) List(ctx context.Context, userID, taskID uuid.UUID) ([]model.Tag, error) {
	if _, err := s.guard.OwnsTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	tags, err := s.repo.ListByTasks(ctx, []uuid.UUID{taskID})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	return tags, nil
}

func (s *TagServiceImpl) Create(ctx context.Context, userID, taskID uuid.UUID, label, color string) (*model.Tag, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, errs.Validation("label", "label is required")
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = model.DefaultTagColor
	}
	if _, err := s.guard.OwnsTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	g := &model.Tag{ID: id, TaskID: taskID, Label: label, Color: color}
	if err := s.repo.Create(ctx, userID, g); err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return g, nil
}

func (s *TagServiceImpl) Update(ctx context.Context, userID, tagID uuid.UUID, patch model.TagPatch) (*model.Tag, error) {
	if patch.Empty() {
		return nil, errs.ErrNoFields
	}
	if patch.Label != nil {
		v := strings.TrimSpace(*patch.Label)
		if v == "" {
			return nil, errs.Validation("label", "label cannot be empty")
		}
		patch.Label = &v
	}
	if patch.Color != nil {
		v := strings.TrimSpace(*patch.Color)
		if v == "" {
			return nil, errs.Validation("color", "color cannot be empty")
		}
		patch.Color = &v
	}
	return s.repo.Update(ctx, userID, tagID, patch.Fields())
}

func (s *TagServiceImpl) Delete(ctx context.Context, userID, tagID uuid.UUID) error {
	return s.repo.Delete(ctx, userID, tagID)
}
