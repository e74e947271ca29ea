package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/taskboard/internal/model"
	"github.com/and161185/taskboard/internal/repository"
)

// Aggregator nests attachments and tags into tasks with one query per relation type.
type Aggregator struct {
	attachments repository.AttachmentRepository
	tags        repository.TagRepository
	origin      string
}

// NewAggregator constructs an Aggregator; relative attachment URLs are resolved against origin.
func NewAggregator(attachments repository.AttachmentRepository, tags repository.TagRepository, origin string) *Aggregator {
	return &Aggregator{attachments: attachments, tags: tags, origin: origin}
}

// Merge fills Attachments and Tags of every task in place. Slices are never nil afterwards.
func (a *Aggregator) Merge(ctx context.Context, tasks []model.Task) error {
	for i := range tasks {
		tasks[i].Attachments = []model.Attachment{}
		tasks[i].Tags = []model.Tag{}
	}
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(tasks))
	index := make(map[uuid.UUID]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		index[t.ID] = i
	}

	atts, err := a.attachments.ListByTasks(ctx, ids)
	if err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	for _, at := range atts {
		if i, ok := index[at.TaskID]; ok {
			tasks[i].Attachments = append(tasks[i].Attachments, a.Resolve(at))
		}
	}

	tags, err := a.tags.ListByTasks(ctx, ids)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	for _, tg := range tags {
		if i, ok := index[tg.TaskID]; ok {
			tasks[i].Tags = append(tasks[i].Tags, tg)
		}
	}
	return nil
}

// MergeOne is Merge for a single task.
func (a *Aggregator) MergeOne(ctx context.Context, t *model.Task) error {
	one := []model.Task{*t}
	if err := a.Merge(ctx, one); err != nil {
		return err
	}
	*t = one[0]
	return nil
}

// Resolve returns at with an absolute URL.
func (a *Aggregator) Resolve(at model.Attachment) model.Attachment {
	at.URL = resolveURL(a.origin, at.URL)
	return at
}
