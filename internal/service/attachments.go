package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/taskboard/internal/blobstore"
	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
	"github.com/and161185/taskboard/internal/repository"
)

// Upload describes an incoming file.
type Upload struct {
	Name     string
	MimeType string
	Body     io.Reader
}

// AttachmentService manages files and links hanging off tasks.
type AttachmentService interface {
	List(ctx context.Context, userID, taskID uuid.UUID) ([]model.Attachment, error)
	// Upload stores the blob and records a file attachment. The blob is removed again
	// if the record cannot be written.
	Upload(ctx context.Context, userID, taskID uuid.UUID, up Upload) (*model.Attachment, error)
	// Link records a link attachment; name defaults to the URL.
	Link(ctx context.Context, userID, taskID uuid.UUID, url, name string) (*model.Attachment, error)
	Get(ctx context.Context, userID, attachmentID uuid.UUID) (*model.Attachment, error)
	// Delete removes one attachment and, for files, its blob.
	Delete(ctx context.Context, userID, attachmentID uuid.UUID) error
}

type AttachmentServiceImpl struct {
	repo    repository.AttachmentRepository
	blobs   blobstore.Store
	guard   *Guard
	agg     *Aggregator
	cleaner *Cleaner
}

// NewAttachmentService constructs AttachmentService.
func NewAttachmentService(repo repository.AttachmentRepository, blobs blobstore.Store, guard *Guard, agg *Aggregator, cleaner *Cleaner) *AttachmentServiceImpl {
	return &AttachmentServiceImpl{repo: repo, blobs: blobs, guard: guard, agg: agg, cleaner: cleaner}
}

func (s *AttachmentServiceImpl) List(ctx context.Context, userID, taskID uuid.UUID) ([]model.Attachment, error) {
	if _, err := s.guard.OwnsTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	atts, err := s.repo.ListByTasks(ctx, []uuid.UUID{taskID})
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	out := make([]model.Attachment, 0, len(atts))
	for _, a := range atts {
		out = append(out, s.agg.Resolve(a))
	}
	return out, nil
}

func (s *AttachmentServiceImpl) Upload(ctx context.Context, userID, taskID uuid.UUID, up Upload) (*model.Attachment, error) {
	if up.Body == nil {
		return nil, errs.Validation("file", "file is required")
	}
	if _, err := s.guard.OwnsTask(ctx, userID, taskID); err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}
	key, size, err := s.blobs.Put(ctx, up.Name, up.Body)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	name := strings.TrimSpace(filepath.Base(up.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = key
	}
	a := &model.Attachment{
		ID:       id,
		TaskID:   taskID,
		Kind:     model.AttachmentFile,
		Name:     name,
		URL:      s.blobs.URL(key),
		MimeType: up.MimeType,
		Size:     size,
		Path:     key,
	}
	if err := s.repo.Create(ctx, userID, a); err != nil {
		s.cleaner.Remove(ctx, key)
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	out := s.agg.Resolve(*a)
	return &out, nil
}

func (s *AttachmentServiceImpl) Link(ctx context.Context, userID, taskID uuid.UUID, url, name string) (*model.Attachment, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errs.Validation("url", "url is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = url
	}
	if _, err := s.guard.OwnsTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	a := &model.Attachment{ID: id, TaskID: taskID, Kind: model.AttachmentLink, Name: name, URL: url}
	if err := s.repo.Create(ctx, userID, a); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}
	out := s.agg.Resolve(*a)
	return &out, nil
}

func (s *AttachmentServiceImpl) Get(ctx context.Context, userID, attachmentID uuid.UUID) (*model.Attachment, error) {
	a, err := s.repo.Get(ctx, userID, attachmentID)
	if err != nil {
		return nil, err
	}
	out := s.agg.Resolve(*a)
	return &out, nil
}

func (s *AttachmentServiceImpl) Delete(ctx context.Context, userID, attachmentID uuid.UUID) error {
	a, err := s.repo.Delete(ctx, userID, attachmentID)
	if err != nil {
		return err
	}
	if a.Kind == model.AttachmentFile {
		s.cleaner.Remove(ctx, a.Path)
	}
	return nil
}
