package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/taskboard/internal/blobstore"
)

// Cleaner removes blobs whose rows are already gone. Failures are logged, never returned:
// the row delete is authoritative.
type Cleaner struct {
	blobs blobstore.Store
	log   *zap.Logger
}

// NewCleaner constructs a Cleaner; a nil logger discards warnings.
func NewCleaner(blobs blobstore.Store, log *zap.Logger) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{blobs: blobs, log: log}
}

// Remove unlinks every path; "already absent" is success.
func (c *Cleaner) Remove(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := c.blobs.Delete(ctx, p); err != nil {
			c.log.Warn("blob cleanup failed", zap.String("path", p), zap.Error(err))
		}
	}
}
