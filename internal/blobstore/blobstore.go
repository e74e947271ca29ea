// Package blobstore stores uploaded files outside the relational store.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// ErrInvalidKey is returned for keys that would escape the store root.
var ErrInvalidKey = errors.New("invalid blob key")

// Store persists blobs under opaque keys.
type Store interface {
	// Put writes r under a fresh key derived from name and returns the key and size.
	Put(ctx context.Context, name string, r io.Reader) (key string, size int64, err error)
	// Delete removes the blob. A missing blob is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public path the blob is served under.
	URL(key string) string
	// Key reverses URL; ok is false for URLs this store did not produce.
	Key(url string) (key string, ok bool)
}

// Local keeps blobs as files in a single directory served under a URL prefix.
type Local struct {
	dir    string
	prefix string
}

// NewLocal creates dir if needed. prefix is the public path, e.g. "/uploads".
func NewLocal(dir, prefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, prefix: strings.TrimRight(prefix, "/")}, nil
}

// Dir is the directory the blobs live in.
func (l *Local) Dir() string { return l.dir }

// Put stores r as <uuid><ext>; the original name only contributes its extension.
func (l *Local) Put(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", 0, err
	}
	key := id.String() + sanitizeExt(name)

	f, err := os.OpenFile(filepath.Join(l.dir, key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(l.dir, key))
		return "", 0, err
	}
	return key, n, nil
}

// Delete unlinks the blob; already-absent counts as success.
func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns prefix/key.
func (l *Local) URL(key string) string { return l.prefix + "/" + key }

// Key reverses URL for blobs served by this store; ok is false for foreign URLs.
func (l *Local) Key(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, l.prefix+"/")
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}

func (l *Local) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", ErrInvalidKey
	}
	return filepath.Join(l.dir, key), nil
}

func sanitizeExt(name string) string {
	ext := strings.ToLower(path.Ext(filepath.Base(name)))
	if len(ext) > 16 {
		return ""
	}
	for _, r := range ext[min(1, len(ext)):] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
