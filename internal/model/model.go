// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Workflow states used by the board UI. The set is open: any non-empty status is stored.
const (
	StatusTodo       = "todo"
	StatusInProgress = "inprogress"
	StatusDone       = "done"
)

// Defaults applied by the engine when the client omits a value.
const (
	DefaultBoardName = "My Board"
	DefaultTaskColor = "#e3f2fd"
	DefaultTagColor  = "#1976d2"
)

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account. PwdHash is an opaque encoded credential hash.
type User struct {
	ID        uuid.UUID
	Email     string // unique, lower-cased
	PwdHash   string
	Name      string
	AvatarURL string
	CreatedAt time.Time
}

// Board is an owned, named container of tasks.
type Board struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	TaskCount   int // filled by listing queries only
}

// Task is a card on a board. BoardID is uuid.Nil only for legacy rows awaiting bootstrap.
type Task struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	BoardID     uuid.UUID
	Title       string
	Description string
	Status      string
	Color       string
	CreatedAt   time.Time

	// Relations, always non-nil after aggregation.
	Attachments []Attachment
	Tags        []Tag
}

// AttachmentKind discriminates file uploads from links.
type AttachmentKind string

const (
	AttachmentFile AttachmentKind = "file"
	AttachmentLink AttachmentKind = "link"
)

// Attachment hangs off exactly one task. Path is non-empty iff Kind == AttachmentFile.
type Attachment struct {
	ID        uuid.UUID
	TaskID    uuid.UUID
	Kind      AttachmentKind
	Name      string
	URL       string
	MimeType  string
	Size      int64
	Path      string
	CreatedAt time.Time
}

// Tag is a colored label on a task.
type Tag struct {
	ID        uuid.UUID
	TaskID    uuid.UUID
	Label     string
	Color     string
	CreatedAt time.Time
}
