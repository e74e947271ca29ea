// Package convert maps domain entities to the JSON documents of the REST API and
// request documents back to domain inputs.
package convert

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
)

// --- responses ---

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// Auth is returned by register and login.
type Auth struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Me wraps the current user.
type Me struct {
	User User `json:"user"`
}

type Board struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TaskCount   int       `json:"taskCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Task struct {
	ID          string       `json:"id"`
	BoardID     string       `json:"boardId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	Color       string       `json:"color"`
	CreatedAt   time.Time    `json:"createdAt"`
	Attachments []Attachment `json:"attachments"`
	Tags        []Tag        `json:"tags"`
}

type Attachment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mimeType,omitempty"`
	Size      int64     `json:"size,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Tag struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	Label     string    `json:"label"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
}

func ToUser(u *model.User) User {
	return User{ID: u.ID.String(), Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL, CreatedAt: u.CreatedAt}
}

func ToAuth(t model.Tokens, u *model.User) Auth {
	return Auth{User: ToUser(u), Token: t.AccessToken, ExpiresAt: t.ExpiresAt}
}

func ToBoard(b *model.Board) Board {
	return Board{ID: b.ID.String(), Name: b.Name, Description: b.Description, TaskCount: b.TaskCount, CreatedAt: b.CreatedAt}
}

func ToBoards(in []model.Board) []Board {
	out := make([]Board, len(in))
	for i := range in {
		out[i] = ToBoard(&in[i])
	}
	return out
}

// ToTask renders a task; nil relation slices become empty arrays.
func ToTask(t *model.Task) Task {
	out := Task{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Color:       t.Color,
		CreatedAt:   t.CreatedAt,
		Attachments: ToAttachments(t.Attachments),
		Tags:        ToTags(t.Tags),
	}
	if t.BoardID != uuid.Nil {
		out.BoardID = t.BoardID.String()
	}
	return out
}

func ToTasks(in []model.Task) []Task {
	out := make([]Task, len(in))
	for i := range in {
		out[i] = ToTask(&in[i])
	}
	return out
}

func ToAttachment(a *model.Attachment) Attachment {
	return Attachment{
		ID:        a.ID.String(),
		TaskID:    a.TaskID.String(),
		Type:      string(a.Kind),
		Name:      a.Name,
		URL:       a.URL,
		MimeType:  a.MimeType,
		Size:      a.Size,
		CreatedAt: a.CreatedAt,
	}
}

func ToAttachments(in []model.Attachment) []Attachment {
	out := make([]Attachment, len(in))
	for i := range in {
		out[i] = ToAttachment(&in[i])
	}
	return out
}

func ToTag(g *model.Tag) Tag {
	return Tag{ID: g.ID.String(), TaskID: g.TaskID.String(), Label: g.Label, Color: g.Color, CreatedAt: g.CreatedAt}
}

func ToTags(in []model.Tag) []Tag {
	out := make([]Tag, len(in))
	for i := range in {
		out[i] = ToTag(&in[i])
	}
	return out
}

// --- requests ---

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// BoardRequest is used for create (name required) and sparse update.
type BoardRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (r BoardRequest) Patch() model.BoardPatch {
	return model.BoardPatch{Name: r.Name, Description: r.Description}
}

type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Color       string `json:"color,omitempty"`
	BoardID     string `json:"boardId"`
}

// TaskPatchRequest keeps JSON key presence: a key that is absent stays nil,
// a key that is present with "" becomes a pointer to "".
type TaskPatchRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Color       *string `json:"color,omitempty"`
	BoardID     *string `json:"boardId,omitempty"`
}

// Patch converts the request; a malformed boardId cannot name an owned board.
func (r TaskPatchRequest) Patch() (model.TaskPatch, error) {
	p := model.TaskPatch{Title: r.Title, Description: r.Description, Status: r.Status, Color: r.Color}
	if r.BoardID != nil {
		id, err := ParseID("boardId", *r.BoardID)
		if err != nil {
			return model.TaskPatch{}, err
		}
		p.BoardID = &id
	}
	return p, nil
}

type LinkRequest struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

type TagRequest struct {
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

type TagPatchRequest struct {
	Label *string `json:"label,omitempty"`
	Color *string `json:"color,omitempty"`
}

func (r TagPatchRequest) Patch() model.TagPatch {
	return model.TagPatch{Label: r.Label, Color: r.Color}
}

type ProfileRequest struct {
	Name *string `json:"name,omitempty"`
}

func (r ProfileRequest) Patch() model.ProfilePatch {
	return model.ProfilePatch{Name: r.Name}
}

// ParseID parses an identifier supplied by a client. A blank value is a validation
// error; a malformed one is reported as not found since it cannot name any resource.
func ParseID(field, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, errs.Validation(field, field+" is required")
	}
	id, err := uuid.FromString(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}
