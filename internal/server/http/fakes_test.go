package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
	"github.com/and161185/taskboard/internal/service"
)

const goodToken = "good-token"

var testUser = &model.User{ID: uuid.Must(uuid.NewV4()), Email: "a@x.com", Name: "A"}

type fakeAuthz struct{ err error }

func (f fakeAuthz) Authorize(_ context.Context, cred string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if cred != goodToken {
		return nil, errs.ErrUnauthorized
	}
	return testUser, nil
}

type fakeAuth struct {
	err       error
	lastIP    string
	lastEmail string
	avatar    string
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Register(_ context.Context, email, _, name string) (model.Tokens, *model.User, error) {
	f.lastEmail = email
	if f.err != nil {
		return model.Tokens{}, nil, f.err
	}
	u := *testUser
	u.Email, u.Name = email, name
	return model.Tokens{AccessToken: goodToken, ExpiresAt: time.Now().Add(time.Hour)}, &u, nil
}

func (f *fakeAuth) Login(_ context.Context, email, _, ip string) (model.Tokens, *model.User, error) {
	f.lastEmail, f.lastIP = email, ip
	if f.err != nil {
		return model.Tokens{}, nil, f.err
	}
	return model.Tokens{AccessToken: goodToken}, testUser, nil
}

func (f *fakeAuth) Me(context.Context, uuid.UUID) (*model.User, error) { return testUser, f.err }

func (f *fakeAuth) UpdateProfile(_ context.Context, _ uuid.UUID, p model.ProfilePatch) (*model.User, error) {
	if p.Name == nil {
		return nil, errs.ErrNoFields
	}
	u := *testUser
	u.Name = *p.Name
	return &u, nil
}

func (f *fakeAuth) SetAvatar(_ context.Context, _ uuid.UUID, up service.Upload) (*model.User, error) {
	b, _ := io.ReadAll(up.Body)
	f.avatar = up.Name + ":" + string(b)
	u := *testUser
	u.AvatarURL = "http://localhost:5050/uploads/" + up.Name
	return &u, nil
}

type fakeBoards struct {
	err     error
	boards  []model.Board
	created string
	patch   model.BoardPatch
	deleted uuid.UUID
}

var _ service.BoardService = (*fakeBoards)(nil)

func (f *fakeBoards) EnsureDefault(context.Context, uuid.UUID) (*model.Board, error) {
	return &f.boards[0], f.err
}

func (f *fakeBoards) Create(_ context.Context, uid uuid.UUID, name, desc string) (*model.Board, error) {
	f.created = name
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("name", "board name is required")
	}
	return &model.Board{ID: uuid.Must(uuid.NewV4()), UserID: uid, Name: name, Description: desc}, nil
}

func (f *fakeBoards) List(context.Context, uuid.UUID) ([]model.Board, error) { return f.boards, f.err }

func (f *fakeBoards) Get(_ context.Context, _, id uuid.UUID) (*model.Board, error) {
	for i := range f.boards {
		if f.boards[i].ID == id {
			return &f.boards[i], nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeBoards) Update(_ context.Context, _, id uuid.UUID, p model.BoardPatch) (*model.Board, error) {
	f.patch = p
	if p.Empty() {
		return nil, errs.ErrNoFields
	}
	return &model.Board{ID: id, Name: *p.Name}, nil
}

func (f *fakeBoards) Delete(_ context.Context, _, id uuid.UUID) error {
	f.deleted = id
	return f.err
}

type fakeTasks struct {
	err     error
	tasks   []model.Task
	created service.NewTask
	patch   model.TaskPatch
	listed  uuid.UUID
}

var _ service.TaskService = (*fakeTasks)(nil)

func (f *fakeTasks) List(_ context.Context, _, boardID uuid.UUID) ([]model.Task, error) {
	f.listed = boardID
	return f.tasks, f.err
}

func (f *fakeTasks) Create(_ context.Context, _ uuid.UUID, in service.NewTask) (*model.Task, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &model.Task{ID: uuid.Must(uuid.NewV4()), BoardID: in.BoardID, Title: in.Title, Status: "todo"}, nil
}

func (f *fakeTasks) Get(_ context.Context, _, id uuid.UUID) (*model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Task{ID: id, Title: "T", Status: "todo"}, nil
}

func (f *fakeTasks) Update(_ context.Context, _, id uuid.UUID, p model.TaskPatch) (*model.Task, error) {
	f.patch = p
	if p.Empty() {
		return nil, errs.ErrNoFields
	}
	if f.err != nil {
		return nil, f.err
	}
	t := &model.Task{ID: id, Title: "T", Status: "todo"}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t, nil
}

func (f *fakeTasks) Delete(context.Context, uuid.UUID, uuid.UUID) error { return f.err }

type fakeAtts struct {
	err      error
	uploaded string
	mime     string
	link     [2]string
}

var _ service.AttachmentService = (*fakeAtts)(nil)

func (f *fakeAtts) List(_ context.Context, _, taskID uuid.UUID) ([]model.Attachment, error) {
	return []model.Attachment{}, f.err
}

func (f *fakeAtts) Upload(_ context.Context, _, taskID uuid.UUID, up service.Upload) (*model.Attachment, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(up.Body)
	f.uploaded, f.mime = up.Name+":"+string(b), up.MimeType
	return &model.Attachment{ID: uuid.Must(uuid.NewV4()), TaskID: taskID, Kind: model.AttachmentFile, Name: up.Name,
		URL: "http://localhost:5050/uploads/k", Size: int64(len(b)), Path: "k"}, nil
}

func (f *fakeAtts) Link(_ context.Context, _, taskID uuid.UUID, url, name string) (*model.Attachment, error) {
	f.link = [2]string{url, name}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Attachment{ID: uuid.Must(uuid.NewV4()), TaskID: taskID, Kind: model.AttachmentLink, Name: name, URL: url}, nil
}

func (f *fakeAtts) Get(context.Context, uuid.UUID, uuid.UUID) (*model.Attachment, error) {
	return nil, errs.ErrNotFound
}

func (f *fakeAtts) Delete(context.Context, uuid.UUID, uuid.UUID) error { return f.err }

type fakeTags struct{ err error }

var _ service.TagService = (*fakeTags)(nil)

func (f *fakeTags) List(context.Context, uuid.UUID, uuid.UUID) ([]model.Tag, error) {
	return []model.Tag{}, f.err
}

func (f *fakeTags) Create(_ context.Context, _, taskID uuid.UUID, label, color string) (*model.Tag, error) {
	if label == "" {
		return nil, errs.Validation("label", "label is required")
	}
	return &model.Tag{ID: uuid.Must(uuid.NewV4()), TaskID: taskID, Label: label, Color: color}, nil
}

func (f *fakeTags) Update(_ context.Context, _, id uuid.UUID, p model.TagPatch) (*model.Tag, error) {
	if p.Empty() {
		return nil, errs.ErrNoFields
	}
	return &model.Tag{ID: id, Label: "l", Color: *p.Color}, nil
}

func (f *fakeTags) Delete(context.Context, uuid.UUID, uuid.UUID) error { return f.err }

type fixture struct {
	auth   *fakeAuth
	boards *fakeBoards
	tasks  *fakeTasks
	atts   *fakeAtts
	tags   *fakeTags
	h      http.Handler
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		auth:   &fakeAuth{},
		boards: &fakeBoards{boards: []model.Board{{ID: uuid.Must(uuid.NewV4()), Name: model.DefaultBoardName, TaskCount: 2}}},
		tasks:  &fakeTasks{},
		atts:   &fakeAtts{},
		tags:   &fakeTags{},
	}
	srv := New(fakeAuthz{}, f.auth, f.boards, f.tasks, f.atts, f.tags, zaptest.NewLogger(t), opts)
	f.h = srv.Echo()
	return f
}

// do performs a request; a non-empty body is sent as JSON.
func (f *fixture) do(method, target, body string, authed bool) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+goodToken)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}
