package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/limiter"
	"github.com/and161185/taskboard/internal/model"
	"github.com/and161185/taskboard/internal/repository"
)

// memStore is an in-memory relational store with the same owner scoping and
// cascade rules as the PostgreSQL schema.
type memStore struct {
	mu     sync.Mutex
	clock  time.Time
	users  []*model.User
	boards []*model.Board
	tasks  []*model.Task
	atts   []*model.Attachment
	tags   []*model.Tag

	attListCalls  int
	tagListCalls  int
	ensureCalls   int
	attCreateErr  error
	userCreateErr error
	setAvatarErr  error
	getByEmailErr error
}

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) user(id uuid.UUID) *model.User {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (m *memStore) board(userID, id uuid.UUID) *model.Board {
	for _, b := range m.boards {
		if b.ID == id && b.UserID == userID {
			return b
		}
	}
	return nil
}

func (m *memStore) task(userID, id uuid.UUID) *model.Task {
	for _, t := range m.tasks {
		if t.ID == id && t.UserID == userID {
			return t
		}
	}
	return nil
}

func (m *memStore) countTasks(boardID uuid.UUID) int {
	n := 0
	for _, t := range m.tasks {
		if t.BoardID == boardID {
			n++
		}
	}
	return n
}

// dropTasks removes tasks matching pred with their relations and returns file paths.
func (m *memStore) dropTasks(pred func(*model.Task) bool) []string {
	gone := map[uuid.UUID]bool{}
	var keep []*model.Task
	for _, t := range m.tasks {
		if pred(t) {
			gone[t.ID] = true
			continue
		}
		keep = append(keep, t)
	}
	m.tasks = keep

	var paths []string
	var atts []*model.Attachment
	for _, a := range m.atts {
		if gone[a.TaskID] {
			if a.Kind == model.AttachmentFile {
				paths = append(paths, a.Path)
			}
			continue
		}
		atts = append(atts, a)
	}
	m.atts = atts

	var tags []*model.Tag
	for _, g := range m.tags {
		if !gone[g.TaskID] {
			tags = append(tags, g)
		}
	}
	m.tags = tags
	return paths
}

type memUsers struct{ *memStore }
type memBoards struct{ *memStore }
type memTasks struct{ *memStore }
type memAtts struct{ *memStore }
type memTags struct{ *memStore }

var (
	_ repository.UserRepository       = memUsers{}
	_ repository.BoardRepository      = memBoards{}
	_ repository.TaskRepository       = memTasks{}
	_ repository.AttachmentRepository = memAtts{}
	_ repository.TagRepository        = memTags{}
)

func (r memUsers) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.userCreateErr != nil {
		return r.userCreateErr
	}
	for _, x := range r.users {
		if x.Email == u.Email {
			return errs.ErrAlreadyExists
		}
	}
	u.CreatedAt = r.tick()
	c := *u
	r.users = append(r.users, &c)
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.user(id); u != nil {
		c := *u
		return &c, nil
	}
	return nil, errs.ErrNotFound
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getByEmailErr != nil {
		return nil, r.getByEmailErr
	}
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r memUsers) UpdateName(_ context.Context, id uuid.UUID, name string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.user(id)
	if u == nil {
		return nil, errs.ErrNotFound
	}
	u.Name = name
	c := *u
	return &c, nil
}

func (r memUsers) SetAvatar(_ context.Context, id uuid.UUID, avatarURL string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setAvatarErr != nil {
		return "", r.setAvatarErr
	}
	u := r.user(id)
	if u == nil {
		return "", errs.ErrNotFound
	}
	prev := u.AvatarURL
	u.AvatarURL = avatarURL
	return prev, nil
}

func (r memBoards) Create(_ context.Context, b *model.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.user(b.UserID) == nil {
		return errs.ErrNotFound
	}
	b.CreatedAt = r.tick()
	c := *b
	r.boards = append(r.boards, &c)
	return nil
}

func (r memBoards) Get(_ context.Context, userID, boardID uuid.UUID) (*model.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.board(userID, boardID)
	if b == nil {
		return nil, errs.ErrNotFound
	}
	c := *b
	c.TaskCount = r.countTasks(b.ID)
	return &c, nil
}

func (r memBoards) List(_ context.Context, userID uuid.UUID) ([]model.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Board{}
	for _, b := range r.boards {
		if b.UserID == userID {
			c := *b
			c.TaskCount = r.countTasks(b.ID)
			out = append(out, c)
		}
	}
	return out, nil
}

func (r memBoards) EnsureDefault(_ context.Context, userID uuid.UUID, fallback model.Board) (*model.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureCalls++
	if r.user(userID) == nil {
		return nil, errs.ErrNotFound
	}
	var first *model.Board
	for _, b := range r.boards {
		if b.UserID == userID {
			first = b
			break
		}
	}
	if first == nil {
		nb := fallback
		nb.UserID = userID
		nb.CreatedAt = r.tick()
		first = &nb
		r.boards = append(r.boards, first)
	}
	for _, t := range r.tasks {
		if t.UserID == userID && t.BoardID == uuid.Nil {
			t.BoardID = first.ID
		}
	}
	c := *first
	return &c, nil
}

func (r memBoards) Update(_ context.Context, userID, boardID uuid.UUID, fields []model.Field) (*model.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(fields) == 0 {
		return nil, errs.ErrNoFields
	}
	b := r.board(userID, boardID)
	if b == nil {
		return nil, errs.ErrNotFound
	}
	for _, f := range fields {
		switch f.Column {
		case "name":
			b.Name = f.Value.(string)
		case "description":
			b.Description = f.Value.(string)
		default:
			return nil, fmt.Errorf("unsupported column %q", f.Column)
		}
	}
	c := *b
	return &c, nil
}

func (r memBoards) Delete(_ context.Context, userID, boardID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.board(userID, boardID) == nil {
		return nil, errs.ErrNotFound
	}
	var keep []*model.Board
	for _, b := range r.boards {
		if b.ID != boardID {
			keep = append(keep, b)
		}
	}
	r.boards = keep
	return r.dropTasks(func(t *model.Task) bool { return t.BoardID == boardID }), nil
}

func (r memTasks) Create(_ context.Context, t *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.board(t.UserID, t.BoardID) == nil {
		return errs.ErrNotFound
	}
	t.CreatedAt = r.tick()
	c := *t
	c.Attachments, c.Tags = nil, nil
	r.tasks = append(r.tasks, &c)
	return nil
}

func (r memTasks) Get(_ context.Context, userID, taskID uuid.UUID) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.task(userID, taskID)
	if t == nil {
		return nil, errs.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r memTasks) ListByBoard(_ context.Context, userID, boardID uuid.UUID) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Task{}
	for _, t := range r.tasks {
		if t.UserID == userID && t.BoardID == boardID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r memTasks) Update(_ context.Context, userID, taskID uuid.UUID, fields []model.Field) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(fields) == 0 {
		return nil, errs.ErrNoFields
	}
	t := r.task(userID, taskID)
	if t == nil {
		return nil, errs.ErrNotFound
	}
	next := *t
	for _, f := range fields {
		switch f.Column {
		case "title":
			next.Title = f.Value.(string)
		case "description":
			next.Description = f.Value.(string)
		case "status":
			next.Status = f.Value.(string)
		case "color":
			next.Color = f.Value.(string)
		case "board_id":
			id := f.Value.(uuid.UUID)
			if r.board(userID, id) == nil {
				return nil, errs.ErrNotFound
			}
			next.BoardID = id
		default:
			return nil, fmt.Errorf("unsupported column %q", f.Column)
		}
	}
	*t = next
	c := *t
	return &c, nil
}

func (r memTasks) Delete(_ context.Context, userID, taskID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.task(userID, taskID) == nil {
		return nil, errs.ErrNotFound
	}
	return r.dropTasks(func(t *model.Task) bool { return t.ID == taskID }), nil
}

func (r memAtts) Create(_ context.Context, userID uuid.UUID, a *model.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attCreateErr != nil {
		return r.attCreateErr
	}
	if r.task(userID, a.TaskID) == nil {
		return errs.ErrNotFound
	}
	a.CreatedAt = r.tick()
	c := *a
	r.atts = append(r.atts, &c)
	return nil
}

func (r memAtts) owned(userID, id uuid.UUID) (int, *model.Attachment) {
	for i, a := range r.atts {
		if a.ID == id && r.task(userID, a.TaskID) != nil {
			return i, a
		}
	}
	return -1, nil
}

func (r memAtts) Get(_ context.Context, userID, attachmentID uuid.UUID) (*model.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, a := r.owned(userID, attachmentID)
	if a == nil {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r memAtts) ListByTasks(_ context.Context, taskIDs []uuid.UUID) ([]model.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attListCalls++
	want := map[uuid.UUID]bool{}
	for _, id := range taskIDs {
		want[id] = true
	}
	var out []model.Attachment
	for _, a := range r.atts {
		if want[a.TaskID] {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r memAtts) Delete(_ context.Context, userID, attachmentID uuid.UUID) (*model.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, a := r.owned(userID, attachmentID)
	if a == nil {
		return nil, errs.ErrNotFound
	}
	r.atts = append(r.atts[:i], r.atts[i+1:]...)
	return a, nil
}

func (r memTags) Create(_ context.Context, userID uuid.UUID, g *model.Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.task(userID, g.TaskID) == nil {
		return errs.ErrNotFound
	}
	g.CreatedAt = r.tick()
	c := *g
	r.tags = append(r.tags, &c)
	return nil
}

func (r memTags) owned(userID, id uuid.UUID) (int, *model.Tag) {
	for i, g := range r.tags {
		if g.ID == id && r.task(userID, g.TaskID) != nil {
			return i, g
		}
	}
	return -1, nil
}

func (r memTags) ListByTasks(_ context.Context, taskIDs []uuid.UUID) ([]model.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tagListCalls++
	want := map[uuid.UUID]bool{}
	for _, id := range taskIDs {
		want[id] = true
	}
	var out []model.Tag
	for _, g := range r.tags {
		if want[g.TaskID] {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r memTags) Update(_ context.Context, userID, tagID uuid.UUID, fields []model.Field) (*model.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(fields) == 0 {
		return nil, errs.ErrNoFields
	}
	_, g := r.owned(userID, tagID)
	if g == nil {
		return nil, errs.ErrNotFound
	}
	for _, f := range fields {
		switch f.Column {
		case "label":
			g.Label = f.Value.(string)
		case "color":
			g.Color = f.Value.(string)
		}
	}
	c := *g
	return &c, nil
}

func (r memTags) Delete(_ context.Context, userID, tagID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, g := r.owned(userID, tagID)
	if g == nil {
		return errs.ErrNotFound
	}
	r.tags = append(r.tags[:i], r.tags[i+1:]...)
	return nil
}

// fakeBlobs keeps blobs in memory and records every delete attempt.
type fakeBlobs struct {
	mu        sync.Mutex
	data      map[string][]byte
	deleted   []string
	n         int
	putErr    error
	deleteErr error
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{data: map[string][]byte{}} }

func (b *fakeBlobs) Put(_ context.Context, name string, r io.Reader) (string, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", 0, b.putErr
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return "", 0, err
	}
	b.n++
	key := fmt.Sprintf("blob-%d%s", b.n, filepath.Ext(name))
	b.data[key] = buf.Bytes()
	return key, n, nil
}

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.data, key)
	return nil
}

func (b *fakeBlobs) URL(key string) string { return "/uploads/" + key }

func (b *fakeBlobs) Key(url string) (string, bool) {
	k, ok := strings.CutPrefix(url, "/uploads/")
	return k, ok && k != ""
}

func (b *fakeBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}

type fakeHasher struct{}

func (fakeHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (fakeHasher) Verify(p, enc string) bool { return enc == "h:"+p }

type fakeTokens struct{ issueErr error }

func (f fakeTokens) Issue(id uuid.UUID) (string, time.Time, error) {
	if f.issueErr != nil {
		return "", time.Time{}, f.issueErr
	}
	return "tok-" + id.String(), time.Now().Add(time.Hour), nil
}

func (fakeTokens) Verify(raw string) (uuid.UUID, error) {
	s, ok := strings.CutPrefix(raw, "tok-")
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	id, err := uuid.FromString(s)
	if err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

const testOrigin = "http://localhost:5050"

// env wires every service over one memStore.
type env struct {
	store *memStore
	blobs *fakeBlobs
	lim   *fakeLimiter

	guard  *Guard
	auth   *AuthServiceImpl
	boards *BoardServiceImpl
	tasks  *TaskServiceImpl
	atts   *AttachmentServiceImpl
	tags   *TagServiceImpl
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := newMemStore()
	blobs := newFakeBlobs()
	lim := &fakeLimiter{allowOK: true}
	cleaner := NewCleaner(blobs, zaptest.NewLogger(t))

	guard := NewGuard(memUsers{st}, fakeTokens{}, memBoards{st}, memTasks{st})
	agg := NewAggregator(memAtts{st}, memTags{st}, testOrigin)
	boards := NewBoardService(memBoards{st}, guard, cleaner)
	return &env{
		store:  st,
		blobs:  blobs,
		lim:    lim,
		guard:  guard,
		auth:   NewAuthService(memUsers{st}, fakeHasher{}, fakeTokens{}, lim, blobs, cleaner, testOrigin),
		boards: boards,
		tasks:  NewTaskService(memTasks{st}, boards, guard, agg, cleaner),
		atts:   NewAttachmentService(memAtts{st}, blobs, guard, agg, cleaner),
		tags:   NewTagService(memTags{st}, guard),
	}
}

// signup registers a user and returns its id.
func (e *env) signup(t *testing.T, email string) uuid.UUID {
	t.Helper()
	_, u, err := e.auth.Register(context.Background(), email, "secret1", "")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u.ID
}

// seedTask creates a task on the user's default board.
func (e *env) seedTask(t *testing.T, userID uuid.UUID, title string) *model.Task {
	t.Helper()
	ctx := context.Background()
	b, err := e.boards.EnsureDefault(ctx, userID)
	if err != nil {
		t.Fatalf("ensure default: %v", err)
	}
	tk, err := e.tasks.Create(ctx, userID, NewTask{BoardID: b.ID, Title: title})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return tk
}

var errBoom = errors.New("boom")
