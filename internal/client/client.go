// Package client is a typed client for the task-board REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/and161185/taskboard/internal/convert"
	"github.com/and161185/taskboard/internal/errs"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response. It matches the errs sentinels by status code.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusBadRequest:
		return target == errs.ErrValidation
	case http.StatusUnauthorized:
		return target == errs.ErrUnauthorized
	case http.StatusNotFound:
		return target == errs.ErrNotFound
	case http.StatusConflict:
		return target == errs.ErrAlreadyExists
	case http.StatusTooManyRequests:
		return target == errs.ErrRateLimited
	}
	return false
}

// Client talks to one server. The zero Token sends no credentials.
type Client struct {
	base  string
	http  *http.Client
	Token string
}

// New returns a client for baseURL, e.g. "http://localhost:5050".
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// do sends body, JSON-encoded unless it is a multipartBody, and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var (
		r     io.Reader
		ctype string
	)
	switch b := body.(type) {
	case nil:
	case multipartBody:
		r, ctype = b.r, b.ctype
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r, ctype = bytes.NewReader(buf), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e convert.Error
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type multipartBody struct {
	r     io.Reader
	ctype string
}

func fileBody(field, name string, content io.Reader) (multipartBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, name)
	if err != nil {
		return multipartBody{}, err
	}
	if _, err := io.Copy(fw, content); err != nil {
		return multipartBody{}, err
	}
	if err := w.Close(); err != nil {
		return multipartBody{}, err
	}
	return multipartBody{r: &buf, ctype: w.FormDataContentType()}, nil
}

// --- auth ---

// Register creates an account and stores the returned token on the client.
func (c *Client) Register(ctx context.Context, email, password, name string) (*convert.Auth, error) {
	var out convert.Auth
	err := c.do(ctx, http.MethodPost, "/auth/register", convert.RegisterRequest{Email: email, Password: password, Name: name}, &out)
	if err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out, nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*convert.Auth, error) {
	var out convert.Auth
	if err := c.do(ctx, http.MethodPost, "/auth/login", convert.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*convert.User, error) {
	var out convert.Me
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, name string) (*convert.User, error) {
	var out convert.Me
	if err := c.do(ctx, http.MethodPut, "/profile", convert.ProfileRequest{Name: &name}, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) SetAvatar(ctx context.Context, name string, content io.Reader) (*convert.User, error) {
	body, err := fileBody("avatar", name, content)
	if err != nil {
		return nil, err
	}
	var out convert.Me
	if err := c.do(ctx, http.MethodPost, "/profile/avatar", body, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// --- boards ---

func (c *Client) Boards(ctx context.Context) ([]convert.Board, error) {
	var out []convert.Board
	if err := c.do(ctx, http.MethodGet, "/boards", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBoard(ctx context.Context, name, description string) (*convert.Board, error) {
	var out convert.Board
	if err := c.do(ctx, http.MethodPost, "/boards", convert.BoardRequest{Name: &name, Description: &description}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PatchBoard(ctx context.Context, id string, req convert.BoardRequest) (*convert.Board, error) {
	var out convert.Board
	if err := c.do(ctx, http.MethodPut, "/boards/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBoard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/boards/"+url.PathEscape(id), nil, nil)
}

// DefaultBoard returns the user's earliest board; listing bootstraps one if needed.
func (c *Client) DefaultBoard(ctx context.Context) (*convert.Board, error) {
	boards, err := c.Boards(ctx)
	if err != nil {
		return nil, err
	}
	if len(boards) == 0 {
		return nil, errors.New("server returned no boards")
	}
	return &boards[0], nil
}

// --- tasks ---

func (c *Client) Tasks(ctx context.Context, boardID string) ([]convert.Task, error) {
	var out []convert.Task
	if err := c.do(ctx, http.MethodGet, "/tasks?boardId="+url.QueryEscape(boardID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Task(ctx context.Context, id string) (*convert.Task, error) {
	var out convert.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, req convert.TaskCreateRequest) (*convert.Task, error) {
	var out convert.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchTask sends a sparse update; only non-nil fields are transmitted.
func (c *Client) PatchTask(ctx context.Context, id string, req convert.TaskPatchRequest) (*convert.Task, error) {
	var out convert.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// --- relations ---

func (c *Client) AddTag(ctx context.Context, taskID, label, color string) (*convert.Tag, error) {
	var out convert.Tag
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/tags", convert.TagRequest{Label: label, Color: color}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTag(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tags/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AddLink(ctx context.Context, taskID, link, name string) (*convert.Attachment, error) {
	var out convert.Attachment
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/attachments/link", convert.LinkRequest{URL: link, Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Upload(ctx context.Context, taskID, name string, content io.Reader) (*convert.Attachment, error) {
	body, err := fileBody("file", name, content)
	if err != nil {
		return nil, err
	}
	var out convert.Attachment
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/attachments/upload", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/attachments/"+url.PathEscape(id), nil, nil)
}
