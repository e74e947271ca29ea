package httpserver

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo/v4"

	"github.com/and161185/taskboard/internal/convert"
	"github.com/and161185/taskboard/internal/errs"
	"github.com/and161185/taskboard/internal/model"
	"github.com/and161185/taskboard/internal/service"
)

func currentUser(c echo.Context) (*model.User, error) {
	u, ok := UserFromCtx(c.Request().Context())
	if !ok {
		return nil, errs.ErrUnauthorized
	}
	return u, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	return convert.ParseID(name, c.Param(name))
}

// bind decodes a JSON body; syntax errors are reported as 400.
func bind(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return errs.Validation("", "invalid request body")
	}
	return nil
}

// --- auth & profile ---

func (s *Server) register(c echo.Context) error {
	var req convert.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tok, u, err := s.auth.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convert.ToAuth(tok, u))
}

func (s *Server) login(c echo.Context) error {
	var req convert.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tok, u, err := s.auth.Login(c.Request().Context(), req.Email, req.Password, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToAuth(tok, u))
}

func (s *Server) me(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	fresh, err := s.auth.Me(c.Request().Context(), u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.Me{User: convert.ToUser(fresh)})
}

func (s *Server) updateProfile(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req convert.ProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := s.auth.UpdateProfile(c.Request().Context(), u.ID, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.Me{User: convert.ToUser(out)})
}

func (s *Server) uploadAvatar(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	up, closeFn, err := formUpload(c, "avatar")
	if err != nil {
		return err
	}
	defer closeFn()
	out, err := s.auth.SetAvatar(c.Request().Context(), u.ID, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.Me{User: convert.ToUser(out)})
}

// --- boards ---

func (s *Server) listBoards(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	boards, err := s.boards.List(c.Request().Context(), u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToBoards(boards))
}

func (s *Server) createBoard(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req convert.BoardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	var name, desc string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		desc = *req.Description
	}
	b, err := s.boards.Create(c.Request().Context(), u.ID, name, desc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convert.ToBoard(b))
}

func (s *Server) getBoard(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "boardId")
	if err != nil {
		return err
	}
	b, err := s.boards.Get(c.Request().Context(), u.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToBoard(b))
}

func (s *Server) updateBoard(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "boardId")
	if err != nil {
		return err
	}
	var req convert.BoardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := s.boards.Update(c.Request().Context(), u.ID, id, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToBoard(b))
}

func (s *Server) deleteBoard(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "boardId")
	if err != nil {
		return err
	}
	if err := s.boards.Delete(c.Request().Context(), u.ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- tasks ---

func (s *Server) listTasks(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	boardID, err := convert.ParseID("boardId", c.QueryParam("boardId"))
	if err != nil {
		return err
	}
	tasks, err := s.tasks.List(c.Request().Context(), u.ID, boardID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToTasks(tasks))
}

func (s *Server) createTask(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req convert.TaskCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Title) == "" {
		return errs.Validation("title", "title is required")
	}
	boardID, err := convert.ParseID("boardId", req.BoardID)
	if err != nil {
		return err
	}
	t, err := s.tasks.Create(c.Request().Context(), u.ID, service.NewTask{
		BoardID:     boardID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Color:       req.Color,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convert.ToTask(t))
}

func (s *Server) getTask(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	t, err := s.tasks.Get(c.Request().Context(), u.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToTask(t))
}

func (s *Server) updateTask(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req convert.TaskPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	patch, err := req.Patch()
	if err != nil {
		return err
	}
	t, err := s.tasks.Update(c.Request().Context(), u.ID, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToTask(t))
}

func (s *Server) deleteTask(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(c.Request().Context(), u.ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- attachments ---

func (s *Server) listAttachments(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	atts, err := s.atts.List(c.Request().Context(), u.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToAttachments(atts))
}

// addAttachment dispatches on content type: multipart is an upload, anything else a link.
func (s *Server) addAttachment(c echo.Context) error {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return s.uploadAttachment(c)
	}
	return s.linkAttachment(c)
}

func (s *Server) uploadAttachment(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	up, closeFn, err := formUpload(c, "file")
	if err != nil {
		return err
	}
	defer closeFn()
	a, err := s.atts.Upload(c.Request().Context(), u.ID, id, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convert.ToAttachment(a))
}

func (s *Server) linkAttachment(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req convert.LinkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := s.atts.Link(c.Request().Context(), u.ID, id, req.URL, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convert.ToAttachment(a))
}

func (s *Server) getAttachment(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := s.atts.Get(c.Request().Context(), u.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToAttachment(a))
}

func (s *Server) deleteAttachment(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.atts.Delete(c.Request().Context(), u.ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// formUpload opens a multipart file field. The returned func closes it.
func formUpload(c echo.Context, field string) (service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooBig *http.MaxBytesError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &tooBig):
			return service.Upload{}, nil, echo.ErrStatusRequestEntityTooLarge
		case errors.As(err, &he):
			return service.Upload{}, nil, he
		}
		return service.Upload{}, nil, errs.Validation(field, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, nil, err
	}
	return service.Upload{Name: fh.Filename, MimeType: mimeOf(fh), Body: f}, func() { _ = f.Close() }, nil
}

func mimeOf(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get(echo.HeaderContentType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// --- tags ---

func (s *Server) listTags(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	tags, err := s.tags.List(c.Request().Context(), u.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToTags(tags))
}

func (s *Server) createTag(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req convert.TagRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	g, err := s.tags.Create(c.Request().Context(), u.ID, id, req.Label, req.Color)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convert.ToTag(g))
}

func (s *Server) updateTag(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req convert.TagPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	g, err := s.tags.Update(c.Request().Context(), u.ID, id, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToTag(g))
}

func (s *Server) deleteTag(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.tags.Delete(c.Request().Context(), u.ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
