// Package httpserver exposes the task-board REST API over echo.
package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/and161185/taskboard/internal/service"
)

// Options configures the HTTP surface.
type Options struct {
	UploadDir      string   // served under /uploads; empty disables static serving
	MaxUploadBytes int64    // request body cap
	CORSOrigins    []string // defaults to "*"
}

// Server wires services into echo handlers.
type Server struct {
	authz  Authorizer
	auth   service.AuthService
	boards service.BoardService
	tasks  service.TaskService
	atts   service.AttachmentService
	tags   service.TagService
	log    *zap.Logger
	opts   Options
}

// New constructs a Server with injected services.
func New(authz Authorizer, auth service.AuthService, boards service.BoardService, tasks service.TaskService,
	atts service.AttachmentService, tags service.TagService, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{authz: authz, auth: auth, boards: boards, tasks: tasks, atts: atts, tags: tags, log: log, opts: opts}
}

// Echo builds the router with middleware and every route registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(s.log)

	e.Use(RequestLogger(s.log), Recover(s.log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if s.opts.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", s.opts.MaxUploadBytes)))
	}

	s.Register(e)
	return e
}

// Register adds the routes to e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.healthz)
	if s.opts.UploadDir != "" {
		e.Static("/uploads", s.opts.UploadDir)
	}

	e.POST("/auth/register", s.register)
	e.POST("/auth/login", s.login)

	// per-route so unknown paths stay 404 instead of 401
	authed := Bearer(s.authz)
	e.GET("/auth/me", s.me, authed)
	e.PUT("/profile", s.updateProfile, authed)
	e.POST("/profile/avatar", s.uploadAvatar, authed)

	e.GET("/boards", s.listBoards, authed)
	e.POST("/boards", s.createBoard, authed)
	e.GET("/boards/:boardId", s.getBoard, authed)
	e.PUT("/boards/:boardId", s.updateBoard, authed)
	e.DELETE("/boards/:boardId", s.deleteBoard, authed)

	e.GET("/tasks", s.listTasks, authed)
	e.POST("/tasks", s.createTask, authed)
	e.GET("/tasks/:id", s.getTask, authed)
	e.PUT("/tasks/:id", s.updateTask, authed)
	e.DELETE("/tasks/:id", s.deleteTask, authed)

	e.GET("/tasks/:id/attachments", s.listAttachments, authed)
	e.POST("/tasks/:id/attachments", s.addAttachment, authed)
	e.POST("/tasks/:id/attachments/upload", s.uploadAttachment, authed)
	e.POST("/tasks/:id/attachments/link", s.linkAttachment, authed)
	e.GET("/attachments/:id", s.getAttachment, authed)
	e.DELETE("/attachments/:id", s.deleteAttachment, authed)

	e.GET("/tasks/:id/tags", s.listTags, authed)
	e.POST("/tasks/:id/tags", s.createTag, authed)
	e.PUT("/tags/:id", s.updateTag, authed)
	e.DELETE("/tags/:id", s.deleteTag, authed)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
