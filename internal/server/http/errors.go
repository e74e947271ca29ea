package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/and161185/taskboard/internal/convert"
	"github.com/and161185/taskboard/internal/errs"
)

const internalMsg = "internal server error"

// statusOf maps an error to a status code and a client-safe message.
func statusOf(err error) (int, string) {
	var ve *errs.ValidationError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, errs.ErrNoFields):
		return http.StatusBadRequest, errs.ErrNoFields.Error()
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "too many attempts, try again later"
	case errors.As(err, &he):
		if he.Code >= http.StatusInternalServerError {
			return he.Code, internalMsg
		}
		if he.Code == http.StatusNotFound {
			return he.Code, "not found"
		}
		if s, ok := he.Message.(string); ok {
			return he.Code, s
		}
		return he.Code, fmt.Sprint(he.Message)
	default:
		return http.StatusInternalServerError, internalMsg
	}
}

// errorHandler renders every error as {"error": msg}; 5xx details only reach the log.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, msg := statusOf(err)
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.Error(err),
			)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, convert.Error{Error: msg})
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}
