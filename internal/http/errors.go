package http

import (
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/util"
)

var statusByKind = map[apperr.Kind]int{
	apperr.BadRequest:          http.StatusBadRequest,
	apperr.Unauthenticated:     http.StatusUnauthorized,
	apperr.Forbidden:           http.StatusForbidden,
	apperr.NotFound:            http.StatusNotFound,
	apperr.Conflict:            http.StatusConflict,
	apperr.QuotaExceeded:       http.StatusTooManyRequests,
	apperr.RateLimited:         http.StatusTooManyRequests,
	apperr.UpstreamUnavailable: http.StatusServiceUnavailable,
	apperr.Internal:            http.StatusInternalServerError,
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

// NewHTTPErrorHandler maps apperr.Error (and anything else) to the
// `{error:{code,message,details?},timestamp,requestId}` envelope.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		appErr, ok := apperr.As(err)
		if !ok {
			if he, isHTTP := err.(*echo.HTTPError); isHTTP {
				appErr = &apperr.Error{Kind: apperr.BadRequest, Message: fmt.Sprintf("%v", he.Message)}
				if he.Code == http.StatusInternalServerError {
					appErr.Kind = apperr.Internal
				}
			} else {
				log.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
				appErr = apperr.New(apperr.Internal, "internal error")
			}
		}

		status, ok := statusByKind[appErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}

		env := errorEnvelope{Timestamp: time.Now().UTC(), RequestID: util.New()}
		env.Error.Code = string(appErr.Kind)
		env.Error.Message = appErr.Message
		env.Error.Details = appErr.Details

		if werr := c.JSON(status, env); werr != nil {
			log.Error("write error response failed", zap.Error(werr))
		}
	}
}
