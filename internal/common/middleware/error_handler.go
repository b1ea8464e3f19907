package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "pixellar-backend/internal/common/errors"
	"pixellar-backend/internal/common/logger"
)

// ErrorResponse is the envelope returned for failed requests.
type ErrorResponse struct {
	Success   bool                `json:"success"`
	Error     *apperrors.AppError `json:"error"`
	Timestamp time.Time           `json:"timestamp"`
	RequestID string              `json:"request_id,omitempty"`
	Path      string              `json:"path,omitempty"`
}

// RequestID assigns an X-Request-ID to every request, reusing the header
// when the caller already set one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorHandler converts errors recorded on the gin context into JSON
// responses with the right status code for their application code.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		sendErrorResponse(c, err)
	}
}

// Recovery turns panics into INTERNAL_ERROR responses.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Str("request_id", getRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		sendErrorResponse(c, apperrors.New(apperrors.ErrCodeInternal, "Internal server error"))
	})
}

func sendErrorResponse(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.ErrCodeInternal, "Internal server error")
	}

	status := StatusForCode(appErr.Code)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("request_id", getRequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	} else {
		logger.Debug().Err(err).
			Str("request_id", getRequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("Request rejected")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now().UTC(),
		RequestID: getRequestID(c),
		Path:      c.Request.URL.Path,
	})
}

// StatusForCode maps application error codes to HTTP status codes.
func StatusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotConnected:
		return http.StatusUnauthorized
	case apperrors.ErrCodeInsufficientBalance:
		return http.StatusPaymentRequired
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeAuthentication, apperrors.ErrCodeRemoteLookup:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func getRequestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
