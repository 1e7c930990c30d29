package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/order-platform/order-management/pkg/errors"
	"github.com/order-platform/order-management/pkg/logging"
)

// APIErrorResponse is the JSON body returned for failed requests.
type APIErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path,omitempty"`
}

// ErrorHandler converts errors attached to the gin context into a uniform
// JSON error response. Handlers report failures with c.Error(err) and return;
// this middleware decides the status code and body.
func ErrorHandler(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		appErr := errors.MapDomainError(err)

		logError(c, logger, appErr)

		if c.Writer.Written() {
			return
		}

		c.JSON(appErr.HTTPStatus, APIErrorResponse{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Details:   appErr.Details,
			RequestID: GetRequestID(c),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Path:      c.Request.URL.Path,
		})
	}
}

// ErrorResponder writes error responses directly from handlers that bypass
// the error middleware.
type ErrorResponder struct {
	logger *logging.Logger
}

// NewErrorResponder creates an ErrorResponder
func NewErrorResponder(logger *logging.Logger) *ErrorResponder {
	return &ErrorResponder{logger: logger}
}

// RespondWithError maps err to an AppError and writes it.
func (r *ErrorResponder) RespondWithError(c *gin.Context, err error) {
	r.RespondWithAppError(c, errors.MapDomainError(err))
}

// RespondWithAppError writes the given AppError as a JSON response.
func (r *ErrorResponder) RespondWithAppError(c *gin.Context, appErr *errors.AppError) {
	logError(c, r.logger, appErr)

	c.JSON(appErr.HTTPStatus, APIErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	})
}

// RespondNotFound writes a 404 response for the named resource.
func (r *ErrorResponder) RespondNotFound(c *gin.Context, resource string) {
	r.RespondWithAppError(c, errors.ErrNotFound(resource))
}

// RespondBadRequest writes a 400 response.
func (r *ErrorResponder) RespondBadRequest(c *gin.Context, message string) {
	r.RespondWithAppError(c, errors.ErrBadRequest(message))
}

// RespondValidationError writes a 400 response with field details.
func (r *ErrorResponder) RespondValidationError(c *gin.Context, message string, fields map[string]string) {
	r.RespondWithAppError(c, errors.ErrValidationWithFields(message, fields))
}

// RespondConflict writes a 409 response.
func (r *ErrorResponder) RespondConflict(c *gin.Context, message string) {
	r.RespondWithAppError(c, errors.ErrConflict(message))
}

// RespondInternalError writes a 500 response, hiding the underlying error.
func (r *ErrorResponder) RespondInternalError(c *gin.Context, err error) {
	r.RespondWithAppError(c, errors.ErrInternal("").Wrap(err))
}

// RespondServiceUnavailable writes a 503 response for a failing dependency.
func (r *ErrorResponder) RespondServiceUnavailable(c *gin.Context, service string) {
	r.RespondWithAppError(c, errors.ErrServiceUnavailable(service))
}

func logError(c *gin.Context, logger *logging.Logger, appErr *errors.AppError) {
	if logger == nil {
		return
	}

	log := logger.WithContext(c.Request.Context()).With(
		"errorCode", appErr.Code,
		"httpStatus", appErr.HTTPStatus,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)

	if requestID := GetRequestID(c); requestID != "" {
		log = log.With("requestId", requestID)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error(appErr.Message, "error", appErr.Err)
	} else {
		log.Warn(appErr.Message)
	}
}

// AbortWithError attaches err to the context and aborts the handler chain.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// AbortWithAppError writes appErr immediately and aborts the handler chain.
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, APIErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	})
}
