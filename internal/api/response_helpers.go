// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Corphon/ArtVistas/internal/errors"
	"github.com/Corphon/ArtVistas/internal/guide"
	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError is the error body of a failed response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper writes APIResponse envelopes.
type ResponseHelper struct{}

func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusOK, data, message...)
}

func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusCreated, data, message...)
}

// Accepted answers a request whose result will arrive asynchronously.
func (rh *ResponseHelper) Accepted(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusAccepted, data, message...)
}

func (rh *ResponseHelper) write(c *gin.Context, status int, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// sanitizeErrorMessage hides messages that look like they carry credentials.
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range []string{"api_key", "apikey", "api key", "secret", "token", "authorization", "bearer"} {
		if strings.Contains(lower, pattern) {
			return "An internal error occurred"
		}
	}
	return message
}

// Error writes a failure envelope.
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: sanitizeErrorMessage(message),
	}
	if len(details) > 0 && details[0] != "" {
		apiError.Details = sanitizeErrorMessage(details[0])
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// HandleError maps an AppError to its HTTP status and error code. Anything
// else is reported as an internal error without details.
func (rh *ResponseHelper) HandleError(c *gin.Context, err error, notFoundCode ...string) {
	_ = c.Error(err)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		rh.InternalError(c, "unexpected server error")
		return
	}

	details := ""
	if appErr.Err != nil {
		details = appErr.Err.Error()
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		rh.Error(c, http.StatusBadRequest, appErr.Code, appErr.Message, details)
	case apperrors.ErrorTypeInputRejected:
		if errors.Is(err, guide.ErrBusy) {
			rh.Error(c, http.StatusConflict, ErrorGuideBusy, appErr.Message)
			return
		}
		code := appErr.Code
		switch {
		case errors.Is(err, guide.ErrEmptyInput):
			code = ErrorEmptyMessage
		case errors.Is(err, guide.ErrSessionClosed):
			code = ErrorSessionClosed
		}
		rh.Error(c, http.StatusBadRequest, code, appErr.Message)
	case apperrors.ErrorTypeConflict:
		rh.Error(c, http.StatusConflict, ErrorConflict, appErr.Message)
	case apperrors.ErrorTypeNotFound:
		code := appErr.Code
		if len(notFoundCode) > 0 {
			code = notFoundCode[0]
		}
		rh.Error(c, http.StatusNotFound, code, appErr.Message)
	case apperrors.ErrorTypeConfiguration:
		rh.Error(c, http.StatusServiceUnavailable, ErrorGuideUnavailable, appErr.Message, details)
	case apperrors.ErrorTypeProvider:
		rh.Error(c, http.StatusBadGateway, ErrorProviderFailed, appErr.Message, details)
	case apperrors.ErrorTypeTimeout:
		rh.Error(c, http.StatusGatewayTimeout, ErrorProviderTimeout, appErr.Message)
	default:
		rh.InternalError(c, "unexpected server error")
	}
}

func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
