package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/Corphon/ArtVistas/internal/errors"
	"github.com/Corphon/ArtVistas/internal/guide"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/s/:id", NewChatLimiter(2).Middleware(), func(c *gin.Context) {
		NewResponseHelper().Success(c, nil)
	})

	post := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/s/"+id, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, post("a").Code)
	assert.Equal(t, http.StatusOK, post("a").Code)

	w := post("a")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrorRateLimited, env.Error.Code)

	assert.Equal(t, http.StatusOK, post("b").Code, "sessions are limited independently")
}

func TestChatLimiterAllowSharesKeyWithMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewChatLimiter(1)

	r := gin.New()
	r.POST("/s/:id", limiter.Middleware(), func(c *gin.Context) {
		NewResponseHelper().Success(c, nil)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/s/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws/guide/sessions/abc", nil)
	_, ok := limiter.Allow(c, "abc")
	assert.False(t, ok, "socket submissions count against the same budget")

	_, ok = limiter.Allow(c, "other")
	assert.True(t, ok)
}

func TestRequestIDPropagation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		NewResponseHelper().Success(c, nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "req-42", env.RequestID)
}

func TestHandleErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperrors.NewValidationError("bad", nil), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty input", apperrors.NewInputRejectedError("empty", guide.ErrEmptyInput), http.StatusBadRequest, ErrorEmptyMessage},
		{"closed session", apperrors.NewInputRejectedError("closed", guide.ErrSessionClosed), http.StatusBadRequest, ErrorSessionClosed},
		{"busy", apperrors.NewInputRejectedError("busy", guide.ErrBusy), http.StatusConflict, ErrorGuideBusy},
		{"other conflict", apperrors.NewConflictError("dup", nil), http.StatusConflict, ErrorConflict},
		{"not found", apperrors.NewNotFoundError("gone", nil), http.StatusNotFound, "NOT_FOUND"},
		{"configuration", apperrors.NewConfigurationError("no provider", nil), http.StatusServiceUnavailable, ErrorGuideUnavailable},
		{"provider", apperrors.NewProviderError("upstream", errors.New("500")), http.StatusBadGateway, ErrorProviderFailed},
		{"timeout", apperrors.NewTimeoutError("slow", context.DeadlineExceeded), http.StatusGatewayTimeout, ErrorProviderTimeout},
		{"wrapped", fmt.Errorf("submit: %w", apperrors.NewInputRejectedError("busy", guide.ErrBusy)), http.StatusConflict, ErrorGuideBusy},
		{"plain", errors.New("boom"), http.StatusInternalServerError, ErrorInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			NewResponseHelper().HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestHandleErrorNotFoundOverride(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	NewResponseHelper().HandleError(c, apperrors.NewNotFoundError("session x not found", nil), ErrorSessionNotFound)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, ErrorSessionNotFound, env.Error.Code)
}

func TestWSErrorCode(t *testing.T) {
	assert.Equal(t, ErrorNotFound, wsErrorCode(apperrors.NewNotFoundError("x", nil)))
	assert.Equal(t, ErrorGuideBusy, wsErrorCode(apperrors.NewInputRejectedError("busy", guide.ErrBusy)))
	assert.Equal(t, ErrorSessionClosed, wsErrorCode(apperrors.NewInputRejectedError("closed", guide.ErrSessionClosed)))
	assert.Equal(t, ErrorProviderTimeout, wsErrorCode(apperrors.NewTimeoutError("slow", nil)))
	assert.Equal(t, ErrorInternalError, wsErrorCode(errors.New("boom")))
}

func TestSanitizeErrorMessage(t *testing.T) {
	assert.Equal(t, "upstream returned 500", sanitizeErrorMessage("upstream returned 500"))
	assert.Equal(t, "An internal error occurred", sanitizeErrorMessage("invalid API_KEY sk-123"))
	assert.Equal(t, "An internal error occurred", sanitizeErrorMessage("Bearer abc rejected"))
}

func TestCORSConfig(t *testing.T) {
	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)
	assert.False(t, all.AllowCredentials)

	listed := corsConfig([]string{"https://vistas.example"})
	assert.False(t, listed.AllowAllOrigins)
	assert.Equal(t, []string{"https://vistas.example"}, listed.AllowOrigins)
	assert.True(t, listed.AllowCredentials)
	assert.Contains(t, listed.ExposeHeaders, requestIDHeader)
}
