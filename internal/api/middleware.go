// internal/api/middleware.go
package api

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// RequestID reuses the caller's X-Request-ID or assigns a fresh UUID, and
// exposes it to handlers and the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs every request except health and metrics scrapes.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		}

		if len(c.Errors) > 0 && c.Writer.Status() >= http.StatusInternalServerError {
			for _, ginErr := range c.Errors.ByType(gin.ErrorTypeAny) {
				log.Error("request error", append(fields, zap.Error(ginErr.Err))...)
			}
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("server error", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("client error", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// ChatLimiter caps guide submissions per session and client address. The
// REST message route and the guide socket draw from the same store.
type ChatLimiter struct {
	store ratelimit.Store
}

// NewChatLimiter allows perMinute submissions per session and address.
func NewChatLimiter(perMinute int) *ChatLimiter {
	return &ChatLimiter{
		store: ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Minute,
			Limit: uint(perMinute),
		}),
	}
}

func chatKey(sessionID, clientIP string) string {
	return sessionID + "|" + clientIP
}

// Allow consumes one submission for sessionID from c's address.
func (l *ChatLimiter) Allow(c *gin.Context, sessionID string) (ratelimit.Info, bool) {
	info := l.store.Limit(chatKey(sessionID, c.ClientIP()), c)
	return info, !info.RateLimited
}

// Middleware limits the route whose :id parameter names the session.
func (l *ChatLimiter) Middleware() gin.HandlerFunc {
	rh := NewResponseHelper()
	return ratelimit.RateLimiter(l.store, &ratelimit.Options{
		KeyFunc: func(c *gin.Context) string {
			return chatKey(c.Param("id"), c.ClientIP())
		},
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			rh.Error(c, http.StatusTooManyRequests, ErrorRateLimited, "Rate limit exceeded",
				"retry in "+time.Until(info.ResetTime).Round(time.Second).String())
		},
	})
}
