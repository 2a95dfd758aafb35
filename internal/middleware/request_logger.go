package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sjperalta/society-ledger/internal/services"
	"github.com/sjperalta/society-ledger/pkg/logger"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderActorID   = "X-Actor-ID"
)

// RequestLogger tags every request with an id, stores a request-scoped
// logger and the audit metadata in the request context, and logs the outcome.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Set("requestID", requestID)

		var actorID uint
		if v, err := strconv.ParseUint(c.GetHeader(HeaderActorID), 10, 64); err == nil {
			actorID = uint(v)
		}

		reqLog := logger.Log.With(slog.String("request_id", requestID))
		ctx := logger.WithContext(c.Request.Context(), reqLog)
		ctx = services.WithRequestMeta(ctx, services.RequestMeta{
			ActorID:   actorID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		// Process request
		c.Next()

		// Skip logging for health check to avoid noise
		if path == "/api/v1/health" {
			return
		}

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if raw != "" {
			path = path + "?" + raw
		}

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", statusCode),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", latency),
			slog.String("user_agent", c.Request.UserAgent()),
		}
		if errorMessage != "" {
			attrs = append(attrs, slog.String("error", errorMessage))
		}
		if actorID != 0 {
			attrs = append(attrs, slog.Uint64("actor_id", uint64(actorID)))
		}

		msg := "Incoming request"
		if statusCode >= 500 {
			reqLog.Error(msg, attrs...)
		} else if statusCode >= 400 {
			reqLog.Warn(msg, attrs...)
		} else {
			reqLog.Info(msg, attrs...)
		}
	}
}
