// Package middleware holds the gin middleware that is specific to the
// event-management service. Generic middleware lives in pkg/middleware.
package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prohmpiriya/event-management/pkg/logger"
	"github.com/prohmpiriya/event-management/pkg/response"
	"github.com/prohmpiriya/event-management/pkg/telemetry"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// RequestID makes sure every request has an id and exposes it to loggers
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set(RequestIDHeader, requestID)
		}
		c.Header(RequestIDHeader, requestID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one line per request and records its duration
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Get()
	}
	log = log.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		ctx := c.Request.Context()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		telemetry.Metrics().HTTPRequestDuration.Record(ctx, latency.Seconds(),
			telemetry.MethodAttr(c.Request.Method),
			telemetry.RouteAttr(route),
			telemetry.StatusCodeAttr(status),
		)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.ErrorContext(ctx, "request failed", fields...)
		case status >= http.StatusBadRequest:
			log.WarnContext(ctx, "request error", fields...)
		default:
			log.InfoContext(ctx, "request", fields...)
		}
	}
}

// Recovery turns a panic into a logged 500
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Get()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.ErrorContext(c.Request.Context(), "panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("stack", string(debug.Stack())),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.InternalError(""))
			}
		}()
		c.Next()
	}
}
