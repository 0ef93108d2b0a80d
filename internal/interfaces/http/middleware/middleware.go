// Package middleware provides the gin middleware chain: request correlation,
// access logging, panic recovery, and per-route observability.
package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/underwritex/riskd/internal/application/dto"
	"github.com/underwritex/riskd/pkg/constants"
	"github.com/underwritex/riskd/pkg/errors"
	"github.com/underwritex/riskd/pkg/logger"
)

// RequestID propagates the inbound X-Request-ID or generates one, storing it
// in both the gin context and the request context for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(string(constants.ContextKeyRequestID), requestID)
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(constants.HeaderRequestID, requestID)
		c.Next()
	}
}

// AccessLog emits one structured entry per request after the handler runs.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	accessLog := log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		accessLog.Info(c.Request.Context(), "Request completed",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery converts a handler panic into a structured internal_error response
// instead of a dropped connection.
func Recovery(log logger.Logger) gin.HandlerFunc {
	recoveryLog := log.WithComponent("http")
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		recoveryLog.Error(c.Request.Context(), "Handler panic recovered",
			fmt.Errorf("%v", recovered),
			logger.String("path", c.Request.URL.Path),
		)
		dto.SendError(c, errors.ErrInternal)
		c.Abort()
	})
}

// Tracing starts a span per request when tracing is enabled. Route templates
// keep span names low-cardinality.
func Tracing(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	return func(c *gin.Context) {
		spanName := c.Request.Method + " " + c.FullPath()
		ctx, span := tracer.Start(c.Request.Context(), spanName)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.String("http.status", strconv.Itoa(c.Writer.Status())),
		)
	}
}
