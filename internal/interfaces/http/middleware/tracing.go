// Package middleware holds the gin middleware of the ledger HTTP API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength bounds request IDs copied into span attributes
const MaxRequestIDLength = 128

// Span attribute keys set by the ledger middleware
const (
	AttrRequestID      = attribute.Key("request_id")
	AttrActorID        = attribute.Key("actor_id")
	AttrIdempotencyKey = attribute.Key("idempotency_key")
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "retail-ledger",
		Enabled:     true,
	}
}

// TracingWithConfig wraps otelgin so every request gets a server span named
// "METHOD route". Disabled configs yield a pass-through handler.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector copies the request ID, actor and idempotency key
// onto the current span. Place it after Tracing, Actor and IdempotencyKey.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
		c.Next()
	}
}

func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := getRequestID(c); requestID != "" {
		span.SetAttributes(AttrRequestID.String(requestID))
	}
	if actor := ActorID(c); actor != nil {
		span.SetAttributes(AttrActorID.String(actor.String()))
	}
	if key := GetIdempotencyKey(c); key != "" {
		span.SetAttributes(AttrIdempotencyKey.String(key))
	}
}

// getRequestID prefers the value set by RequestID and falls back to the
// truncated header
func getRequestID(c *gin.Context) string {
	if id := c.GetString(ContextKeyRequestID); id != "" {
		return id
	}
	headerID := c.GetHeader(HeaderRequestID)
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// SpanErrorMarker sets an error status on spans of 4xx and 5xx responses.
// Place it after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}
		span.SetStatus(codes.Error, spanErrorMessage(statusCode))
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if code := c.GetString(ContextKeyErrorCode); code != "" {
			span.SetAttributes(attribute.String("ledger.error_code", code))
		}
	}
}

// ContextKeyErrorCode is set by handlers to the domain error code they
// answered with
const ContextKeyErrorCode = "error_code"

func spanErrorMessage(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusNotFound:
		return "Not Found"
	case status == http.StatusConflict:
		return "Conflict"
	case status == http.StatusUnprocessableEntity:
		return "Unprocessable Entity"
	default:
		return "Client Error"
	}
}
