package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs a recording tracer provider for one test
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Failf(t, "span not found", "no span named %q", name)
	return nil
}

func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (string, bool) {
	for _, a := range span.Attributes() {
		if a.Key == key {
			return a.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false, ServiceName: "test"}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_LedgerAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	actor := uuid.New()

	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(DefaultTracingConfig()), Actor(), IdempotencyKey(), TracingAttributeInjector())
	router.POST("/test", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	req.Header.Set(HeaderActorID, actor.String())
	req.Header.Set(HeaderIdempotencyKey, "pay-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	span := findSpan(t, sr, "POST /test")
	v, ok := attrValue(span, AttrRequestID)
	assert.True(t, ok)
	assert.Equal(t, "req-42", v)
	v, ok = attrValue(span, AttrActorID)
	assert.True(t, ok)
	assert.Equal(t, actor.String(), v)
	v, ok = attrValue(span, AttrIdempotencyKey)
	assert.True(t, ok)
	assert.Equal(t, "pay-1", v)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		status  int
		message string
	}{
		{http.StatusBadRequest, "Client Error"},
		{http.StatusNotFound, "Not Found"},
		{http.StatusConflict, "Conflict"},
		{http.StatusUnprocessableEntity, "Unprocessable Entity"},
		{http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			sr := setupTestTracer(t)
			router := gin.New()
			router.Use(TracingWithConfig(DefaultTracingConfig()), SpanErrorMarker())
			router.GET("/test", func(c *gin.Context) {
				c.Set(ContextKeyErrorCode, "INSUFFICIENT_STOCK")
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			span := findSpan(t, sr, "GET /test")
			assert.Equal(t, codes.Error, span.Status().Code)
			// otelgin sets its own description for 5xx
			if tt.status < http.StatusInternalServerError {
				assert.Equal(t, tt.message, span.Status().Description)
			}
			v, ok := attrValue(span, "ledger.error_code")
			assert.True(t, ok)
			assert.Equal(t, "INSUFFICIENT_STOCK", v)
		})
	}

	t.Run("success leaves status unset", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := gin.New()
		router.Use(TracingWithConfig(DefaultTracingConfig()), SpanErrorMarker())
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		span := findSpan(t, sr, "GET /test")
		assert.NotEqual(t, codes.Error, span.Status().Code)
	})
}

func TestGetRequestID_LongHeaderTruncated(t *testing.T) {
	long := make([]byte, MaxRequestIDLength+50)
	for i := range long {
		long[i] = 'r'
	}
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set(HeaderRequestID, string(long))

	assert.Len(t, getRequestID(c), MaxRequestIDLength)

	c.Set(ContextKeyRequestID, "from-context")
	assert.Equal(t, "from-context", getRequestID(c))
}

func TestTracingAttributeInjector_NoSpan(t *testing.T) {
	router := gin.New()
	router.Use(TracingAttributeInjector(), SpanErrorMarker())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
