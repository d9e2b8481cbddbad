package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"Document-Type": "sales_invoice",
		"operation":     "post",
		"document_id":   "3f1c",
		"empty":         "",
		"route":         strings.Repeat("x", MaxLabelValueLength+10),
	})
	assert.Equal(t, []string{
		"document_type", "sales_invoice",
		"operation", "post",
		"route", strings.Repeat("x", MaxLabelValueLength),
	}, pairs)
}

func TestWithProfilingLabels(t *testing.T) {
	var got string
	WithProfilingLabels(context.Background(), map[string]string{ProfilingLabelJob: "overdue_sweep"}, func(ctx context.Context) {
		got, _ = pprof.Label(ctx, ProfilingLabelJob)
	})
	assert.Equal(t, "overdue_sweep", got)

	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}
