package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, key attribute.Key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(key); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestLedgerMetrics_RecordPosting(t *testing.T) {
	reader, mp := newTestMeter(t)
	lm, err := NewLedgerMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	lm.RecordPosting(ctx, "sales_invoice", 20*time.Millisecond, nil)
	lm.RecordPosting(ctx, "sales_invoice", 5*time.Millisecond, shared.ErrInsufficientStock)
	lm.RecordPayment(ctx, "purchase_invoice", nil)
	lm.RecordOverdueSweep(ctx, 3)
	lm.RecordOverdueSweep(ctx, 0)

	metrics := collect(t, reader)
	postings := metrics["ledger_postings_total"]
	assert.Equal(t, int64(1), sumFor(t, postings, AttrOutcome, "success"))
	assert.Equal(t, int64(1), sumFor(t, postings, AttrErrorCode, shared.ErrInsufficientStock.Code))
	assert.Equal(t, int64(1), sumFor(t, metrics["ledger_invoice_payments_total"], AttrDocumentType, "purchase_invoice"))

	overdue, ok := metrics["ledger_installments_overdue_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, overdue.DataPoints, 1)
	assert.Equal(t, int64(3), overdue.DataPoints[0].Value)

	_, ok = metrics["ledger_posting_duration_seconds"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestLedgerMetrics_NilIsNoop(t *testing.T) {
	var lm *LedgerMetrics
	assert.NotPanics(t, func() {
		lm.RecordPosting(context.Background(), "sales_invoice", time.Second, nil)
		lm.RecordPayment(context.Background(), "sales_invoice", errors.New("boom"))
		lm.RecordOverdueSweep(context.Background(), 1)
	})
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	_, err := NewLedgerMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, shared.ErrNotFound.Code, ErrorCode(fmt.Errorf("product x: %w", shared.ErrNotFound)))
	assert.Equal(t, "INTERNAL", ErrorCode(errors.New("connection reset")))
}
