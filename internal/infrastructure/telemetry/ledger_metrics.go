package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Ledger metric attribute keys
var (
	AttrDocumentType = attribute.Key("document_type")
	AttrOutcome      = attribute.Key("outcome")
	AttrErrorCode    = attribute.Key("error_code")
)

// PostingDurationBuckets are bucket boundaries for posting duration (seconds)
var PostingDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// LedgerMetrics counts postings, payments and overdue sweeps. A nil
// *LedgerMetrics records nothing, so services can run without telemetry.
type LedgerMetrics struct {
	postingsTotal   *Counter
	postingDuration *Histogram
	paymentsTotal   *Counter
	overdueMarked   *Counter
}

// NewLedgerMetrics registers the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	var (
		lm  LedgerMetrics
		err error
	)
	if lm.postingsTotal, err = NewCounter(meter, "ledger_postings_total",
		"Document postings by type and outcome", "{postings}"); err != nil {
		return nil, err
	}
	if lm.postingDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "ledger_posting_duration_seconds",
		Description: "Duration of a document posting unit of work",
		Unit:        "s",
		Boundaries:  PostingDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if lm.paymentsTotal, err = NewCounter(meter, "ledger_invoice_payments_total",
		"Invoice payments by document type and outcome", "{payments}"); err != nil {
		return nil, err
	}
	if lm.overdueMarked, err = NewCounter(meter, "ledger_installments_overdue_total",
		"Installments moved to overdue by the sweep", "{installments}"); err != nil {
		return nil, err
	}
	return &lm, nil
}

// RecordPosting records one posting attempt
func (m *LedgerMetrics) RecordPosting(ctx context.Context, documentType string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := outcomeAttrs(documentType, err)
	m.postingsTotal.Inc(ctx, attrs...)
	m.postingDuration.RecordDuration(ctx, d, attrs...)
}

// RecordPayment records one invoice payment attempt
func (m *LedgerMetrics) RecordPayment(ctx context.Context, documentType string, err error) {
	if m == nil {
		return
	}
	m.paymentsTotal.Inc(ctx, outcomeAttrs(documentType, err)...)
}

// RecordOverdueSweep adds the number of installments a sweep marked overdue
func (m *LedgerMetrics) RecordOverdueSweep(ctx context.Context, marked int64) {
	if m == nil || marked <= 0 {
		return
	}
	m.overdueMarked.Add(ctx, marked)
}

func outcomeAttrs(documentType string, err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrDocumentType.String(documentType)}
	if err == nil {
		return append(attrs, AttrOutcome.String("success"))
	}
	return append(attrs, AttrOutcome.String("failure"), AttrErrorCode.String(ErrorCode(err)))
}

// ErrorCode returns the domain error code carried by err, or "INTERNAL"
func ErrorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
