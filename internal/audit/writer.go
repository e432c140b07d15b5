package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/audit/metrics"
)

// Writer persists audit records with best-effort semantics. Audit logging
// observes the primary document mutation; it must never abort or fail it, so
// Write swallows persistence errors after logging and counting them. There
// are no retries: a failed write is dropped.
type Writer struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// WriterOption configures the Writer.
type WriterOption func(*Writer)

// WithLogger sets a logger for operator-visible failure reporting.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

// NewWriter creates a best-effort audit writer over the given store.
func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{store: store}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write persists exactly one record for the invocation. The record ID is
// assigned here; the timestamp is assigned by the store at write time.
// Failures are operator-visible only: logged and counted, never returned.
func (w *Writer) Write(ctx context.Context, record Record) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	start := time.Now()
	if err := w.store.Append(ctx, record); err != nil {
		if w.metrics != nil {
			w.metrics.IncPersistFailures()
		}
		if w.logger != nil {
			w.logger.ErrorContext(ctx, "audit record dropped",
				"collection", record.Collection,
				"document_id", record.DocumentID,
				"operation", record.Operation,
				"error", err,
			)
		}
		return
	}

	if w.metrics != nil {
		w.metrics.ObservePersistDuration(time.Since(start).Seconds())
		w.metrics.IncWritten(string(record.Collection))
	}
}
