package arena

import (
	"context"
	"fmt"
	"log/slog"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/typesys"
)

// CellWriter persists results as they are produced. Writers are called
// concurrently for different CUTs. Their errors are logged and dropped.
type CellWriter interface {
	// WriteAdapters receives the adapters of one CUT, without sequences.
	WriteAdapters(ctx context.Context, adapters []model.Report) error
	// WriteExecutedSequence receives one record of an adapter.
	WriteExecutedSequence(ctx context.Context, adapter model.Report, record model.SequenceRecord) error
	// WriteObservations receives an adapter with its full sequence set.
	WriteObservations(ctx context.Context, report model.Report) error
}

// AdapterClearer is implemented by writers that keep adapters across runs.
// It is called for a CUT that no longer yields any adapter.
type AdapterClearer interface {
	ClearAdapters(ctx context.Context, cut string) error
}

// NopWriter discards everything.
type NopWriter struct{}

// WriteAdapters implements CellWriter.
func (NopWriter) WriteAdapters(context.Context, []model.Report) error { return nil }

// WriteExecutedSequence implements CellWriter.
func (NopWriter) WriteExecutedSequence(context.Context, model.Report, model.SequenceRecord) error {
	return nil
}

// WriteObservations implements CellWriter.
func (NopWriter) WriteObservations(context.Context, model.Report) error { return nil }

// write calls a writer method, turning panics into errors, and logs the
// failure. It reports whether the write succeeded.
func write(ctx context.Context, op, cut string, fn func(context.Context) error) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("cell writer failed", "op", op, "cut", cut, "error", typesys.Recovered(rec))
			writerFailures.WithLabelValues(op).Inc()

			ok = false
		}
	}()

	if err := fn(ctx); err != nil {
		slog.Error("cell writer failed", "op", op, "cut", cut, "error", fmt.Errorf("%s: %w", op, err))
		writerFailures.WithLabelValues(op).Inc()

		return false
	}

	return true
}
