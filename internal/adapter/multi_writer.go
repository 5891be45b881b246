package adapter

import (
	"context"
	"errors"

	m "lasso.dev/pkg/lasso/internal/model"
)

// CellWriter receives results as the arena produces them.
type CellWriter interface {
	WriteAdapters(ctx context.Context, adapters []m.Report) error
	WriteExecutedSequence(ctx context.Context, adapter m.Report, record m.SequenceRecord) error
	WriteObservations(ctx context.Context, report m.Report) error
}

type adapterClearer interface {
	ClearAdapters(ctx context.Context, cut string) error
}

// MultiWriter forwards every call to all writers. A failing writer does not
// stop the others; the errors are joined.
type MultiWriter []CellWriter

// WriteAdapters implements CellWriter.
func (mw MultiWriter) WriteAdapters(ctx context.Context, adapters []m.Report) error {
	var errs []error

	for _, w := range mw {
		if err := w.WriteAdapters(ctx, adapters); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// WriteExecutedSequence implements CellWriter.
func (mw MultiWriter) WriteExecutedSequence(ctx context.Context, adapter m.Report, record m.SequenceRecord) error {
	var errs []error

	for _, w := range mw {
		if err := w.WriteExecutedSequence(ctx, adapter, record); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// WriteObservations implements CellWriter.
func (mw MultiWriter) WriteObservations(ctx context.Context, report m.Report) error {
	var errs []error

	for _, w := range mw {
		if err := w.WriteObservations(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ClearAdapters forwards to the writers that keep adapters across runs.
func (mw MultiWriter) ClearAdapters(ctx context.Context, cut string) error {
	var errs []error

	for _, w := range mw {
		if c, ok := w.(adapterClearer); ok {
			if err := c.ClearAdapters(ctx, cut); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
