package adapter

import (
	"context"
	"sort"
	"strconv"
	"sync"

	m "lasso.dev/pkg/lasso/internal/model"
)

// ReportWriter is a cell writer that assembles complete reports in memory,
// ready for a ReportStore.
type ReportWriter struct {
	mu      sync.Mutex
	reports map[string]*m.Report
}

// NewReportWriter constructs an empty ReportWriter.
func NewReportWriter() *ReportWriter {
	return &ReportWriter{reports: make(map[string]*m.Report)}
}

func reportKey(r m.Report) string {
	return r.CUT + "#" + strconv.Itoa(r.AdapterID)
}

// WriteAdapters registers adapters that may never run a sequence.
func (w *ReportWriter) WriteAdapters(_ context.Context, adapters []m.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, a := range adapters {
		if _, ok := w.reports[reportKey(a)]; ok {
			continue
		}

		r := a
		r.Sequences = nil
		w.reports[reportKey(a)] = &r
	}

	return nil
}

// WriteExecutedSequence appends record, replacing an earlier record of the
// same sequence.
func (w *ReportWriter) WriteExecutedSequence(_ context.Context, adapter m.Report, record m.SequenceRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.reports[reportKey(adapter)]
	if !ok {
		cp := adapter
		cp.Sequences = nil
		r = &cp
		w.reports[reportKey(adapter)] = r
	}

	for i := range r.Sequences {
		if r.Sequences[i].Sequence == record.Sequence {
			r.Sequences[i] = record

			return nil
		}
	}

	r.Sequences = append(r.Sequences, record)

	return nil
}

// WriteObservations replaces the stored report with the complete one.
func (w *ReportWriter) WriteObservations(_ context.Context, report m.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	r := report
	r.Sequences = append([]m.SequenceRecord(nil), report.Sequences...)
	w.reports[reportKey(report)] = &r

	return nil
}

// Reports returns the collected reports ordered by CUT and adapter id.
func (w *ReportWriter) Reports() []m.Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]m.Report, 0, len(w.reports))
	for _, r := range w.reports {
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CUT != out[j].CUT {
			return out[i].CUT < out[j].CUT
		}

		return out[i].AdapterID < out[j].AdapterID
	})

	return out
}
