package arena

import (
	"log/slog"

	"lasso.dev/pkg/lasso/internal/adaptation"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/sequence"
	"lasso.dev/pkg/lasso/internal/typesys"
)

// ExecutionListener observes a run without taking part in it. Calls for
// different CUTs arrive concurrently.
type ExecutionListener interface {
	BeforeTask(cut model.ClassUnderTest)
	AfterTask(cut model.ClassUnderTest, reports []model.Report, err error)
	BeforeImplementation(impl adaptation.AdaptedImplementation)
	AfterImplementation(impl adaptation.AdaptedImplementation, report model.Report)
	BeforeStatement(impl adaptation.AdaptedImplementation, seq *sequence.Sequence, i int)
	AfterStatement(impl adaptation.AdaptedImplementation, seq *sequence.Sequence, i int, outcome sequence.Outcome)
}

// NopListener ignores every event. Embed it to implement a subset.
type NopListener struct{}

// BeforeTask implements ExecutionListener.
func (NopListener) BeforeTask(model.ClassUnderTest) {}

// AfterTask implements ExecutionListener.
func (NopListener) AfterTask(model.ClassUnderTest, []model.Report, error) {}

// BeforeImplementation implements ExecutionListener.
func (NopListener) BeforeImplementation(adaptation.AdaptedImplementation) {}

// AfterImplementation implements ExecutionListener.
func (NopListener) AfterImplementation(adaptation.AdaptedImplementation, model.Report) {}

// BeforeStatement implements ExecutionListener.
func (NopListener) BeforeStatement(adaptation.AdaptedImplementation, *sequence.Sequence, int) {}

// AfterStatement implements ExecutionListener.
func (NopListener) AfterStatement(adaptation.AdaptedImplementation, *sequence.Sequence, int, sequence.Outcome) {
}

// MultiListener forwards events to each listener in order.
type MultiListener []ExecutionListener

// BeforeTask implements ExecutionListener.
func (m MultiListener) BeforeTask(cut model.ClassUnderTest) {
	for _, l := range m {
		l.BeforeTask(cut)
	}
}

// AfterTask implements ExecutionListener.
func (m MultiListener) AfterTask(cut model.ClassUnderTest, reports []model.Report, err error) {
	for _, l := range m {
		l.AfterTask(cut, reports, err)
	}
}

// BeforeImplementation implements ExecutionListener.
func (m MultiListener) BeforeImplementation(impl adaptation.AdaptedImplementation) {
	for _, l := range m {
		l.BeforeImplementation(impl)
	}
}

// AfterImplementation implements ExecutionListener.
func (m MultiListener) AfterImplementation(impl adaptation.AdaptedImplementation, report model.Report) {
	for _, l := range m {
		l.AfterImplementation(impl, report)
	}
}

// BeforeStatement implements ExecutionListener.
func (m MultiListener) BeforeStatement(impl adaptation.AdaptedImplementation, seq *sequence.Sequence, i int) {
	for _, l := range m {
		l.BeforeStatement(impl, seq, i)
	}
}

// AfterStatement implements ExecutionListener.
func (m MultiListener) AfterStatement(impl adaptation.AdaptedImplementation, seq *sequence.Sequence, i int, outcome sequence.Outcome) {
	for _, l := range m {
		l.AfterStatement(impl, seq, i, outcome)
	}
}

// guard runs a listener callback and logs instead of propagating panics.
func guard(event string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("listener failed", "event", event, "error", typesys.Recovered(rec))
		}
	}()

	fn()
}

// statementVisitor bridges runner events to the listener of one adapter.
type statementVisitor struct {
	sequence.NopVisitor

	impl     adaptation.AdaptedImplementation
	listener ExecutionListener
}

func (v statementVisitor) BeforeStatement(seq *sequence.Sequence, i int) {
	guard("before-statement", func() { v.listener.BeforeStatement(v.impl, seq, i) })
}

func (v statementVisitor) AfterStatement(seq *sequence.Sequence, i int, outcome sequence.Outcome) {
	guard("after-statement", func() { v.listener.AfterStatement(v.impl, seq, i, outcome) })
}
