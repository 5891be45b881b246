package arena

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"lasso.dev/pkg/lasso/internal/adaptation"
	"lasso.dev/pkg/lasso/internal/failure"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/sequence"
	"lasso.dev/pkg/lasso/internal/typesys"
)

// ErrNoInterface is returned by Execute without a desired interface.
var ErrNoInterface = errors.New("no interface specification")

// Executor runs CUT tasks: adapt, then for each adapter and sequence
// instantiate, execute, observe and write.
type Executor struct {
	config   Config
	runner   *sequence.Runner
	writer   CellWriter
	listener ExecutionListener
}

// NewExecutor validates config. A nil writer or listener discards events.
func NewExecutor(config Config, writer CellWriter, listener ExecutionListener) (*Executor, error) {
	config.EnsureDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if writer == nil {
		writer = NopWriter{}
	}

	if listener == nil {
		listener = NopListener{}
	}

	return &Executor{
		config:   config,
		runner:   sequence.NewRunner(config.StatementTimeout),
		writer:   writer,
		listener: listener,
	}, nil
}

// Config returns the effective configuration.
func (e *Executor) Config() Config {
	return e.config
}

// Execute runs one task per CUT on at most Config.Threads goroutines.
// Task failures are logged and kept in Results.Failures; they never stop
// other tasks. The returned error is only set for invalid arguments or a
// cancelled context.
func (e *Executor) Execute(ctx context.Context, cuts []model.ClassUnderTest, ispec *model.InterfaceSpecification, specs []*sequence.Specification, source ImplementationSource) (*Results, error) {
	if ispec == nil || ispec.IsEmpty() {
		return nil, ErrNoInterface
	}

	results := NewResults()

	slog.Info("executing arena", "run", e.config.RunID, "cuts", len(cuts), "sequences", len(specs), "source", source.Name(), "threads", e.config.Threads)

	var group errgroup.Group

	group.SetLimit(e.config.Threads)

	for _, cut := range cuts {
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			reports, err := e.task(ctx, cut, ispec, specs, source)
			if err != nil {
				slog.Error("task failed", "cut", cut.Key(), "kind", failure.KindOf(err), "error", err)
			}

			results.merge(cut, reports, err)

			return nil
		})
	}

	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("execution interrupted: %w", err)
	}

	return results, nil
}

// task handles one CUT. Panics anywhere in it are contained.
func (e *Executor) task(ctx context.Context, cut model.ClassUnderTest, ispec *model.InterfaceSpecification, specs []*sequence.Specification, source ImplementationSource) (reports []model.Report, err error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "arena.Task", trace.WithAttributes(
		attribute.String("cut", cut.Key()),
		attribute.String("source", source.Name()),
	))

	defer func() {
		if rec := recover(); rec != nil {
			err = failure.New(failure.KindExecution, cut.Key(), "task", typesys.Recovered(rec))
		}

		outcome := "ok"
		if err != nil {
			outcome = "failed"

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		span.End()
		tasksTotal.WithLabelValues(outcome).Inc()
		taskDuration.WithLabelValues(source.Name()).Observe(time.Since(start).Seconds())

		guard("after-task", func() { e.listener.AfterTask(cut, reports, err) })
	}()

	guard("before-task", func() { e.listener.BeforeTask(cut) })

	impls, err := source.Implementations(ctx, ispec, cut, e.config.AdaptationLimit)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("adapters", len(impls)))
	adaptersTotal.WithLabelValues(source.Name()).Add(float64(len(impls)))

	reports = make([]model.Report, len(impls))
	for i, impl := range impls {
		reports[i] = e.report(impl)
	}

	if len(reports) > 0 {
		write(ctx, "adapters", cut.Key(), func(ctx context.Context) error {
			return e.writer.WriteAdapters(ctx, reports)
		})
	} else if clearer, ok := e.writer.(AdapterClearer); ok {
		write(ctx, "adapters", cut.Key(), func(ctx context.Context) error {
			return clearer.ClearAdapters(ctx, cut.Key())
		})
	}

	for i, impl := range impls {
		reports[i] = e.implementation(ctx, ispec, impl, reports[i], specs)
	}

	return reports, nil
}

func (e *Executor) report(impl adaptation.AdaptedImplementation) model.Report {
	return model.Report{
		RunID:       e.config.RunID,
		CUT:         impl.CUT().Key(),
		ClassName:   impl.CUT().ClassName,
		AdapterID:   impl.AdapterID(),
		Fingerprint: impl.Fingerprint(),
		Members:     impl.Describe(),
	}
}

// implementation runs every sequence against one adapter, in order.
func (e *Executor) implementation(ctx context.Context, ispec *model.InterfaceSpecification, impl adaptation.AdaptedImplementation, report model.Report, specs []*sequence.Specification) model.Report {
	guard("before-implementation", func() { e.listener.BeforeImplementation(impl) })

	for _, spec := range specs {
		record, ok := e.sequence(ctx, ispec, impl, spec)
		if !ok {
			sequencesTotal.WithLabelValues("skipped").Inc()

			continue
		}

		report.Sequences = append(report.Sequences, record)

		adapter := report
		write(ctx, "sequence", report.CUT, func(ctx context.Context) error {
			return e.writer.WriteExecutedSequence(ctx, adapter, record)
		})
	}

	guard("after-implementation", func() { e.listener.AfterImplementation(impl, report) })

	write(ctx, "observations", report.CUT, func(ctx context.Context) error {
		return e.writer.WriteObservations(ctx, report)
	})

	return report
}

// sequence instantiates and runs one specification. It returns false for
// specifications that do not call the desired interface at all.
func (e *Executor) sequence(ctx context.Context, ispec *model.InterfaceSpecification, impl adaptation.AdaptedImplementation, spec *sequence.Specification) (model.SequenceRecord, bool) {
	if spec.Interface(ispec).IsEmpty() {
		return model.SequenceRecord{}, false
	}

	ctx, span := tracer.Start(ctx, "arena.Sequence", trace.WithAttributes(
		attribute.String("sequence", spec.Name),
		attribute.Int("adapter", impl.AdapterID()),
	))
	defer span.End()

	record := model.SequenceRecord{Sequence: spec.Name}

	seq, err := spec.Instantiate(ctx, ispec, impl)
	if err != nil {
		slog.Warn("sequence not instantiated", "cut", impl.CUT().Key(), "adapter", impl.AdapterID(), "sequence", spec.Name, "error", err)
		span.RecordError(err)
		sequencesTotal.WithLabelValues("not_instantiated").Inc()

		record.Error = err.Error()

		return record, true
	}

	result := e.runner.Run(ctx, seq, statementVisitor{impl: impl, listener: e.listener})

	record.Instantiated = true
	record.Passed = result.Passed()
	record.Observations = result.Observations()

	if record.Passed {
		sequencesTotal.WithLabelValues("passed").Inc()
	} else {
		sequencesTotal.WithLabelValues("failed").Inc()
	}

	return record, true
}
