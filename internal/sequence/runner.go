package sequence

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/typesys"
)

// DefaultTimeout bounds each reflective call.
const DefaultTimeout = 10 * time.Second

var (
	// ErrTimeout is the error of an abandoned call.
	ErrTimeout = errors.New("call timed out")
	// ErrExpectation is returned when a result differs from the expected value.
	ErrExpectation = errors.New("unexpected result")
	// ErrSkipped marks statements whose inputs failed.
	ErrSkipped = errors.New("input statement failed")
)

// Outcome is the result of one statement.
type Outcome struct {
	Statement int
	Status    model.StatementStatus
	Value     any
	Err       error
	Duration  time.Duration
}

// Result holds the outcomes of one run.
type Result struct {
	Sequence *Sequence
	Outcomes []Outcome
}

// Passed reports whether every statement ran and met its expectation.
func (r *Result) Passed() bool {
	for _, outcome := range r.Outcomes {
		if outcome.Status != model.StatementOK {
			return false
		}
	}

	return true
}

// Observations renders the outcomes for cell writers.
func (r *Result) Observations() []model.Observation {
	observations := make([]model.Observation, len(r.Outcomes))

	for i, outcome := range r.Outcomes {
		obs := model.Observation{
			Statement: outcome.Statement,
			Status:    outcome.Status,
			Duration:  outcome.Duration,
		}

		if r.Sequence != nil && i < len(r.Sequence.Steps) {
			if c := r.Sequence.Steps[i].Candidate; c != nil {
				obs.Member = c.Key()
			}
		}

		if outcome.Status == model.StatementOK {
			obs.Value = Render(outcome.Value)
		}

		if outcome.Err != nil {
			obs.Error = outcome.Err.Error()
		}

		observations[i] = obs
	}

	return observations
}

// Render formats a statement value for observation cells.
func Render(value any) string {
	if value == nil {
		return "null"
	}

	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}

	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		return fmt.Sprintf("&%v", v.Elem().Interface())
	}

	return fmt.Sprintf("%v", value)
}

// Visitor observes a run. Implementations must not block.
type Visitor interface {
	BeforeSequence(seq *Sequence)
	BeforeStatement(seq *Sequence, i int)
	AfterStatement(seq *Sequence, i int, outcome Outcome)
	AfterSequence(seq *Sequence, result *Result)
}

// NopVisitor ignores every event.
type NopVisitor struct{}

// BeforeSequence implements Visitor.
func (NopVisitor) BeforeSequence(*Sequence) {}

// BeforeStatement implements Visitor.
func (NopVisitor) BeforeStatement(*Sequence, int) {}

// AfterStatement implements Visitor.
func (NopVisitor) AfterStatement(*Sequence, int, Outcome) {}

// AfterSequence implements Visitor.
func (NopVisitor) AfterSequence(*Sequence, *Result) {}

// Runner executes sequences statement by statement.
type Runner struct {
	timeout time.Duration
}

// NewRunner creates a runner with a per-call timeout; zero or negative
// means DefaultTimeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Runner{timeout: timeout}
}

// Run executes seq. Failures are reported in the result, never returned.
// A call that exceeds the timeout is abandoned: its goroutine keeps running
// until the candidate returns.
func (r *Runner) Run(ctx context.Context, seq *Sequence, visitor Visitor) *Result {
	if visitor == nil {
		visitor = NopVisitor{}
	}

	result := &Result{Sequence: seq, Outcomes: make([]Outcome, len(seq.Steps))}
	values := make([]any, len(seq.Steps))

	visitor.BeforeSequence(seq)

	for i, step := range seq.Steps {
		visitor.BeforeStatement(seq, i)

		start := time.Now()
		outcome := r.execute(ctx, step, values, result.Outcomes[:i])
		outcome.Statement = i
		outcome.Duration = time.Since(start)

		values[i] = outcome.Value
		result.Outcomes[i] = outcome

		visitor.AfterStatement(seq, i, outcome)
	}

	visitor.AfterSequence(seq, result)

	return result
}

func (r *Runner) execute(ctx context.Context, step Step, values []any, previous []Outcome) Outcome {
	for _, in := range step.Statement.Inputs() {
		if previous[in].Status != model.StatementOK {
			return Outcome{Status: model.StatementSkipped, Err: fmt.Errorf("%w: $%d", ErrSkipped, in)}
		}
	}

	switch st := step.Statement.(type) {
	case *Value:
		value, err := materialize(st, step.Class)
		if err != nil {
			return Outcome{Status: model.StatementFailed, Err: err}
		}

		return Outcome{Status: model.StatementOK, Value: value}
	case *ArraySet:
		if err := setElement(values[st.Array], st.Index, values[st.Value]); err != nil {
			return Outcome{Status: model.StatementFailed, Err: err}
		}

		return Outcome{Status: model.StatementOK, Value: values[st.Array]}
	case *ConstructorCall:
		return r.call(ctx, step, nil, gather(values, st.Args), nil)
	case *MethodCall:
		var recv any
		if st.Receiver >= 0 {
			recv = values[st.Receiver]
		}

		return r.call(ctx, step, recv, gather(values, st.Args), st.Expected)
	}

	return Outcome{Status: model.StatementFailed, Err: fmt.Errorf("unsupported statement %T", step.Statement)}
}

func gather(values []any, positions []int) []any {
	args := make([]any, len(positions))
	for i, pos := range positions {
		args[i] = values[pos]
	}

	return args
}

type callResult struct {
	value any
	err   error
}

// call runs the candidate on its own goroutine under the runner timeout.
func (r *Runner) call(ctx context.Context, step Step, recv any, args []any, expected *Value) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan callResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- callResult{err: typesys.Recovered(rec)}
			}
		}()

		value, err := step.Candidate.Invoke(callCtx, recv, args)
		done <- callResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			status := model.StatementFailed
			if errors.Is(res.err, typesys.ErrPanic) {
				status = model.StatementPanicked
			}

			return Outcome{Status: status, Err: res.err}
		}

		if expected != nil {
			if err := compare(expected, res.value); err != nil {
				return Outcome{Status: model.StatementFailed, Value: res.value, Err: err}
			}
		}

		return Outcome{Status: model.StatementOK, Value: res.value}
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return Outcome{Status: model.StatementTimedOut, Err: fmt.Errorf("%w after %s: %s", ErrTimeout, r.timeout, step.Candidate.Key())}
		}

		return Outcome{Status: model.StatementFailed, Err: callCtx.Err()}
	}
}

// materialize turns a literal into a value of cls.
func materialize(v *Value, cls *typesys.Class) (any, error) {
	if v.Literal == nil && (v.Length > 0 || (cls != nil && cls.Kind == typesys.KindArray)) {
		if cls == nil || cls.GoType == nil {
			return make([]any, v.Length), nil
		}

		return reflect.MakeSlice(cls.GoType, v.Length, v.Length).Interface(), nil
	}

	if cls == nil {
		return v.Literal, nil
	}

	return typesys.Coerce(v.Literal, cls)
}

func setElement(array any, index int, value any) error {
	av := reflect.ValueOf(array)
	if av.Kind() != reflect.Slice {
		return fmt.Errorf("array set on %T", array)
	}

	if index < 0 || index >= av.Len() {
		return fmt.Errorf("array index %d out of range [0,%d)", index, av.Len())
	}

	ev, err := typesys.CoerceValue(reflect.ValueOf(value), av.Type().Elem())
	if err != nil {
		return fmt.Errorf("array element: %w", err)
	}

	av.Index(index).Set(ev)

	return nil
}

// compare checks got against the expected literal, converting the literal
// to the type of got first.
func compare(expected *Value, got any) error {
	want := expected.Literal

	if want != nil && got != nil {
		converted, err := typesys.CoerceValue(reflect.ValueOf(want), reflect.TypeOf(got))
		if err == nil {
			want = converted.Interface()
		}
	}

	if reflect.DeepEqual(want, got) || (want != nil && got != nil && Render(want) == Render(got)) {
		return nil
	}

	return fmt.Errorf("%w: want %s, got %s", ErrExpectation, Render(expected.Literal), Render(got))
}
