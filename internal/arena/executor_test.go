package arena

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/adaptation"
	"lasso.dev/pkg/lasso/internal/failure"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/realm/native/nativetest"
	"lasso.dev/pkg/lasso/internal/sequence"
)

func TestExecute_BadSequenceDoesNotBlockOthers(t *testing.T) {
	exec := newExecutor(t, 2, nil, nil)
	cut := cutOf(t, "1", nativetest.StackClass)

	results, err := exec.Execute(context.Background(), []model.ClassUnderTest{cut}, stackSpec(),
		[]*sequence.Specification{broken(), valuesOnly(), pushPop()},
		FreshAdaptation(adaptation.NewDefaultStrategy()))
	require.NoError(t, err)
	require.Equal(t, 1, results.Len())

	report, ok := results.Get(AdapterKey(cut.Key(), 0))
	require.True(t, ok)

	require.Len(t, report.Sequences, 2, "sequences outside the interface are skipped")

	bad := report.Sequences[0]
	assert.Equal(t, "broken", bad.Sequence)
	assert.False(t, bad.Instantiated)
	assert.Contains(t, bad.Error, "instantiation")

	good := report.Sequences[1]
	assert.Equal(t, "push-pop", good.Sequence)
	assert.True(t, good.Instantiated)
	assert.True(t, good.Passed)
	assert.Len(t, good.Observations, 7)
	assert.Equal(t, 1, report.Passed())

	assert.Equal(t, exec.Config().RunID, report.RunID)
	assert.Len(t, report.Fingerprint, 64)
	assert.NotEmpty(t, report.Members)
}

func TestExecute_FailingTasksAreIsolated(t *testing.T) {
	exec := newExecutor(t, 3, nil, nil)

	stack := cutOf(t, "1", nativetest.StackClass)
	unresolvable := cutOf(t, "2", nativetest.CounterClass)
	missing := cutOf(t, "3", "fixture.Missing")

	results, err := exec.Execute(context.Background(), []model.ClassUnderTest{unresolvable, stack, missing}, stackSpec(),
		[]*sequence.Specification{pushPop()}, FreshAdaptation(adaptation.NewDefaultStrategy()))
	require.NoError(t, err)

	assert.Equal(t, 1, results.Len())
	assert.Len(t, results.CUTs(), 3)

	failures := results.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, failure.KindFatalSpecification, failure.KindOf(failures[unresolvable.Key()]))
	assert.Equal(t, failure.KindResource, failure.KindOf(failures[missing.Key()]))
}

func TestExecute_PartialResolutionYieldsNoAdapters(t *testing.T) {
	exec := newExecutor(t, 1, nil, nil)
	deque := cutOf(t, "1", nativetest.DequeClass)

	results, err := exec.Execute(context.Background(), []model.ClassUnderTest{deque}, stackSpec(),
		[]*sequence.Specification{pushPop()}, FreshAdaptation(adaptation.NewDefaultStrategy()))
	require.NoError(t, err)

	assert.Zero(t, results.Len())
	assert.Empty(t, results.Failures())
}

type clearingWriter struct {
	NopWriter

	mu      sync.Mutex
	cleared []string
	written []string
}

func (w *clearingWriter) WriteAdapters(_ context.Context, adapters []model.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.written = append(w.written, adapters[0].CUT)

	return nil
}

func (w *clearingWriter) ClearAdapters(_ context.Context, cut string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cleared = append(w.cleared, cut)

	return nil
}

func TestExecute_ClearsAdaptersOfCUTWithoutAdapters(t *testing.T) {
	writer := &clearingWriter{}
	exec := newExecutor(t, 1, writer, nil)

	cuts := []model.ClassUnderTest{cutOf(t, "1", nativetest.DequeClass), cutOf(t, "2", nativetest.StackClass)}

	_, err := exec.Execute(context.Background(), cuts, stackSpec(),
		[]*sequence.Specification{pushPop()}, FreshAdaptation(adaptation.NewDefaultStrategy()))
	require.NoError(t, err)

	assert.Equal(t, []string{cuts[0].Key()}, writer.cleared)
	assert.Equal(t, []string{cuts[1].Key()}, writer.written)
}

func TestExecute_ConcurrentRunMatchesSequential(t *testing.T) {
	var cuts []model.ClassUnderTest
	for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
		cuts = append(cuts, cutOf(t, id, nativetest.StackClass))
	}

	cuts = append(cuts, cutOf(t, "7", nativetest.CounterClass), cutOf(t, "8", nativetest.DequeClass))

	specs := []*sequence.Specification{pushPop(), broken()}
	source := FreshAdaptation(adaptation.NewDefaultStrategy())

	sequential, err := newExecutor(t, 1, nil, nil).Execute(context.Background(), cuts, stackSpec(), specs, source)
	require.NoError(t, err)

	concurrent, err := newExecutor(t, 4, nil, nil).Execute(context.Background(), cuts, stackSpec(), specs, source)
	require.NoError(t, err)

	ignore := cmp.Options{
		cmpopts.IgnoreFields(model.Report{}, "RunID"),
		cmpopts.IgnoreFields(model.Observation{}, "Duration"),
	}

	if diff := cmp.Diff(sequential.Reports(), concurrent.Reports(), ignore); diff != "" {
		t.Errorf("concurrent reports differ (-sequential +concurrent):\n%s", diff)
	}

	assert.Len(t, concurrent.Reports(), 6)
	assert.Equal(t, len(sequential.Failures()), len(concurrent.Failures()))
}

func TestExecute_Originals(t *testing.T) {
	exec := newExecutor(t, 1, nil, nil)
	cut := cutOf(t, "1", nativetest.StackClass)

	results, err := exec.Execute(context.Background(), []model.ClassUnderTest{cut}, stackSpec(),
		[]*sequence.Specification{pushPop()}, Originals())
	require.NoError(t, err)

	reports := results.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, adaptation.OriginalFingerprint, reports[0].Fingerprint)
	assert.Equal(t, 1, reports[0].Passed())
}

func TestExecute_RejectsEmptyInterface(t *testing.T) {
	exec := newExecutor(t, 1, nil, nil)

	_, err := exec.Execute(context.Background(), nil, model.NewInterfaceSpecification("Empty", nil, nil), nil, Originals())
	assert.ErrorIs(t, err, ErrNoInterface)
}

func TestExecute_CancelledContext(t *testing.T) {
	exec := newExecutor(t, 1, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := exec.Execute(ctx, []model.ClassUnderTest{cutOf(t, "1", nativetest.StackClass)}, stackSpec(),
		[]*sequence.Specification{pushPop()}, FreshAdaptation(adaptation.NewDefaultStrategy()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, results.Len())
}

type recordingWriter struct {
	mu        sync.Mutex
	adapters  int
	sequences []string
	reports   []model.Report
}

func (w *recordingWriter) WriteAdapters(context.Context, []model.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.adapters++

	return errors.New("disk full")
}

func (w *recordingWriter) WriteExecutedSequence(_ context.Context, _ model.Report, record model.SequenceRecord) error {
	w.mu.Lock()
	w.sequences = append(w.sequences, record.Sequence)
	w.mu.Unlock()

	if record.Sequence == "broken" {
		panic("writer bug")
	}

	return nil
}

func (w *recordingWriter) WriteObservations(_ context.Context, report model.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.reports = append(w.reports, report)

	return nil
}

type countingListener struct {
	NopListener

	mu     sync.Mutex
	events map[string]int
}

func (l *countingListener) count(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.events == nil {
		l.events = map[string]int{}
	}

	l.events[event]++
}

func (l *countingListener) BeforeTask(model.ClassUnderTest) { l.count("before-task") }

func (l *countingListener) AfterTask(_ model.ClassUnderTest, _ []model.Report, err error) {
	if err != nil {
		l.count("failed-task")
	}

	l.count("after-task")
}

func (l *countingListener) BeforeImplementation(adaptation.AdaptedImplementation) {
	l.count("before-impl")
}

func (l *countingListener) BeforeStatement(adaptation.AdaptedImplementation, *sequence.Sequence, int) {
	l.count("before-statement")
	panic("listener bug")
}

func (l *countingListener) AfterStatement(adaptation.AdaptedImplementation, *sequence.Sequence, int, sequence.Outcome) {
	l.count("after-statement")
}

func TestExecute_WriterAndListenerFailuresAreContained(t *testing.T) {
	writer := &recordingWriter{}
	listener := &countingListener{}
	exec := newExecutor(t, 2, writer, listener)

	cuts := []model.ClassUnderTest{cutOf(t, "1", nativetest.StackClass), cutOf(t, "2", nativetest.CounterClass)}

	results, err := exec.Execute(context.Background(), cuts, stackSpec(),
		[]*sequence.Specification{broken(), pushPop()}, FreshAdaptation(adaptation.NewDefaultStrategy()))
	require.NoError(t, err)

	require.Equal(t, 1, results.Len())
	assert.Equal(t, 1, results.Reports()[0].Passed())

	assert.Equal(t, 1, writer.adapters)
	assert.Equal(t, []string{"broken", "push-pop"}, writer.sequences)
	require.Len(t, writer.reports, 1)
	assert.Len(t, writer.reports[0].Sequences, 2)

	assert.Equal(t, map[string]int{
		"before-task":      2,
		"after-task":       2,
		"failed-task":      1,
		"before-impl":      1,
		"before-statement": 7,
		"after-statement":  7,
	}, listener.events)
}

type staticStore map[string][]string

func (s staticStore) Fingerprints(_ context.Context, cut string) ([]string, error) {
	return s[cut], nil
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	strategy := adaptation.NewDefaultStrategy()
	strategy.Resolver.Filter = adaptation.AnyName{}

	cut := cutOf(t, "1", nativetest.StackClass)
	ispec := stackSpec()

	fresh, err := FreshAdaptation(strategy).Implementations(ctx, ispec, cut, 0)
	require.NoError(t, err)
	require.Greater(t, len(fresh), 1)

	last := fresh[len(fresh)-1]

	replayed, err := Replay(strategy, staticStore{cut.Key(): {last.Fingerprint(), "gone"}}).Implementations(ctx, ispec, cut, 0)
	require.NoError(t, err)
	require.Len(t, replayed, 1)
	assert.Equal(t, last.Fingerprint(), replayed[0].Fingerprint())

	none, err := Replay(strategy, staticStore{}).Implementations(ctx, ispec, cut, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = Replay(strategy, staticStore{}).Implementations(ctx, ispec, model.ClassUnderTest{ID: "x"}, 0)
	assert.NoError(t, err)

	_, err = Replay(strategy, brokenStore{}).Implementations(ctx, ispec, cut, 0)
	assert.Error(t, err)
}

type brokenStore struct{}

func (brokenStore) Fingerprints(context.Context, string) ([]string, error) {
	return nil, errors.New("store unavailable")
}
