package adapter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "lasso.dev/pkg/lasso/internal/model"
)

func newSheet(t *testing.T) *SheetWriter {
	t.Helper()

	w, err := NewSheetWriter(filepath.Join(t.TempDir(), "sheets", "run.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Close() })

	return w
}

func count(t *testing.T, w *SheetWriter, table string) int {
	t.Helper()

	n, err := w.Count(context.Background(), table)
	require.NoError(t, err)

	return n
}

func TestSheetWriter_Cells(t *testing.T) {
	ctx := context.Background()
	w := newSheet(t)

	a0 := sampleReport("p1/Stack", 0, "fp-a")
	a1 := sampleReport("p1/Stack", 1, "fp-b")

	require.NoError(t, w.WriteAdapters(ctx, []m.Report{a0, a1}))
	assert.Equal(t, 2, count(t, w, "adapters"))

	require.NoError(t, w.WriteExecutedSequence(ctx, a0, sampleRecord("push-pop", true)))

	other := sampleRecord("push-pop", false)
	other.Observations[1].Value = "2"
	require.NoError(t, w.WriteExecutedSequence(ctx, a1, other))

	assert.Equal(t, 2, count(t, w, "sequences"))
	assert.Equal(t, 6, count(t, w, "observations"))

	cells, err := w.Cells(ctx, "run-1", "push-pop", 1)
	require.NoError(t, err)
	require.Len(t, cells, 2)

	assert.Equal(t, Cell{CUT: "p1/Stack", AdapterID: 0, Sequence: "push-pop", Statement: 1, Member: "Push", Status: m.StatementOK, Value: "1"}, cells[0])
	assert.Equal(t, "2", cells[1].Value)

	failed, err := w.Cells(ctx, "run-1", "push-pop", 2)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, m.StatementFailed, failed[0].Status)
}

func TestSheetWriter_WriteObservationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	w := newSheet(t)

	report := sampleReport("p1/Stack", 0, "fp-a")
	report.Sequences = []m.SequenceRecord{sampleRecord("s1", true), sampleRecord("s2", false)}

	require.NoError(t, w.WriteExecutedSequence(ctx, report, report.Sequences[0]))
	require.NoError(t, w.WriteObservations(ctx, report))
	require.NoError(t, w.WriteObservations(ctx, report))

	assert.Equal(t, 1, count(t, w, "adapters"))
	assert.Equal(t, 2, count(t, w, "sequences"))
	assert.Equal(t, 6, count(t, w, "observations"))
}

func TestSheetWriter_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "run.db")

	w, err := NewSheetWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteAdapters(ctx, []m.Report{sampleReport("p1/Stack", 0, "fp-a")}))
	require.NoError(t, w.Close())

	reopened, err := NewSheetWriter(path)
	require.NoError(t, err)

	defer reopened.Close()

	assert.Equal(t, path, reopened.Path())
	assert.Equal(t, 1, count(t, reopened, "adapters"))
}

func TestSheetWriter_CountUnknownTable(t *testing.T) {
	_, err := newSheet(t).Count(context.Background(), "adapters; DROP TABLE adapters")
	require.Error(t, err)
}
