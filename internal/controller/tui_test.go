package controller

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/failure"
)

func TestTUI_DisplayCandidates(t *testing.T) {
	var buf bytes.Buffer

	ui := NewTUI(&buf)

	require.NoError(t, ui.Start(context.Background(), WithListMode()))
	require.NoError(t, ui.DisplayCandidates(context.Background(), sampleCUTs(), nil))

	out := buf.String()
	assert.Contains(t, out, "Candidates: 2")
	assert.Contains(t, out, "CLASS")
	assert.Contains(t, out, "Stack")
	assert.Contains(t, out, "example.com:shapes:v0.0.0-src1")

	buf.Reset()

	err := ui.DisplayCandidates(context.Background(), nil, errors.New("boom"))
	require.EqualError(t, err, "boom")
	assert.Contains(t, buf.String(), "candidate error: boom")
}

func TestTUI_DisplayResults(t *testing.T) {
	var buf bytes.Buffer

	ui := NewTUI(&buf)

	require.NoError(t, ui.DisplayResults(context.Background(), sampleReports()))
	ui.DisplayMutationScore(context.Background(), 0.5, 4)

	out := buf.String()
	assert.Contains(t, out, "Adapters: 2")
	assert.Contains(t, out, "push=Push, pop=Pop")
	assert.Contains(t, out, "1/2 killed")
	assert.Contains(t, out, "Mutation score: 50.00%")
	assert.Contains(t, out, "(4 mutants)")
}

func TestTUI_ExecuteDefersTables(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer

	ui := NewTUI(&buf)
	ui.input = nil

	require.NoError(t, ui.Start(ctx, WithExecuteMode(2)))

	cuts := sampleCUTs()
	ui.DisplayStartingTask(ctx, cuts[0])
	ui.DisplayCompletedTask(ctx, cuts[0], nil, nil)
	require.NoError(t, ui.DisplayResults(ctx, sampleReports()))

	ui.mu.Lock()
	pending := len(ui.pending)
	ui.mu.Unlock()
	assert.Equal(t, 1, pending)

	ui.Close(ctx)
	ui.Wait(ctx)

	assert.Contains(t, buf.String(), "Adapters: 2")
	assert.Nil(t, ui.program)

	buf.Reset()
	ui.DisplayMutationScore(ctx, 1, 1)
	assert.Contains(t, buf.String(), "Mutation score: 100.00%")
}

func TestRunModel_Progress(t *testing.T) {
	rm := newRunModel(0)

	next, _ := rm.Update(runInfoMsg(RunInfo{RunID: "r1", Task: "execute", Source: "corpus", CUTs: 2, Sequences: 1, Threads: 1}))
	rm = next.(runModel)
	assert.Equal(t, 2, rm.total)

	next, _ = rm.Update(taskStartedMsg{key: "1/Stack"})
	rm = next.(runModel)
	next, _ = rm.Update(taskStartedMsg{key: "2/Counter"})
	rm = next.(runModel)

	view := rm.View()
	assert.Contains(t, view, "run r1")
	assert.Contains(t, view, "0/2 tasks")
	assert.Contains(t, view, "… 1/Stack")

	next, _ = rm.Update(taskDoneMsg{key: "1/Stack", adapters: 3})
	rm = next.(runModel)
	next, _ = rm.Update(taskDoneMsg{key: "2/Counter", err: failure.New(failure.KindResource, "2/Counter", "initialize", nil)})
	rm = next.(runModel)

	view = rm.View()
	assert.Contains(t, view, "2/2 tasks")
	assert.Contains(t, view, "(1 failed)")
	assert.Contains(t, view, "1/Stack")
	assert.Contains(t, view, "3 adapter(s)")
	assert.Contains(t, view, "resource")
	assert.NotContains(t, view, "…")
	assert.InDelta(t, 1.0, rm.percent(), 1e-9)
}

func TestRunModel_RecentIsBounded(t *testing.T) {
	rm := newRunModel(10)

	for i := 0; i < 8; i++ {
		rm = rm.complete(taskDoneMsg{key: strings.Repeat("x", i+1)})
	}

	assert.Len(t, rm.recent, recentTasks)
	assert.Equal(t, 8, rm.done)
}

func TestRunModel_Keys(t *testing.T) {
	rm := newRunModel(1)

	next, _ := rm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	rm = next.(runModel)
	assert.True(t, rm.help.ShowAll)

	next, cmd := rm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	rm = next.(runModel)
	require.NotNil(t, cmd)
	assert.True(t, rm.quitting)
	assert.Empty(t, rm.View())
}
