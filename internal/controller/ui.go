// Package controller provides output adapters for displaying arena runs.
package controller

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lasso.dev/pkg/lasso/internal/arena"
	"lasso.dev/pkg/lasso/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeList StartMode = iota
	ModeExecute
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode  StartMode
	tasks int
}

// WithListMode sets the UI to candidate listing mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithExecuteMode sets the UI to execution mode with the number of tasks
// to expect.
func WithExecuteMode(tasks int) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeExecute
		c.tasks = tasks
	}
}

func startConfig(options []StartOption) StartConfig {
	var cfg StartConfig
	for _, option := range options {
		option(&cfg)
	}

	return cfg
}

// RunInfo describes an execution before it starts.
type RunInfo struct {
	RunID     string
	Task      string
	Source    string
	CUTs      int
	Sequences int
	Threads   int
}

// UI displays the progress and outcome of lasso commands.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayRunInfo(ctx context.Context, info RunInfo)
	DisplayCandidates(ctx context.Context, cuts []model.ClassUnderTest, err error) error
	DisplayStartingTask(ctx context.Context, cut model.ClassUnderTest)
	DisplayCompletedTask(ctx context.Context, cut model.ClassUnderTest, reports []model.Report, err error)
	DisplayResults(ctx context.Context, reports []model.Report) error
	DisplayMutationScore(ctx context.Context, score float64, counted int)
}

// NewUI returns a TUI for terminals and a SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

// Listener forwards arena task events to a UI.
type Listener struct {
	arena.NopListener

	ctx context.Context
	ui  UI
}

// NewListener binds ui to the arena's execution events.
func NewListener(ctx context.Context, ui UI) *Listener {
	return &Listener{ctx: ctx, ui: ui}
}

// BeforeTask implements arena.ExecutionListener.
func (l *Listener) BeforeTask(cut model.ClassUnderTest) {
	l.ui.DisplayStartingTask(l.ctx, cut)
}

// AfterTask implements arena.ExecutionListener.
func (l *Listener) AfterTask(cut model.ClassUnderTest, reports []model.Report, err error) {
	l.ui.DisplayCompletedTask(l.ctx, cut, reports, err)
}

var _ arena.ExecutionListener = (*Listener)(nil)

// adapterLabel renders the member mapping of an adapter, or its
// fingerprint when there is none.
func adapterLabel(report model.Report) string {
	if len(report.Members) == 0 {
		return report.Fingerprint
	}

	return strings.Join(report.Members, ", ")
}
