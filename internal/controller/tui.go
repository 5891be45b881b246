package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"lasso.dev/pkg/lasso/internal/failure"
	"lasso.dev/pkg/lasso/internal/model"
)

const recentTasks = 5

type keyMap struct {
	Quit key.Binding
	Help key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit, k.Help}}
}

var defaultKeyMap = keyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "hide progress")),
	Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// TUI implements UI using Bubble Tea for interactive display. Progress is
// shown live while tables are printed once the program has exited.
type TUI struct {
	output io.Writer
	input  io.Reader

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	pending []string
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output, input: os.Stdin}
}

// Start launches the progress program in execute mode.
func (p *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := startConfig(options)
	if cfg.mode != ModeExecute {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.program != nil {
		return nil
	}

	runModel := newRunModel(cfg.tasks)
	runModel.setWidth(p.width())

	p.program = tea.NewProgram(runModel,
		tea.WithOutput(p.output),
		tea.WithInput(p.input),
		tea.WithContext(ctx),
	)
	p.done = make(chan struct{})

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)

		_, _ = program.Run()
	}(p.program, p.done)

	return nil
}

// Close stops the progress program.
func (p *TUI) Close(context.Context) {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()

	if program != nil {
		program.Quit()
	}
}

// Wait blocks until the progress program exits, then prints deferred
// output.
func (p *TUI) Wait(ctx context.Context) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.program = nil
	p.done = nil
	p.mu.Unlock()

	for _, text := range pending {
		_, _ = fmt.Fprint(p.output, text)
	}
}

// DisplayRunInfo shows the execution settings in the progress header.
func (p *TUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if ctx.Err() != nil {
		return
	}

	if !p.send(runInfoMsg(info)) {
		p.emit(statusStyle.Render(runInfoLine(info)) + "\n")
	}
}

// DisplayCandidates prints the candidate table or the error.
func (p *TUI) DisplayCandidates(ctx context.Context, cuts []model.ClassUnderTest, err error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err != nil {
		p.emit(failStyle.Render(fmt.Sprintf("candidate error: %v", err)) + "\n")

		return err
	}

	rows := make([][]string, 0, len(cuts))

	for _, cut := range cuts {
		project, sources := "", 0
		if cut.Project != nil {
			project = cut.Project.Coordinates()
			sources = len(cut.Project.Sources)
		}

		rows = append(rows, []string{cut.ID, cut.ClassName, project, strconv.Itoa(sources)})
	}

	p.emit(titleStyle.Render(fmt.Sprintf("Candidates: %d", len(cuts))) + "\n" +
		p.table(rows, nil, "ID", "CLASS", "PROJECT", "SOURCES") + "\n")

	return nil
}

// DisplayStartingTask updates the live progress.
func (p *TUI) DisplayStartingTask(ctx context.Context, cut model.ClassUnderTest) {
	if ctx.Err() != nil {
		return
	}

	p.send(taskStartedMsg{key: cut.Key()})
}

// DisplayCompletedTask updates the live progress.
func (p *TUI) DisplayCompletedTask(ctx context.Context, cut model.ClassUnderTest, reports []model.Report, err error) {
	if ctx.Err() != nil {
		return
	}

	p.send(taskDoneMsg{key: cut.Key(), adapters: len(reports), err: err})
}

// DisplayResults renders one row per adapter.
func (p *TUI) DisplayResults(ctx context.Context, reports []model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sorted := make([]model.Report, len(reports))
	copy(sorted, reports)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CUT != sorted[j].CUT {
			return sorted[i].CUT < sorted[j].CUT
		}

		return sorted[i].AdapterID < sorted[j].AdapterID
	})

	rows := make([][]string, 0, len(sorted))

	for _, report := range sorted {
		rows = append(rows, []string{
			report.CUT,
			strconv.Itoa(report.AdapterID),
			fmt.Sprintf("%d/%d", report.Passed(), len(report.Sequences)),
			mutantSummary(report.Mutants),
			adapterLabel(report),
		})
	}

	passed := func(row int) bool {
		report := sorted[row]

		return len(report.Sequences) > 0 && report.Passed() == len(report.Sequences)
	}

	p.emit(titleStyle.Render(fmt.Sprintf("Adapters: %d", len(sorted))) + "\n" +
		p.table(rows, passed, "CUT", "ADAPTER", "PASSED", "MUTANTS", "MEMBERS") + "\n")

	return nil
}

// DisplayMutationScore renders the final mutation score.
func (p *TUI) DisplayMutationScore(ctx context.Context, score float64, counted int) {
	if ctx.Err() != nil {
		return
	}

	if counted == 0 {
		p.emit(statusStyle.Render("Mutation score: n/a") + "\n")

		return
	}

	p.emit(titleStyle.Render(fmt.Sprintf("Mutation score: %.2f%%", score*100)) +
		statusStyle.Render(fmt.Sprintf(" (%d mutants)", counted)) + "\n")
}

func (p *TUI) table(rows [][]string, passed func(row int) bool, headers ...string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			if passed != nil && col == 2 && row >= 0 && row < len(rows) {
				if passed(row) {
					return passStyle
				}

				return failStyle
			}

			return lipgloss.NewStyle()
		}).
		Headers(headers...).
		Rows(rows...)

	if width := p.width(); width > 0 {
		t = t.Width(width)
	}

	return t.String()
}

// send forwards msg to a running program and reports whether one was running.
func (p *TUI) send(msg tea.Msg) bool {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()

	if program == nil {
		return false
	}

	program.Send(msg)

	return true
}

// emit prints text now, or once the running program exits.
func (p *TUI) emit(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.program != nil {
		p.pending = append(p.pending, text)

		return
	}

	_, _ = fmt.Fprint(p.output, text)
}

func (p *TUI) width() int {
	f, ok := p.output.(*os.File)
	if !ok {
		return 0
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}

	return width
}

func runInfoLine(info RunInfo) string {
	return fmt.Sprintf("run %s · %s · %d candidate(s) · %d sequence(s) · %d worker(s) · %s",
		info.RunID, info.Task, info.CUTs, info.Sequences, info.Threads, info.Source)
}

type (
	runInfoMsg     RunInfo
	taskStartedMsg struct{ key string }
	taskDoneMsg    struct {
		key      string
		adapters int
		err      error
	}
)

// runModel is the Bubble Tea model for the live progress of an execution.
type runModel struct {
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	keys     keyMap

	info     *RunInfo
	total    int
	done     int
	failed   int
	running  []string
	recent   []string
	quitting bool
}

func newRunModel(total int) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle

	return runModel{
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		keys:     defaultKeyMap,
		total:    total,
	}
}

func (rm *runModel) setWidth(width int) {
	if width <= 0 {
		return
	}

	rm.progress.Width = min(width-4, 60)
	rm.help.Width = width
}

func (rm runModel) Init() tea.Cmd {
	return rm.spinner.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.setWidth(msg.Width)

		return rm, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, rm.keys.Quit):
			rm.quitting = true

			return rm, tea.Quit
		case key.Matches(msg, rm.keys.Help):
			rm.help.ShowAll = !rm.help.ShowAll
		}

		return rm, nil

	case runInfoMsg:
		info := RunInfo(msg)
		rm.info = &info

		if rm.total == 0 {
			rm.total = info.CUTs
		}

		return rm, nil

	case taskStartedMsg:
		rm.running = append(rm.running, msg.key)

		return rm, nil

	case taskDoneMsg:
		return rm.complete(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd
	}

	return rm, nil
}

func (rm runModel) complete(msg taskDoneMsg) runModel {
	rm.done++

	running := make([]string, 0, len(rm.running))

	for _, k := range rm.running {
		if k != msg.key {
			running = append(running, k)
		}
	}

	rm.running = running

	var line string

	if msg.err != nil {
		rm.failed++
		line = failStyle.Render("✗ ") + fmt.Sprintf("%s %s", msg.key, statusStyle.Render(string(failure.KindOf(msg.err))))
	} else {
		line = passStyle.Render("✓ ") + fmt.Sprintf("%s %s", msg.key, statusStyle.Render(fmt.Sprintf("%d adapter(s)", msg.adapters)))
	}

	rm.recent = append(rm.recent, line)
	if len(rm.recent) > recentTasks {
		rm.recent = rm.recent[len(rm.recent)-recentTasks:]
	}

	return rm
}

func (rm runModel) percent() float64 {
	if rm.total <= 0 {
		return 0
	}

	return float64(rm.done) / float64(rm.total)
}

func (rm runModel) View() string {
	if rm.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Lasso arena"))
	b.WriteString("\n")

	if rm.info != nil {
		b.WriteString(statusStyle.Render(runInfoLine(*rm.info)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d/%d tasks", rm.spinner.View(), rm.done, rm.total)

	if rm.failed > 0 {
		b.WriteString(failStyle.Render(fmt.Sprintf(" (%d failed)", rm.failed)))
	}

	b.WriteString("\n")
	b.WriteString(rm.progress.ViewAs(rm.percent()))
	b.WriteString("\n\n")

	for _, k := range rm.running {
		b.WriteString(statusStyle.Render("… " + k))
		b.WriteString("\n")
	}

	for _, line := range rm.recent {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(rm.help.View(rm.keys))
	b.WriteString("\n")

	return b.String()
}
