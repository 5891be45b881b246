package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"lasso.dev/pkg/lasso/internal/failure"
	"lasso.dev/pkg/lasso/internal/model"
)

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd   *cobra.Command
	tasks int
	done  int
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := startConfig(options)
	s.tasks = cfg.tasks
	s.done = 0

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(context.Context) {}

// DisplayRunInfo prints the execution settings.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Run %s: %s of %d candidate(s) with %d sequence(s) on %d worker(s) (%s)\n",
		info.RunID, info.Task, info.CUTs, info.Sequences, info.Threads, info.Source)
}

// DisplayCandidates prints the candidate table or the error.
func (s *SimpleUI) DisplayCandidates(ctx context.Context, cuts []model.ClassUnderTest, err error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err != nil {
		s.printf("candidate error: %v\n", err)

		return err
	}

	s.printf("\n%s", renderCandidateTable(cuts))

	return nil
}

func renderCandidateTable(cuts []model.ClassUnderTest) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"ID", "Class", "Project", "Sources"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, cut := range cuts {
		project, sources := "", 0
		if cut.Project != nil {
			project = cut.Project.Coordinates()
			sources = len(cut.Project.Sources)
		}

		table.Append([]string{cut.ID, cut.ClassName, project, strconv.Itoa(sources)})
	}

	table.SetFooter([]string{"", fmt.Sprintf("Total %d", len(cuts)), "", ""})
	table.Render()

	return buf.String()
}

// DisplayStartingTask prints the CUT being adapted.
func (s *SimpleUI) DisplayStartingTask(ctx context.Context, cut model.ClassUnderTest) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Starting %s\n", cut.Key())
}

// DisplayCompletedTask prints the outcome of one CUT.
func (s *SimpleUI) DisplayCompletedTask(ctx context.Context, cut model.ClassUnderTest, reports []model.Report, err error) {
	if ctx.Err() != nil {
		return
	}

	s.done++

	progress := ""
	if s.tasks > 0 {
		progress = fmt.Sprintf("[%d/%d] ", s.done, s.tasks)
	}

	if err != nil {
		s.printf("%sFailed %s (%s): %v\n", progress, cut.Key(), failure.KindOf(err), err)

		return
	}

	s.printf("%sCompleted %s -> %d adapter(s)\n", progress, cut.Key(), len(reports))
}

// DisplayResults prints one row per adapter.
func (s *SimpleUI) DisplayResults(ctx context.Context, reports []model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderResultTable(reports))

	return nil
}

func renderResultTable(reports []model.Report) string {
	sorted := make([]model.Report, len(reports))
	copy(sorted, reports)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CUT != sorted[j].CUT {
			return sorted[i].CUT < sorted[j].CUT
		}

		return sorted[i].AdapterID < sorted[j].AdapterID
	})

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"CUT", "Adapter", "Passed", "Mutants", "Members"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})

	passing := 0

	for _, report := range sorted {
		passed := report.Passed()
		if passed == len(report.Sequences) && passed > 0 {
			passing++
		}

		table.Append([]string{
			report.CUT,
			strconv.Itoa(report.AdapterID),
			fmt.Sprintf("%d/%d", passed, len(report.Sequences)),
			mutantSummary(report.Mutants),
			adapterLabel(report),
		})
	}

	table.SetFooter([]string{fmt.Sprintf("Adapters %d", len(sorted)), "", fmt.Sprintf("%d passing", passing), "", ""})
	table.Render()

	return buf.String()
}

func mutantSummary(mutants []model.MutantReport) string {
	if len(mutants) == 0 {
		return "-"
	}

	killed := 0

	for _, mutant := range mutants {
		if mutant.Status == model.Killed {
			killed++
		}
	}

	return fmt.Sprintf("%d/%d killed", killed, len(mutants))
}

// DisplayMutationScore prints the final mutation score.
func (s *SimpleUI) DisplayMutationScore(ctx context.Context, score float64, counted int) {
	if ctx.Err() != nil {
		return
	}

	if counted == 0 {
		s.printf("Mutation score: n/a (no mutants judged)\n")

		return
	}

	s.printf("Mutation score: %.2f%% of %d mutant(s)\n", score*100, counted)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
