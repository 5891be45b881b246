package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"lasso.dev/pkg/lasso/internal/arena"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/mutant"
)

// Output formats of View.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// ErrUnknownAdapter is returned when a diff names an adapter that is not in
// the reports.
var ErrUnknownAdapter = errors.New("unknown adapter")

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	reports, err := w.LoadReports(reportsPath(args.Output))
	if err != nil {
		return err
	}

	if len(args.Diff) > 0 {
		if len(args.Diff) != 2 {
			return fmt.Errorf("diff needs two adapters, got %d", len(args.Diff))
		}

		diff, err := DiffAdapters(reports, args.Diff[0], args.Diff[1])
		if err != nil {
			return err
		}

		_, err = io.WriteString(args.Out, diff)

		return err
	}

	switch args.Format {
	case FormatJSON:
		return WriteJSON(args.Out, reports)
	case FormatTable, "":
		if err := w.DisplayResults(ctx, reports); err != nil {
			return err
		}

		if score, counted := mutant.Score(reports); counted > 0 {
			w.DisplayMutationScore(ctx, score, counted)
		}

		return nil
	default:
		return fmt.Errorf("invalid format %q: must be %q or %q", args.Format, FormatTable, FormatJSON)
	}
}

func (w *workflow) Merge(_ context.Context, args MergeArgs) error {
	if len(args.Inputs) == 0 {
		return errors.New("nothing to merge")
	}

	merged := make(map[string]model.Report)

	var order []string

	for _, input := range args.Inputs {
		reports, err := w.LoadReports(input)
		if err != nil {
			return err
		}

		for _, report := range reports {
			key := report.RunID + "/" + arena.AdapterKey(report.CUT, report.AdapterID)
			if _, ok := merged[key]; !ok {
				order = append(order, key)
			}

			merged[key] = report
		}
	}

	out := make([]model.Report, 0, len(order))
	for _, key := range order {
		out = append(out, merged[key])
	}

	slog.Info("merged reports", "inputs", len(args.Inputs), "reports", len(out))

	return w.SaveReports(reportsPath(args.Output), out)
}

type jsonSummary struct {
	Adapters      int      `json:"adapters"`
	Sequences     int      `json:"sequences"`
	Passed        int      `json:"passed"`
	Mutants       int      `json:"mutants,omitempty"`
	MutationScore *float64 `json:"mutation_score,omitempty"`
}

type jsonDocument struct {
	Version int            `json:"version"`
	Summary jsonSummary    `json:"summary"`
	Reports []model.Report `json:"reports"`
}

// WriteJSON writes reports with a summary, conforming to ReportSchema.
func WriteJSON(w io.Writer, reports []model.Report) error {
	doc := jsonDocument{Version: 1, Reports: reports}
	if doc.Reports == nil {
		doc.Reports = []model.Report{}
	}

	for _, report := range reports {
		doc.Summary.Adapters++
		doc.Summary.Sequences += len(report.Sequences)
		doc.Summary.Passed += report.Passed()
	}

	if score, counted := mutant.Score(reports); counted > 0 {
		doc.Summary.Mutants = counted
		doc.Summary.MutationScore = &score
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}

	return nil
}

// DiffAdapters renders a unified diff of the observations of two adapters,
// each named by its key (cut#adapter).
func DiffAdapters(reports []model.Report, a, b string) (string, error) {
	left, err := findAdapter(reports, a)
	if err != nil {
		return "", err
	}

	right, err := findAdapter(reports, b)
	if err != nil {
		return "", err
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(observationSheet(left)),
		B:        difflib.SplitLines(observationSheet(right)),
		FromFile: a,
		ToFile:   b,
		Context:  2,
	})
}

func findAdapter(reports []model.Report, key string) (model.Report, error) {
	for _, report := range reports {
		if arena.AdapterKey(report.CUT, report.AdapterID) == key {
			return report, nil
		}
	}

	return model.Report{}, fmt.Errorf("%w: %s", ErrUnknownAdapter, key)
}

// observationSheet renders one line per statement, sequences in name order.
func observationSheet(report model.Report) string {
	sequences := make([]model.SequenceRecord, len(report.Sequences))
	copy(sequences, report.Sequences)

	sort.Slice(sequences, func(i, j int) bool { return sequences[i].Sequence < sequences[j].Sequence })

	var b strings.Builder

	for _, record := range sequences {
		if !record.Instantiated {
			fmt.Fprintf(&b, "%s: not instantiated\n", record.Sequence)

			continue
		}

		for _, obs := range record.Observations {
			fmt.Fprintf(&b, "%s[%d] %s %s", record.Sequence, obs.Statement, obs.Member, obs.Status)

			switch {
			case obs.Error != "":
				fmt.Fprintf(&b, " error=%s", obs.Error)
			case obs.Value != "":
				fmt.Fprintf(&b, " = %s", obs.Value)
			}

			b.WriteString("\n")
		}
	}

	return b.String()
}
