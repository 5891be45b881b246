// Package workflow ties the candidate pool, the arena and the report stores
// together behind the lasso commands.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"lasso.dev/pkg/lasso/internal/adapter"
	"lasso.dev/pkg/lasso/internal/adaptation"
	"lasso.dev/pkg/lasso/internal/arena"
	"lasso.dev/pkg/lasso/internal/controller"
	"lasso.dev/pkg/lasso/internal/corpus"
	"lasso.dev/pkg/lasso/internal/lql"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/mutant"
	"lasso.dev/pkg/lasso/internal/sequence"
)

// File names inside the output directory.
const (
	ReportsFile  = "reports.yaml"
	SheetsFile   = "sheets.db"
	AdaptersDir  = "adapters"
	DefaultLimit = 100
)

// Errors reported before any candidate is touched.
var (
	ErrUnsupportedMode = errors.New("unsupported execution mode")
	ErrUnsupportedTask = errors.New("unsupported task")
	ErrNoSequences     = errors.New("no sequences")
	ErrNoCandidates    = errors.New("no candidates")
)

// Task selects what an execution does after adaptation.
type Task string

// Available tasks.
const (
	TaskExecute Task = "Execute"
	TaskAmplify Task = "Amplify"
)

// ParseTask accepts task names case-insensitively.
func ParseTask(name string) (Task, error) {
	for _, task := range []Task{TaskExecute, TaskAmplify} {
		if strings.EqualFold(name, string(task)) {
			return task, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedTask, name)
}

// Mode selects where tasks run. Only local execution exists.
type Mode string

// Available modes.
const (
	ModeLocal       Mode = "local"
	ModeDistributed Mode = "distributed"
)

// QueryArgs select the candidates of a command.
type QueryArgs struct {
	// Query is LQL text.
	Query string
	// Corpus is the directory the package pool loads from.
	Corpus model.Path
	// Limit caps the candidates taken from the pool.
	Limit int
	// CUTs keeps only candidates whose id, class name or key matches.
	CUTs []string
	// ShardIndex and ShardCount partition candidates across processes.
	ShardIndex int
	ShardCount int
}

// ExecuteArgs configure one arena execution.
type ExecuteArgs struct {
	QueryArgs

	Mode      Mode
	Task      Task
	Sequences []model.Path
	// Output is the directory for reports, sheets and the adapter store.
	Output model.Path
	Sheets bool
	Replay bool
	// MutantLimit caps mutants per candidate for TaskAmplify.
	MutantLimit int
	Arena       arena.Config
}

// AdaptArgs configure an adaptation-only run.
type AdaptArgs struct {
	QueryArgs

	Arena arena.Config
}

// ViewArgs select previously saved reports.
type ViewArgs struct {
	Output model.Path
	// Format is "table" or "json".
	Format string
	// Diff holds two adapter keys (cut#adapter) whose observations are compared.
	Diff []string
	Out  io.Writer
}

// MergeArgs combine report files.
type MergeArgs struct {
	Inputs []model.Path
	Output model.Path
}

// Workflow implements the lasso commands.
type Workflow interface {
	List(ctx context.Context, args QueryArgs) error
	Adapt(ctx context.Context, args AdaptArgs) error
	Execute(ctx context.Context, args ExecuteArgs) error
	View(ctx context.Context, args ViewArgs) error
	Merge(ctx context.Context, args MergeArgs) error
}

// PoolFactory returns the candidate pool for a corpus directory.
type PoolFactory func(dir model.Path) corpus.Pool

// PackagePools loads candidates from Go packages on disk.
func PackagePools(dir model.Path) corpus.Pool {
	return corpus.NewPackagePool(string(dir), corpus.NewLocalFS())
}

type workflow struct {
	controller.UI
	adapter.ReportStore

	pools    PoolFactory
	strategy adaptation.Strategy
}

// NewWorkflow creates a new Workflow with the provided dependencies.
func NewWorkflow(ui controller.UI, store adapter.ReportStore, pools PoolFactory) Workflow {
	if pools == nil {
		pools = PackagePools
	}

	return &workflow{
		UI:          ui,
		ReportStore: store,
		pools:       pools,
		strategy:    adaptation.NewDefaultStrategy(),
	}
}

func (w *workflow) List(ctx context.Context, args QueryArgs) error {
	if err := w.Start(ctx, controller.WithListMode()); err != nil {
		return err
	}
	defer w.Close(ctx)

	_, cuts, err := w.candidates(ctx, args)

	return w.DisplayCandidates(ctx, cuts, err)
}

func (w *workflow) Adapt(ctx context.Context, args AdaptArgs) error {
	ispec, cuts, err := w.candidates(ctx, args.QueryArgs)
	if err != nil {
		return err
	}

	cfg := args.Arena
	cfg.EnsureDefaults()

	ready, err := corpus.Initialize(ctx, cuts, cfg.Threads)
	defer releaseCandidates(ready)

	if err != nil {
		return err
	}

	collected := adapter.NewReportWriter()

	exec, err := arena.NewExecutor(cfg, collected, nil)
	if err != nil {
		return err
	}

	if _, err := exec.Execute(ctx, ready, ispec, nil, arena.FreshAdaptation(w.strategy)); err != nil {
		return err
	}

	return w.DisplayResults(ctx, collected.Reports())
}

func (w *workflow) Execute(ctx context.Context, args ExecuteArgs) error {
	if args.Mode != "" && args.Mode != ModeLocal {
		return fmt.Errorf("%w: %s", ErrUnsupportedMode, args.Mode)
	}

	if args.Task == "" {
		args.Task = TaskExecute
	}

	task, err := ParseTask(string(args.Task))
	if err != nil {
		return err
	}

	args.Task = task

	cfg := args.Arena
	cfg.EnsureDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ispec, cuts, err := w.candidates(ctx, args.QueryArgs)
	if err != nil {
		return err
	}

	specs, err := LoadSequences(args.Sequences, ispec)
	if err != nil {
		return err
	}

	ready, err := corpus.Initialize(ctx, cuts, cfg.Threads)
	defer releaseCandidates(ready)

	if err != nil {
		return err
	}

	writer, store, closeWriters, err := openWriters(args)
	if err != nil {
		return err
	}
	defer closeWriters()

	source := arena.FreshAdaptation(w.strategy)
	if args.Replay {
		source = arena.Replay(w.strategy, store)
	}

	if err := w.Start(ctx, controller.WithExecuteMode(len(ready))); err != nil {
		return err
	}

	w.DisplayRunInfo(ctx, controller.RunInfo{
		RunID:     cfg.RunID,
		Task:      string(args.Task),
		Source:    source.Name(),
		CUTs:      len(ready),
		Sequences: len(specs),
		Threads:   cfg.Threads,
	})

	exec, err := arena.NewExecutor(cfg, writer, controller.NewListener(ctx, w.UI))
	if err != nil {
		w.finish(ctx)

		return err
	}

	results, err := exec.Execute(ctx, ready, ispec, specs, source)
	if err == nil && args.Task == TaskAmplify {
		err = w.amplify(ctx, exec, results, ispec, specs, args.MutantLimit)
	}

	if err != nil {
		w.finish(ctx)

		return err
	}

	reports := results.Reports()

	if saveErr := w.SaveReports(reportsPath(args.Output), reports); saveErr != nil {
		slog.Error("failed to save reports", "output", args.Output, "error", saveErr)
	}

	displayErr := w.DisplayResults(ctx, reports)

	if args.Task == TaskAmplify {
		w.DisplayMutationScore(ctx, mutant.Score(reports))
	}

	w.finish(ctx)

	return displayErr
}

func (w *workflow) amplify(ctx context.Context, exec *arena.Executor, results *arena.Results, ispec *model.InterfaceSpecification, specs []*sequence.Specification, limit int) error {
	source, err := mutant.NewSource(limit)
	if err != nil {
		return err
	}

	return exec.Amplify(ctx, results, ispec, specs, w.strategy, source)
}

func (w *workflow) finish(ctx context.Context) {
	w.Close(ctx)
	w.Wait(ctx)
}

// candidates parses the query and asks the pool for matching CUTs.
func (w *workflow) candidates(ctx context.Context, args QueryArgs) (*model.InterfaceSpecification, []model.ClassUnderTest, error) {
	ispec, err := lql.Parse(args.Query)
	if err != nil {
		return nil, nil, fmt.Errorf("parse query: %w", err)
	}

	limit := args.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	cuts, err := w.pools(args.Corpus).Candidates(ctx, ispec, limit)
	if err != nil {
		return ispec, nil, fmt.Errorf("query candidates: %w", err)
	}

	cuts = Shard(FilterCUTs(cuts, args.CUTs), args.ShardIndex, args.ShardCount)
	if len(cuts) == 0 {
		return ispec, nil, fmt.Errorf("%w for %s", ErrNoCandidates, ispec.Name())
	}

	return ispec, cuts, nil
}

func releaseCandidates(cuts []model.ClassUnderTest) {
	if err := corpus.Release(cuts); err != nil {
		slog.Warn("failed to release candidates", "error", err)
	}
}

// openWriters builds the cell writers of an execution. The adapter store is
// always opened so that a later run can replay this one.
func openWriters(args ExecuteArgs) (arena.CellWriter, *adapter.AdapterStore, func(), error) {
	output := string(args.Output)

	store, err := adapter.OpenAdapterStore(adapter.AdapterStoreConfig{
		Path:   filepath.Join(output, AdaptersDir),
		Logger: slog.Default(),
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open adapter store: %w", err)
	}

	closers := []io.Closer{store}
	var writers adapter.MultiWriter

	if !args.Replay {
		writers = append(writers, store)
	}

	if args.Sheets {
		sheets, err := adapter.NewSheetWriter(filepath.Join(output, SheetsFile))
		if err != nil {
			_ = store.Close()

			return nil, nil, nil, err
		}

		closers = append(closers, sheets)
		writers = append(writers, sheets)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				slog.Warn("failed to close writer", "error", err)
			}
		}
	}

	return writers, store, closeAll, nil
}

func reportsPath(output model.Path) model.Path {
	return model.Path(filepath.Join(string(output), ReportsFile))
}
