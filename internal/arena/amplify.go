package arena

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"lasso.dev/pkg/lasso/internal/adaptation"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/sequence"
	"lasso.dev/pkg/lasso/pkg/filespill"
)

// Mutant is a variant of a CUT built from one source mutation.
type Mutant struct {
	Mutation model.Mutation
	CUT      model.ClassUnderTest
}

// MutantSource enumerates the mutants of a CUT and builds their containers.
type MutantSource interface {
	Mutants(ctx context.Context, cut model.ClassUnderTest) ([]Mutant, error)
	Load(ctx context.Context, mutant Mutant) error
}

type mutantOutcome struct {
	Adapter string
	Report  model.MutantReport
}

// Amplify reruns the sequences of every executed adapter against the
// mutants of its CUT. A mutant is killed by an adapter when the mutant has
// no adapter with the same fingerprint or its sequence records differ from
// the original ones. Outcomes are attached to the reports in results.
func (e *Executor) Amplify(ctx context.Context, results *Results, ispec *model.InterfaceSpecification, specs []*sequence.Specification, strategy adaptation.Strategy, source MutantSource) error {
	if ispec == nil || ispec.IsEmpty() {
		return ErrNoInterface
	}

	spill, err := filespill.New[mutantOutcome](e.config.SpillDir)
	if err != nil {
		return fmt.Errorf("amplify: %w", err)
	}

	defer func() {
		if err := spill.Remove(); err != nil {
			slog.Warn("failed to remove spill", "path", spill.Path(), "error", err)
		}
	}()

	byCUT := map[string][]model.Report{}
	for _, report := range results.Reports() {
		byCUT[report.CUT] = append(byCUT[report.CUT], report)
	}

	var group errgroup.Group

	group.SetLimit(e.config.Threads)

	for _, cut := range results.CUTs() {
		originals := byCUT[cut.Key()]
		if len(originals) == 0 {
			continue
		}

		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			outcomes := e.amplifyCUT(ctx, cut, originals, ispec, specs, strategy, source)

			if err := spill.Append(outcomes...); err != nil {
				slog.Error("failed to spill mutant outcomes", "cut", cut.Key(), "error", err)
			}

			return nil
		})
	}

	_ = group.Wait()

	grouped := map[string][]model.MutantReport{}

	err = spill.Range(func(_ int, outcome mutantOutcome) error {
		grouped[outcome.Adapter] = append(grouped[outcome.Adapter], outcome.Report)
		mutantsTotal.WithLabelValues(outcome.Report.Status.String()).Inc()

		return nil
	})
	if err != nil {
		return fmt.Errorf("read mutant outcomes: %w", err)
	}

	for key, mutants := range grouped {
		report, ok := results.Get(key)
		if !ok {
			continue
		}

		report.Mutants = mutants
		results.update(report)
	}

	return ctx.Err()
}

func (e *Executor) amplifyCUT(ctx context.Context, cut model.ClassUnderTest, originals []model.Report, ispec *model.InterfaceSpecification, specs []*sequence.Specification, strategy adaptation.Strategy, source MutantSource) []mutantOutcome {
	mutants, err := source.Mutants(ctx, cut)
	if err != nil {
		slog.Error("failed to create mutants", "cut", cut.Key(), "error", err)

		return nil
	}

	slog.Debug("amplifying", "cut", cut.Key(), "mutants", len(mutants), "adapters", len(originals))

	var outcomes []mutantOutcome

	for _, mutant := range mutants {
		if ctx.Err() != nil {
			break
		}

		outcomes = append(outcomes, e.mutant(ctx, mutant, originals, ispec, specs, strategy, source)...)
	}

	return outcomes
}

// mutant runs one mutant against every original adapter and releases its
// container afterwards.
func (e *Executor) mutant(ctx context.Context, mutant Mutant, originals []model.Report, ispec *model.InterfaceSpecification, specs []*sequence.Specification, strategy adaptation.Strategy, source MutantSource) []mutantOutcome {
	outcomes := make([]mutantOutcome, len(originals))
	for i, original := range originals {
		outcomes[i] = mutantOutcome{
			Adapter: AdapterKey(original.CUT, original.AdapterID),
			Report: model.MutantReport{
				MutationID: mutant.Mutation.ID,
				Type:       mutant.Mutation.Type,
				File:       mutant.Mutation.File,
				Line:       mutant.Mutation.Line,
				Status:     model.Error,
			},
		}
	}

	fail := func(detail string) []mutantOutcome {
		for i := range outcomes {
			outcomes[i].Report.Detail = detail
		}

		return outcomes
	}

	if err := source.Load(ctx, mutant); err != nil {
		slog.Warn("failed to load mutant", "cut", mutant.CUT.Key(), "mutation", mutant.Mutation.ID, "error", err)

		return fail(err.Error())
	}

	defer func() {
		if project := mutant.CUT.Project; project != nil {
			if err := project.RemoveContainer(); err != nil {
				slog.Warn("failed to dispose mutant container", "cut", mutant.CUT.Key(), "error", err)
			}
		}
	}()

	impls, err := strategy.Adapt(ctx, ispec, mutant.CUT, 0)
	if err != nil {
		return fail(err.Error())
	}

	byFingerprint := make(map[string]adaptation.AdaptedImplementation, len(impls))
	for _, impl := range impls {
		byFingerprint[impl.Fingerprint()] = impl
	}

	for i, original := range originals {
		impl, ok := byFingerprint[original.Fingerprint]
		if !ok {
			outcomes[i].Report.Status = model.Killed
			outcomes[i].Report.Detail = "adapter no longer resolves"

			continue
		}

		outcomes[i].Report.Status = model.Survived

		for _, want := range original.Sequences {
			spec := specByName(specs, want.Sequence)
			if spec == nil {
				continue
			}

			got, _ := e.sequence(ctx, ispec, impl, spec)
			if diff := recordDiff(want, got); diff != "" {
				outcomes[i].Report.Status = model.Killed
				outcomes[i].Report.Detail = want.Sequence + ": " + diff

				break
			}
		}
	}

	return outcomes
}

func specByName(specs []*sequence.Specification, name string) *sequence.Specification {
	for _, spec := range specs {
		if spec.Name == name {
			return spec
		}
	}

	return nil
}

// recordDiff compares the observable parts of two records: statuses and
// rendered values.
func recordDiff(want, got model.SequenceRecord) string {
	if want.Instantiated != got.Instantiated {
		return fmt.Sprintf("instantiated %t, was %t", got.Instantiated, want.Instantiated)
	}

	if len(want.Observations) != len(got.Observations) {
		return fmt.Sprintf("%d statements, was %d", len(got.Observations), len(want.Observations))
	}

	for i, w := range want.Observations {
		g := got.Observations[i]

		if w.Status != g.Status {
			return fmt.Sprintf("statement %d %s, was %s", i, g.Status, w.Status)
		}

		if w.Value != g.Value {
			return fmt.Sprintf("statement %d returned %s, was %s", i, g.Value, w.Value)
		}
	}

	return ""
}
