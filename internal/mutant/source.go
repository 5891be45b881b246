package mutant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lasso.dev/pkg/lasso/internal/arena"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/realm/script"
)

// ErrNoProject is returned for CUTs without a project.
var ErrNoProject = errors.New("candidate has no project")

// Source mutates the Go sources of script realm projects. Every mutant owns a
// cloned project; its realm is only built by Load.
type Source struct {
	Types []model.MutationType
	// Limit caps the mutants per CUT; zero means no cap.
	Limit int
}

// NewSource returns a Source for types (all when empty).
func NewSource(limit int, types ...model.MutationType) (*Source, error) {
	resolved, err := ResolveTypes(types)
	if err != nil {
		return nil, err
	}

	return &Source{Types: resolved, Limit: limit}, nil
}

// Mutants implements arena.MutantSource. Test files are never mutated.
func (s *Source) Mutants(ctx context.Context, cut model.ClassUnderTest) ([]arena.Mutant, error) {
	if cut.Project == nil {
		return nil, fmt.Errorf("mutate %s: %w", cut.Key(), ErrNoProject)
	}

	next := 0

	var mutants []arena.Mutant

	for _, name := range cut.Project.SourceNames() {
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src := cut.Project.Sources[name]

		mutations, err := Generate(name, src, &next, s.Types...)
		if err != nil {
			return nil, fmt.Errorf("mutate %s: %w", cut.Key(), err)
		}

		for _, mutation := range mutations {
			mutated, err := Apply(src, mutation)
			if err != nil {
				return nil, err
			}

			project := cut.Project.Clone()
			project.Sources[name] = mutated

			mutants = append(mutants, arena.Mutant{Mutation: mutation, CUT: cut.WithVariant(mutation.ID, project)})

			if s.Limit > 0 && len(mutants) >= s.Limit {
				slog.Debug("mutant limit reached", "cut", cut.Key(), "limit", s.Limit)

				return mutants, nil
			}
		}
	}

	return mutants, nil
}

// Load implements arena.MutantSource. Mutants that no longer type check
// fail here.
func (s *Source) Load(ctx context.Context, mutant arena.Mutant) error {
	project := mutant.CUT.Project

	realm, err := script.LoadProject(ctx, project)
	if err != nil {
		return fmt.Errorf("load mutant %s: %w", mutant.Mutation.ID, err)
	}

	if err := project.SetContainer(realm); err != nil {
		_ = realm.Dispose()

		return err
	}

	project.MarkResolved()

	return nil
}
