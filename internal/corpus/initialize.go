package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"lasso.dev/pkg/lasso/internal/failure"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/realm/script"
)

// Initialize loads a script realm into every project without a container,
// using at most threads goroutines. CUTs whose project fails to load are
// dropped and logged with a resource failure; the rest keep their order.
func Initialize(ctx context.Context, cuts []model.ClassUnderTest, threads int) ([]model.ClassUnderTest, error) {
	if threads < 1 {
		threads = 1
	}

	var (
		mu     sync.Mutex
		failed = make(map[*model.Project]error)
		seen   = make(map[*model.Project]bool)
		group  errgroup.Group
	)

	group.SetLimit(threads)

	for _, cut := range cuts {
		project := cut.Project
		if project == nil || seen[project] {
			continue
		}

		seen[project] = true

		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			if err := load(ctx, project); err != nil {
				err = failure.New(failure.KindResource, project.Coordinates(), "initialize project", err)
				slog.Warn("dropping candidate project", "project", project.Coordinates(), "error", err)

				mu.Lock()
				failed[project] = err
				mu.Unlock()
			}

			return nil
		})
	}

	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("initialize interrupted: %w", err)
	}

	ready := make([]model.ClassUnderTest, 0, len(cuts))

	for _, cut := range cuts {
		if cut.Project == nil {
			slog.Warn("dropping candidate without project", "cut", cut.Key())

			continue
		}

		if _, ok := failed[cut.Project]; ok {
			continue
		}

		ready = append(ready, cut)
	}

	slog.Debug("initialized candidates", "ready", len(ready), "dropped", len(cuts)-len(ready))

	return ready, nil
}

func load(ctx context.Context, project *model.Project) error {
	if project.Container() != nil {
		return nil
	}

	realm, err := script.LoadProject(ctx, project)
	if err != nil {
		return err
	}

	if err := project.SetContainer(realm); err != nil {
		_ = realm.Dispose()

		return err
	}

	project.MarkResolved()

	return nil
}

// Release disposes the containers of the distinct projects behind cuts.
func Release(cuts []model.ClassUnderTest) error {
	seen := make(map[*model.Project]bool)

	var errs []error

	for _, cut := range cuts {
		if cut.Project == nil || seen[cut.Project] {
			continue
		}

		seen[cut.Project] = true

		if cut.Project.Container() == nil {
			continue
		}

		if err := cut.Project.RemoveContainer(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
