// Package corpus finds candidate classes for an interface specification and
// prepares their projects for execution.
package corpus

import (
	"context"

	"lasso.dev/pkg/lasso/internal/model"
)

// Pool yields candidate classes for a desired interface.
type Pool interface {
	// Candidates returns at most limit candidates, best first. A limit of
	// zero or less means no limit.
	Candidates(ctx context.Context, ispec *model.InterfaceSpecification, limit int) ([]model.ClassUnderTest, error)
}

// StaticPool always returns the same candidates.
type StaticPool []model.ClassUnderTest

// Candidates implements Pool.
func (p StaticPool) Candidates(ctx context.Context, _ *model.InterfaceSpecification, limit int) ([]model.ClassUnderTest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cuts := []model.ClassUnderTest(p)
	if limit > 0 && len(cuts) > limit {
		cuts = cuts[:limit]
	}

	out := make([]model.ClassUnderTest, len(cuts))
	copy(out, cuts)

	return out, nil
}
