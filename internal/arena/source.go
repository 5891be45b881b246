package arena

import (
	"context"
	"fmt"
	"log/slog"

	"lasso.dev/pkg/lasso/internal/adaptation"
	"lasso.dev/pkg/lasso/internal/model"
)

// ImplementationSource decides where the adapted implementations of a CUT
// come from.
type ImplementationSource interface {
	Name() string
	Implementations(ctx context.Context, ispec *model.InterfaceSpecification, cut model.ClassUnderTest, limit int) ([]adaptation.AdaptedImplementation, error)
}

// FingerprintStore returns the adapter fingerprints recorded for a CUT by an
// earlier run.
type FingerprintStore interface {
	Fingerprints(ctx context.Context, cut string) ([]string, error)
}

type freshAdaptation struct {
	strategy adaptation.Strategy
}

// FreshAdaptation adapts every CUT with strategy.
func FreshAdaptation(strategy adaptation.Strategy) ImplementationSource {
	return &freshAdaptation{strategy: strategy}
}

func (s *freshAdaptation) Name() string { return "adapt" }

func (s *freshAdaptation) Implementations(ctx context.Context, ispec *model.InterfaceSpecification, cut model.ClassUnderTest, limit int) ([]adaptation.AdaptedImplementation, error) {
	return s.strategy.Adapt(ctx, ispec, cut, limit)
}

type replay struct {
	strategy adaptation.Strategy
	store    FingerprintStore
}

// Replay re-adapts each CUT without a limit and keeps the adapters whose
// fingerprints the store holds, in the order the strategy ranks them.
func Replay(strategy adaptation.Strategy, store FingerprintStore) ImplementationSource {
	return &replay{strategy: strategy, store: store}
}

func (s *replay) Name() string { return "replay" }

func (s *replay) Implementations(ctx context.Context, ispec *model.InterfaceSpecification, cut model.ClassUnderTest, limit int) ([]adaptation.AdaptedImplementation, error) {
	fingerprints, err := s.store.Fingerprints(ctx, cut.Key())
	if err != nil {
		return nil, fmt.Errorf("load fingerprints of %s: %w", cut.Key(), err)
	}

	if len(fingerprints) == 0 {
		slog.Debug("nothing to replay", "cut", cut.Key())

		return nil, nil
	}

	wanted := make(map[string]bool, len(fingerprints))
	for _, fp := range fingerprints {
		wanted[fp] = true
	}

	impls, err := s.strategy.Adapt(ctx, ispec, cut, 0)
	if err != nil {
		return nil, err
	}

	var kept []adaptation.AdaptedImplementation

	for _, impl := range impls {
		if !wanted[impl.Fingerprint()] {
			continue
		}

		kept = append(kept, impl)
		delete(wanted, impl.Fingerprint())

		if limit > 0 && len(kept) == limit {
			break
		}
	}

	if len(wanted) > 0 && (limit <= 0 || len(kept) < limit) {
		slog.Warn("recorded adapters no longer found", "cut", cut.Key(), "missing", len(wanted))
	}

	return kept, nil
}

type originals struct{}

// Originals runs every CUT through its identity adapter.
func Originals() ImplementationSource {
	return originals{}
}

func (originals) Name() string { return "original" }

func (originals) Implementations(ctx context.Context, _ *model.InterfaceSpecification, cut model.ClassUnderTest, _ int) ([]adaptation.AdaptedImplementation, error) {
	return adaptation.Originals(ctx, cut)
}
