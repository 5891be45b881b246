package adaptation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lasso.dev/pkg/lasso/internal/failure"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/typesys"
)

// Strategy adapts a CUT to a desired interface.
type Strategy interface {
	Adapt(ctx context.Context, spec *model.InterfaceSpecification, cut model.ClassUnderTest, limit int) ([]AdaptedImplementation, error)
}

// DefaultStrategy resolves every desired member with a Resolver and ranks
// the whole-class choices with a Combination engine.
type DefaultStrategy struct {
	Resolver    *Resolver
	Combination *Combination
}

// NewDefaultStrategy uses NewResolver and NewCombination.
func NewDefaultStrategy() *DefaultStrategy {
	return &DefaultStrategy{
		Resolver:    NewResolver(),
		Combination: NewCombination(),
	}
}

// Adapt implements Strategy. It fails with a FatalSpecification error when
// the class cannot be adapted at all; partially resolvable classes yield
// fewer (possibly zero) adapters. Adapter ids are ordinals of this call;
// use Fingerprint for identities that outlive it.
func (s *DefaultStrategy) Adapt(ctx context.Context, spec *model.InterfaceSpecification, cut model.ClassUnderTest, limit int) ([]AdaptedImplementation, error) {
	if cut.Project == nil || cut.Project.Container() == nil {
		return nil, failure.New(failure.KindResource, cut.Key(), "project has no container", model.ErrNoContainer)
	}

	container := cut.Project.Container()

	cls, err := typesys.Resolve(ctx, container, cut.ClassName)
	if err != nil {
		slog.Error("failed to load class", "cut", cut.Key(), "error", err)

		return nil, failure.New(failure.KindResource, cut.Key(), "load class", err)
	}

	if err := CheckClass(cls, false); err != nil && !errors.Is(err, ErrAbstractClass) {
		return nil, failure.New(failure.KindFatalSpecification, cut.Key(), "check class", err)
	}

	methodLists := make([][]*Candidate, spec.NoOfMethods())
	resolved := 0

	for i, sig := range spec.Methods() {
		req := s.request(ctx, spec, cut, cls, container, sig, false)

		res, err := s.Resolver.Resolve(ctx, req)
		if err != nil {
			return nil, failure.New(failure.KindFatalSpecification, cut.Key(), "resolve "+sig.String(), err)
		}

		methodLists[i] = res.Candidates
		if len(res.Candidates) > 0 {
			resolved++
		}
	}

	if spec.NoOfMethods() > 0 && resolved == 0 {
		return nil, failure.New(failure.KindFatalSpecification, cut.Key(), spec.Name(), ErrUnresolvable)
	}

	ctorLists := make([][]*Candidate, spec.NoOfConstructors())

	for i, sig := range spec.Constructors() {
		candidates, err := s.initializers(ctx, spec, cut, cls, container, sig)
		if err != nil {
			return nil, failure.New(failure.KindFatalSpecification, cut.Key(), "resolve "+sig.String(), err)
		}

		ctorLists[i] = candidates
	}

	perms := s.Combination.Combine(methodLists, ctorLists, limit)

	impls := make([]AdaptedImplementation, len(perms))
	for i, p := range perms {
		impls[i] = NewPermutatorAdaptedImplementation(cut, cls, p, i)
	}

	slog.Debug("adapted class", "cut", cut.Key(), "resolved", resolved, "methods", spec.NoOfMethods(), "adapters", len(impls))

	return impls, nil
}

// initializers applies the fallback tiers: the exact signature, then the
// default constructor, then a static-init stand-in for utility classes.
func (s *DefaultStrategy) initializers(ctx context.Context, spec *model.InterfaceSpecification, cut model.ClassUnderTest, cls *typesys.Class, container typesys.Container, sig model.MethodSignature) ([]*Candidate, error) {
	req := s.request(ctx, spec, cut, cls, container, sig, true)

	res, err := s.Resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates := res.Candidates

	hasMember := false

	for _, c := range candidates {
		if c.Kind == KindMember {
			hasMember = true
			break
		}
	}

	if !hasMember && len(sig.Params) > 0 {
		for _, ctor := range cls.Constructors {
			if len(ctor.Params) > 0 {
				continue
			}

			positions := make([]int, len(sig.Params))
			for i := range positions {
				positions[i] = Dropped
			}

			fallback := &Candidate{Kind: KindMember, Owner: cls, Member: ctor, Positions: positions}
			s.Resolver.score(req, fallback)
			candidates = append(candidates, fallback)
		}
	}

	if cls.OnlyStatic() {
		positions := make([]int, len(sig.Params))
		for i := range positions {
			positions[i] = Dropped
		}

		candidates = append(candidates, &Candidate{Kind: KindStaticInit, Owner: cls, Positions: positions})
	}

	return candidates, nil
}

// request resolves the desired type names. Names of the desired interface
// itself stand for the CUT; unknown names become opaque classes that only
// match themselves.
func (s *DefaultStrategy) request(ctx context.Context, spec *model.InterfaceSpecification, cut model.ClassUnderTest, cls *typesys.Class, container typesys.Container, sig model.MethodSignature, constructor bool) Request {
	resolve := func(name string) *typesys.Class {
		if typesys.NormalizeName(name) == spec.Name() {
			return cls
		}

		resolved, err := typesys.Resolve(ctx, container, name)
		if err != nil {
			return &typesys.Class{Name: typesys.NormalizeName(name), Kind: typesys.KindClass}
		}

		return resolved
	}

	params := make([]*typesys.Class, len(sig.Params))
	for i, name := range sig.Params {
		params[i] = resolve(name)
	}

	ret := typesys.Void
	if !constructor {
		ret = resolve(sig.Return)
	}

	return Request{
		CUT:         cut,
		Class:       cls,
		Name:        sig.Name,
		Params:      params,
		Return:      ret,
		Constructor: constructor,
	}
}

// Originals returns the identity adapter of a CUT.
func Originals(ctx context.Context, cut model.ClassUnderTest) ([]AdaptedImplementation, error) {
	if cut.Project == nil || cut.Project.Container() == nil {
		return nil, failure.New(failure.KindResource, cut.Key(), "project has no container", model.ErrNoContainer)
	}

	cls, err := typesys.Resolve(ctx, cut.Project.Container(), cut.ClassName)
	if err != nil {
		return nil, failure.New(failure.KindResource, cut.Key(), "load class", err)
	}

	if err := CheckClass(cls, true); err != nil {
		return nil, failure.New(failure.KindFatalSpecification, cut.Key(), "check class", fmt.Errorf("original: %w", err))
	}

	return []AdaptedImplementation{NewOriginalImplementation(cut, cls)}, nil
}
