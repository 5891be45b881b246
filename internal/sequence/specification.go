package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lasso.dev/pkg/lasso/internal/adaptation"
	"lasso.dev/pkg/lasso/internal/failure"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/typesys"
)

var (
	// ErrForwardReference is returned when a statement uses a later or its own position.
	ErrForwardReference = errors.New("statement references a later position")
	// ErrMissingMember is returned when the adapter has no member for a statement.
	ErrMissingMember = errors.New("adapter lacks a member required by the sequence")
	// ErrArityMismatch is returned when a call passes the wrong number of inputs.
	ErrArityMismatch = errors.New("call arity does not match the adapted member")
)

// Specification is an ordered list of statements, independent of any
// implementation.
type Specification struct {
	Name       string
	Statements []Statement
}

// Validate checks that every input points strictly backwards.
func (s *Specification) Validate() error {
	for i, stmt := range s.Statements {
		for _, in := range stmt.Inputs() {
			if in < 0 || in >= i {
				return fmt.Errorf("%w: statement %d (%s) uses $%d", ErrForwardReference, i, stmt, in)
			}
		}

		if set, ok := stmt.(*ArraySet); ok && set.Index < 0 {
			return fmt.Errorf("statement %d: negative array index %d", i, set.Index)
		}
	}

	return nil
}

// Interface derives the part of base the sequence actually calls. An empty
// result means the sequence does not exercise the CUT.
func (s *Specification) Interface(base *model.InterfaceSpecification) *model.InterfaceSpecification {
	ctors := map[int]bool{}
	methods := map[int]bool{}

	for _, stmt := range s.Statements {
		switch st := stmt.(type) {
		case *ConstructorCall:
			if i := constructorIndex(base, st); i >= 0 {
				ctors[i] = true
			}
		case *MethodCall:
			if st.External != "" {
				continue
			}

			if i := methodIndex(base, st); i >= 0 {
				methods[i] = true
			}
		}
	}

	var used, calls []model.MethodSignature

	for i, sig := range base.Constructors() {
		if ctors[i] {
			used = append(used, sig)
		}
	}

	for i, sig := range base.Methods() {
		if methods[i] {
			calls = append(calls, sig)
		}
	}

	return model.NewInterfaceSpecification(base.Name(), used, calls)
}

func constructorIndex(spec *model.InterfaceSpecification, call *ConstructorCall) int {
	if call.Constructor >= 0 {
		if call.Constructor < spec.NoOfConstructors() {
			return call.Constructor
		}

		return -1
	}

	for i, sig := range spec.Constructors() {
		if len(sig.Params) == len(call.Args) {
			return i
		}
	}

	return -1
}

func methodIndex(spec *model.InterfaceSpecification, call *MethodCall) int {
	if call.Method >= 0 {
		if call.Method < spec.NoOfMethods() {
			return call.Method
		}

		return -1
	}

	for i, sig := range spec.Methods() {
		if strings.EqualFold(sig.Name, call.Name) && len(sig.Params) == len(call.Args) {
			return i
		}
	}

	return -1
}

// Step is a statement bound to an adapter.
type Step struct {
	Statement Statement
	// Candidate is set for calls.
	Candidate *adaptation.Candidate
	// Class is the resolved type of values.
	Class *typesys.Class
}

// Sequence is a specification bound to one adapted implementation.
type Sequence struct {
	Spec  *Specification
	Impl  adaptation.AdaptedImplementation
	Steps []Step
}

// Instantiate binds every statement to the adapter. Errors are tagged
// KindInstantiation.
func (s *Specification) Instantiate(ctx context.Context, ispec *model.InterfaceSpecification, impl adaptation.AdaptedImplementation) (*Sequence, error) {
	seq, err := s.instantiate(ctx, ispec, impl)
	if err != nil {
		return nil, failure.New(failure.KindInstantiation, impl.CUT().Key(), s.Name, err)
	}

	return seq, nil
}

func (s *Specification) instantiate(ctx context.Context, ispec *model.InterfaceSpecification, impl adaptation.AdaptedImplementation) (*Sequence, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var container typesys.Container
	if project := impl.CUT().Project; project != nil {
		container = project.Container()
	}

	seq := &Sequence{Spec: s, Impl: impl, Steps: make([]Step, len(s.Statements))}

	for i, stmt := range s.Statements {
		step := Step{Statement: stmt}

		switch st := stmt.(type) {
		case *ConstructorCall:
			idx := constructorIndex(ispec, st)
			if idx < 0 {
				return nil, fmt.Errorf("%w: statement %d: no constructor with %d parameters", ErrMissingMember, i, len(st.Args))
			}

			c, err := impl.Initializer(ispec, idx)
			if err != nil {
				return nil, fmt.Errorf("%w: statement %d: %w", ErrMissingMember, i, err)
			}

			if len(c.Positions) != len(st.Args) {
				return nil, fmt.Errorf("%w: statement %d: %d inputs for %s", ErrArityMismatch, i, len(st.Args), c.Key())
			}

			step.Candidate = c
		case *MethodCall:
			c, err := bindMethod(ctx, ispec, impl, container, st)
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", i, err)
			}

			if len(c.Positions) != len(st.Args) {
				return nil, fmt.Errorf("%w: statement %d: %d inputs for %s", ErrArityMismatch, i, len(st.Args), c.Key())
			}

			if !c.Static() && st.Receiver < 0 {
				return nil, fmt.Errorf("%w: statement %d: %s needs a receiver", ErrMissingMember, i, c.Key())
			}

			step.Candidate = c
		case *Value:
			if st.Type != "" {
				cls, err := typesys.Resolve(ctx, container, st.Type)
				if err != nil {
					return nil, fmt.Errorf("statement %d: value type: %w", i, err)
				}

				step.Class = cls
			}
		case *ArraySet:
		default:
			return nil, fmt.Errorf("statement %d: unsupported statement %T", i, stmt)
		}

		seq.Steps[i] = step
	}

	return seq, nil
}

func bindMethod(ctx context.Context, ispec *model.InterfaceSpecification, impl adaptation.AdaptedImplementation, container typesys.Container, call *MethodCall) (*adaptation.Candidate, error) {
	if call.External != "" {
		return bindExternal(ctx, container, call)
	}

	idx := methodIndex(ispec, call)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no method %s with %d parameters", ErrMissingMember, call.Name, len(call.Args))
	}

	c, err := impl.Method(ispec, idx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingMember, err)
	}

	return c, nil
}

// bindExternal looks a static member up by class.Member in the CUT's
// container.
func bindExternal(ctx context.Context, container typesys.Container, call *MethodCall) (*adaptation.Candidate, error) {
	dot := strings.LastIndex(call.External, ".")
	if dot <= 0 {
		return nil, fmt.Errorf("%w: external %q is not class.Member", ErrMissingMember, call.External)
	}

	cls, err := typesys.Resolve(ctx, container, call.External[:dot])
	if err != nil {
		return nil, fmt.Errorf("%w: external %s: %w", ErrMissingMember, call.External, err)
	}

	name := call.External[dot+1:]

	for _, member := range cls.AllMethods() {
		if member.Static && member.Name == name && len(member.Params) == len(call.Args) {
			positions := make([]int, len(member.Params))
			for i := range positions {
				positions[i] = i
			}

			return &adaptation.Candidate{Kind: adaptation.KindMember, Owner: cls, Member: member, Positions: positions}, nil
		}
	}

	return nil, fmt.Errorf("%w: external %s", ErrMissingMember, call.External)
}
