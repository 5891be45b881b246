package adaptation

import (
	"fmt"
	"strings"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/typesys"
)

// OriginalFingerprint is the fingerprint of identity adapters.
const OriginalFingerprint = "original"

// AdaptedImplementation is the uniform call surface of one CUT under one
// adaptation choice.
type AdaptedImplementation interface {
	CUT() model.ClassUnderTest
	Class() *typesys.Class
	AdapterID() int
	Fingerprint() string
	// Initializer returns the top-ranked candidate for desired constructor i.
	Initializer(spec *model.InterfaceSpecification, i int) (*Candidate, error)
	// Method returns the candidate bound to desired method i.
	Method(spec *model.InterfaceSpecification, i int) (*Candidate, error)
	NoOfMethods() int
	// Permutation is nil for original implementations.
	Permutation() *ClassPermutation
	Describe() []string
}

// PermutatorAdaptedImplementation wraps one ClassPermutation.
type PermutatorAdaptedImplementation struct {
	cut         model.ClassUnderTest
	class       *typesys.Class
	permutation *ClassPermutation
	id          int
}

// NewPermutatorAdaptedImplementation binds a permutation to a CUT.
func NewPermutatorAdaptedImplementation(cut model.ClassUnderTest, cls *typesys.Class, p *ClassPermutation, id int) *PermutatorAdaptedImplementation {
	return &PermutatorAdaptedImplementation{cut: cut, class: cls, permutation: p, id: id}
}

// CUT implements AdaptedImplementation.
func (a *PermutatorAdaptedImplementation) CUT() model.ClassUnderTest { return a.cut }

// Class implements AdaptedImplementation.
func (a *PermutatorAdaptedImplementation) Class() *typesys.Class { return a.class }

// AdapterID implements AdaptedImplementation.
func (a *PermutatorAdaptedImplementation) AdapterID() int { return a.id }

// Fingerprint implements AdaptedImplementation.
func (a *PermutatorAdaptedImplementation) Fingerprint() string { return a.permutation.Fingerprint() }

// Permutation implements AdaptedImplementation.
func (a *PermutatorAdaptedImplementation) Permutation() *ClassPermutation { return a.permutation }

// NoOfMethods implements AdaptedImplementation.
func (a *PermutatorAdaptedImplementation) NoOfMethods() int { return len(a.permutation.Methods) }

// Describe implements AdaptedImplementation.
func (a *PermutatorAdaptedImplementation) Describe() []string { return a.permutation.Describe() }

// Initializer implements AdaptedImplementation.
func (a *PermutatorAdaptedImplementation) Initializer(spec *model.InterfaceSpecification, i int) (*Candidate, error) {
	if spec != nil && spec.NoOfConstructors() != len(a.permutation.Constructors) {
		return nil, fmt.Errorf("%w: specification %s has %d constructors, adapter has %d",
			ErrNoSuchMember, spec.Name(), spec.NoOfConstructors(), len(a.permutation.Constructors))
	}

	if i < 0 || i >= len(a.permutation.Constructors) || len(a.permutation.Constructors[i]) == 0 {
		return nil, fmt.Errorf("%w: constructor %d of %s", ErrNoSuchMember, i, a.cut.Key())
	}

	return a.permutation.Constructors[i][0], nil
}

// Method implements AdaptedImplementation.
func (a *PermutatorAdaptedImplementation) Method(spec *model.InterfaceSpecification, i int) (*Candidate, error) {
	if spec != nil && spec.NoOfMethods() != len(a.permutation.Methods) {
		return nil, fmt.Errorf("%w: specification %s has %d methods, adapter has %d",
			ErrNoSuchMember, spec.Name(), spec.NoOfMethods(), len(a.permutation.Methods))
	}

	if i < 0 || i >= len(a.permutation.Methods) || a.permutation.Methods[i] == nil {
		return nil, fmt.Errorf("%w: method %d of %s", ErrNoSuchMember, i, a.cut.Key())
	}

	return a.permutation.Methods[i], nil
}

// OriginalImplementation is the identity adapter: desired members are
// looked up by exact signature.
type OriginalImplementation struct {
	cut   model.ClassUnderTest
	class *typesys.Class
}

// NewOriginalImplementation creates the identity adapter of a CUT.
func NewOriginalImplementation(cut model.ClassUnderTest, cls *typesys.Class) *OriginalImplementation {
	return &OriginalImplementation{cut: cut, class: cls}
}

// CUT implements AdaptedImplementation.
func (o *OriginalImplementation) CUT() model.ClassUnderTest { return o.cut }

// Class implements AdaptedImplementation.
func (o *OriginalImplementation) Class() *typesys.Class { return o.class }

// AdapterID implements AdaptedImplementation.
func (o *OriginalImplementation) AdapterID() int { return 0 }

// Fingerprint implements AdaptedImplementation.
func (o *OriginalImplementation) Fingerprint() string { return OriginalFingerprint }

// Permutation implements AdaptedImplementation.
func (o *OriginalImplementation) Permutation() *ClassPermutation { return nil }

// NoOfMethods implements AdaptedImplementation.
func (o *OriginalImplementation) NoOfMethods() int { return len(o.class.AllMethods()) }

// Describe implements AdaptedImplementation.
func (o *OriginalImplementation) Describe() []string { return []string{"original " + o.class.Name} }

// Initializer implements AdaptedImplementation.
func (o *OriginalImplementation) Initializer(spec *model.InterfaceSpecification, i int) (*Candidate, error) {
	sig, ok := spec.Constructor(i)
	if !ok {
		return nil, fmt.Errorf("%w: constructor %d of %s", ErrNoSuchMember, i, o.cut.Key())
	}

	for _, ctor := range o.class.Constructors {
		if sameParams(ctor, sig.Params) {
			return o.candidate(ctor), nil
		}
	}

	if o.class.OnlyStatic() && len(sig.Params) == 0 {
		return &Candidate{Kind: KindStaticInit, Owner: o.class, Positions: []int{}}, nil
	}

	return nil, fmt.Errorf("%w: %s has no constructor %s", ErrNoSuchMember, o.class.Name, sig)
}

// Method implements AdaptedImplementation.
func (o *OriginalImplementation) Method(spec *model.InterfaceSpecification, i int) (*Candidate, error) {
	sig, ok := spec.Method(i)
	if !ok {
		return nil, fmt.Errorf("%w: method %d of %s", ErrNoSuchMember, i, o.cut.Key())
	}

	for _, method := range o.class.AllMethods() {
		if strings.EqualFold(method.Name, sig.Name) && sameParams(method, sig.Params) {
			return o.candidate(method), nil
		}
	}

	return nil, fmt.Errorf("%w: %s has no method %s", ErrNoSuchMember, o.class.Name, sig)
}

func (o *OriginalImplementation) candidate(member *typesys.Member) *Candidate {
	return &Candidate{
		Kind:      KindMember,
		Owner:     o.class,
		Member:    member,
		Positions: identity(len(member.Params)),
	}
}

func sameParams(member *typesys.Member, params []string) bool {
	if len(member.Params) != len(params) {
		return false
	}

	for i, param := range member.Params {
		if param.Name != typesys.NormalizeName(params[i]) {
			return false
		}
	}

	return true
}
