// Package model defines the data structures shared by the adaptation and
// execution pipeline.
package model

import (
	"slices"
	"strings"

	"lasso.dev/pkg/lasso/internal/typesys"
)

// ConstructorName marks constructor signatures that do not repeat the owner
// name.
const ConstructorName = "<init>"

// MethodSignature describes a callable. A specification-backed signature
// only carries type names; a reflection-backed one also points at the real
// member it was derived from.
type MethodSignature struct {
	Owner  string
	Name   string
	Params []string
	Return string
	Static bool
	// Member is set for reflection-backed signatures.
	Member *typesys.Member `yaml:"-"`
}

// SignatureOf builds the reflection-backed signature of a member.
func SignatureOf(member *typesys.Member) MethodSignature {
	owner := ""
	if member.Owner != nil {
		owner = member.Owner.Name
	}

	sig := MethodSignature{
		Owner:  owner,
		Name:   member.Name,
		Params: member.ParamNames(),
		Return: member.Return.String(),
		Static: member.Static,
		Member: member,
	}

	if member.Constructor {
		sig.Return = owner
	}

	return sig
}

// IsConstructor reports whether the signature names its owner, or is an
// explicit constructor.
func (s MethodSignature) IsConstructor() bool {
	if s.Name == ConstructorName {
		return true
	}

	owner := s.Owner
	if i := strings.LastIndex(owner, "."); i >= 0 {
		owner = owner[i+1:]
	}

	return owner != "" && s.Name == owner
}

// IsReflective reports whether the signature is bound to a real member.
func (s MethodSignature) IsReflective() bool {
	return s.Member != nil
}

// Equal compares signatures structurally. The bound member is ignored.
func (s MethodSignature) Equal(other MethodSignature) bool {
	return s.Owner == other.Owner &&
		s.Name == other.Name &&
		s.Return == other.Return &&
		s.Static == other.Static &&
		slices.Equal(s.Params, other.Params)
}

func (s MethodSignature) String() string {
	var b strings.Builder

	if s.Static {
		b.WriteString("static ")
	}

	b.WriteString(s.Name)
	b.WriteString("(")
	b.WriteString(strings.Join(s.Params, ","))
	b.WriteString(")")

	if !s.IsConstructor() && s.Return != "" && s.Return != "void" {
		b.WriteString("->")
		b.WriteString(s.Return)
	}

	return b.String()
}

func (s MethodSignature) clone() MethodSignature {
	s.Params = slices.Clone(s.Params)

	return s
}

// InterfaceSpecification is a named group of desired constructors and
// methods. It is immutable: accessors hand out copies.
type InterfaceSpecification struct {
	name         string
	constructors []MethodSignature
	methods      []MethodSignature
}

// NewInterfaceSpecification copies the given signatures into a new
// specification.
func NewInterfaceSpecification(name string, constructors, methods []MethodSignature) *InterfaceSpecification {
	spec := &InterfaceSpecification{
		name:         name,
		constructors: make([]MethodSignature, len(constructors)),
		methods:      make([]MethodSignature, len(methods)),
	}

	for i, sig := range constructors {
		spec.constructors[i] = sig.clone()
	}

	for i, sig := range methods {
		spec.methods[i] = sig.clone()
	}

	return spec
}

// Name returns the interface name.
func (s *InterfaceSpecification) Name() string {
	return s.name
}

// IsEmpty reports whether the specification references no member at all.
func (s *InterfaceSpecification) IsEmpty() bool {
	return s == nil || (len(s.constructors) == 0 && len(s.methods) == 0)
}

// NoOfConstructors returns the number of desired constructors.
func (s *InterfaceSpecification) NoOfConstructors() int {
	return len(s.constructors)
}

// NoOfMethods returns the number of desired methods.
func (s *InterfaceSpecification) NoOfMethods() int {
	return len(s.methods)
}

// Constructor returns the i-th desired constructor.
func (s *InterfaceSpecification) Constructor(i int) (MethodSignature, bool) {
	if i < 0 || i >= len(s.constructors) {
		return MethodSignature{}, false
	}

	return s.constructors[i].clone(), true
}

// Method returns the i-th desired method.
func (s *InterfaceSpecification) Method(i int) (MethodSignature, bool) {
	if i < 0 || i >= len(s.methods) {
		return MethodSignature{}, false
	}

	return s.methods[i].clone(), true
}

// Constructors returns a copy of the desired constructors.
func (s *InterfaceSpecification) Constructors() []MethodSignature {
	out := make([]MethodSignature, len(s.constructors))
	for i, sig := range s.constructors {
		out[i] = sig.clone()
	}

	return out
}

// Methods returns a copy of the desired methods.
func (s *InterfaceSpecification) Methods() []MethodSignature {
	out := make([]MethodSignature, len(s.methods))
	for i, sig := range s.methods {
		out[i] = sig.clone()
	}

	return out
}

// IndexOfConstructor returns the position of a structurally equal
// constructor, or -1.
func (s *InterfaceSpecification) IndexOfConstructor(sig MethodSignature) int {
	return indexOf(s.constructors, sig)
}

// IndexOfMethod returns the position of a structurally equal method, or -1.
func (s *InterfaceSpecification) IndexOfMethod(sig MethodSignature) int {
	return indexOf(s.methods, sig)
}

func indexOf(sigs []MethodSignature, sig MethodSignature) int {
	for i, candidate := range sigs {
		if candidate.Equal(sig) {
			return i
		}
	}

	return -1
}

// String renders the specification in query language form.
func (s *InterfaceSpecification) String() string {
	var b strings.Builder

	b.WriteString(s.name)
	b.WriteString(" {")

	for _, sig := range s.constructors {
		b.WriteString(" ")
		b.WriteString(sig.String())
	}

	for _, sig := range s.methods {
		b.WriteString(" ")
		b.WriteString(sig.String())
	}

	b.WriteString(" }")

	return b.String()
}
