// Package sequence models implementation-independent call sequences, binds
// them to adapted implementations and runs them.
package sequence

import (
	"fmt"
	"strings"
)

// Statement is one step of a sequence. Inputs are positions of earlier
// statements.
type Statement interface {
	Inputs() []int
	String() string
}

// ConstructorCall creates an instance through desired constructor
// Constructor. A negative Constructor picks the first one whose arity
// matches Inputs.
type ConstructorCall struct {
	Constructor int
	Args        []int
}

// Inputs implements Statement.
func (c *ConstructorCall) Inputs() []int { return c.Args }

func (c *ConstructorCall) String() string {
	return fmt.Sprintf("new#%d(%s)", c.Constructor, joinPositions(c.Args))
}

// MethodCall calls desired method Method on the instance produced by
// statement Receiver (-1 for static calls). When Method is negative the
// method is looked up by Name. External names a static member outside the
// desired interface, as class.Member.
type MethodCall struct {
	Method   int
	Name     string
	Receiver int
	Args     []int
	External string
	// Expected is compared with the result when set.
	Expected *Value
}

// Inputs implements Statement.
func (m *MethodCall) Inputs() []int {
	if m.Receiver >= 0 {
		return append([]int{m.Receiver}, m.Args...)
	}

	return m.Args
}

func (m *MethodCall) String() string {
	target := m.Name
	if m.External != "" {
		target = m.External
	} else if target == "" {
		target = fmt.Sprintf("m#%d", m.Method)
	}

	recv := "static"
	if m.Receiver >= 0 {
		recv = fmt.Sprintf("$%d", m.Receiver)
	}

	return fmt.Sprintf("%s.%s(%s)", recv, target, joinPositions(m.Args))
}

// Value is a literal. Array values with a Length and no Literal are
// allocated empty and filled by ArraySet statements.
type Value struct {
	Type    string `yaml:"type,omitempty"`
	Literal any    `yaml:"literal,omitempty"`
	Length  int    `yaml:"length,omitempty"`
}

// Inputs implements Statement.
func (v *Value) Inputs() []int { return nil }

func (v *Value) String() string {
	if v.Length > 0 && v.Literal == nil {
		return fmt.Sprintf("%s[%d]", strings.TrimPrefix(v.Type, "[]"), v.Length)
	}

	return fmt.Sprintf("%s(%v)", v.Type, v.Literal)
}

// ArraySet stores the value of statement Value at Index of the array made
// by statement Array.
type ArraySet struct {
	Array int
	Index int
	Value int
}

// Inputs implements Statement.
func (a *ArraySet) Inputs() []int { return []int{a.Array, a.Value} }

func (a *ArraySet) String() string {
	return fmt.Sprintf("$%d[%d] = $%d", a.Array, a.Index, a.Value)
}

func joinPositions(positions []int) string {
	parts := make([]string, len(positions))
	for i, pos := range positions {
		parts[i] = fmt.Sprintf("$%d", pos)
	}

	return strings.Join(parts, ", ")
}
