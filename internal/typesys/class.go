// Package typesys models the reflective view a realm exposes of candidate
// classes: classes, their constructors, methods and static fields, and the
// structural assignability rules the adaptation engine matches against.
package typesys

import (
	"context"
	"reflect"
	"strings"
)

// Kind classifies a Class.
type Kind int

const (
	// KindVoid is the absence of a value (methods without results).
	KindVoid Kind = iota
	// KindPrimitive covers numeric, bool and string types.
	KindPrimitive
	// KindBoxed is a pointer to a primitive, the wrapper form of a primitive.
	KindBoxed
	// KindClass is a concrete (or abstract) named type with members.
	KindClass
	// KindInterface is a named set of methods.
	KindInterface
	// KindArray is a slice of Elem.
	KindArray
	// KindAny accepts every value.
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindPrimitive:
		return "primitive"
	case KindBoxed:
		return "boxed"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindArray:
		return "array"
	case KindAny:
		return "any"
	default:
		return "unknown"
	}
}

// Visibility is the access level of a member.
type Visibility int

const (
	// Public members are callable from anywhere.
	Public Visibility = iota
	// Package members are callable from inside the declaring package.
	Package
	// Private members are never inherited.
	Private
)

// Invoker calls a member. recv is nil for constructors and static members.
type Invoker func(ctx context.Context, recv any, args []any) (any, error)

// Class is one type known to a realm.
type Class struct {
	Name         string
	Kind         Kind
	Abstract     bool
	Super        *Class
	Interfaces   []*Class
	Elem         *Class
	Constructors []*Member
	Methods      []*Member
	Fields       []*Field
	// GoType is the runtime representation, when the realm knows it.
	GoType reflect.Type
}

// Member is a constructor or method of a Class.
type Member struct {
	Name        string
	Owner       *Class
	Params      []*Class
	Return      *Class
	Static      bool
	Constructor bool
	Visibility  Visibility
	Abstract    bool
	// Index is the declaration order inside the owner.
	Index  int
	Invoke Invoker
}

// Field is a static instance source of a class.
type Field struct {
	Name       string
	Owner      *Class
	Type       *Class
	Static     bool
	Visibility Visibility
	Get        func(ctx context.Context) (any, error)
}

func (c *Class) String() string {
	if c == nil {
		return "void"
	}

	return c.Name
}

// SimpleName strips the package qualifier.
func (c *Class) SimpleName() string {
	if c == nil {
		return ""
	}

	if i := strings.LastIndex(c.Name, "."); i >= 0 {
		return c.Name[i+1:]
	}

	return c.Name
}

// IsInterface reports whether c is an interface type.
func (c *Class) IsInterface() bool {
	return c != nil && c.Kind == KindInterface
}

// IsVoid reports whether c denotes no value.
func (c *Class) IsVoid() bool {
	return c == nil || c.Kind == KindVoid
}

// OnlyStatic reports whether the class cannot be instantiated and only
// offers static methods (a utility class).
func (c *Class) OnlyStatic() bool {
	if c == nil || len(c.Constructors) > 0 || len(c.Methods) == 0 {
		return false
	}

	for _, method := range c.Methods {
		if !method.Static {
			return false
		}
	}

	return true
}

// AllMethods returns the declared methods followed by every non-private
// method inherited along the Super chain that is not overridden by a
// subclass.
func (c *Class) AllMethods() []*Member {
	if c == nil {
		return nil
	}

	methods := make([]*Member, 0, len(c.Methods))
	seen := map[string]bool{}
	visited := map[*Class]bool{}

	for cls := c; cls != nil && !visited[cls]; cls = cls.Super {
		visited[cls] = true

		for _, method := range cls.Methods {
			if cls != c && method.Visibility == Private {
				continue
			}

			key := method.overrideKey()
			if seen[key] {
				continue
			}

			seen[key] = true
			methods = append(methods, method)
		}
	}

	return methods
}

// Field returns the field with the given name.
func (c *Class) Field(name string) *Field {
	if c == nil {
		return nil
	}

	for _, field := range c.Fields {
		if field.Name == name {
			return field
		}
	}

	return nil
}

// ParamNames renders the parameter type names.
func (m *Member) ParamNames() []string {
	names := make([]string, len(m.Params))
	for i, param := range m.Params {
		names[i] = param.String()
	}

	return names
}

// Key is a stable descriptor of the member, unique within a realm.
func (m *Member) Key() string {
	owner := ""
	if m.Owner != nil {
		owner = m.Owner.Name
	}

	name := m.Name
	if m.Constructor {
		name = "<init>" + m.Name
	}

	return owner + "#" + name + "(" + strings.Join(m.ParamNames(), ",") + ")" + m.Return.String()
}

func (m *Member) String() string {
	return m.Key()
}

func (m *Member) overrideKey() string {
	return m.Name + "(" + strings.Join(m.ParamNames(), ",") + ")"
}
