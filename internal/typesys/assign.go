package typesys

// NotAssignable is the cost reported for incompatible types.
const NotAssignable = -1

// widening lists, per primitive, the primitives it widens to without loss
// of magnitude. int and int64 share the same width.
var widening = map[string]map[string]bool{
	"int8":    set("int16", "int32", "int", "int64", "float32", "float64"),
	"uint8":   set("int16", "int32", "int", "int64", "float32", "float64"),
	"int16":   set("int32", "int", "int64", "float32", "float64"),
	"int32":   set("int", "int64", "float32", "float64"),
	"int":     set("int64", "float32", "float64"),
	"int64":   set("int", "float32", "float64"),
	"float32": set("float64"),
}

func set(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = true
	}

	return out
}

// Assignable reports whether a value of src may be passed where dst is
// expected, following the coercion rules of Cost.
func Assignable(src, dst *Class) bool {
	return Cost(src, dst) != NotAssignable
}

// Cost returns how far src is from dst: 0 for identical types, 1 for a
// widening, boxing, hierarchy or structural step, 2 when dst is any, and
// NotAssignable otherwise. A void dst accepts everything; a void src is only
// assignable to void.
func Cost(src, dst *Class) int {
	if dst.IsVoid() {
		if src.IsVoid() {
			return 0
		}

		return 1
	}

	if src.IsVoid() {
		return NotAssignable
	}

	if src.Name == dst.Name {
		return 0
	}

	if dst.Kind == KindAny {
		return 2
	}

	switch {
	case src.Kind == KindPrimitive && dst.Kind == KindPrimitive:
		if widens(src, dst) {
			return 1
		}
	case src.Kind == KindPrimitive && dst.Kind == KindBoxed:
		if dst.Elem != nil && dst.Elem.Name == src.Name {
			return 1
		}
	case src.Kind == KindBoxed && dst.Kind == KindPrimitive:
		if src.Elem != nil && (src.Elem.Name == dst.Name || widens(src.Elem, dst)) {
			return 1
		}
	case src.Kind == KindArray && dst.Kind == KindArray:
		return arrayCost(src, dst)
	case isReference(src) && isReference(dst):
		if Subtype(src, dst) || Satisfies(src, dst) {
			return 1
		}
	}

	return NotAssignable
}

func widens(src, dst *Class) bool {
	return widening[src.Name][dst.Name]
}

func isReference(c *Class) bool {
	return c.Kind == KindClass || c.Kind == KindInterface
}

func arrayCost(src, dst *Class) int {
	if src.Elem == nil || dst.Elem == nil {
		return NotAssignable
	}

	if src.Elem.Kind == KindPrimitive || dst.Elem.Kind == KindPrimitive {
		if src.Elem.Name == dst.Elem.Name {
			return 0
		}

		return NotAssignable
	}

	cost := Cost(src.Elem, dst.Elem)
	if cost == 0 {
		return 0
	}

	if cost == NotAssignable {
		return NotAssignable
	}

	return 1
}

// Subtype reports whether dst is reachable from src through the Super chain
// or declared interfaces.
func Subtype(src, dst *Class) bool {
	return subtype(src, dst, map[*Class]bool{})
}

func subtype(src, dst *Class, visited map[*Class]bool) bool {
	if src == nil || visited[src] {
		return false
	}

	visited[src] = true

	if src.Name == dst.Name {
		return true
	}

	if subtype(src.Super, dst, visited) {
		return true
	}

	for _, iface := range src.Interfaces {
		if subtype(iface, dst, visited) {
			return true
		}
	}

	return false
}

// Satisfies reports whether src structurally implements the non-empty
// interface dst: every interface method exists on src with identical
// parameter and result types.
func Satisfies(src, dst *Class) bool {
	if !dst.IsInterface() {
		return false
	}

	required := dst.AllMethods()
	if len(required) == 0 {
		return false
	}

	available := src.AllMethods()

	for _, want := range required {
		if !hasIdentical(available, want) {
			return false
		}
	}

	return true
}

func hasIdentical(methods []*Member, want *Member) bool {
	for _, have := range methods {
		if have.Static || have.Name != want.Name || len(have.Params) != len(want.Params) {
			continue
		}

		if have.Return.String() != want.Return.String() {
			continue
		}

		identical := true

		for i := range have.Params {
			if have.Params[i].Name != want.Params[i].Name {
				identical = false
				break
			}
		}

		if identical {
			return true
		}
	}

	return false
}
