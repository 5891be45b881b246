package typesys

import (
	"reflect"
	"strings"
)

// Builtin classes shared by every realm. They are never mutated.
var (
	Void    = &Class{Name: "void", Kind: KindVoid}
	Any     = &Class{Name: "any", Kind: KindAny, GoType: reflect.TypeOf((*any)(nil)).Elem()}
	Bool    = primitive("bool", reflect.TypeOf(false))
	Int8    = primitive("int8", reflect.TypeOf(int8(0)))
	Uint8   = primitive("uint8", reflect.TypeOf(uint8(0)))
	Int16   = primitive("int16", reflect.TypeOf(int16(0)))
	Int32   = primitive("int32", reflect.TypeOf(int32(0)))
	Int     = primitive("int", reflect.TypeOf(0))
	Int64   = primitive("int64", reflect.TypeOf(int64(0)))
	Float32 = primitive("float32", reflect.TypeOf(float32(0)))
	Float64 = primitive("float64", reflect.TypeOf(float64(0)))
	String  = primitive("string", reflect.TypeOf(""))
	// Error is the Go error interface; realms map error results onto it.
	Error = &Class{Name: "error", Kind: KindInterface, GoType: reflect.TypeOf((*error)(nil)).Elem()}
)

var primitives = map[string]*Class{}

// aliases maps accepted spellings (Go and Java style) onto builtin names.
var aliases = map[string]string{
	"interface{}":          "any",
	"Object":               "any",
	"java.lang.Object":     "any",
	"boolean":              "bool",
	"byte":                 "uint8",
	"char":                 "int32",
	"rune":                 "int32",
	"short":                "int16",
	"long":                 "int64",
	"float":                "float32",
	"double":               "float64",
	"String":               "string",
	"java.lang.String":     "string",
	"Boolean":              "*bool",
	"java.lang.Boolean":    "*bool",
	"Byte":                 "*uint8",
	"java.lang.Byte":       "*uint8",
	"Character":            "*int32",
	"java.lang.Character":  "*int32",
	"Short":                "*int16",
	"java.lang.Short":      "*int16",
	"Integer":              "*int",
	"java.lang.Integer":    "*int",
	"Long":                 "*int64",
	"java.lang.Long":       "*int64",
	"Float":                "*float32",
	"java.lang.Float":      "*float32",
	"Double":               "*float64",
	"java.lang.Double":     "*float64",
	"Void":                 "void",
	"java.lang.Void":       "void",
	"java.lang.Throwable":  "error",
	"java.lang.Exception":  "error",
	"java.lang.Comparable": "any",
}

func init() {
	for _, cls := range []*Class{Bool, Int8, Uint8, Int16, Int32, Int, Int64, Float32, Float64, String} {
		primitives[cls.Name] = cls
	}
}

func primitive(name string, goType reflect.Type) *Class {
	return &Class{Name: name, Kind: KindPrimitive, GoType: goType}
}

// NormalizeName rewrites a type name into its canonical form: Java array
// suffixes become slice prefixes and aliases are replaced.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "void"
	}

	dims := 0
	for strings.HasSuffix(name, "[]") {
		name = strings.TrimSpace(strings.TrimSuffix(name, "[]"))
		dims++
	}

	for strings.HasPrefix(name, "[]") {
		name = strings.TrimPrefix(name, "[]")
		dims++
	}

	if alias, ok := aliases[name]; ok {
		name = alias
	} else if strings.HasPrefix(name, "*") {
		inner := NormalizeName(name[1:])
		name = "*" + inner
	}

	return strings.Repeat("[]", dims) + name
}

// Builtin resolves a canonical name against the builtin universe. Arrays of
// builtins and boxed primitives are built on demand.
func Builtin(name string) (*Class, bool) {
	name = NormalizeName(name)

	switch name {
	case "void":
		return Void, true
	case "any":
		return Any, true
	case "error":
		return Error, true
	}

	if cls, ok := primitives[name]; ok {
		return cls, true
	}

	if strings.HasPrefix(name, "[]") {
		elem, ok := Builtin(name[2:])
		if !ok {
			return nil, false
		}

		return ArrayOf(elem), true
	}

	if strings.HasPrefix(name, "*") {
		elem, ok := primitives[name[1:]]
		if !ok {
			return nil, false
		}

		return BoxOf(elem), true
	}

	return nil, false
}

// ArrayOf returns the array class with the given element class.
func ArrayOf(elem *Class) *Class {
	cls := &Class{Name: "[]" + elem.Name, Kind: KindArray, Elem: elem}

	if elem.GoType != nil {
		cls.GoType = reflect.SliceOf(elem.GoType)
	} else {
		cls.GoType = reflect.TypeOf([]any(nil))
	}

	return cls
}

// BoxOf returns the boxed (pointer) class of a primitive.
func BoxOf(elem *Class) *Class {
	cls := &Class{Name: "*" + elem.Name, Kind: KindBoxed, Elem: elem}
	if elem.GoType != nil {
		cls.GoType = reflect.PointerTo(elem.GoType)
	}

	return cls
}

// IsNumeric reports whether the primitive class is a number.
func IsNumeric(c *Class) bool {
	if c == nil || c.Kind != KindPrimitive {
		return false
	}

	return c.Name != "bool" && c.Name != "string"
}
