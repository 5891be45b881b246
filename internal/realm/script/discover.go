package script

import (
	"go/types"
	"log/slog"
	"reflect"
	"strings"

	"lasso.dev/pkg/lasso/internal/typesys"
)

// callKind tells the code generator how a wrapper reaches its target.
type callKind int

const (
	callMethod callKind = iota
	callFunc
	callZero
	callField
)

// wrapper describes one generated entry point.
type wrapper struct {
	kind   callKind
	target string // method, function, type or variable name
	owner  string // receiver type name for methods
	params []param
	// results: 0 none, 1 value, 2 value and error; errorOnly is a lone error.
	results   int
	errorOnly bool
	variadic  bool
	pointer   bool // field variables of pointer type
	member    *typesys.Member
	field     *typesys.Field
}

type paramMode int

const (
	paramPlain paramMode = iota
	paramAny
	paramLocalValue
	paramLocalPointer
	paramLocalInterface
)

type param struct {
	mode paramMode
	// expr is the Go type expression valid inside the merged source.
	expr string
}

// localType is a named type declared by the project.
type localType struct {
	name  string
	named *types.Named
	class *typesys.Class
}

type discovery struct {
	pkg       *types.Package
	aliases   map[string]string
	locals    []*localType
	byName    map[string]*localType
	external  map[string]*typesys.Class
	wrappers  []*wrapper
	pseudo    *typesys.Class
	unsupport int
}

var uintTypes = map[types.BasicKind]reflect.Type{
	types.Uint:    reflect.TypeOf(uint(0)),
	types.Uint16:  reflect.TypeOf(uint16(0)),
	types.Uint32:  reflect.TypeOf(uint32(0)),
	types.Uint64:  reflect.TypeOf(uint64(0)),
	types.Uintptr: reflect.TypeOf(uintptr(0)),
}

// discover derives the classes of pkg. aliases maps import paths to the
// names they are imported under.
func discover(pkg *types.Package, aliases map[string]string) *discovery {
	d := &discovery{
		pkg:      pkg,
		aliases:  aliases,
		byName:   make(map[string]*localType),
		external: make(map[string]*typesys.Class),
	}

	scope := pkg.Scope()

	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}

		named, ok := tn.Type().(*types.Named)
		if !ok || named.TypeParams().Len() > 0 {
			continue
		}

		cls := &typesys.Class{Name: name, Kind: typesys.KindClass}
		if types.IsInterface(named) {
			cls.Kind = typesys.KindInterface
			cls.Abstract = true
		}

		lt := &localType{name: name, named: named, class: cls}
		d.locals = append(d.locals, lt)
		d.byName[name] = lt
	}

	for _, lt := range d.locals {
		if lt.class.Kind == typesys.KindInterface {
			d.interfaceMethods(lt)
		} else {
			d.methods(lt)
		}
	}

	d.functions()
	d.fields()
	d.implicitConstructors()
	d.implements()

	return d
}

func (d *discovery) qualifier(p *types.Package) string {
	if p == d.pkg {
		return ""
	}

	if alias, ok := d.aliases[p.Path()]; ok {
		return alias
	}

	return p.Name()
}

// local returns the project type behind t (or *t) and whether t is a pointer.
func (d *discovery) local(t types.Type) (*localType, bool) {
	t = types.Unalias(t)

	ptr := false
	if p, ok := t.(*types.Pointer); ok {
		t = types.Unalias(p.Elem())
		ptr = true
	}

	named, ok := t.(*types.Named)
	if !ok || named.Obj().Pkg() != d.pkg {
		return nil, false
	}

	lt := d.byName[named.Obj().Name()]
	if lt == nil || lt.named != named {
		return nil, false
	}

	return lt, ptr
}

// classOf maps a Go type onto a class; ok is false for types the wrappers
// cannot carry.
func (d *discovery) classOf(t types.Type) (*typesys.Class, bool) {
	if lt, _ := d.local(t); lt != nil {
		return lt.class, true
	}

	switch tt := types.Unalias(t).(type) {
	case *types.Basic:
		return d.basic(tt)
	case *types.Pointer:
		if b, ok := types.Unalias(tt.Elem()).(*types.Basic); ok {
			prim, ok := d.basic(b)
			if !ok || prim.Kind != typesys.KindPrimitive {
				return nil, false
			}

			return typesys.BoxOf(prim), true
		}
	case *types.Slice:
		if lt, _ := d.local(tt.Elem()); lt != nil {
			return nil, false
		}

		elem, ok := d.classOf(tt.Elem())
		if !ok || elem.GoType == nil {
			return nil, false
		}

		return typesys.ArrayOf(elem), true
	case *types.Interface:
		if tt.Empty() {
			return typesys.Any, true
		}

		return nil, false
	case *types.Named:
		if tt.Obj().Pkg() == nil && tt.Obj().Name() == "error" {
			return typesys.Error, true
		}

		if tt.TypeArgs().Len() > 0 {
			return nil, false
		}

		return d.opaque(types.TypeString(tt, d.qualifier)), true
	}

	return nil, false
}

func (d *discovery) basic(b *types.Basic) (*typesys.Class, bool) {
	if cls, ok := typesys.Builtin(b.Name()); ok {
		return cls, true
	}

	if rt, ok := uintTypes[b.Kind()]; ok {
		cls, seen := d.external[b.Name()]
		if !seen {
			cls = &typesys.Class{Name: b.Name(), Kind: typesys.KindPrimitive, GoType: rt}
			d.external[b.Name()] = cls
		}

		return cls, true
	}

	return nil, false
}

// opaque returns the placeholder of a type from another package.
func (d *discovery) opaque(name string) *typesys.Class {
	cls, ok := d.external[name]
	if !ok {
		cls = &typesys.Class{Name: name, Kind: typesys.KindClass}
		d.external[name] = cls
	}

	return cls
}

func (d *discovery) param(t types.Type) (param, *typesys.Class, bool) {
	cls, ok := d.classOf(t)
	if !ok {
		return param{}, nil, false
	}

	expr := types.TypeString(t, d.qualifier)

	if lt, ptr := d.local(t); lt != nil {
		switch {
		case lt.class.Kind == typesys.KindInterface && !ptr:
			return param{mode: paramLocalInterface, expr: expr}, cls, true
		case lt.class.Kind == typesys.KindInterface:
			return param{}, nil, false
		case ptr:
			return param{mode: paramLocalPointer, expr: lt.name}, cls, true
		default:
			return param{mode: paramLocalValue, expr: lt.name}, cls, true
		}
	}

	if cls == typesys.Any {
		return param{mode: paramAny, expr: "interface{}"}, cls, true
	}

	if !d.expressible(t) {
		return param{}, nil, false
	}

	return param{mode: paramPlain, expr: expr}, cls, true
}

// expressible reports whether every package t mentions is visible in the
// merged source.
func (d *discovery) expressible(t types.Type) bool {
	switch tt := types.Unalias(t).(type) {
	case *types.Named:
		pkg := tt.Obj().Pkg()
		if pkg == nil || pkg == d.pkg {
			return true
		}

		_, ok := d.aliases[pkg.Path()]

		return ok
	case *types.Pointer:
		return d.expressible(tt.Elem())
	case *types.Slice:
		return d.expressible(tt.Elem())
	default:
		return true
	}
}

// signature fills a member and its wrapper from sig. It reports false when
// a parameter or result cannot cross the interpreter boundary.
func (d *discovery) signature(member *typesys.Member, w *wrapper, sig *types.Signature) bool {
	if sig.TypeParams().Len() > 0 || sig.RecvTypeParams().Len() > 0 {
		return false
	}

	for i := range sig.Params().Len() {
		p, cls, ok := d.param(sig.Params().At(i).Type())
		if !ok {
			return false
		}

		w.params = append(w.params, p)
		member.Params = append(member.Params, cls)
	}

	w.variadic = sig.Variadic()
	member.Return = typesys.Void

	results := sig.Results()

	switch {
	case results.Len() == 0:
	case results.Len() == 1 && isError(results.At(0).Type()):
		w.errorOnly = true
	case results.Len() == 1:
		ret, ok := d.classOf(results.At(0).Type())
		if !ok {
			return false
		}

		member.Return = ret
		w.results = 1
	case results.Len() == 2 && isError(results.At(1).Type()):
		ret, ok := d.classOf(results.At(0).Type())
		if !ok {
			return false
		}

		member.Return = ret
		w.results = 2
	default:
		return false
	}

	return true
}

func isError(t types.Type) bool {
	named, ok := types.Unalias(t).(*types.Named)

	return ok && named.Obj().Pkg() == nil && named.Obj().Name() == "error"
}

func visibility(name string) typesys.Visibility {
	if name != "" && strings.ToUpper(name[:1]) == name[:1] {
		return typesys.Public
	}

	return typesys.Package
}

func (d *discovery) skip(what string) {
	d.unsupport++
	slog.Debug("skipping member the interpreter boundary cannot carry", "package", d.pkg.Path(), "member", what)
}

func (d *discovery) methods(lt *localType) {
	ms := types.NewMethodSet(types.NewPointer(lt.named))

	for i := range ms.Len() {
		fn, ok := ms.At(i).Obj().(*types.Func)
		if !ok {
			continue
		}

		member := &typesys.Member{
			Name:       fn.Name(),
			Owner:      lt.class,
			Visibility: visibility(fn.Name()),
			Index:      len(lt.class.Methods),
		}
		w := &wrapper{kind: callMethod, target: fn.Name(), owner: lt.name, member: member}

		if !d.signature(member, w, fn.Type().(*types.Signature)) {
			d.skip(lt.name + "." + fn.Name())

			continue
		}

		lt.class.Methods = append(lt.class.Methods, member)
		d.wrappers = append(d.wrappers, w)
	}
}

func (d *discovery) interfaceMethods(lt *localType) {
	iface := lt.named.Underlying().(*types.Interface)

	for i := range iface.NumMethods() {
		fn := iface.Method(i)

		member := &typesys.Member{
			Name:       fn.Name(),
			Owner:      lt.class,
			Visibility: visibility(fn.Name()),
			Abstract:   true,
			Index:      len(lt.class.Methods),
		}

		if !d.signature(member, &wrapper{}, fn.Type().(*types.Signature)) {
			d.skip(lt.name + "." + fn.Name())

			continue
		}

		lt.class.Methods = append(lt.class.Methods, member)
	}
}

// functions turns package functions into constructors (New* returning a
// project type), factories and static methods of the package pseudo-class.
func (d *discovery) functions() {
	scope := d.pkg.Scope()

	if _, taken := d.byName[d.pkg.Name()]; !taken {
		d.pseudo = &typesys.Class{Name: d.pkg.Name(), Kind: typesys.KindClass}
	}

	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok || name == "main" || name == "init" {
			continue
		}

		sig := fn.Type().(*types.Signature)

		var produced *localType

		if sig.Results().Len() > 0 {
			if lt, _ := d.local(sig.Results().At(0).Type()); lt != nil && lt.class.Kind != typesys.KindInterface {
				produced = lt
			}
		}

		if produced != nil {
			member := &typesys.Member{Name: name, Owner: produced.class, Visibility: visibility(name)}
			w := &wrapper{kind: callFunc, target: name, member: member}

			if d.signature(member, w, sig) && (w.results == 1 || w.results == 2) {
				if strings.HasPrefix(name, "New") {
					member.Name = produced.name
					member.Constructor = true
					member.Return = produced.class
					member.Index = len(produced.class.Constructors)
					produced.class.Constructors = append(produced.class.Constructors, member)
				} else {
					member.Static = true
					member.Index = len(produced.class.Methods)
					produced.class.Methods = append(produced.class.Methods, member)
				}

				d.wrappers = append(d.wrappers, w)
			}
		}

		if d.pseudo == nil {
			continue
		}

		member := &typesys.Member{Name: name, Owner: d.pseudo, Static: true, Visibility: visibility(name), Index: len(d.pseudo.Methods)}
		w := &wrapper{kind: callFunc, target: name, member: member}

		if !d.signature(member, w, sig) {
			d.skip(name)

			continue
		}

		d.pseudo.Methods = append(d.pseudo.Methods, member)
		d.wrappers = append(d.wrappers, w)
	}
}

// fields exposes package variables of project types as static fields.
func (d *discovery) fields() {
	scope := d.pkg.Scope()

	for _, name := range scope.Names() {
		v, ok := scope.Lookup(name).(*types.Var)
		if !ok {
			continue
		}

		lt, ptr := d.local(v.Type())
		if lt == nil || lt.class.Kind == typesys.KindInterface {
			continue
		}

		field := &typesys.Field{
			Name:       name,
			Owner:      lt.class,
			Type:       lt.class,
			Static:     true,
			Visibility: visibility(name),
		}

		lt.class.Fields = append(lt.class.Fields, field)
		d.wrappers = append(d.wrappers, &wrapper{kind: callField, target: name, pointer: ptr, results: 1, field: field})
	}
}

// implicitConstructors gives project types without a New* function the
// zero value constructor new(T).
func (d *discovery) implicitConstructors() {
	for _, lt := range d.locals {
		if lt.class.Kind == typesys.KindInterface || len(lt.class.Constructors) > 0 {
			continue
		}

		member := &typesys.Member{
			Name:        lt.name,
			Owner:       lt.class,
			Return:      lt.class,
			Constructor: true,
			Visibility:  visibility(lt.name),
		}

		lt.class.Constructors = append(lt.class.Constructors, member)
		d.wrappers = append(d.wrappers, &wrapper{kind: callZero, target: lt.name, results: 1, member: member})
	}
}

func (d *discovery) implements() {
	for _, lt := range d.locals {
		if lt.class.Kind == typesys.KindInterface {
			continue
		}

		for _, other := range d.locals {
			if other.class.Kind != typesys.KindInterface {
				continue
			}

			iface := other.named.Underlying().(*types.Interface)
			if iface.NumMethods() > 0 && types.Implements(types.NewPointer(lt.named), iface) {
				lt.class.Interfaces = append(lt.class.Interfaces, other.class)
			}
		}
	}
}

// classes returns every class the realm registers.
func (d *discovery) classes() []*typesys.Class {
	classes := make([]*typesys.Class, 0, len(d.locals)+1)
	for _, lt := range d.locals {
		classes = append(classes, lt.class)
	}

	if d.pseudo != nil && len(d.pseudo.Methods) > 0 {
		classes = append(classes, d.pseudo)
	}

	return classes
}
