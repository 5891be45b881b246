// Package native exposes registered Go types to the adaptation engine
// through reflection.
package native

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"lasso.dev/pkg/lasso/internal/typesys"
)

var (
	// ErrNotFunc is returned when an option receives something that is not a function.
	ErrNotFunc = errors.New("not a function")
	// ErrBadResult is returned when a constructor or factory does not produce the class.
	ErrBadResult = errors.New("function does not return the class")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Realm is a container of Go types registered up front.
type Realm struct {
	*typesys.Registry

	mu     sync.Mutex
	byType map[reflect.Type]*typesys.Class
}

// Option configures a registered class.
type Option func(r *Realm, cls *typesys.Class) error

// New creates an empty realm.
func New(name string) *Realm {
	return &Realm{
		Registry: typesys.NewRegistry(name),
		byType:   map[reflect.Type]*typesys.Class{},
	}
}

// Register exposes the type of sample (a value or a pointer) as className.
// Methods come from the pointer method set; instances are always held as
// pointers.
func (r *Realm) Register(className string, sample any, opts ...Option) (*typesys.Class, error) {
	t := reflect.TypeOf(sample)
	if t == nil {
		return nil, fmt.Errorf("register %s: nil sample", className)
	}

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	pt := reflect.PointerTo(t)

	r.mu.Lock()

	cls := r.byType[t]
	if cls == nil {
		cls = r.byType[pt]
	}

	if cls == nil {
		cls = &typesys.Class{}
	}

	cls.Name = className
	cls.Kind = typesys.KindClass
	cls.GoType = pt
	cls.Methods = nil
	cls.Constructors = nil
	cls.Fields = nil
	r.byType[t] = cls
	r.byType[pt] = cls

	for i := range pt.NumMethod() {
		method := pt.Method(i)
		member := r.member(method.Name, cls, method.Type, 1)
		member.Index = i
		member.Invoke = invoker(method.Func, pt, r.normalizer())
		cls.Methods = append(cls.Methods, member)
	}

	r.mu.Unlock()

	if err := r.apply(cls, opts); err != nil {
		return nil, fmt.Errorf("register %s: %w", className, err)
	}

	r.Add(cls)

	return cls, nil
}

// Interface exposes an interface type. nilPtr is a nil pointer to it, for
// example (*io.Reader)(nil).
func (r *Realm) Interface(className string, nilPtr any) (*typesys.Class, error) {
	t := reflect.TypeOf(nilPtr)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
		return nil, fmt.Errorf("interface %s: expected a pointer to an interface", className)
	}

	t = t.Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	cls := r.byType[t]
	if cls == nil {
		cls = &typesys.Class{}
	}

	cls.Name = className
	cls.Kind = typesys.KindInterface
	cls.Abstract = true
	cls.GoType = t
	r.byType[t] = cls

	for i := range t.NumMethod() {
		method := t.Method(i)
		member := r.member(method.Name, cls, method.Type, 0)
		member.Index = i
		member.Abstract = true
		cls.Methods = append(cls.Methods, member)
	}

	r.Add(cls)

	return cls, nil
}

// Package registers a pseudo-class holding only static functions.
func (r *Realm) Package(className string, opts ...Option) (*typesys.Class, error) {
	cls := &typesys.Class{Name: className, Kind: typesys.KindClass}

	if err := r.apply(cls, opts); err != nil {
		return nil, fmt.Errorf("package %s: %w", className, err)
	}

	r.Add(cls)

	return cls, nil
}

func (r *Realm) apply(cls *typesys.Class, opts []Option) error {
	for _, opt := range opts {
		if err := opt(r, cls); err != nil {
			return err
		}
	}

	return nil
}

// Constructor adds fn as a constructor. fn must return the class, a
// pointer to it, or either plus an error.
func Constructor(fn any) Option {
	return func(r *Realm, cls *typesys.Class) error {
		fv, err := funcValue(fn)
		if err != nil {
			return err
		}

		if !r.returnsClass(fv.Type(), cls) {
			return fmt.Errorf("constructor %s: %w", fv.Type(), ErrBadResult)
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		member := r.member(cls.SimpleName(), cls, fv.Type(), 0)
		member.Constructor = true
		member.Return = cls
		member.Index = len(cls.Constructors)
		member.Invoke = invoker(fv, nil, r.normalizer())
		cls.Constructors = append(cls.Constructors, member)

		return nil
	}
}

// Factory adds a static method that produces instances of the class.
func Factory(name string, fn any) Option {
	return func(r *Realm, cls *typesys.Class) error {
		fv, err := funcValue(fn)
		if err != nil {
			return err
		}

		if !r.returnsClass(fv.Type(), cls) {
			return fmt.Errorf("factory %s: %w", name, ErrBadResult)
		}

		return Static(name, fn)(r, cls)
	}
}

// Static adds a static method.
func Static(name string, fn any) Option {
	return func(r *Realm, cls *typesys.Class) error {
		fv, err := funcValue(fn)
		if err != nil {
			return err
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		member := r.member(name, cls, fv.Type(), 0)
		member.Static = true
		member.Index = len(cls.Methods)
		member.Invoke = invoker(fv, nil, r.normalizer())
		cls.Methods = append(cls.Methods, member)

		return nil
	}
}

// StaticField exposes a package variable. ptr points at the variable; a
// variable holding a pointer yields that pointer, any other variable yields
// its address so every reader shares one instance.
func StaticField(name string, ptr any) Option {
	return func(r *Realm, cls *typesys.Class) error {
		pv := reflect.ValueOf(ptr)
		if pv.Kind() != reflect.Pointer || pv.IsNil() {
			return fmt.Errorf("static field %s: expected a non-nil pointer", name)
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		value := pv
		if pv.Elem().Kind() == reflect.Pointer {
			value = pv.Elem()
		}

		cls.Fields = append(cls.Fields, &typesys.Field{
			Name:   name,
			Owner:  cls,
			Type:   r.classFor(value.Type()),
			Static: true,
			Get: func(context.Context) (any, error) {
				if pv.Elem().Kind() == reflect.Pointer {
					return pv.Elem().Interface(), nil
				}

				return pv.Interface(), nil
			},
		})

		return nil
	}
}

func funcValue(fn any) (reflect.Value, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: %T", ErrNotFunc, fn)
	}

	return fv, nil
}

func (r *Realm) returnsClass(ft reflect.Type, cls *typesys.Class) bool {
	if cls.GoType == nil || ft.NumOut() == 0 || ft.NumOut() > 2 {
		return false
	}

	if ft.NumOut() == 2 && ft.Out(1) != errorType {
		return false
	}

	out := ft.Out(0)

	return out == cls.GoType || reflect.PointerTo(out) == cls.GoType
}

// member describes a function type; skip is 1 for method expressions whose
// first parameter is the receiver.
func (r *Realm) member(name string, owner *typesys.Class, ft reflect.Type, skip int) *typesys.Member {
	member := &typesys.Member{
		Name:       name,
		Owner:      owner,
		Return:     typesys.Void,
		Visibility: visibility(name),
	}

	for i := skip; i < ft.NumIn(); i++ {
		member.Params = append(member.Params, r.classFor(ft.In(i)))
	}

	if ft.NumOut() > 0 && ft.Out(0) != errorType {
		member.Return = r.classFor(ft.Out(0))
	}

	return member
}

func visibility(name string) typesys.Visibility {
	if name != "" && strings.ToUpper(name[:1]) == name[:1] {
		return typesys.Public
	}

	return typesys.Package
}

var builtinKinds = map[reflect.Kind]*typesys.Class{
	reflect.Bool:    typesys.Bool,
	reflect.Int8:    typesys.Int8,
	reflect.Uint8:   typesys.Uint8,
	reflect.Int16:   typesys.Int16,
	reflect.Int32:   typesys.Int32,
	reflect.Int:     typesys.Int,
	reflect.Int64:   typesys.Int64,
	reflect.Float32: typesys.Float32,
	reflect.Float64: typesys.Float64,
	reflect.String:  typesys.String,
}

// classFor maps a Go type to its class. Unregistered named types become
// opaque placeholders that a later Register fills in. Callers hold r.mu.
func (r *Realm) classFor(t reflect.Type) *typesys.Class {
	if t == errorType {
		return typesys.Error
	}

	if cls, ok := r.byType[t]; ok {
		return cls
	}

	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return typesys.Any
	}

	if cls, ok := builtinKinds[t.Kind()]; ok {
		return cls
	}

	switch t.Kind() {
	case reflect.Slice:
		cls := typesys.ArrayOf(r.classFor(t.Elem()))
		cls.GoType = t

		return cls
	case reflect.Pointer:
		if prim, ok := builtinKinds[t.Elem().Kind()]; ok {
			return typesys.BoxOf(prim)
		}

		if cls, ok := r.byType[t.Elem()]; ok {
			return cls
		}
	}

	kind := typesys.KindClass
	if t.Kind() == reflect.Interface {
		kind = typesys.KindInterface
	}

	cls := &typesys.Class{Name: t.String(), Kind: kind, GoType: t}
	r.byType[t] = cls

	return cls
}

// normalizer turns struct values of registered classes into pointers so
// that instances always carry the pointer method set.
func (r *Realm) normalizer() func(reflect.Value) reflect.Value {
	return func(v reflect.Value) reflect.Value {
		if v.Kind() != reflect.Struct {
			return v
		}

		r.mu.Lock()
		cls, ok := r.byType[v.Type()]
		r.mu.Unlock()

		if !ok || cls.GoType != reflect.PointerTo(v.Type()) {
			return v
		}

		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)

		return ptr
	}
}

func invoker(fn reflect.Value, recvType reflect.Type, normalize func(reflect.Value) reflect.Value) typesys.Invoker {
	ft := fn.Type()

	return func(ctx context.Context, recv any, args []any) (result any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				result = nil
				err = typesys.Recovered(rec)
			}
		}()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		in := make([]reflect.Value, 0, len(args)+1)

		if recvType != nil {
			if recv == nil {
				return nil, typesys.ErrNilReceiver
			}

			rv, err := typesys.CoerceValue(reflect.ValueOf(recv), recvType)
			if err != nil {
				return nil, fmt.Errorf("receiver: %w", err)
			}

			in = append(in, rv)
		}

		if len(in)+len(args) != ft.NumIn() {
			return nil, fmt.Errorf("%w: want %d, got %d", typesys.ErrArity, ft.NumIn()-len(in), len(args))
		}

		for _, arg := range args {
			av, err := typesys.CoerceValue(reflect.ValueOf(arg), ft.In(len(in)))
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", len(in), err)
			}

			in = append(in, av)
		}

		var out []reflect.Value
		if ft.IsVariadic() {
			out = fn.CallSlice(in)
		} else {
			out = fn.Call(in)
		}

		return unpack(out, normalize)
	}
}

func unpack(out []reflect.Value, normalize func(reflect.Value) reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}

	last := out[len(out)-1]
	if last.Type() == errorType {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}

		out = out[:len(out)-1]
	}

	if len(out) == 0 {
		return nil, nil
	}

	return normalize(out[0]).Interface(), nil
}
