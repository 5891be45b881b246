// Package script loads a project's Go sources into a private yaegi
// interpreter and exposes the declared types as classes. Each realm owns its
// interpreter; instances never cross realms.
package script

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"go/types"
	"log/slog"
	"strconv"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/typesys"
)

var (
	// ErrForeignInstance is returned when an instance of another realm is
	// passed to a member.
	ErrForeignInstance = errors.New("instance belongs to another realm")
	// ErrBadWrapper is returned when a generated entry point has an
	// unexpected shape.
	ErrBadWrapper = errors.New("unexpected wrapper signature")
)

type entry = func([]interface{}) (interface{}, error)

// Realm is a typesys.Container backed by an interpreter.
type Realm struct {
	*typesys.Registry

	mu      sync.RWMutex
	interp  *interp.Interpreter
	locals  []*typesys.Class
	show    func(int) string
	release func(int)
	source  []byte
	skipped int
}

// Instance is a project value living inside a realm.
type Instance struct {
	Class  *typesys.Class
	Handle int

	realm *Realm
}

// String renders the underlying value.
func (i Instance) String() string {
	if i.realm == nil {
		return i.Class.String()
	}

	return i.realm.render(i.Handle, i.Class)
}

// Release drops the realm's reference to the value.
func (i *Instance) Release() {
	if i.realm != nil {
		i.realm.drop(i.Handle)
	}
}

func (i *Instance) ref() map[string]int {
	return map[string]int{refKey: i.Handle}
}

// Load parses, type checks and interprets sources (file name to content),
// which must form a single package importing only the standard library.
func Load(ctx context.Context, name, path string, sources map[string][]byte) (*Realm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()

	files, err := parseSources(fset, sources)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	if path == "" {
		path = files[0].ast.Name.Name
	}

	pkg, err := typeCheck(fset, path, files)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	aliases := importAliases(files, pkg.Imports())
	d := discover(pkg, aliases)

	source := append(merge(fset, files, generatedImports), generate(d)...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in := interp.New(interp.Options{})
	if err := in.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load %s: stdlib symbols: %w", name, err)
	}

	if _, err := in.Eval(string(source)); err != nil {
		slog.Debug("interpreter rejected source", "realm", name, "error", err)

		return nil, fmt.Errorf("load %s: evaluate: %w", name, err)
	}

	r := &Realm{
		Registry: typesys.NewRegistry(name),
		interp:   in,
		source:   source,
		skipped:  d.unsupport,
	}

	for _, lt := range d.locals {
		r.locals = append(r.locals, lt.class)
	}

	if err := r.bind(in, d); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	r.Add(d.classes()...)

	slog.Debug("loaded script realm", "realm", name, "classes", len(d.classes()), "entries", len(d.wrappers), "skipped", d.unsupport)

	return r, nil
}

// LoadProject loads the sources of project into a new realm named after its
// coordinates.
func LoadProject(ctx context.Context, project *model.Project) (*Realm, error) {
	return Load(ctx, project.Coordinates(), project.ModulePath(), project.Sources)
}

func importAliases(files []*sourceFile, imports []*types.Package) map[string]string {
	names := make(map[string]string, len(imports))
	for _, p := range imports {
		names[p.Path()] = p.Name()
	}

	aliases := make(map[string]string)

	for _, f := range files {
		for _, spec := range f.ast.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}

			switch {
			case spec.Name == nil:
				if n, ok := names[path]; ok {
					aliases[path] = n
				}
			case spec.Name.Name != "_" && spec.Name.Name != ".":
				aliases[path] = spec.Name.Name
			}
		}
	}

	return aliases
}

// bind looks the generated entry points up and attaches invokers.
func (r *Realm) bind(in *interp.Interpreter, d *discovery) error {
	for i, w := range d.wrappers {
		fn, err := lookup[entry](in, wrapperPrefix+strconv.Itoa(i))
		if err != nil {
			return err
		}

		switch {
		case w.field != nil:
			w.field.Get = func(ctx context.Context) (any, error) {
				return r.invoke(ctx, fn, nil)
			}
		case w.kind == callMethod:
			w.member.Invoke = r.invoker(fn, w.member, true)
		default:
			w.member.Invoke = r.invoker(fn, w.member, false)
		}
	}

	show, err := lookup[func(int) string](in, showFunc)
	if err != nil {
		return err
	}

	release, err := lookup[func(int)](in, releaseFunc)
	if err != nil {
		return err
	}

	r.show = show
	r.release = release

	return nil
}

func lookup[F any](in *interp.Interpreter, name string) (F, error) {
	var zero F

	v, err := in.Eval("main." + name)
	if err != nil {
		return zero, fmt.Errorf("lookup %s: %w", name, err)
	}

	fn, ok := v.Interface().(F)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %s", ErrBadWrapper, name, v.Type())
	}

	return fn, nil
}

// Source returns the merged source the interpreter evaluated.
func (r *Realm) Source() []byte {
	return r.source
}

// Skipped counts members left out because their types cannot cross the
// interpreter boundary.
func (r *Realm) Skipped() int {
	return r.skipped
}

// Dispose drops the interpreter and the registered classes.
func (r *Realm) Dispose() error {
	r.mu.Lock()
	r.interp = nil
	r.show = nil
	r.release = nil
	r.mu.Unlock()

	return r.Registry.Dispose()
}

func (r *Realm) alive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.interp != nil
}

func (r *Realm) invoker(fn entry, member *typesys.Member, instance bool) typesys.Invoker {
	return func(ctx context.Context, recv any, args []any) (any, error) {
		if len(args) != len(member.Params) {
			return nil, fmt.Errorf("%w: want %d, got %d", typesys.ErrArity, len(member.Params), len(args))
		}

		in := make([]interface{}, 0, len(args)+1)

		if instance {
			if recv == nil {
				return nil, typesys.ErrNilReceiver
			}

			inst, ok := recv.(*Instance)
			if !ok {
				return nil, fmt.Errorf("receiver: %w: %T", typesys.ErrNotCoercible, recv)
			}

			if inst.realm != r {
				return nil, ErrForeignInstance
			}

			in = append(in, inst.ref())
		}

		for i, arg := range args {
			v, err := r.export(arg, member.Params[i])
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}

			in = append(in, v)
		}

		return r.invoke(ctx, fn, in)
	}
}

func (r *Realm) invoke(ctx context.Context, fn entry, args []interface{}) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = typesys.Recovered(rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.alive() {
		return nil, fmt.Errorf("%s: %w", r.Name(), typesys.ErrDisposed)
	}

	out, err := fn(args)
	if err != nil {
		return nil, err
	}

	return r.wrap(out), nil
}

// export converts a Go side value into what the generated code expects.
func (r *Realm) export(arg any, cls *typesys.Class) (interface{}, error) {
	if inst, ok := arg.(*Instance); ok {
		if inst.realm != r {
			return nil, ErrForeignInstance
		}

		return inst.ref(), nil
	}

	return typesys.Coerce(arg, cls)
}

// wrap turns reference maps returned by the generated code into instances.
func (r *Realm) wrap(out interface{}) any {
	m, ok := out.(map[string]int)
	if !ok {
		return out
	}

	h, ok := m[refKey]
	if !ok {
		return out
	}

	class := m[classKey]
	if class < 0 || class >= len(r.locals) {
		return out
	}

	return &Instance{Class: r.locals[class], Handle: h, realm: r}
}

func (r *Realm) render(h int, cls *typesys.Class) (out string) {
	r.mu.RLock()
	show := r.show
	r.mu.RUnlock()

	if show == nil {
		return cls.String()
	}

	defer func() {
		if rec := recover(); rec != nil {
			out = cls.String()
		}
	}()

	return show(h)
}

func (r *Realm) drop(h int) {
	r.mu.RLock()
	release := r.release
	r.mu.RUnlock()

	if release != nil {
		release(h)
	}
}
