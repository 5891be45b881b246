package typesys

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDisposed is returned by a container after Dispose.
	ErrDisposed = errors.New("container disposed")
	// ErrClassNotFound is returned when a realm does not know a class.
	ErrClassNotFound = errors.New("class not found")
)

// Container is an isolated realm that owns a set of loaded classes. A
// container is bound to one project and must be disposed exactly once.
type Container interface {
	Name() string
	LoadClass(ctx context.Context, name string) (*Class, error)
	Classes() []string
	Dispose() error
}

// Resolve looks a type name up: builtins first, then arrays of realm
// classes, then the realm itself.
func Resolve(ctx context.Context, container Container, name string) (*Class, error) {
	name = NormalizeName(name)

	if cls, ok := Builtin(name); ok {
		return cls, nil
	}

	if strings.HasPrefix(name, "[]") {
		elem, err := Resolve(ctx, container, name[2:])
		if err != nil {
			return nil, err
		}

		return ArrayOf(elem), nil
	}

	if container == nil {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}

	return container.LoadClass(ctx, name)
}

// ResolveAll resolves every name in order.
func ResolveAll(ctx context.Context, container Container, names []string) ([]*Class, error) {
	classes := make([]*Class, len(names))

	for i, name := range names {
		cls, err := Resolve(ctx, container, name)
		if err != nil {
			return nil, err
		}

		classes[i] = cls
	}

	return classes, nil
}

// Registry is an in-memory container whose classes are declared up front.
// Realms embed it and fill it while loading.
type Registry struct {
	name     string
	mu       sync.RWMutex
	classes  map[string]*Class
	disposed bool
}

// NewRegistry creates an empty registry.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:    name,
		classes: map[string]*Class{},
	}
}

// Name implements Container.
func (r *Registry) Name() string {
	return r.name
}

// Add registers classes, replacing any class with the same name.
func (r *Registry) Add(classes ...*Class) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cls := range classes {
		r.classes[cls.Name] = cls
	}
}

// Lookup returns a registered class without name normalization.
func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cls, ok := r.classes[name]

	return cls, ok
}

// LoadClass implements Container.
func (r *Registry) LoadClass(ctx context.Context, name string) (*Class, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.disposed {
		return nil, fmt.Errorf("%s: %w", r.name, ErrDisposed)
	}

	cls, ok := r.classes[NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrClassNotFound, name, r.name)
	}

	return cls, nil
}

// Classes implements Container. Names are sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Dispose implements Container.
func (r *Registry) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return fmt.Errorf("%s: %w", r.name, ErrDisposed)
	}

	r.disposed = true
	r.classes = nil

	return nil
}

// Disposed reports whether Dispose has been called.
func (r *Registry) Disposed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.disposed
}
