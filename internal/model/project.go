package model

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path"
	"slices"
	"sync"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	"lasso.dev/pkg/lasso/internal/typesys"
)

var (
	// ErrNoContainer is returned when a project owns no container.
	ErrNoContainer = errors.New("project has no container")
	// ErrContainerOwned is returned when a project already owns a container.
	ErrContainerOwned = errors.New("project already owns a container")
)

// Path represents a file system path.
type Path string

// File is one source file of a project.
type File struct {
	Path Path
	Hash string
}

// Project is the unit a candidate class is loaded from: its coordinates,
// sources and the container realm it is resolved into. The container is
// owned exclusively by the project and released with RemoveContainer.
type Project struct {
	GroupID      string
	ArtifactID   string
	Version      string
	Root         Path
	Sources      map[string][]byte
	Dependencies []string

	mu        sync.Mutex
	resolved  bool
	container typesys.Container
}

// Coordinates returns group:artifact:version.
func (p *Project) Coordinates() string {
	return p.GroupID + ":" + p.ArtifactID + ":" + p.Version
}

// ModulePath joins group and artifact into a Go module path.
func (p *Project) ModulePath() string {
	if p.GroupID == "" {
		return p.ArtifactID
	}

	return path.Join(p.GroupID, p.ArtifactID)
}

// Validate checks the module path and version.
func (p *Project) Validate() error {
	if err := module.CheckPath(p.ModulePath()); err != nil {
		return fmt.Errorf("invalid project %s: %w", p.Coordinates(), err)
	}

	if p.Version != "" && !semver.IsValid(p.Version) {
		return fmt.Errorf("invalid project %s: version %q is not semantic", p.Coordinates(), p.Version)
	}

	return nil
}

// IsResolved reports whether the project's dependencies were resolved.
func (p *Project) IsResolved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.resolved
}

// MarkResolved flags the dependency graph as materialized.
func (p *Project) MarkResolved() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resolved = true
}

// Container returns the owned container or nil.
func (p *Project) Container() typesys.Container {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.container
}

// SetContainer hands ownership of a container to the project.
func (p *Project) SetContainer(container typesys.Container) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.container != nil {
		return fmt.Errorf("%s: %w", p.Coordinates(), ErrContainerOwned)
	}

	p.container = container

	return nil
}

// RemoveContainer disposes the owned container. It must be called exactly
// once per container.
func (p *Project) RemoveContainer() error {
	p.mu.Lock()
	container := p.container
	p.container = nil
	p.resolved = false
	p.mu.Unlock()

	if container == nil {
		return fmt.Errorf("%s: %w", p.Coordinates(), ErrNoContainer)
	}

	if err := container.Dispose(); err != nil {
		slog.Error("failed to dispose container", "project", p.Coordinates(), "error", err)

		return fmt.Errorf("dispose container of %s: %w", p.Coordinates(), err)
	}

	return nil
}

// Clone copies coordinates and sources into a new unresolved project
// without a container.
func (p *Project) Clone() *Project {
	sources := make(map[string][]byte, len(p.Sources))
	for name, content := range p.Sources {
		sources[name] = slices.Clone(content)
	}

	return &Project{
		GroupID:      p.GroupID,
		ArtifactID:   p.ArtifactID,
		Version:      p.Version,
		Root:         p.Root,
		Sources:      sources,
		Dependencies: slices.Clone(p.Dependencies),
	}
}

// SourceNames returns the source file names in sorted order.
func (p *Project) SourceNames() []string {
	return slices.Sorted(maps.Keys(p.Sources))
}

// ClassUnderTest identifies one candidate implementation.
type ClassUnderTest struct {
	ID        string
	ClassName string
	Project   *Project
	// VariantID is set for generated variants such as mutants.
	VariantID string
	// Pseudo marks stand-in placeholders that are never executed.
	Pseudo bool
}

// WithVariant returns a copy bound to a variant id and its own project.
func (c ClassUnderTest) WithVariant(id string, project *Project) ClassUnderTest {
	c.VariantID = id
	c.Project = project

	return c
}

// Key identifies the CUT (and variant) in result maps.
func (c ClassUnderTest) Key() string {
	key := c.ID + "/" + c.ClassName
	if c.VariantID != "" {
		key += "@" + c.VariantID
	}

	return key
}

func (c ClassUnderTest) String() string {
	return c.Key()
}
