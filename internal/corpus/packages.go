package corpus

import (
	"cmp"
	"context"
	"crypto/sha256"
	"fmt"
	"go/types"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/tools/go/packages"

	"lasso.dev/pkg/lasso/internal/model"
)

// LoadMode is what the pool needs from go/packages to rank types.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedModule

// PackagePool ranks the named types of the Go packages under a directory.
type PackagePool struct {
	dir      string
	patterns []string
	fs       SourceFS
}

// NewPackagePool loads patterns (default ./...) relative to dir.
func NewPackagePool(dir string, fs SourceFS, patterns ...string) *PackagePool {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	if fs == nil {
		fs = NewLocalFS()
	}

	return &PackagePool{dir: dir, patterns: patterns, fs: fs}
}

type candidate struct {
	pkg   *packages.Package
	name  string
	score int
}

// Candidates implements Pool. Types score one point per desired method
// they declare (names compare case-insensitively) and one for matching the
// interface name; types scoring zero are left out.
func (p *PackagePool) Candidates(ctx context.Context, ispec *model.InterfaceSpecification, limit int) ([]model.ClassUnderTest, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     p.dir,
		Mode:    LoadMode,
		Tests:   false,
	}

	pkgs, err := packages.Load(cfg, p.patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading corpus %s: %w", p.dir, err)
	}

	var found []candidate

	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 || pkg.Types == nil {
			slog.Debug("skipping corpus package", "package", pkg.PkgPath, "errors", len(pkg.Errors))

			continue
		}

		scope := pkg.Types.Scope()

		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !tn.Exported() || tn.IsAlias() {
				continue
			}

			if score := rank(tn, ispec); score > 0 {
				found = append(found, candidate{pkg: pkg, name: name, score: score})
			}
		}
	}

	slices.SortStableFunc(found, func(a, b candidate) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}

		if c := cmp.Compare(a.pkg.PkgPath, b.pkg.PkgPath); c != 0 {
			return c
		}

		return cmp.Compare(a.name, b.name)
	})

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	// Sources are read once per package; every CUT gets its own copy so
	// that no two tasks share a realm or its package state.
	projects := make(map[string]*model.Project)
	cuts := make([]model.ClassUnderTest, 0, len(found))

	for i, c := range found {
		project, ok := projects[c.pkg.PkgPath]
		if !ok {
			project, err = p.project(c.pkg)
			if err != nil {
				slog.Warn("skipping corpus package", "package", c.pkg.PkgPath, "error", err)

				continue
			}

			projects[c.pkg.PkgPath] = project
		}

		cuts = append(cuts, model.ClassUnderTest{ID: strconv.Itoa(i + 1), ClassName: c.name, Project: project.Clone()})
	}

	slog.Debug("ranked corpus", "dir", p.dir, "packages", len(pkgs), "candidates", len(cuts))

	return cuts, nil
}

func rank(tn *types.TypeName, ispec *model.InterfaceSpecification) int {
	named, ok := tn.Type().(*types.Named)
	if !ok || named.TypeParams().Len() > 0 || types.IsInterface(named) {
		return 0
	}

	declared := make(map[string]bool)

	ms := types.NewMethodSet(types.NewPointer(named))
	for i := range ms.Len() {
		declared[strings.ToLower(ms.At(i).Obj().Name())] = true
	}

	score := 0

	for _, sig := range ispec.Methods() {
		if declared[strings.ToLower(sig.Name)] {
			score++
		}
	}

	if score > 0 && strings.EqualFold(tn.Name(), ispec.Name()) {
		score++
	}

	return score
}

// project reads the package sources and module metadata.
func (p *PackagePool) project(pkg *packages.Package) (*model.Project, error) {
	if len(pkg.GoFiles) == 0 {
		return nil, fmt.Errorf("package %s has no files", pkg.PkgPath)
	}

	sources := make(map[string][]byte, len(pkg.GoFiles))
	digest := sha256.New()

	files := slices.Sorted(slices.Values(pkg.GoFiles))
	for _, file := range files {
		content, err := p.fs.ReadFile(model.Path(file))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}

		hash, err := p.fs.HashFile(model.Path(file))
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", file, err)
		}

		sources[filepath.Base(file)] = content
		digest.Write([]byte(hash))
	}

	group, artifact := path.Split(pkg.PkgPath)

	project := &model.Project{
		GroupID:    strings.TrimSuffix(group, "/"),
		ArtifactID: artifact,
		Root:       model.Path(filepath.Dir(files[0])),
		Sources:    sources,
	}

	modulePath, deps, err := p.module(pkg, files[0])
	if err != nil {
		slog.Debug("no module metadata", "package", pkg.PkgPath, "error", err)
	}

	project.Dependencies = deps
	project.Version = version(modulePath, fmt.Sprintf("%x", digest.Sum(nil)))

	return project, nil
}

// module returns the enclosing module path and its requirements as
// path@version.
func (p *PackagePool) module(pkg *packages.Package, file string) (string, []string, error) {
	gomod := ""
	if pkg.Module != nil {
		gomod = pkg.Module.GoMod
	}

	if gomod == "" {
		root, err := p.fs.FindModuleRoot(model.Path(file))
		if err != nil {
			return "", nil, err
		}

		gomod = filepath.Join(string(root), "go.mod")
	}

	content, err := p.fs.ReadFile(model.Path(gomod))
	if err != nil {
		return "", nil, err
	}

	mf, err := modfile.ParseLax(gomod, content, nil)
	if err != nil {
		return "", nil, fmt.Errorf("parse %s: %w", gomod, err)
	}

	var deps []string

	for _, req := range mf.Require {
		deps = append(deps, req.Mod.String())
	}

	if mf.Module == nil {
		return "", deps, nil
	}

	return mf.Module.Mod.Path, deps, nil
}

// version derives a pseudo version from the module's major version suffix
// and the source digest.
func version(modulePath, digest string) string {
	major := "v0"

	if _, suffix, ok := module.SplitPathVersion(modulePath); ok && suffix != "" {
		major = strings.TrimPrefix(suffix, "/")
		major = strings.TrimPrefix(major, ".")
	}

	if len(digest) > 12 {
		digest = digest[:12]
	}

	return major + ".0.0-src" + digest
}
