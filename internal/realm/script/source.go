package script

import (
	"errors"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrNoSources is returned for a project without Go sources.
	ErrNoSources = errors.New("no Go sources")
	// ErrForbiddenImport is returned when a source imports a non-stdlib or
	// unsafe package.
	ErrForbiddenImport = errors.New("forbidden import")
	// ErrMixedPackages is returned when sources declare different packages.
	ErrMixedPackages = errors.New("sources declare more than one package")
)

var blockedImports = map[string]bool{
	"C":       true,
	"unsafe":  true,
	"syscall": true,
	"plugin":  true,
	"os/exec": true,
}

// sourceFile is one parsed project file.
type sourceFile struct {
	name string
	src  []byte
	ast  *ast.File
}

// parseSources parses every non-test Go file of sources in name order.
func parseSources(fset *token.FileSet, sources map[string][]byte) ([]*sourceFile, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		if strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return nil, ErrNoSources
	}

	sort.Strings(names)

	files := make([]*sourceFile, 0, len(names))
	pkgName := ""

	for _, name := range names {
		f, err := parser.ParseFile(fset, name, sources[name], parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		if pkgName == "" {
			pkgName = f.Name.Name
		} else if f.Name.Name != pkgName {
			return nil, fmt.Errorf("%w: %s and %s", ErrMixedPackages, pkgName, f.Name.Name)
		}

		if err := checkImports(f); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		files = append(files, &sourceFile{name: name, src: sources[name], ast: f})
	}

	return files, nil
}

func checkImports(f *ast.File) error {
	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			return fmt.Errorf("import %s: %w", spec.Path.Value, err)
		}

		first, _, _ := strings.Cut(path, "/")
		if blockedImports[path] || strings.Contains(first, ".") {
			return fmt.Errorf("%w: %q", ErrForbiddenImport, path)
		}
	}

	return nil
}

// sharedImporter type-checks standard library packages from source once per
// process; realms of mutants reuse the result.
var sharedImporter = &lockedImporter{fset: token.NewFileSet()}

type lockedImporter struct {
	mu   sync.Mutex
	fset *token.FileSet
	imp  types.ImporterFrom
}

func (l *lockedImporter) Import(path string) (*types.Package, error) {
	return l.ImportFrom(path, "", 0)
}

func (l *lockedImporter) ImportFrom(path, dir string, mode types.ImportMode) (*types.Package, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.imp == nil {
		l.imp = importer.ForCompiler(l.fset, "source", nil).(types.ImporterFrom)
	}

	return l.imp.ImportFrom(path, dir, mode)
}

// typeCheck checks the parsed files as one package.
func typeCheck(fset *token.FileSet, path string, files []*sourceFile) (*types.Package, error) {
	asts := make([]*ast.File, len(files))
	for i, f := range files {
		asts[i] = f.ast
	}

	var errs []error

	conf := types.Config{
		Importer: sharedImporter,
		Error: func(err error) {
			if len(errs) < 10 {
				errs = append(errs, err)
			}
		},
	}

	pkg, _ := conf.Check(path, fset, asts, nil)
	if len(errs) > 0 {
		return nil, fmt.Errorf("type check %s: %w", path, errors.Join(errs...))
	}

	return pkg, nil
}

// merge rewrites the files into a single package main source so that the
// interpreter sees every declaration at once. A func main is renamed so
// evaluation does not run it.
func merge(fset *token.FileSet, files []*sourceFile, extraImports []string) []byte {
	seen := make(map[string]bool)

	var imports []string

	addImport := func(spec string) {
		if !seen[spec] {
			seen[spec] = true
			imports = append(imports, spec)
		}
	}

	for _, spec := range extraImports {
		addImport(spec)
	}

	var body strings.Builder

	for _, f := range files {
		src := renameMain(fset, f)

		start := fset.Position(f.ast.Name.End()).Offset

		for _, decl := range f.ast.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.IMPORT {
				continue
			}

			for _, s := range gen.Specs {
				spec := s.(*ast.ImportSpec)

				text := spec.Path.Value
				if spec.Name != nil {
					text = spec.Name.Name + " " + text
				}

				addImport(text)
			}

			if end := fset.Position(gen.End()).Offset; end > start {
				start = end
			}
		}

		fmt.Fprintf(&body, "\n// %s\n", f.name)
		body.Write(src[start:])
		body.WriteString("\n")
	}

	var out strings.Builder

	out.WriteString("package main\n\nimport (\n")

	for _, spec := range imports {
		out.WriteString("\t" + spec + "\n")
	}

	out.WriteString(")\n")
	out.WriteString(body.String())

	return []byte(out.String())
}

func renameMain(fset *token.FileSet, f *sourceFile) []byte {
	for _, decl := range f.ast.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Name.Name != "main" {
			continue
		}

		src := append([]byte(nil), f.src...)
		off := fset.Position(fn.Name.Pos()).Offset

		// Same length keeps every other offset valid.
		copy(src[off:], "mai_")

		return src
	}

	return f.src
}
