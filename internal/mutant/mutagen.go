// Package mutant generates source mutants of script realm projects.
package mutant

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"slices"
	"strings"

	"lasso.dev/pkg/lasso/internal/model"
)

// IgnoreDirective on a line, or directly above a function, suppresses
// mutations there. An optional list of types narrows it, as in
// "//lasso:ignore arithmetic,boolean".
const IgnoreDirective = "lasso:ignore"

// ErrUnsupportedType is returned for unknown mutation types.
var ErrUnsupportedType = errors.New("unsupported mutation type")

// AllTypes lists every mutation type in generation order.
var AllTypes = []model.MutationType{model.MutationArithmetic, model.MutationBoolean, model.MutationComparison}

var prefixes = map[model.MutationType]string{
	model.MutationArithmetic: "ARITH",
	model.MutationBoolean:    "BOOL",
	model.MutationComparison: "CMP",
}

type generator func(n ast.Node) []edit

var generators = map[model.MutationType]generator{
	model.MutationArithmetic: arithmetic,
	model.MutationBoolean:    boolean,
	model.MutationComparison: comparison,
}

// edit replaces the token at pos.
type edit struct {
	pos      token.Pos
	original string
	mutated  string
}

// ResolveTypes defaults to AllTypes and rejects unknown types.
func ResolveTypes(types []model.MutationType) ([]model.MutationType, error) {
	if len(types) == 0 {
		return slices.Clone(AllTypes), nil
	}

	for _, t := range types {
		if _, ok := generators[t]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
		}
	}

	return types, nil
}

// Generate returns the mutations of one Go file. IDs are numbered from
// *next, which is advanced.
func Generate(filename string, src []byte, next *int, types ...model.MutationType) ([]model.Mutation, error) {
	types, err := ResolveTypes(types)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	ignore := buildIgnoreIndex(fset, file)

	var mutations []model.Mutation

	for _, mutationType := range types {
		gen := generators[mutationType]

		ast.Inspect(file, func(n ast.Node) bool {
			if n == nil {
				return true
			}

			if fd, ok := n.(*ast.FuncDecl); ok && ignore.function(fd, mutationType) {
				return false
			}

			for _, e := range gen(n) {
				pos := fset.PositionFor(e.pos, false)
				if ignore.line(pos.Line, mutationType) {
					continue
				}

				*next++
				mutations = append(mutations, model.Mutation{
					ID:           fmt.Sprintf("%s_%d", prefixes[mutationType], *next),
					Type:         mutationType,
					File:         model.Path(filename),
					Offset:       pos.Offset,
					OriginalText: e.original,
					MutatedText:  e.mutated,
					Line:         pos.Line,
					Column:       pos.Column,
				})
			}

			return true
		})
	}

	return mutations, nil
}

// Apply returns a copy of src with the mutation applied.
func Apply(src []byte, mutation model.Mutation) ([]byte, error) {
	end := mutation.Offset + len(mutation.OriginalText)
	if mutation.Offset < 0 || end > len(src) || string(src[mutation.Offset:end]) != mutation.OriginalText {
		return nil, fmt.Errorf("mutation %s does not match %s at offset %d", mutation.ID, mutation.File, mutation.Offset)
	}

	out := make([]byte, 0, len(src)-len(mutation.OriginalText)+len(mutation.MutatedText))
	out = append(out, src[:mutation.Offset]...)
	out = append(out, mutation.MutatedText...)
	out = append(out, src[end:]...)

	return out, nil
}

var arithmeticOps = []token.Token{token.ADD, token.SUB, token.MUL, token.QUO, token.REM}

var comparisonOps = []token.Token{token.LSS, token.GTR, token.LEQ, token.GEQ, token.EQL, token.NEQ}

func arithmetic(n ast.Node) []edit {
	bin, ok := n.(*ast.BinaryExpr)
	if !ok || !slices.Contains(arithmeticOps, bin.Op) || isStringLiteral(bin.X) || isStringLiteral(bin.Y) {
		return nil
	}

	return alternatives(bin.OpPos, bin.Op, arithmeticOps)
}

func comparison(n ast.Node) []edit {
	bin, ok := n.(*ast.BinaryExpr)
	if !ok || !slices.Contains(comparisonOps, bin.Op) {
		return nil
	}

	return alternatives(bin.OpPos, bin.Op, comparisonOps)
}

func boolean(n ast.Node) []edit {
	ident, ok := n.(*ast.Ident)
	if !ok {
		return nil
	}

	switch ident.Name {
	case "true":
		return []edit{{pos: ident.Pos(), original: "true", mutated: "false"}}
	case "false":
		return []edit{{pos: ident.Pos(), original: "false", mutated: "true"}}
	default:
		return nil
	}
}

func alternatives(pos token.Pos, original token.Token, ops []token.Token) []edit {
	edits := make([]edit, 0, len(ops)-1)

	for _, op := range ops {
		if op != original {
			edits = append(edits, edit{pos: pos, original: original.String(), mutated: op.String()})
		}
	}

	return edits
}

func isStringLiteral(e ast.Expr) bool {
	lit, ok := e.(*ast.BasicLit)

	return ok && lit.Kind == token.STRING
}

// ignoreRule is nil for "all types".
type ignoreRule map[model.MutationType]bool

func (r ignoreRule) ignores(t model.MutationType) bool {
	return r == nil || r[t]
}

type ignoreIndex struct {
	lines map[int]ignoreRule
	funcs map[token.Pos]ignoreRule
}

func (i ignoreIndex) line(line int, t model.MutationType) bool {
	for _, l := range []int{line, line - 1} {
		if rule, ok := i.lines[l]; ok && rule.ignores(t) {
			return true
		}
	}

	return false
}

func (i ignoreIndex) function(fd *ast.FuncDecl, t model.MutationType) bool {
	rule, ok := i.funcs[fd.Pos()]

	return ok && rule.ignores(t)
}

func buildIgnoreIndex(fset *token.FileSet, file *ast.File) ignoreIndex {
	index := ignoreIndex{lines: map[int]ignoreRule{}, funcs: map[token.Pos]ignoreRule{}}

	for _, group := range file.Comments {
		for _, c := range group.List {
			if rule, ok := parseIgnore(c.Text); ok {
				index.lines[fset.PositionFor(c.Pos(), false).Line] = rule
			}
		}
	}

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Doc == nil {
			continue
		}

		for _, c := range fd.Doc.List {
			if rule, ok := parseIgnore(c.Text); ok {
				index.funcs[fd.Pos()] = rule
			}
		}
	}

	return index
}

func parseIgnore(comment string) (ignoreRule, bool) {
	text := strings.TrimSpace(strings.TrimPrefix(comment, "//"))

	rest, ok := strings.CutPrefix(text, IgnoreDirective)
	if !ok {
		return nil, false
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, true
	}

	rule := ignoreRule{}
	for _, name := range strings.Split(rest, ",") {
		rule[model.MutationType(strings.TrimSpace(name))] = true
	}

	return rule, true
}
