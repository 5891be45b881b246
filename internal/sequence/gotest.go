package sequence

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"lasso.dev/pkg/lasso/internal/model"
)

// ParseTestFile reverse-engineers sequences from the TestXxx functions of a
// Go test file. Constructors, method calls, package function calls,
// literals, slice literals and variable aliases become statements;
// assert/require Equal(t, want, got) becomes the expected value of the
// statement producing got. Calls the interface does not know are dropped.
func ParseTestFile(filename string, src []byte, ispec *model.InterfaceSpecification) ([]*Specification, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	var specs []*Specification

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Body == nil || !strings.HasPrefix(fn.Name.Name, "Test") {
			continue
		}

		b := &builder{ispec: ispec, vars: map[string]int{}}
		b.block(fn.Body.List)

		if len(b.statements) == 0 {
			continue
		}

		specs = append(specs, &Specification{Name: fn.Name.Name, Statements: b.statements})
	}

	return specs, nil
}

type builder struct {
	ispec      *model.InterfaceSpecification
	vars       map[string]int
	statements []Statement
}

func (b *builder) add(stmt Statement) int {
	b.statements = append(b.statements, stmt)

	return len(b.statements) - 1
}

func (b *builder) block(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case *ast.AssignStmt:
			if len(st.Rhs) != 1 || len(st.Lhs) == 0 {
				continue
			}

			idx := b.expr(st.Rhs[0])

			if ident, ok := st.Lhs[0].(*ast.Ident); ok && ident.Name != "_" && idx >= 0 {
				b.vars[ident.Name] = idx
			}
		case *ast.DeclStmt:
			gen, ok := st.Decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.VAR {
				continue
			}

			for _, s := range gen.Specs {
				vs, ok := s.(*ast.ValueSpec)
				if !ok || len(vs.Values) != 1 || len(vs.Names) == 0 {
					continue
				}

				if idx := b.expr(vs.Values[0]); idx >= 0 {
					b.vars[vs.Names[0].Name] = idx
				}
			}
		case *ast.ExprStmt:
			if call, ok := st.X.(*ast.CallExpr); ok && b.assertion(call) {
				continue
			}

			b.expr(st.X)
		case *ast.BlockStmt:
			b.block(st.List)
		}
	}
}

// assertion handles assert.Equal(t, want, got) and require.Equal.
func (b *builder) assertion(call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}

	pkg, ok := sel.X.(*ast.Ident)
	if !ok || (pkg.Name != "assert" && pkg.Name != "require") {
		return false
	}

	if sel.Sel.Name != "Equal" && sel.Sel.Name != "EqualValues" {
		return true
	}

	if len(call.Args) < 3 {
		return true
	}

	want, ok := literal(call.Args[1])
	if !ok {
		return true
	}

	got := b.expr(call.Args[2])
	if got < 0 {
		return true
	}

	if mc, ok := b.statements[got].(*MethodCall); ok {
		mc.Expected = want
	}

	return true
}

func (b *builder) expr(e ast.Expr) int {
	switch x := e.(type) {
	case *ast.ParenExpr:
		return b.expr(x.X)
	case *ast.Ident:
		if idx, ok := b.vars[x.Name]; ok {
			return idx
		}

		if v, ok := literal(x); ok {
			return b.add(v)
		}
	case *ast.BasicLit, *ast.UnaryExpr:
		if ux, ok := x.(*ast.UnaryExpr); ok && ux.Op == token.AND {
			return b.expr(ux.X)
		}

		if v, ok := literal(x); ok {
			return b.add(v)
		}
	case *ast.CompositeLit:
		return b.composite(x)
	case *ast.CallExpr:
		return b.call(x)
	}

	return -1
}

func (b *builder) composite(lit *ast.CompositeLit) int {
	switch t := lit.Type.(type) {
	case *ast.ArrayType:
		elems := make([]int, len(lit.Elts))

		for i, elt := range lit.Elts {
			if inner, ok := elt.(*ast.CompositeLit); ok && inner.Type == nil {
				elided := *inner
				elided.Type = t.Elt
				elt = &elided
			}

			elems[i] = b.expr(elt)
			if elems[i] < 0 {
				return -1
			}
		}

		arr := b.add(&Value{Type: "[]" + typeString(t.Elt), Length: len(lit.Elts)})

		for i, elem := range elems {
			b.add(&ArraySet{Array: arr, Index: i, Value: elem})
		}

		return arr
	case *ast.Ident, *ast.SelectorExpr:
		if len(lit.Elts) == 0 && b.isInterfaceType(typeString(t)) {
			return b.constructor(nil)
		}
	}

	return -1
}

func (b *builder) call(call *ast.CallExpr) int {
	args := make([]int, len(call.Args))

	resolveArgs := func() bool {
		for i, arg := range call.Args {
			args[i] = b.expr(arg)
			if args[i] < 0 {
				return false
			}
		}

		return true
	}

	switch fun := call.Fun.(type) {
	case *ast.Ident:
		if b.isInterfaceType(fun.Name) || b.isInterfaceType(strings.TrimPrefix(fun.Name, "New")) {
			if !resolveArgs() {
				return -1
			}

			return b.constructor(args)
		}

		if idx := b.method(fun.Name, len(call.Args), true); idx >= 0 && resolveArgs() {
			return b.add(&MethodCall{Method: idx, Receiver: -1, Args: args})
		}
	case *ast.SelectorExpr:
		if recv, ok := fun.X.(*ast.Ident); ok {
			if r, isVar := b.vars[recv.Name]; isVar {
				idx := b.method(fun.Sel.Name, len(call.Args), false)
				if idx < 0 || !resolveArgs() {
					return -1
				}

				return b.add(&MethodCall{Method: idx, Receiver: r, Args: args})
			}

			if b.isInterfaceType(strings.TrimPrefix(fun.Sel.Name, "New")) {
				if !resolveArgs() {
					return -1
				}

				return b.constructor(args)
			}

			if idx := b.method(fun.Sel.Name, len(call.Args), true); idx >= 0 {
				if !resolveArgs() {
					return -1
				}

				return b.add(&MethodCall{Method: idx, Receiver: -1, Args: args})
			}

			if recv.Name == "t" || recv.Name == "assert" || recv.Name == "require" {
				return -1
			}

			if !resolveArgs() {
				return -1
			}

			return b.add(&MethodCall{Method: -1, Receiver: -1, Args: args, External: recv.Name + "." + fun.Sel.Name})
		}
	}

	return -1
}

func (b *builder) constructor(args []int) int {
	for i, sig := range b.ispec.Constructors() {
		if len(sig.Params) == len(args) {
			return b.add(&ConstructorCall{Constructor: i, Args: args})
		}
	}

	return -1
}

// method finds a desired method by name and arity. Static lookups only
// match static signatures.
func (b *builder) method(name string, arity int, static bool) int {
	for i, sig := range b.ispec.Methods() {
		if strings.EqualFold(sig.Name, name) && len(sig.Params) == arity && (!static || sig.Static) {
			return i
		}
	}

	return -1
}

func (b *builder) isInterfaceType(name string) bool {
	spec := b.ispec.Name()
	if i := strings.LastIndex(spec, "."); i >= 0 {
		spec = spec[i+1:]
	}

	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	return name != "" && strings.EqualFold(name, spec)
}

// literal converts constant expressions into values.
func literal(e ast.Expr) (*Value, bool) {
	switch x := e.(type) {
	case *ast.ParenExpr:
		return literal(x.X)
	case *ast.Ident:
		switch x.Name {
		case "true", "false":
			return &Value{Type: "bool", Literal: x.Name == "true"}, true
		case "nil":
			return &Value{Type: "any"}, true
		}
	case *ast.UnaryExpr:
		if x.Op != token.SUB {
			return nil, false
		}

		v, ok := literal(x.X)
		if !ok {
			return nil, false
		}

		switch n := v.Literal.(type) {
		case int:
			v.Literal = -n
		case float64:
			v.Literal = -n
		default:
			return nil, false
		}

		return v, true
	case *ast.BasicLit:
		switch x.Kind {
		case token.INT:
			n, err := strconv.ParseInt(x.Value, 0, 64)
			if err != nil {
				return nil, false
			}

			return &Value{Type: "int", Literal: int(n)}, true
		case token.FLOAT:
			f, err := strconv.ParseFloat(x.Value, 64)
			if err != nil {
				return nil, false
			}

			return &Value{Type: "float64", Literal: f}, true
		case token.STRING:
			s, err := strconv.Unquote(x.Value)
			if err != nil {
				return nil, false
			}

			return &Value{Type: "string", Literal: s}, true
		case token.CHAR:
			r, _, _, err := strconv.UnquoteChar(strings.Trim(x.Value, "'"), '\'')
			if err != nil {
				return nil, false
			}

			return &Value{Type: "int32", Literal: r}, true
		}
	}

	return nil, false
}

func typeString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return typeString(t.X) + "." + t.Sel.Name
	case *ast.StarExpr:
		return "*" + typeString(t.X)
	case *ast.ArrayType:
		return "[]" + typeString(t.Elt)
	case *ast.InterfaceType:
		return "any"
	}

	return "any"
}
