package script

import (
	"fmt"
	"strings"

	"lasso.dev/pkg/lasso/internal/typesys"
)

// Names shared between the generated source and the Go side.
const (
	refKey   = "__lasso_ref"
	classKey = "__lasso_class"

	wrapperPrefix = "__lassoCall"
	showFunc      = "__lassoShow"
	releaseFunc   = "__lassoRelease"
)

// generatedImports are added to the merged source under private names.
var generatedImports = []string{`__lassofmt "fmt"`, `__lassosync "sync"`}

// generate emits the handle table, the boxing helpers and one wrapper per
// entry point. Wrappers share the signature func([]interface{}) (interface{}, error);
// project instances cross the boundary as reference maps.
func generate(d *discovery) string {
	var b strings.Builder

	fmt.Fprintf(&b, `
// generated entry points

var (
	__lassoMu   __lassosync.Mutex
	__lassoObjs = map[int]interface{}{}
	__lassoNext int
)

func __lassoRef(class int, v interface{}) interface{} {
	__lassoMu.Lock()
	defer __lassoMu.Unlock()
	__lassoNext++
	__lassoObjs[__lassoNext] = v
	return map[string]int{%[1]q: __lassoNext, %[2]q: class}
}

func __lassoArg(v interface{}) interface{} {
	m, ok := v.(map[string]int)
	if !ok {
		return v
	}
	h, ok := m[%[1]q]
	if !ok {
		return v
	}
	__lassoMu.Lock()
	defer __lassoMu.Unlock()
	return __lassoObjs[h]
}

func %[3]s(h int) string {
	__lassoMu.Lock()
	v := __lassoObjs[h]
	__lassoMu.Unlock()
	return __lassofmt.Sprint(v)
}

func %[4]s(h int) {
	__lassoMu.Lock()
	delete(__lassoObjs, h)
	__lassoMu.Unlock()
}
`, refKey, classKey, showFunc, releaseFunc)

	b.WriteString("\nfunc __lassoOut(v interface{}) interface{} {\n\tswitch x := v.(type) {\n")

	for i, lt := range d.locals {
		if lt.class.Kind == typesys.KindInterface {
			continue
		}

		fmt.Fprintf(&b, "\tcase *%[1]s:\n\t\tif x == nil {\n\t\t\treturn nil\n\t\t}\n\t\treturn __lassoRef(%[2]d, x)\n", lt.name, i)
		fmt.Fprintf(&b, "\tcase %[1]s:\n\t\treturn __lassoRef(%[2]d, &x)\n", lt.name, i)
	}

	b.WriteString("\t}\n\treturn v\n}\n")

	for i, w := range d.wrappers {
		writeWrapper(&b, i, w)
	}

	return b.String()
}

func writeWrapper(b *strings.Builder, index int, w *wrapper) {
	fmt.Fprintf(b, "\nfunc %s%d(__lassoArgs []interface{}) (interface{}, error) {\n", wrapperPrefix, index)

	switch w.kind {
	case callZero:
		fmt.Fprintf(b, "\treturn __lassoOut(new(%s)), nil\n}\n", w.target)

		return
	case callField:
		if w.pointer {
			fmt.Fprintf(b, "\treturn __lassoOut(%s), nil\n}\n", w.target)
		} else {
			fmt.Fprintf(b, "\treturn __lassoOut(&%s), nil\n}\n", w.target)
		}

		return
	}

	offset := 0
	target := w.target

	if w.kind == callMethod {
		fmt.Fprintf(b, "\t__lassoRecv := __lassoArg(__lassoArgs[0]).(*%s)\n", w.owner)

		target = "__lassoRecv." + w.target
		offset = 1
	}

	names := make([]string, len(w.params))

	for i, p := range w.params {
		names[i] = fmt.Sprintf("__lassoA%d", i)
		writeParam(b, names[i], offset+i, p)
	}

	call := target + "(" + strings.Join(names, ", ")
	if w.variadic && len(names) > 0 {
		call += "..."
	}

	call += ")"

	switch {
	case w.errorOnly:
		fmt.Fprintf(b, "\treturn nil, %s\n", call)
	case w.results == 0:
		fmt.Fprintf(b, "\t%s\n\treturn nil, nil\n", call)
	case w.results == 1:
		fmt.Fprintf(b, "\treturn __lassoOut(%s), nil\n", call)
	default:
		fmt.Fprintf(b, "\t__lassoR, __lassoErr := %s\n\treturn __lassoOut(__lassoR), __lassoErr\n", call)
	}

	b.WriteString("}\n")
}

func writeParam(b *strings.Builder, name string, arg int, p param) {
	switch p.mode {
	case paramAny:
		fmt.Fprintf(b, "\t%s := __lassoArg(__lassoArgs[%d])\n", name, arg)
	case paramLocalPointer:
		fmt.Fprintf(b, "\tvar %[1]s *%[2]s\n\tif __lassoV := __lassoArg(__lassoArgs[%[3]d]); __lassoV != nil {\n\t\t%[1]s = __lassoV.(*%[2]s)\n\t}\n", name, p.expr, arg)
	case paramLocalValue:
		fmt.Fprintf(b, "\t%s := *(__lassoArg(__lassoArgs[%d]).(*%s))\n", name, arg, p.expr)
	case paramLocalInterface:
		fmt.Fprintf(b, "\tvar %[1]s %[2]s\n\tif __lassoV := __lassoArg(__lassoArgs[%[3]d]); __lassoV != nil {\n\t\t%[1]s = __lassoV.(%[2]s)\n\t}\n", name, p.expr, arg)
	default:
		fmt.Fprintf(b, "\tvar %[1]s %[2]s\n\tif __lassoArgs[%[3]d] != nil {\n\t\t%[1]s = __lassoArgs[%[3]d].(%[2]s)\n\t}\n", name, p.expr, arg)
	}
}
