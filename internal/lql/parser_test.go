package lql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/model"
)

func TestParse_Stack(t *testing.T) {
	spec, err := Parse(`Stack {
		Stack()
		push(Object)->Object
		pop()->Object
		peek()->Object size()->int
	}`)
	require.NoError(t, err)

	assert.Equal(t, "Stack", spec.Name())
	assert.Equal(t, 1, spec.NoOfConstructors())
	require.Equal(t, 4, spec.NoOfMethods())

	ctor, _ := spec.Constructor(0)
	assert.True(t, ctor.IsConstructor())
	assert.Empty(t, ctor.Params)

	push, _ := spec.Method(0)
	assert.Equal(t, model.MethodSignature{Owner: "Stack", Name: "push", Params: []string{"any"}, Return: "any"}, push)

	size, _ := spec.Method(3)
	assert.Equal(t, "int", size.Return)
}

func TestParse_TypeSpellings(t *testing.T) {
	spec, err := Parse(`geo.Matrix { Matrix(double[][], int, int) get(int,int)->double static identity([]float64, *int) clear() apply(interface{})->Integer }`)
	require.NoError(t, err)

	ctor, _ := spec.Constructor(0)
	assert.Equal(t, []string{"[][]float64", "int", "int"}, ctor.Params)
	assert.Equal(t, "geo.Matrix", ctor.Return)

	get, _ := spec.Method(0)
	assert.Equal(t, "float64", get.Return)

	identity, _ := spec.Method(1)
	assert.True(t, identity.Static)
	assert.Equal(t, []string{"[]float64", "*int"}, identity.Params)
	assert.Equal(t, "void", identity.Return)

	clear, _ := spec.Method(2)
	assert.Equal(t, "void", clear.Return)

	apply, _ := spec.Method(3)
	assert.Equal(t, []string{"any"}, apply.Params)
	assert.Equal(t, "*int", apply.Return)
}

func TestParse_InitConstructor(t *testing.T) {
	spec, err := Parse(`Base64 { <init>(String) encode(byte[])->String }`)
	require.NoError(t, err)

	ctor, ok := spec.Constructor(0)
	require.True(t, ok)
	assert.Equal(t, model.ConstructorName, ctor.Name)
	assert.Equal(t, []string{"string"}, ctor.Params)

	encode, _ := spec.Method(0)
	assert.Equal(t, []string{"[]uint8"}, encode.Params)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", ``, "expected name"},
		{"no brace", `Stack push()`, `expected "{"`},
		{"unclosed", `Stack { push()`, "missing closing brace"},
		{"bad params", `Stack { push(int int) }`, "expected , or )"},
		{"bad arrow", `Stack { pop()-Object }`, `expected ">"`},
		{"trailing", `Stack { } extra`, "unexpected"},
		{"static constructor", `Stack { static Stack() }`, "cannot be static"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSyntax)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("Stack {") })
	assert.NotPanics(t, func() { MustParse("Stack { }") })
}
