package typesys

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"int", "int"},
		{" double ", "float64"},
		{"double[][]", "[][]float64"},
		{"Object", "any"},
		{"java.lang.String", "string"},
		{"Integer", "*int"},
		{"Integer[]", "[]*int"},
		{"[]interface{}", "[]any"},
		{"*long", "*int64"},
		{"", "void"},
		{"example.Stack", "example.Stack"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestBuiltin(t *testing.T) {
	cls, ok := Builtin("double[][]")
	require.True(t, ok)
	assert.Equal(t, KindArray, cls.Kind)
	assert.Equal(t, "[][]float64", cls.Name)
	assert.Equal(t, reflect.TypeOf([][]float64(nil)), cls.GoType)

	boxed, ok := Builtin("Integer")
	require.True(t, ok)
	assert.Equal(t, KindBoxed, boxed.Kind)
	assert.Equal(t, reflect.TypeOf((*int)(nil)), boxed.GoType)

	_, ok = Builtin("example.Stack")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	registry := NewRegistry("test")
	stack := &Class{Name: "example.Stack", Kind: KindClass}
	registry.Add(stack)

	ctx := context.Background()

	cls, err := Resolve(ctx, registry, "example.Stack")
	require.NoError(t, err)
	assert.Same(t, stack, cls)

	arr, err := Resolve(ctx, registry, "example.Stack[]")
	require.NoError(t, err)
	assert.Equal(t, "[]example.Stack", arr.Name)
	assert.Same(t, stack, arr.Elem)

	_, err = Resolve(ctx, registry, "example.Missing")
	assert.ErrorIs(t, err, ErrClassNotFound)

	_, err = Resolve(ctx, nil, "example.Stack")
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestRegistry_Dispose(t *testing.T) {
	registry := NewRegistry("test")
	registry.Add(&Class{Name: "example.Stack", Kind: KindClass})
	assert.Equal(t, []string{"example.Stack"}, registry.Classes())

	require.NoError(t, registry.Dispose())
	assert.True(t, registry.Disposed())

	_, err := registry.LoadClass(context.Background(), "example.Stack")
	assert.True(t, errors.Is(err, ErrDisposed))

	assert.ErrorIs(t, registry.Dispose(), ErrDisposed)
}
