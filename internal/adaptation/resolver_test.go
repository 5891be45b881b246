package adaptation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/realm/native/nativetest"
	"lasso.dev/pkg/lasso/internal/typesys"
)

func TestResolve_MatrixConstructorIsSingleDirectMatch(t *testing.T) {
	cut := cutOf(t, nativetest.MatrixClass)
	cls := classOf(t, cut)

	res, err := NewResolver().Resolve(context.Background(), Request{
		CUT:         cut,
		Class:       cls,
		Name:        "Matrix",
		Params:      []*typesys.Class{typesys.ArrayOf(typesys.ArrayOf(typesys.Float64)), typesys.Int, typesys.Int},
		Constructor: true,
	})
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, KindMember, res.Candidates[0].Kind)
	assert.Equal(t, []int{0, 1, 2}, res.Candidates[0].Positions)
	assert.Len(t, res.Matches, 1)
}

func TestResolve_DirectMatchIsNotReordered(t *testing.T) {
	cut := cutOf(t, nativetest.MathClass)
	cls := classOf(t, cut)

	res, err := NewResolver().Resolve(context.Background(), Request{
		CUT:    cut,
		Class:  cls,
		Name:   "max",
		Params: []*typesys.Class{typesys.Int, typesys.Int},
		Return: typesys.Int,
	})
	require.NoError(t, err)

	var structural [][]int

	for _, c := range res.Candidates {
		if c.Strategy == "" && c.Member != nil && c.Member.Name == "Max" {
			structural = append(structural, c.Positions)
		}
	}

	assert.Equal(t, [][]int{{0, 1}}, structural, "a declared-order match is not offered swapped")
}

func TestResolve_ParameterReordering(t *testing.T) {
	cut := cutOf(t, nativetest.FormatterClass)
	cls := classOf(t, cut)

	res, err := NewResolver().Resolve(context.Background(), Request{
		CUT:    cut,
		Class:  cls,
		Name:   "foo",
		Params: []*typesys.Class{typesys.String, typesys.Int},
		Return: typesys.String,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)

	SortCandidates(res.Candidates)

	best := res.Candidates[0]
	assert.Equal(t, "Foo", best.Member.Name)
	assert.Equal(t, []int{1, 0}, best.Positions)
	assert.Equal(t, 0, best.ConversionCount())
	assert.Equal(t, 2, best.Displacement)
	assert.Empty(t, best.Strategy)

	var converted *Candidate

	for _, c := range res.Candidates {
		if c.Strategy == "converter" {
			converted = c
		}
	}

	require.NotNil(t, converted, "converter strategy proposes the declared order")
	assert.Equal(t, []int{0, 1}, converted.Positions)
	assert.Equal(t, 2, converted.ConversionCount())
}

func TestResolve_NameFilter(t *testing.T) {
	cut := cutOf(t, nativetest.StackClass)
	cls := classOf(t, cut)

	req := Request{CUT: cut, Class: cls, Name: "pop", Return: typesys.Any}

	res, err := NewResolver().Resolve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Pop", res.Candidates[0].Member.Name)
	assert.Equal(t, 1, res.Candidates[0].NameScore)

	resolver := NewResolver()
	resolver.Filter = AnyName{}

	res, err = resolver.Resolve(context.Background(), req)
	require.NoError(t, err)

	var names []string
	for _, c := range res.Candidates {
		names = append(names, c.Member.Name)
	}

	assert.ElementsMatch(t, []string{"Peek", "Pop", "Size"}, names)
}

func TestResolve_ConverterStrategy(t *testing.T) {
	cut := cutOf(t, nativetest.StringsClass)
	cls := classOf(t, cut)

	res, err := NewResolver().Resolve(context.Background(), Request{
		CUT:    cut,
		Class:  cls,
		Name:   "repeat",
		Params: []*typesys.Class{typesys.String, typesys.String},
		Return: typesys.String,
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2, "declared order and swapped order both convert one argument")

	SortCandidates(res.Candidates)

	c := res.Candidates[0]
	assert.Equal(t, "converter", c.Strategy)
	assert.Equal(t, []int{0, 1}, c.Positions)
	assert.Nil(t, c.Conversions[0])
	assert.Equal(t, "string->int", c.Conversions[1].Name)

	got, err := c.Invoke(context.Background(), nil, []any{"ab", "3"})
	require.NoError(t, err)
	assert.Equal(t, "ababab", got)

	_, err = c.Invoke(context.Background(), nil, []any{"ab", "x"})
	assert.Error(t, err)

	_, err = c.Invoke(context.Background(), nil, []any{"ab"})
	assert.ErrorIs(t, err, ErrArgumentCount)
}

func TestResolve_Producers(t *testing.T) {
	cut := cutOf(t, nativetest.ConfigClass)
	cls := classOf(t, cut)

	res, err := NewResolver().Resolve(context.Background(), Request{
		CUT:         cut,
		Class:       cls,
		Name:        "Config",
		Constructor: true,
	})
	require.NoError(t, err)

	producers := map[string]*Candidate{}
	for _, c := range res.Candidates {
		assert.Equal(t, KindProducer, c.Kind)
		producers[c.Producer] = c
	}

	require.Contains(t, producers, "factory-method")
	require.Contains(t, producers, "static-field")

	made, err := producers["factory-method"].Invoke(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "default", made.(*nativetest.Config).Name)

	shared, err := producers["static-field"].Invoke(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Same(t, nativetest.GlobalConfig, shared)
}

type panickingStrategy struct{}

func (panickingStrategy) Name() string { return "panicking" }

func (panickingStrategy) Match(*typesys.Class, *typesys.Class, []*typesys.Class, *typesys.Member, []int) []*Candidate {
	panic("strategy bug")
}

func TestResolve_StrategyFailureIsIsolated(t *testing.T) {
	cut := cutOf(t, nativetest.StackClass)
	cls := classOf(t, cut)

	resolver := NewResolver()
	resolver.Strategies = []MethodStrategy{panickingStrategy{}, NewConverterStrategy()}

	res, err := resolver.Resolve(context.Background(), Request{CUT: cut, Class: cls, Name: "size", Return: typesys.Int})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Size", res.Candidates[0].Member.Name)
}

func TestCheckClass(t *testing.T) {
	iface := &typesys.Class{Name: "example.Reader", Kind: typesys.KindInterface}
	abstract := &typesys.Class{Name: "example.Base", Kind: typesys.KindClass, Abstract: true}

	assert.ErrorIs(t, CheckClass(nil, false), ErrNilClass)
	assert.ErrorIs(t, CheckClass(iface, true), ErrInterfaceClass)
	assert.ErrorIs(t, CheckClass(abstract, false), ErrAbstractClass)
	assert.NoError(t, CheckClass(abstract, true))

	_, err := NewResolver().Resolve(context.Background(), Request{Class: iface, Name: "read"})
	assert.ErrorIs(t, err, ErrInterfaceClass)
}

func TestPermutations(t *testing.T) {
	assert.Equal(t, [][]int{{0}}, permutations(1))
	assert.Equal(t, [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}, permutations(3))
	assert.Len(t, permutations(5), 120)
}
