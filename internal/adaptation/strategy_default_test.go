package adaptation

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/failure"
	"lasso.dev/pkg/lasso/internal/lql"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/realm/native/nativetest"
)

const stackQuery = `Stack { Stack() push(Object)->Object pop()->Object peek()->Object size()->int }`

func TestAdapt_Stack(t *testing.T) {
	cut := cutOf(t, nativetest.StackClass)
	ctx := context.Background()

	impls, spec := adapt(t, NewDefaultStrategy(), stackQuery, cut, 10)
	require.Len(t, impls, 1)

	impl := impls[0]
	assert.Equal(t, 0, impl.AdapterID())
	assert.Equal(t, 4, impl.NoOfMethods())
	assert.Len(t, impl.Fingerprint(), 64)

	ctor, err := impl.Initializer(spec, 0)
	require.NoError(t, err)

	instance, err := ctor.Invoke(ctx, nil, nil)
	require.NoError(t, err)

	push, err := impl.Method(spec, 0)
	require.NoError(t, err)

	_, err = push.Invoke(ctx, instance, []any{"a"})
	require.NoError(t, err)

	size, err := impl.Method(spec, 3)
	require.NoError(t, err)

	got, err := size.Invoke(ctx, instance, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	_, err = impl.Method(spec, 4)
	assert.ErrorIs(t, err, ErrNoSuchMember)

	other := model.NewInterfaceSpecification("Other", nil, nil)
	_, err = impl.Method(other, 0)
	assert.ErrorIs(t, err, ErrNoSuchMember)
}

func TestAdapt_ParameterReorderingIsApplied(t *testing.T) {
	cut := cutOf(t, nativetest.FormatterClass)
	ctx := context.Background()

	impls, spec := adapt(t, NewDefaultStrategy(), `Formatter { Formatter(String) foo(String,int)->String }`, cut, 0)
	require.Len(t, impls, 1)

	ctor, err := impls[0].Initializer(spec, 0)
	require.NoError(t, err)

	instance, err := ctor.Invoke(ctx, nil, []any{"p:"})
	require.NoError(t, err)

	foo, err := impls[0].Method(spec, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, foo.Positions)

	got, err := foo.Invoke(ctx, instance, []any{"x", 3})
	require.NoError(t, err)
	assert.Equal(t, "p:x3", got)
}

func TestAdapt_FallbackToDefaultConstructor(t *testing.T) {
	cut := cutOf(t, nativetest.CounterClass)

	impls, spec := adapt(t, NewDefaultStrategy(), `Counter { Counter(int) increment()->int }`, cut, 0)
	require.Len(t, impls, 1)

	ctor, err := impls[0].Initializer(spec, 0)
	require.NoError(t, err)
	assert.Equal(t, KindMember, ctor.Kind)
	assert.Empty(t, ctor.Member.Params)
	assert.Equal(t, []int{Dropped}, ctor.Positions)

	instance, err := ctor.Invoke(context.Background(), nil, []any{5})
	require.NoError(t, err)
	assert.IsType(t, &nativetest.Counter{}, instance)
}

func TestAdapt_StaticInitForUtilityClass(t *testing.T) {
	cut := cutOf(t, nativetest.MathClass)
	ctx := context.Background()

	impls, spec := adapt(t, NewDefaultStrategy(), `MathUtil { MathUtil() max(int,int)->int }`, cut, 0)
	require.Len(t, impls, 1)

	ctor, err := impls[0].Initializer(spec, 0)
	require.NoError(t, err)
	assert.Equal(t, KindStaticInit, ctor.Kind)

	instance, err := ctor.Invoke(ctx, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, instance)

	maxFn, err := impls[0].Method(spec, 0)
	require.NoError(t, err)

	got, err := maxFn.Invoke(ctx, instance, []any{2, 9})
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestAdapt_DequeAgainstStackYieldsNoAdapters(t *testing.T) {
	cut := cutOf(t, nativetest.DequeClass)

	impls, _ := adapt(t, NewDefaultStrategy(), stackQuery, cut, 10)
	assert.Empty(t, impls)
	assert.NotNil(t, impls)

	structural := NewDefaultStrategy()
	structural.Resolver.Filter = AnyName{}

	impls, _ = adapt(t, structural, stackQuery, cut, 10)
	assert.Empty(t, impls, "push has no structural counterpart on a deque")
}

func TestAdapt_Unresolvable(t *testing.T) {
	cut := cutOf(t, nativetest.StackClass)

	spec, err := lql.Parse(`Codec { encode(String)->String decode(String)->String }`)
	require.NoError(t, err)

	_, err = NewDefaultStrategy().Adapt(context.Background(), spec, cut, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvable)
	assert.True(t, failure.Is(err, failure.KindFatalSpecification))
}

func TestAdapt_MissingClassAndContainer(t *testing.T) {
	cut := cutOf(t, "fixture.Missing")

	spec, err := lql.Parse(stackQuery)
	require.NoError(t, err)

	_, err = NewDefaultStrategy().Adapt(context.Background(), spec, cut, 10)
	assert.True(t, failure.Is(err, failure.KindResource))

	_, err = NewDefaultStrategy().Adapt(context.Background(), spec, model.ClassUnderTest{ID: "2", ClassName: "x.Y"}, 10)
	assert.ErrorIs(t, err, model.ErrNoContainer)
}

func TestAdapt_LimitIsRespected(t *testing.T) {
	cut := cutOf(t, nativetest.StackClass)

	strategy := NewDefaultStrategy()
	strategy.Resolver.Filter = AnyName{}

	unbounded, _ := adapt(t, strategy, stackQuery, cut, 0)
	require.Len(t, unbounded, 2)

	pop := unbounded[0].Permutation().Methods[1]
	assert.Equal(t, "Pop", pop.Member.Name, "exact names rank first")

	for limit := 1; limit <= 3; limit++ {
		impls, _ := adapt(t, strategy, stackQuery, cut, limit)
		assert.LessOrEqual(t, len(impls), limit)
	}
}

func TestAdapt_IsDeterministic(t *testing.T) {
	strategy := NewDefaultStrategy()
	strategy.Resolver.Filter = AnyName{}

	run := func() []string {
		impls, _ := adapt(t, strategy, stackQuery, cutOf(t, nativetest.StackClass), 0)

		var out []string
		for _, impl := range impls {
			out = append(out, impl.Fingerprint())
			out = append(out, impl.Describe()...)
		}

		return out
	}

	first := run()
	for range 5 {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("adaptation is not deterministic (-first +again):\n%s", diff)
		}
	}
}

func TestOriginals(t *testing.T) {
	cut := cutOf(t, nativetest.StackClass)
	ctx := context.Background()

	impls, err := Originals(ctx, cut)
	require.NoError(t, err)
	require.Len(t, impls, 1)

	spec := lql.MustParse(`Stack { Stack() push(any)->any size()->int clear() }`)
	original := impls[0]

	assert.Equal(t, OriginalFingerprint, original.Fingerprint())
	assert.Nil(t, original.Permutation())

	ctor, err := original.Initializer(spec, 0)
	require.NoError(t, err)

	instance, err := ctor.Invoke(ctx, nil, nil)
	require.NoError(t, err)

	push, err := original.Method(spec, 0)
	require.NoError(t, err)

	_, err = push.Invoke(ctx, instance, []any{1})
	require.NoError(t, err)

	_, err = original.Method(spec, 2)
	assert.ErrorIs(t, err, ErrNoSuchMember)
}
