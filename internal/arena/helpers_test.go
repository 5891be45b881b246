package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lasso.dev/pkg/lasso/internal/lql"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/realm/native/nativetest"
	"lasso.dev/pkg/lasso/internal/sequence"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const stackQuery = `Stack { Stack() push(Object)->Object pop()->Object size()->int }`

func cutOf(t *testing.T, id, className string) model.ClassUnderTest {
	t.Helper()

	project := &model.Project{GroupID: "example.com", ArtifactID: "fixture-" + id, Version: "v1.0.0"}
	require.NoError(t, project.SetContainer(nativetest.MustRealm("fixture-"+id)))
	project.MarkResolved()

	t.Cleanup(func() {
		_ = project.RemoveContainer()
	})

	return model.ClassUnderTest{ID: id, ClassName: className, Project: project}
}

func lit(typ string, v any) *sequence.Value {
	return &sequence.Value{Type: typ, Literal: v}
}

func stackSpec() *model.InterfaceSpecification {
	return lql.MustParse(stackQuery)
}

// pushPop pushes 1 and 2, pops 2 and expects size 1.
func pushPop() *sequence.Specification {
	return &sequence.Specification{Name: "push-pop", Statements: []sequence.Statement{
		&sequence.ConstructorCall{Constructor: 0},
		lit("int", 1),
		&sequence.MethodCall{Method: 0, Receiver: 0, Args: []int{1}},
		lit("int", 2),
		&sequence.MethodCall{Method: 0, Receiver: 0, Args: []int{3}},
		&sequence.MethodCall{Method: 1, Receiver: 0, Expected: lit("", 2)},
		&sequence.MethodCall{Method: 2, Receiver: 0, Expected: lit("", 1)},
	}}
}

// broken references a later statement and cannot be instantiated.
func broken() *sequence.Specification {
	return &sequence.Specification{Name: "broken", Statements: []sequence.Statement{
		&sequence.MethodCall{Method: 2, Receiver: 1},
		&sequence.ConstructorCall{Constructor: 0},
	}}
}

// valuesOnly never touches the desired interface.
func valuesOnly() *sequence.Specification {
	return &sequence.Specification{Name: "values", Statements: []sequence.Statement{lit("int", 1)}}
}

func newExecutor(t *testing.T, threads int, writer CellWriter, listener ExecutionListener) *Executor {
	t.Helper()

	exec, err := NewExecutor(Config{Threads: threads, AdaptationLimit: 10}, writer, listener)
	require.NoError(t, err)

	return exec
}
