package sequence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/adaptation"
	"lasso.dev/pkg/lasso/internal/lql"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/realm/native/nativetest"
)

func cutOf(t *testing.T, className string) model.ClassUnderTest {
	t.Helper()

	project := &model.Project{GroupID: "example.com", ArtifactID: "fixture", Version: "v1.0.0"}
	require.NoError(t, project.SetContainer(nativetest.MustRealm("fixture")))
	project.MarkResolved()

	t.Cleanup(func() {
		_ = project.RemoveContainer()
	})

	return model.ClassUnderTest{ID: "1", ClassName: className, Project: project}
}

// adapter returns the best adapter of className for query.
func adapter(t *testing.T, query, className string) (adaptation.AdaptedImplementation, *model.InterfaceSpecification) {
	t.Helper()

	ispec := lql.MustParse(query)

	impls, err := adaptation.NewDefaultStrategy().Adapt(context.Background(), ispec, cutOf(t, className), 1)
	require.NoError(t, err)
	require.Len(t, impls, 1)

	return impls[0], ispec
}

func run(t *testing.T, runner *Runner, spec *Specification, ispec *model.InterfaceSpecification, impl adaptation.AdaptedImplementation) *Result {
	t.Helper()

	seq, err := spec.Instantiate(context.Background(), ispec, impl)
	require.NoError(t, err)

	return runner.Run(context.Background(), seq, nil)
}

func statuses(result *Result) []model.StatementStatus {
	out := make([]model.StatementStatus, len(result.Outcomes))
	for i, outcome := range result.Outcomes {
		out[i] = outcome.Status
	}

	return out
}

func lit(typ string, v any) *Value {
	return &Value{Type: typ, Literal: v}
}

const (
	stackQuery       = `Stack { Stack() push(Object)->Object pop()->Object size()->int }`
	formatterQuery   = `Formatter { Formatter(String) foo(String,int)->String }`
	misbehavingQuery = `Misbehaving { Misbehaving() boom()->int sleep(int)->int }`
	matrixQuery      = `Matrix { Matrix(double[][],int,int) get(int,int)->double }`
)
