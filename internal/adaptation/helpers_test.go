package adaptation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/lql"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/realm/native/nativetest"
	"lasso.dev/pkg/lasso/internal/typesys"
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

func classOf(t *testing.T, cut model.ClassUnderTest) *typesys.Class {
	t.Helper()

	cls, err := cut.Project.Container().LoadClass(context.Background(), cut.ClassName)
	require.NoError(t, err)

	return cls
}

func adapt(t *testing.T, strategy *DefaultStrategy, query string, cut model.ClassUnderTest, limit int) ([]AdaptedImplementation, *model.InterfaceSpecification) {
	t.Helper()

	spec, err := lql.Parse(query)
	require.NoError(t, err)

	impls, err := strategy.Adapt(context.Background(), spec, cut, limit)
	require.NoError(t, err)

	return impls, spec
}
