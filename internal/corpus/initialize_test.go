package corpus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/realm/native/nativetest"
	"lasso.dev/pkg/lasso/internal/realm/script/scripttest"
)

func TestInitialize(t *testing.T) {
	shapes := scripttest.Project("shapes")
	broken := &model.Project{
		GroupID:    "example.com",
		ArtifactID: "broken",
		Version:    "v1.0.0",
		Sources:    map[string][]byte{"a.go": []byte("package broken\n\nimport \"os/exec\"\n\nvar _ = exec.Command\n")},
	}
	native := &model.Project{GroupID: "example.com", ArtifactID: "native", Version: "v1.0.0"}
	require.NoError(t, native.SetContainer(nativetest.MustRealm("native")))

	cuts := []model.ClassUnderTest{
		{ID: "1", ClassName: scripttest.StackClass, Project: shapes},
		{ID: "2", ClassName: "Broken", Project: broken},
		{ID: "3", ClassName: "Stack", Project: native},
		{ID: "4", ClassName: scripttest.CounterClass, Project: shapes},
		{ID: "5", ClassName: "Orphan"},
	}

	ready, err := Initialize(context.Background(), cuts, 4)
	require.NoError(t, err)

	t.Cleanup(func() { _ = Release(ready) })

	ids := make([]string, len(ready))
	for i, cut := range ready {
		ids[i] = cut.ID
	}

	assert.Equal(t, []string{"1", "3", "4"}, ids)
	assert.True(t, shapes.IsResolved())
	assert.Nil(t, broken.Container())

	cls, err := shapes.Container().LoadClass(context.Background(), scripttest.StackClass)
	require.NoError(t, err)
	assert.Equal(t, scripttest.StackClass, cls.Name)

	require.NoError(t, Release(ready))
	assert.Nil(t, shapes.Container())
	assert.Nil(t, native.Container())
	require.NoError(t, Release(ready), "released projects are skipped")
}

func TestInitialize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	project := scripttest.Project("shapes")

	_, err := Initialize(ctx, []model.ClassUnderTest{{ID: "1", ClassName: scripttest.StackClass, Project: project}}, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, project.Container())
}
