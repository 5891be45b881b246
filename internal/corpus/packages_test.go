package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"lasso.dev/pkg/lasso/internal/lql"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/realm/script/scripttest"
)

const queueSource = `package shapes

type Queue struct {
	items []string
}

func (q *Queue) Push(item string) string {
	q.items = append(q.items, item)
	return item
}

func (q *Queue) Size() int {
	return len(q.items)
}
`

// writeCorpus lays the fixture package out as a module.
func writeCorpus(t *testing.T, module string) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module "+module+"\n\ngo 1.21\n")

	for name, content := range scripttest.Sources() {
		writeFile(t, filepath.Join(root, name), string(content))
	}

	writeFile(t, filepath.Join(root, "queue.go"), queueSource)
	writeFile(t, filepath.Join(root, "internal", "other", "other.go"), "package other\n\ntype Other struct{}\n\nfunc (Other) Pop() int { return 0 }\n")

	return root
}

func TestPackagePool_Candidates(t *testing.T) {
	root := writeCorpus(t, "example.com/shapes")
	ispec := lql.MustParse(`Stack { push(String)->String pop()->String size()->int }`)

	cuts, err := NewPackagePool(root, nil).Candidates(context.Background(), ispec, 0)
	require.NoError(t, err)

	var names []string
	for _, cut := range cuts {
		names = append(names, cut.Project.ModulePath()+"."+cut.ClassName)
	}

	assert.Equal(t, []string{
		"example.com/shapes.Stack",
		"example.com/shapes.Queue",
		"example.com/shapes/internal/other.Other",
	}, names)

	assert.Equal(t, "1", cuts[0].ID)
	assert.NotSame(t, cuts[0].Project, cuts[1].Project, "every candidate owns its project")
	assert.Equal(t, cuts[0].Project.Coordinates(), cuts[1].Project.Coordinates())
	assert.Equal(t, cuts[0].Project.Sources, cuts[1].Project.Sources)

	project := cuts[0].Project
	assert.Equal(t, "example.com", project.GroupID)
	assert.Equal(t, "shapes", project.ArtifactID)
	assert.True(t, strings.HasPrefix(project.Version, "v0.0.0-src"), project.Version)
	assert.Equal(t, []string{"counter.go", "queue.go", "stack.go"}, project.SourceNames())
	assert.Nil(t, project.Container())
	require.NoError(t, project.Validate())

	limited, err := NewPackagePool(root, nil).Candidates(context.Background(), ispec, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Stack", limited[0].ClassName)
}

func TestPackagePool_NoMatches(t *testing.T) {
	root := writeCorpus(t, "example.com/shapes")

	cuts, err := NewPackagePool(root, nil).Candidates(context.Background(), lql.MustParse(`Matrix { transpose()->Matrix }`), 0)
	require.NoError(t, err)
	assert.Empty(t, cuts)
}

func TestVersion(t *testing.T) {
	tests := []struct {
		module string
		want   string
	}{
		{"", "v0.0.0-srcabc"},
		{"example.com/shapes", "v0.0.0-srcabc"},
		{"example.com/shapes/v2", "v2.0.0-srcabc"},
		{"gopkg.in/yaml.v3", "v3.0.0-srcabc"},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			assert.Equal(t, tt.want, version(tt.module, "abc"))
		})
	}

	assert.Equal(t, "v0.0.0-src0123456789ab", version("m", "0123456789abcdef"))
}

type memFS struct {
	files map[string]string
	root  string
}

func (f memFS) ReadFile(path model.Path) ([]byte, error) {
	content, ok := f.files[string(path)]
	if !ok {
		return nil, os.ErrNotExist
	}

	return []byte(content), nil
}

func (f memFS) HashFile(path model.Path) (string, error) {
	if _, ok := f.files[string(path)]; !ok {
		return "", os.ErrNotExist
	}

	return "hash-" + filepath.Base(string(path)), nil
}

func (f memFS) FindModuleRoot(model.Path) (model.Path, error) {
	if f.root == "" {
		return "", ErrNoModule
	}

	return model.Path(f.root), nil
}

func TestPackagePool_Project(t *testing.T) {
	fs := memFS{
		root: "/src",
		files: map[string]string{
			"/src/go.mod":       "module example.com/lib/v2\n\ngo 1.21\n\nrequire (\n\tgithub.com/acme/a v1.2.3\n\tgolang.org/x/text v0.3.0 // indirect\n)\n",
			"/src/lib/b.go":     "package lib\n",
			"/src/lib/a.go":     "package lib\n",
			"/elsewhere/a.go":   "package elsewhere\n",
			"/elsewhere/go.mod": "module {",
		},
	}
	pool := NewPackagePool("/src", fs)

	project, err := pool.project(&packages.Package{PkgPath: "example.com/lib/v2/lib", GoFiles: []string{"/src/lib/b.go", "/src/lib/a.go"}})
	require.NoError(t, err)
	assert.Equal(t, "example.com/lib/v2", project.GroupID)
	assert.Equal(t, "lib", project.ArtifactID)
	assert.Equal(t, model.Path("/src/lib"), project.Root)
	assert.Equal(t, []string{"a.go", "b.go"}, project.SourceNames())
	assert.Equal(t, []string{"github.com/acme/a@v1.2.3", "golang.org/x/text@v0.3.0"}, project.Dependencies)
	assert.True(t, strings.HasPrefix(project.Version, "v2.0.0-src"), project.Version)

	withModule, err := pool.project(&packages.Package{
		PkgPath: "elsewhere",
		GoFiles: []string{"/elsewhere/a.go"},
		Module:  &packages.Module{Path: "elsewhere", GoMod: "/elsewhere/go.mod"},
	})
	require.NoError(t, err, "unreadable module metadata is not fatal")
	assert.Empty(t, withModule.GroupID)
	assert.Nil(t, withModule.Dependencies)

	_, err = pool.project(&packages.Package{PkgPath: "example.com/none"})
	require.Error(t, err)

	_, err = pool.project(&packages.Package{PkgPath: "example.com/missing", GoFiles: []string{"/src/missing.go"}})
	require.True(t, errors.Is(err, os.ErrNotExist))
}
