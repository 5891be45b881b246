package cmd

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLines(t *testing.T) {
	tests := []struct {
		name string
		info *debug.BuildInfo
		want []string
	}{
		{
			name: "no build info",
			want: []string{"lasso unknown"},
		},
		{
			name: "development build",
			info: &debug.BuildInfo{GoVersion: "go1.25.1", Main: debug.Module{Path: "lasso.dev/pkg/lasso"}},
			want: []string{"lasso unknown (lasso.dev/pkg/lasso)", "built with go1.25.1"},
		},
		{
			name: "release from a dirty tree",
			info: &debug.BuildInfo{
				GoVersion: "go1.25.1",
				Main:      debug.Module{Path: "lasso.dev/pkg/lasso", Version: "v0.4.0"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			want: []string{"lasso v0.4.0 (lasso.dev/pkg/lasso)", "revision 0123456789ab+dirty", "built with go1.25.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildLines(tt.info))
		})
	}
}

func TestVersionCmd_PrintsLasso(t *testing.T) {
	cmd, out := newTestRoot(t, newVersionCmd())
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "lasso ")
}
