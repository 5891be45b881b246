package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty working directory.
func inTempDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })

	return dir
}

func TestInitCmd_WritesArenaSettings(t *testing.T) {
	dir := inTempDir(t)

	cmd, out := newTestRoot(t, newInitCmd())
	cmd.SetArgs([]string{"init"})
	require.NoError(t, cmd.Execute())

	contents, err := os.ReadFile(filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(contents), "arena:")
	assert.Contains(t, string(contents), "adaptation_limit")
	assert.Contains(t, string(contents), "statement_timeout")
	assert.Contains(t, out.String(), "wrote "+configFileName)
	assert.Contains(t, out.String(), "adaptation limit")
}

func TestInitCmd_KeepsExistingFile(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "kept", args: []string{"init"}, wantErr: true},
		{name: "forced", args: []string{"init", "--force"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := inTempDir(t)
			target := filepath.Join(dir, configFileName)
			require.NoError(t, os.WriteFile(target, []byte("existing: true\n"), 0o600))

			cmd, _ := newTestRoot(t, newInitCmd())
			cmd.SetArgs(tt.args)

			err := cmd.Execute()

			contents, readErr := os.ReadFile(target)
			require.NoError(t, readErr)

			if tt.wantErr {
				require.ErrorContains(t, err, "write "+configFileName)
				assert.Equal(t, "existing: true\n", string(contents))

				return
			}

			require.NoError(t, err)
			assert.Contains(t, string(contents), "arena:")
		})
	}
}
