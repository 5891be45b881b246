package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/workflow"
)

const stackQuery = "Stack { push(String)->String pop()->String }"

func TestParseShardFlag(t *testing.T) {
	tests := []struct {
		name      string
		shard     string
		wantIndex int
		wantTotal int
	}{
		{"empty string", "", 0, 1},
		{"valid 0/3", "0/3", 0, 3},
		{"valid 2/3", "2/3", 2, 3},
		{"invalid format", "invalid", 0, 1},
		{"zero total", "0/0", 0, 1},
		{"negative index", "-1/3", 0, 1},
		{"index >= total", "3/3", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotIndex, gotTotal := parseShardFlag(tt.shard)
			assert.Equal(t, tt.wantIndex, gotIndex, "index")
			assert.Equal(t, tt.wantTotal, gotTotal, "total")
		})
	}
}

func TestParsePaths(t *testing.T) {
	assert.Equal(t, []model.Path{}, parsePaths(nil))
	assert.Equal(t, []model.Path{"a_test.go", "seq.yaml"}, parsePaths([]string{"a_test.go", "seq.yaml"}))
}

func TestExecuteCmd_Args(t *testing.T) {
	wf := newMockWorkflow(t)
	cmd, _ := newTestRoot(t, newExecuteCmd())

	wf.On("Execute", mock.Anything, mock.MatchedBy(func(args workflow.ExecuteArgs) bool {
		return args.Query == stackQuery &&
			args.Corpus == model.Path("./corpus") &&
			args.Limit == 7 &&
			assert.ObjectsAreEqual([]string{"Stack", "3"}, args.CUTs) &&
			args.ShardIndex == 1 && args.ShardCount == 2 &&
			args.Mode == workflow.ModeLocal &&
			args.Task == workflow.Task("amplify") &&
			assert.ObjectsAreEqual([]model.Path{"stack_test.go", "seq.yaml"}, args.Sequences) &&
			args.Output == model.Path("out") &&
			args.Sheets && args.Replay &&
			args.MutantLimit == 3 &&
			args.Arena.Threads == 2 &&
			args.Arena.AdaptationLimit == 4 &&
			args.Arena.StatementTimeout == 3*time.Second
	})).Return(nil)

	cmd.SetArgs([]string{
		"execute",
		"-q", stackQuery,
		"-C", "./corpus",
		"--query-limit", "7",
		"--cut", "Stack", "--cut", "3",
		"--shard", "1/2",
		"--task", "amplify",
		"-s", "stack_test.go", "-s", "seq.yaml",
		"-o", "out",
		"--sheets", "--replay",
		"--mutant-limit", "3",
		"-p", "2",
		"--adaptation-limit", "4",
		"--timeout", "3s",
	})
	require.NoError(t, cmd.Execute())
}

func TestExecuteCmd_Defaults(t *testing.T) {
	wf := newMockWorkflow(t)
	cmd, _ := newTestRoot(t, newExecuteCmd())

	wf.On("Execute", mock.Anything, mock.MatchedBy(func(args workflow.ExecuteArgs) bool {
		return args.Output == model.Path(defaultReportsDir) &&
			args.Mode == workflow.ModeLocal &&
			args.Task == workflow.TaskExecute &&
			args.ShardCount == 1 &&
			!args.Replay
	})).Return(nil)

	cmd.SetArgs([]string{"execute", "-q", stackQuery, "-s", "seq.yaml"})
	require.NoError(t, cmd.Execute())
}

func TestExecuteCmd_Errors(t *testing.T) {
	wf := newMockWorkflow(t)

	cmd, _ := newTestRoot(t, newExecuteCmd())
	cmd.SetArgs([]string{"execute", "-q", ""})
	require.ErrorContains(t, cmd.Execute(), "missing --query")

	cmd, _ = newTestRoot(t, newExecuteCmd())
	cmd.SetArgs([]string{"execute", "-q", stackQuery, "--mode", "distributed"})
	wf.On("Execute", mock.Anything, mock.Anything).Return(workflow.ErrUnsupportedMode).Once()
	require.ErrorIs(t, cmd.Execute(), workflow.ErrUnsupportedMode)

	cmd, _ = newTestRoot(t, newExecuteCmd())
	cmd.SetArgs([]string{"execute", "-q", stackQuery, "extra"})
	require.Error(t, cmd.Execute())
}

func TestNewExecuteCmd(t *testing.T) {
	cmd := newExecuteCmd()

	assert.Equal(t, "execute", cmd.Use)
	assert.Equal(t, executeLongDescription, cmd.Long)

	for _, name := range []string{
		modeFlagName, taskFlagName, sequencesFlagName, sheetsFlagName, replayFlagName,
		shardFlagName, mutantLimitFlagName, metricsAddrFlagName,
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestServeMetrics(t *testing.T) {
	stop, err := serveMetrics("")
	require.NoError(t, err)
	stop()

	stop, err = serveMetrics("127.0.0.1:0")
	require.NoError(t, err)
	stop()

	_, err = serveMetrics("not an address")
	require.ErrorContains(t, err, "listen for metrics")
}
