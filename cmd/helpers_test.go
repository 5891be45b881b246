package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"

	"lasso.dev/pkg/lasso/internal/workflow"
)

type mockWorkflow struct {
	mock.Mock
}

func newMockWorkflow(t *testing.T) *mockWorkflow {
	t.Helper()

	m := &mockWorkflow{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	original := flow
	flow = m

	t.Cleanup(func() { flow = original })

	return m
}

func (m *mockWorkflow) List(ctx context.Context, args workflow.QueryArgs) error {
	return m.Called(ctx, args).Error(0)
}

func (m *mockWorkflow) Adapt(ctx context.Context, args workflow.AdaptArgs) error {
	return m.Called(ctx, args).Error(0)
}

func (m *mockWorkflow) Execute(ctx context.Context, args workflow.ExecuteArgs) error {
	return m.Called(ctx, args).Error(0)
}

func (m *mockWorkflow) View(ctx context.Context, args workflow.ViewArgs) error {
	return m.Called(ctx, args).Error(0)
}

func (m *mockWorkflow) Merge(ctx context.Context, args workflow.MergeArgs) error {
	return m.Called(ctx, args).Error(0)
}

// newTestRoot builds a fresh root with sub and logs to the command's stderr.
func newTestRoot(t *testing.T, sub ...*cobra.Command) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	viper.Set(logFilenameKey, consoleLogFilename)
	t.Cleanup(func() { viper.Set(logFilenameKey, defaultLogFilename) })

	out := &bytes.Buffer{}

	cmd := newRootCmd()
	cmd.AddCommand(sub...)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	return cmd, out
}
