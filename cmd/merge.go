package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/workflow"
)

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge REPORTS...",
		Short: "Merge report files into the output directory",
		Long: `Merge report files written by sharded or repeated executions into the
reports of the output directory. Later files win for the same adapter.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flow.Merge(cmd.Context(), workflow.MergeArgs{
				Inputs: parsePaths(args),
				Output: model.Path(viper.GetString(outputFlagName)),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
