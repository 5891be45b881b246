package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/workflow"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View previously saved reports",
		Long: `View the reports saved in the output directory, as a table or as JSON.
With --diff twice, compare the observations of two adapters (CUT#ADAPTER).`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString(formatFlagName)
			diff, _ := cmd.Flags().GetStringArray(diffFlagName)

			return flow.View(cmd.Context(), workflow.ViewArgs{
				Output: model.Path(viper.GetString(outputFlagName)),
				Format: format,
				Diff:   diff,
				Out:    cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringP(formatFlagName, "f", workflow.FormatTable, "output format: table or json")
	cmd.Flags().StringArray(diffFlagName, nil, "adapter key to compare, given twice")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
