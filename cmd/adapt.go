package cmd

import (
	"github.com/spf13/cobra"

	"lasso.dev/pkg/lasso/internal/workflow"
)

// adaptCmd represents the adapt command.
var adaptCmd = newAdaptCmd()

func newAdaptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adapt",
		Short: "List the adapters of each candidate",
		Long:  adaptLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, err := queryArgs()
			if err != nil {
				return err
			}

			return flow.Adapt(cmd.Context(), workflow.AdaptArgs{QueryArgs: query, Arena: arenaConfig()})
		},
	}
}

func init() {
	rootCmd.AddCommand(adaptCmd)
}
