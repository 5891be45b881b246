package cmd

import (
	"github.com/spf13/cobra"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the candidates of a query",
		Long:  listLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := queryArgs()
			if err != nil {
				return err
			}

			return flow.List(cmd.Context(), args)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
