package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const forceFlagName = "force"

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write lasso.yaml with the current arena and query settings",
		Long: `Write lasso.yaml in the working directory with the settings lasso would use
right now: defaults, LASSO_* environment values and flags given to this command.
An existing file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := filepath.Join(configFolderPath, configFileName)
			force, _ := cmd.Flags().GetBool(forceFlagName)

			write := viper.SafeWriteConfigAs
			if force {
				write = viper.WriteConfigAs
			}

			if err := write(target); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}

			cmd.Printf("wrote %s (arena threads %d, adaptation limit %d)\n",
				target, viper.GetInt(threadsConfigKey), viper.GetInt(adaptationLimitConfigKey))

			return nil
		},
	}

	cmd.Flags().Bool(forceFlagName, false, "overwrite an existing lasso.yaml")

	return cmd
}

func init() {
	rootCmd.AddCommand(initCmd)
}
