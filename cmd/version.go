package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lasso build",
		Long:  "Print the lasso release, the VCS revision it was built from and the Go toolchain.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info, _ := debug.ReadBuildInfo()

			for _, line := range buildLines(info) {
				cmd.Println(line)
			}
		},
	}
}

// buildLines describes a lasso binary. Missing build information renders
// as "unknown" rather than failing.
func buildLines(info *debug.BuildInfo) []string {
	if info == nil {
		return []string{"lasso unknown"}
	}

	release := info.Main.Version
	if release == "" {
		release = "unknown"
	}

	lines := []string{fmt.Sprintf("lasso %s (%s)", release, info.Main.Path)}

	var revision, modified string

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}

	if revision != "" {
		if len(revision) > 12 {
			revision = revision[:12]
		}

		if modified == "true" {
			revision += "+dirty"
		}

		lines = append(lines, "revision "+revision)
	}

	return append(lines, "built with "+info.GoVersion)
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
