// Package cmd provides the root command and CLI setup for lasso.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"lasso.dev/pkg/lasso/internal/adapter"
	"lasso.dev/pkg/lasso/internal/controller"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/workflow"
)

var reportStore adapter.ReportStore
var ui controller.UI
var flow workflow.Workflow

func init() {
	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	reportStore = adapter.NewYAMLReportStore()
	flow = workflow.NewWorkflow(ui, reportStore, workflow.PackagePools)
}

const queryHelp = `Queries are written in LQL, e.g.

  Stack { push(String)->String pop()->String size()->int }

Prefix the value with @ to read the query from a file.`

const rootLongDescription = `Lasso finds classes in a code corpus that can be adapted to a desired
interface, runs sequence specifications against every adapted candidate and
records what each statement observed.

` + queryHelp

const executeLongDescription = `Adapt the candidates of a query and run sequence specifications against
every adapter. Sequences come from Go test files or YAML sheets.

` + queryHelp

const listLongDescription = `List the candidate classes a query selects from the corpus.

` + queryHelp

const adaptLongDescription = `Adapt the candidates of a query and list the adapters without running
any sequence.

` + queryHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "lasso",
		Short:        "Interface-driven code search and execution arena",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey), cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP(outputFlagName, "o", viper.GetString(outputFlagName), "output directory for reports, sheets and the adapter store")
	bindFlagToConfig(flags.Lookup(outputFlagName), outputFlagName)

	flags.StringP(corpusFlagName, "C", viper.GetString(corpusConfigKey), "corpus directory the candidate pool loads Go packages from")
	bindFlagToConfig(flags.Lookup(corpusFlagName), corpusConfigKey)

	flags.StringP(queryFlagName, "q", viper.GetString(queryConfigKey), "LQL interface query, or @file")
	bindFlagToConfig(flags.Lookup(queryFlagName), queryConfigKey)

	flags.Int(queryLimitFlagName, viper.GetInt(queryLimitConfigKey), "maximum number of candidates taken from the corpus")
	bindFlagToConfig(flags.Lookup(queryLimitFlagName), queryLimitConfigKey)

	flags.StringArray(cutFlagName, viper.GetStringSlice(cutConfigKey), "only keep candidates with this id or class name (can be repeated)")
	bindFlagToConfig(flags.Lookup(cutFlagName), cutConfigKey)

	flags.IntP(threadsFlagName, "p", viper.GetInt(threadsConfigKey), "number of parallel arena workers")
	bindFlagToConfig(flags.Lookup(threadsFlagName), threadsConfigKey)

	flags.Int(adaptationLimitFlagName, viper.GetInt(adaptationLimitConfigKey), "maximum adapters per candidate (0 for no limit)")
	bindFlagToConfig(flags.Lookup(adaptationLimitFlagName), adaptationLimitConfigKey)

	flags.Duration(timeoutFlagName, viper.GetDuration(timeoutConfigKey), "timeout of a single statement")
	bindFlagToConfig(flags.Lookup(timeoutFlagName), timeoutConfigKey)

	flags.BoolP(verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). Failures are logged and reported on stderr;
// the process always exits 0.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
	}
}

// queryArgs collects the candidate selection shared by list, adapt and execute.
func queryArgs() (workflow.QueryArgs, error) {
	query, err := readQuery(viper.GetString(queryConfigKey))
	if err != nil {
		return workflow.QueryArgs{}, err
	}

	return workflow.QueryArgs{
		Query:  query,
		Corpus: model.Path(viper.GetString(corpusConfigKey)),
		Limit:  viper.GetInt(queryLimitConfigKey),
		CUTs:   viper.GetStringSlice(cutConfigKey),
	}, nil
}

// readQuery returns value, or the contents of the file it names with a
// leading @.
func readQuery(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("missing --%s", queryFlagName)
	}

	name, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}

	return string(data), nil
}
