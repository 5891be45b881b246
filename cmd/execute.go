package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lasso.dev/pkg/lasso/internal/arena"
	"lasso.dev/pkg/lasso/internal/model"
	"lasso.dev/pkg/lasso/internal/workflow"
)

// executeCmd represents the execute command.
var executeCmd = newExecuteCmd()

func newExecuteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Run sequences against adapted candidates",
		Long:  executeLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := executeArgs(cmd)
			if err != nil {
				return err
			}

			stop, err := serveMetrics(viper.GetString(metricsAddrConfigKey))
			if err != nil {
				return err
			}
			defer stop()

			return flow.Execute(cmd.Context(), args)
		},
	}

	configureExecuteFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(executeCmd)
}

func configureExecuteFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String(modeFlagName, viper.GetString(modeConfigKey), "execution mode (local; distributed is not supported)")
	bindFlagToConfig(flags.Lookup(modeFlagName), modeConfigKey)

	flags.String(taskFlagName, viper.GetString(taskConfigKey), "task to run: Execute or Amplify")
	bindFlagToConfig(flags.Lookup(taskFlagName), taskConfigKey)

	flags.StringArrayP(sequencesFlagName, "s", viper.GetStringSlice(sequencesConfigKey), "Go test file, YAML sheet or directory of sequences (can be repeated)")
	bindFlagToConfig(flags.Lookup(sequencesFlagName), sequencesConfigKey)

	flags.Bool(sheetsFlagName, viper.GetBool(sheetsConfigKey), "write observation sheets to a sqlite database in the output directory")
	bindFlagToConfig(flags.Lookup(sheetsFlagName), sheetsConfigKey)

	flags.Int(mutantLimitFlagName, viper.GetInt(mutantLimitConfigKey), "maximum mutants per candidate for the Amplify task (0 for no limit)")
	bindFlagToConfig(flags.Lookup(mutantLimitFlagName), mutantLimitConfigKey)

	flags.String(metricsAddrFlagName, viper.GetString(metricsAddrConfigKey), "serve prometheus metrics on this address while running")
	bindFlagToConfig(flags.Lookup(metricsAddrFlagName), metricsAddrConfigKey)

	flags.Bool(replayFlagName, false, "only run the adapters recorded by a previous execution")
	flags.String(shardFlagName, "", "shard index and total shard count in the format INDEX/TOTAL (e.g., 0/3)")
}

func executeArgs(cmd *cobra.Command) (workflow.ExecuteArgs, error) {
	query, err := queryArgs()
	if err != nil {
		return workflow.ExecuteArgs{}, err
	}

	shard, _ := cmd.Flags().GetString(shardFlagName)
	query.ShardIndex, query.ShardCount = parseShardFlag(shard)

	replay, _ := cmd.Flags().GetBool(replayFlagName)

	return workflow.ExecuteArgs{
		QueryArgs:   query,
		Mode:        workflow.Mode(viper.GetString(modeConfigKey)),
		Task:        workflow.Task(viper.GetString(taskConfigKey)),
		Sequences:   parsePaths(viper.GetStringSlice(sequencesConfigKey)),
		Output:      model.Path(viper.GetString(outputFlagName)),
		Sheets:      viper.GetBool(sheetsConfigKey),
		Replay:      replay,
		MutantLimit: viper.GetInt(mutantLimitConfigKey),
		Arena:       arenaConfig(),
	}, nil
}

func arenaConfig() arena.Config {
	return arena.Config{
		Threads:          viper.GetInt(threadsConfigKey),
		AdaptationLimit:  viper.GetInt(adaptationLimitConfigKey),
		StatementTimeout: viper.GetDuration(timeoutConfigKey),
	}
}

func parseShardFlag(shard string) (int, int) {
	if shard == "" {
		return 0, 1
	}

	var index, total int

	_, err := fmt.Sscanf(shard, "%d/%d", &index, &total)
	if err != nil || total <= 0 || index < 0 || index >= total {
		return 0, 1
	}

	return index, total
}

func parsePaths(args []string) []model.Path {
	paths := make([]model.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, model.Path(arg))
	}

	return paths
}

// serveMetrics exposes /metrics on addr until the returned stop is called.
// An empty addr serves nothing.
func serveMetrics(addr string) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	slog.Info("serving metrics", "addr", listener.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(ctx)
	}, nil
}
