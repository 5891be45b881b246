package cmd

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"lasso.dev/pkg/lasso/internal/arena"
	"lasso.dev/pkg/lasso/internal/workflow"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "lasso"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName          = "output"
	corpusFlagName          = "corpus"
	queryFlagName           = "query"
	queryLimitFlagName      = "query-limit"
	cutFlagName             = "cut"
	threadsFlagName         = "threads"
	adaptationLimitFlagName = "adaptation-limit"
	timeoutFlagName         = "timeout"
	verboseFlagName         = "verbose"

	modeFlagName        = "mode"
	taskFlagName        = "task"
	sequencesFlagName   = "sequences"
	sheetsFlagName      = "sheets"
	replayFlagName      = "replay"
	shardFlagName       = "shard"
	mutantLimitFlagName = "mutant-limit"
	metricsAddrFlagName = "metrics-addr"

	formatFlagName = "format"
	diffFlagName   = "diff"

	corpusConfigKey          = "corpus.dir"
	queryConfigKey           = "query.text"
	queryLimitConfigKey      = "query.limit"
	cutConfigKey             = "query.cuts"
	threadsConfigKey         = "arena.threads"
	adaptationLimitConfigKey = "arena.adaptation_limit"
	timeoutConfigKey         = "arena.statement_timeout"
	modeConfigKey            = "execute.mode"
	taskConfigKey            = "execute.task"
	sequencesConfigKey       = "execute.sequences"
	sheetsConfigKey          = "execute.sheets"
	mutantLimitConfigKey     = "execute.mutant_limit"
	metricsAddrConfigKey     = "metrics.addr"

	defaultReportsDir  = ".lasso"
	defaultCorpusDir   = "."
	defaultMode        = string(workflow.ModeLocal)
	defaultTask        = string(workflow.TaskExecute)
	defaultMutantLimit = 50

	envPrefix = "LASSO"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	// consoleLogFilename sends logs to stderr instead of a file.
	consoleLogFilename = "-"

	defaultLogFilename   = ".lasso.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return
		}

		slog.Warn("failed to read config", "file", configFileName, "error", err)
	}
}

func setDefaults() {
	arenaDefaults := arena.DefaultConfig()

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(corpusConfigKey, defaultCorpusDir)
	viper.SetDefault(queryConfigKey, "")
	viper.SetDefault(queryLimitConfigKey, workflow.DefaultLimit)
	viper.SetDefault(cutConfigKey, []string{})
	viper.SetDefault(threadsConfigKey, arenaDefaults.Threads)
	viper.SetDefault(adaptationLimitConfigKey, arenaDefaults.AdaptationLimit)
	viper.SetDefault(timeoutConfigKey, arenaDefaults.StatementTimeout)
	viper.SetDefault(modeConfigKey, defaultMode)
	viper.SetDefault(taskConfigKey, defaultTask)
	viper.SetDefault(sequencesConfigKey, []string{})
	viper.SetDefault(sheetsConfigKey, false)
	viper.SetDefault(mutantLimitConfigKey, defaultMutantLimit)
	viper.SetDefault(metricsAddrConfigKey, "")

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels, e.g. -4 for debug.
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info to a rotated file; if verbose is true it logs
// at Debug. The filename "-" logs to stderr.
func configureLogger(logPath string, verbose bool, stderr io.Writer) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	var handler slog.Handler

	if logPath == consoleLogFilename {
		console := charmlog.NewWithOptions(stderr, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Level:           charmlog.Level(logLevel),
		})
		handler = console
	} else {
		logWriter := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    viper.GetInt(logMaxSizeKey),
			MaxBackups: viper.GetInt(logMaxBackupsKey),
			MaxAge:     viper.GetInt(logMaxAgeKey),
			Compress:   viper.GetBool(logCompressKey),
		}

		handler = slog.NewTextHandler(logWriter, &slog.HandlerOptions{
			AddSource: true,
			Level:     logLevel,
		})
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
