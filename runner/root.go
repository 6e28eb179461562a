package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/benchtrend/runner/config"
	"github.com/benchtrend/runner/metrics"
	"github.com/benchtrend/runner/pipeline"
	"github.com/benchtrend/runner/storage"
)

const defaultEnvFile = ".env"

// errRegressions is returned when --fail-on-regression is set and the
// analysis found at least one regressed benchmark
var errRegressions = errors.New("performance regressions detected")

// options holds the flags shared by every subcommand
type options struct {
	configPath       string
	envFile          string
	reportPath       string
	resultsPath      string
	historyPath      string
	logLevel         string
	jsonOutput       bool
	failOnRegression bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "benchtrend",
		Short: "Track Go benchmark results across CI runs",
		Long: `benchtrend parses "go test -bench" output, keeps the last 100 runs in a
JSON history and reports which benchmarks got slower or faster than in the
previous run, together with a linear trend over the whole history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file loaded before the configuration")
	flags.StringVar(&opts.reportPath, "report", "", "benchmark report to parse (overrides report_path)")
	flags.StringVar(&opts.resultsPath, "results", "", "aggregated results document (overrides results_path)")
	flags.StringVar(&opts.historyPath, "history", "", "history document (overrides history_path)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (overrides log_level)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print the outcome as JSON")
	flags.BoolVar(&opts.failOnRegression, "fail-on-regression", false, "exit with status 2 when a regression is detected")

	cmd.AddCommand(
		newRunCmd(opts),
		newParseCmd(opts),
		newUpdateCmd(opts),
		newAnalyzeCmd(opts),
		newServeCmd(opts),
		newExportCmd(opts),
		newCompareCmd(opts),
	)
	return cmd
}

// loadConfig resolves the configuration for one command: dotenv file,
// YAML file with env substitution, then flag overrides
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	if err := o.loadEnvFile(cmd); err != nil {
		return nil, nil, err
	}

	bootstrap := logrus.New()
	bootstrap.SetOutput(cmd.ErrOrStderr())

	cfg, err := config.LoadFromFile(o.configPath, bootstrap)
	if err != nil {
		return nil, nil, err
	}

	if o.reportPath != "" {
		cfg.ReportPath = o.reportPath
	}
	if o.resultsPath != "" {
		cfg.ResultsPath = o.resultsPath
	}
	if o.historyPath != "" {
		cfg.HistoryPath = o.historyPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	log.SetOutput(cmd.ErrOrStderr())
	return cfg, log, nil
}

// loadEnvFile loads the dotenv file. The default file is optional, an
// explicitly named one must exist. Variables already set win.
func (o *options) loadEnvFile(cmd *cobra.Command) error {
	if o.envFile == "" {
		return nil
	}

	if _, err := os.Stat(o.envFile); os.IsNotExist(err) && !cmd.Flags().Changed("env-file") {
		return nil
	}
	if err := godotenv.Load(o.envFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", o.envFile, err)
	}
	return nil
}

// newPipeline wires the store and the optional sinks enabled in cfg
func newPipeline(cfg *config.Config, log *logrus.Logger) *pipeline.Pipeline {
	store := storage.NewFileStore(cfg.HistoryPath, log)

	var opts []pipeline.Option
	if cfg.PostgreSQL.Enabled {
		opts = append(opts, pipeline.WithMirror(storage.NewPostgresMirror(&cfg.PostgreSQL, log)))
	}
	if exporter := metrics.NewExporter(&cfg.Prometheus, log); exporter.Enabled() {
		opts = append(opts, pipeline.WithExporter(exporter))
	}

	return pipeline.New(cfg, store, log, opts...)
}
