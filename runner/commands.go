package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/benchtrend/runner/analysis"
	"github.com/benchtrend/runner/api"
	"github.com/benchtrend/runner/exporter"
	"github.com/benchtrend/runner/metrics"
	"github.com/benchtrend/runner/storage"
)

const defaultExportDir = "benchmark-results/export"

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Parse a report, append it to the history and analyze it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			result, err := newPipeline(cfg, log).Run(cmd.Context())
			if err != nil {
				return err
			}

			if err := printResult(cmd.OutOrStdout(), result, opts.jsonOutput); err != nil {
				return err
			}
			return opts.verdict(result.Report)
		},
	}
}

func newParseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Parse and aggregate a report into the results document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			results, err := newPipeline(cfg, log).Parse()
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results, opts.jsonOutput)
		},
	}
}

func newUpdateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Append the results document to the history and analyze it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			results, err := metrics.LoadResults(cfg.ResultsPath)
			if err != nil {
				return err
			}

			result, err := newPipeline(cfg, log).Update(cmd.Context(), results)
			if err != nil {
				return err
			}

			if err := printResult(cmd.OutOrStdout(), result, opts.jsonOutput); err != nil {
				return err
			}
			return opts.verdict(result.Report)
		},
	}
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the stored history without modifying it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			report, err := newPipeline(cfg, log).Analyze()
			if err != nil {
				return err
			}

			if err := printReport(cmd.OutOrStdout(), report, opts.jsonOutput); err != nil {
				return err
			}
			return opts.verdict(report)
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the history and its analysis over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.API.Addr = addr
			}

			store := storage.NewFileStore(cfg.HistoryPath, log)
			log.WithFields(logrus.Fields{
				"history": store.Path(),
				"addr":    cfg.API.Addr,
			}).Info("Serving benchmark history")
			return api.RunAPIServer(cmd.Context(), cfg.API.Addr, store, log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides api.addr)")
	return cmd
}

// verdict turns detected regressions into errRegressions when asked to
func (o *options) verdict(report *analysis.Report) error {
	if o.failOnRegression && report.HasRegressions() {
		return errRegressions
	}
	return nil
}

func newExportCmd(opts *options) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the history, verdicts and trends as JSON and CSV files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			store := storage.NewFileStore(cfg.HistoryPath, log)
			history, err := store.Load()
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			written, err := exporter.NewDataExporter(dir).ExportAll(history, analysis.Analyze(history))
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"history": store.Path(),
				"runs":    len(history.Runs),
				"files":   len(written),
			}).Info("Exported benchmark history")
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "output", "o", defaultExportDir, "output directory")
	return cmd
}

func newCompareCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compare BASE HEAD",
		Short: "Compare two aggregated results documents",
		Long: `Compares two results documents written by "benchtrend parse", for example
one from the base branch and one from a pull request, with the same rules
used between consecutive history runs. The history is not touched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := metrics.LoadResults(args[0])
			if err != nil {
				return err
			}
			head, err := metrics.LoadResults(args[1])
			if err != nil {
				return err
			}

			report := analysis.CompareReport(base, head)
			if opts.jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else if err := printVerdicts(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			return opts.verdict(report)
		},
	}
}
