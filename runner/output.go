package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/benchtrend/runner/analysis"
	"github.com/benchtrend/runner/pipeline"
	"github.com/benchtrend/runner/types"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, result *pipeline.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(w, result)
	}

	if result.Run == nil {
		fmt.Fprintln(w, "No benchmark results, history unchanged")
	} else {
		fmt.Fprintf(w, "Recorded %d benchmarks for commit %s (%s)\n",
			len(result.Run.Results), result.Run.Commit, result.Run.Ref)
	}
	return printReport(w, result.Report, false)
}

func printResults(w io.Writer, results types.Results, asJSON bool) error {
	if asJSON {
		return writeJSON(w, results)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "BENCHMARK\tNS/OP\tB/OP\tALLOCS/OP\tSAMPLES")
	names := results.Names()
	sort.Strings(names)
	for _, name := range names {
		s := results[name]
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\n", name, s.NsPerOp, s.BytesPerOp, s.AllocsPerOp, s.SampleCount)
	}
	return tw.Flush()
}

func printReport(w io.Writer, report *analysis.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(w, report)
	}

	summary := report.Summary
	fmt.Fprintf(w, "History: %d runs\n", summary.TotalRuns)
	if summary.Latest != nil {
		fmt.Fprintf(w, "Latest: %s %s (%d benchmarks)\n",
			summary.Latest.Commit, summary.Latest.Timestamp.Format("2006-01-02 15:04:05"), summary.Latest.Benchmarks)
	}
	if summary.OverallChangePercent != nil {
		fmt.Fprintf(w, "Overall change: %+.2f%%\n", *summary.OverallChangePercent)
	}
	if r := summary.Ranking; r != nil {
		fmt.Fprintf(w, "Fastest: %s (%.2f ns/op), slowest: %s (%.2f ns/op)\n",
			r.Fastest, r.FastestNsPerOp, r.Slowest, r.SlowestNsPerOp)
	}

	if report.InsufficientData {
		fmt.Fprintln(w, "Not enough history for regression analysis")
		return nil
	}

	fmt.Fprintln(w)
	return printVerdicts(w, report)
}

func printVerdicts(w io.Writer, report *analysis.Report) error {
	fmt.Fprintf(w, "%d regressions, %d improvements\n\n", len(report.Regressions), len(report.Improvements))

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "BENCHMARK\tPREVIOUS\tCURRENT\tCHANGE\tVERDICT\tTREND")
	for _, v := range report.Verdicts {
		direction := "-"
		if trend, ok := report.Trend(v.BenchmarkName); ok {
			direction = string(trend.Direction)
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%+.2f%%\t%s\t%s\n",
			v.BenchmarkName, v.PreviousNsPerOp, v.CurrentNsPerOp, v.ChangePercent, v.Classification, direction)
	}
	return tw.Flush()
}
