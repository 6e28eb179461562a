package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/benchtrend/runner/analysis"
	"github.com/benchtrend/runner/metrics"
	"github.com/benchtrend/runner/types"
)

// File names written by ExportAll
const (
	HistoryJSONFile = "history.json"
	HistoryCSVFile  = "history.csv"
	VerdictsCSVFile = "verdicts.csv"
	TrendsCSVFile   = "trends.csv"
	ScalingCSVFile  = "scaling.csv"
)

// DataExporter writes the history and its analysis as flat files for
// spreadsheets and external dashboards
type DataExporter struct {
	outputDir string
}

// NewDataExporter creates a new data exporter
func NewDataExporter(outputDir string) *DataExporter {
	return &DataExporter{
		outputDir: outputDir,
	}
}

// ExportAll exports data to all supported formats
func (de *DataExporter) ExportAll(history *types.History, report *analysis.Report) ([]string, error) {
	if err := os.MkdirAll(de.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	exports := []struct {
		name  string
		write func(io.Writer) error
	}{
		{HistoryJSONFile, func(w io.Writer) error { return writeJSON(w, history) }},
		{HistoryCSVFile, func(w io.Writer) error { return WriteHistoryCSV(w, history) }},
		{VerdictsCSVFile, func(w io.Writer) error { return WriteVerdictsCSV(w, report.Verdicts) }},
		{TrendsCSVFile, func(w io.Writer) error { return WriteTrendsCSV(w, report.Trends) }},
		{ScalingCSVFile, func(w io.Writer) error { return WriteScalingCSV(w, report.Scaling) }},
	}

	written := make([]string, 0, len(exports))
	for _, e := range exports {
		path := filepath.Join(de.outputDir, e.name)

		var buf bytes.Buffer
		if err := e.write(&buf); err != nil {
			return written, fmt.Errorf("failed to export %s: %w", e.name, err)
		}
		if err := metrics.WriteFileAtomic(path, buf.Bytes()); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteHistoryCSV writes one row per run and benchmark, oldest run first
func WriteHistoryCSV(w io.Writer, history *types.History) error {
	writer := csv.NewWriter(w)

	header := []string{
		"timestamp", "commit", "ref", "benchmark",
		"ns_per_op", "bytes_per_op", "allocs_per_op", "iterations", "parallelism", "sample_count",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, run := range history.Runs {
		names := run.Results.Names()
		sort.Strings(names)

		for _, name := range names {
			stat := run.Results[name]
			row := []string{
				run.Timestamp.UTC().Format(time.RFC3339Nano),
				run.Commit,
				run.Ref,
				name,
				formatFloat(stat.NsPerOp),
				formatFloat(stat.BytesPerOp),
				formatFloat(stat.AllocsPerOp),
				strconv.FormatInt(stat.Iterations, 10),
				strconv.Itoa(stat.Parallelism),
				strconv.Itoa(stat.SampleCount),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteVerdictsCSV writes the comparison of the latest two runs
func WriteVerdictsCSV(w io.Writer, verdicts []types.RegressionVerdict) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"benchmark", "previous_ns_per_op", "current_ns_per_op", "change_percent", "classification"}); err != nil {
		return err
	}

	for _, v := range verdicts {
		row := []string{
			v.BenchmarkName,
			formatFloat(v.PreviousNsPerOp),
			formatFloat(v.CurrentNsPerOp),
			fmt.Sprintf("%.4f", v.ChangePercent),
			string(v.Classification),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTrendsCSV writes one row per fitted benchmark trend
func WriteTrendsCSV(w io.Writer, trends []types.BenchmarkTrend) error {
	writer := csv.NewWriter(w)

	header := []string{"benchmark", "points", "slope_ns_per_second", "intercept", "r_squared", "direction", "method"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, t := range trends {
		row := []string{
			t.BenchmarkName,
			strconv.Itoa(len(t.Points)),
			formatFloat(t.Slope),
			formatFloat(t.Intercept),
			fmt.Sprintf("%.4f", t.RSquared),
			string(t.Direction),
			t.Method,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteScalingCSV writes one row per size of each scaling series
func WriteScalingCSV(w io.Writer, series []types.ScalingSeries) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"base_name", "size", "ns_per_op"}); err != nil {
		return err
	}

	for _, s := range series {
		for _, p := range s.Points {
			if err := writer.Write([]string{s.BaseName, strconv.FormatInt(p.Size, 10), formatFloat(p.NsPerOp)}); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
