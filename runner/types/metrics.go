package types

import (
	"time"
)

// TimeSeriesMetric is one benchmark measurement flattened for Grafana-style storage
type TimeSeriesMetric struct {
	Time       time.Time         `json:"time" db:"time"`
	RunID      string            `json:"run_id" db:"run_id"`
	Benchmark  string            `json:"benchmark" db:"benchmark"`
	MetricName string            `json:"metric_name" db:"metric_name"`
	Value      float64           `json:"value" db:"value"`
	Tags       map[string]string `json:"tags" db:"tags"`
}

// Metric names for time-series storage
const (
	MetricNsPerOp     = "ns_per_op"
	MetricBytesPerOp  = "bytes_per_op"
	MetricAllocsPerOp = "allocs_per_op"
	MetricIterations  = "iterations"
	MetricSampleCount = "sample_count"
)

// FlattenRun converts a run into one metric per benchmark and measurement
func FlattenRun(runID string, run *HistoryRun) []TimeSeriesMetric {
	tags := map[string]string{"commit": run.Commit, "ref": run.Ref}

	metrics := make([]TimeSeriesMetric, 0, len(run.Results)*5)
	for name, stat := range run.Results {
		values := []struct {
			metric string
			value  float64
		}{
			{MetricNsPerOp, stat.NsPerOp},
			{MetricBytesPerOp, stat.BytesPerOp},
			{MetricAllocsPerOp, stat.AllocsPerOp},
			{MetricIterations, float64(stat.Iterations)},
			{MetricSampleCount, float64(stat.SampleCount)},
		}
		for _, v := range values {
			metrics = append(metrics, TimeSeriesMetric{
				Time:       run.Timestamp,
				RunID:      runID,
				Benchmark:  name,
				MetricName: v.metric,
				Value:      v.value,
				Tags:       tags,
			})
		}
	}
	return metrics
}
