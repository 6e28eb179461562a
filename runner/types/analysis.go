package types

import "time"

// Classification is the outcome of comparing one benchmark between two runs
type Classification string

const (
	Regressed Classification = "regressed"
	Improved  Classification = "improved"
	Stable    Classification = "stable"
)

// RegressionVerdict compares the latest run against the one before it.
// Verdicts are derived on every invocation and never persisted.
type RegressionVerdict struct {
	BenchmarkName   string         `json:"benchmark_name"`
	ChangePercent   float64        `json:"change_percent"`
	CurrentNsPerOp  float64        `json:"current_ns_per_op"`
	PreviousNsPerOp float64        `json:"previous_ns_per_op"`
	Classification  Classification `json:"classification"`
}

// TrendDirection labels the sign of a trend slope
type TrendDirection string

const (
	TrendSlower TrendDirection = "slower"
	TrendFaster TrendDirection = "faster"
	TrendFlat   TrendDirection = "flat"
)

// TrendPoint is one observation of a benchmark in the retained history
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	NsPerOp   float64   `json:"ns_per_op"`
	Commit    string    `json:"commit"`
}

// BenchmarkTrend is the linear fit of ns/op against elapsed seconds
// for one benchmark across the retained history.
type BenchmarkTrend struct {
	BenchmarkName string         `json:"benchmark_name"`
	Points        []TrendPoint   `json:"points"`
	Slope         float64        `json:"slope_ns_per_second"`
	Intercept     float64        `json:"intercept"`
	RSquared      float64        `json:"r_squared"`
	Direction     TrendDirection `json:"direction"`
	Method        string         `json:"method"` // "two_point" or "least_squares"
}

// ScalingPoint is the ns/op of one input size
type ScalingPoint struct {
	Size    int64   `json:"size"`
	NsPerOp float64 `json:"ns_per_op"`
}

// ScalingSeries groups the benchmarks of one run that differ only by a
// trailing "_<size>" in their name, e.g. Sort_100 and Sort_1000.
type ScalingSeries struct {
	BaseName string         `json:"base_name"`
	Points   []ScalingPoint `json:"points"`
}
