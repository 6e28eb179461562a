package analysis

import (
	"sort"
	"time"

	"github.com/benchtrend/runner/types"
)

// RunInfo identifies a run without carrying its results
type RunInfo struct {
	Timestamp  time.Time `json:"timestamp"`
	Commit     string    `json:"commit"`
	Ref        string    `json:"ref"`
	Benchmarks int       `json:"benchmarks"`
}

// Ranking names the fastest and slowest benchmark of one run.
// SpeedRatio is slowest/fastest and is nil when the fastest takes 0 ns/op.
type Ranking struct {
	Fastest        string   `json:"fastest"`
	FastestNsPerOp float64  `json:"fastest_ns_per_op"`
	Slowest        string   `json:"slowest"`
	SlowestNsPerOp float64  `json:"slowest_ns_per_op"`
	SpeedRatio     *float64 `json:"speed_ratio,omitempty"`
}

// HistorySummary is the headline view of an archive
type HistorySummary struct {
	TotalRuns int      `json:"total_runs"`
	Latest    *RunInfo `json:"latest,omitempty"`
	Previous  *RunInfo `json:"previous,omitempty"`

	// OverallChangePercent compares the summed ns/op of the benchmarks
	// shared by the latest two runs
	OverallChangePercent *float64 `json:"overall_change_percent,omitempty"`

	// Ranking covers the latest run
	Ranking *Ranking `json:"ranking,omitempty"`
}

// Report bundles everything derived from one history
type Report struct {
	Summary          HistorySummary            `json:"summary"`
	InsufficientData bool                      `json:"insufficient_data"`
	Verdicts         []types.RegressionVerdict `json:"verdicts"`
	Regressions      []types.RegressionVerdict `json:"regressions"`
	Improvements     []types.RegressionVerdict `json:"improvements"`
	Trends           []types.BenchmarkTrend    `json:"trends"`

	// Scaling covers the latest run
	Scaling []types.ScalingSeries `json:"scaling"`
}

// HasRegressions reports whether any benchmark regressed
func (r *Report) HasRegressions() bool {
	return len(r.Regressions) > 0
}

// Trend returns the fitted trend of a benchmark
func (r *Report) Trend(name string) (types.BenchmarkTrend, bool) {
	i := sort.Search(len(r.Trends), func(i int) bool {
		return r.Trends[i].BenchmarkName >= name
	})
	if i < len(r.Trends) && r.Trends[i].BenchmarkName == name {
		return r.Trends[i], true
	}
	return types.BenchmarkTrend{}, false
}

// Analyze runs every derivation over history. It never fails: a history
// with fewer than two runs yields InsufficientData and no verdicts.
func Analyze(history *types.History) *Report {
	verdicts, ok := DetectRegressions(history)
	return &Report{
		Summary:          Summarize(history),
		InsufficientData: !ok,
		Verdicts:         verdicts,
		Regressions:      filterVerdicts(verdicts, types.Regressed),
		Improvements:     filterVerdicts(verdicts, types.Improved),
		Trends:           CalculateTrends(history),
		Scaling:          latestScaling(history),
	}
}

func latestScaling(history *types.History) []types.ScalingSeries {
	latest := history.Latest()
	if latest == nil {
		return []types.ScalingSeries{}
	}
	return Scalability(latest.Results)
}

// CompareReport compares two result sets outside of any history, such as
// a base branch run against a pull request run
func CompareReport(previous, current types.Results) *Report {
	verdicts := CompareResults(previous, current)
	return &Report{
		Verdicts:     verdicts,
		Regressions:  filterVerdicts(verdicts, types.Regressed),
		Improvements: filterVerdicts(verdicts, types.Improved),
		Trends:       []types.BenchmarkTrend{},
		Scaling:      Scalability(current),
	}
}

// Summarize describes the archive size, its last two runs and the overall
// change between them.
func Summarize(history *types.History) HistorySummary {
	summary := HistorySummary{TotalRuns: len(history.Runs)}

	latest := history.Latest()
	if latest == nil {
		return summary
	}
	summary.Latest = runInfo(latest)
	if ranking, ok := Rank(latest.Results); ok {
		summary.Ranking = &ranking
	}

	previous := history.Previous()
	if previous == nil {
		return summary
	}
	summary.Previous = runInfo(previous)

	var prevSum, curSum float64
	for name, cur := range latest.Results {
		if prev, ok := previous.Results[name]; ok {
			prevSum += prev.NsPerOp
			curSum += cur.NsPerOp
		}
	}
	if prevSum != 0 {
		change := (curSum - prevSum) / prevSum * 100
		summary.OverallChangePercent = &change
	}

	return summary
}

// Rank finds the fastest and slowest benchmark by ns/op. Ties go to the
// lexically smaller name. ok is false for empty results.
func Rank(results types.Results) (Ranking, bool) {
	if len(results) == 0 {
		return Ranking{}, false
	}

	names := results.Names()
	sort.Strings(names)

	r := Ranking{
		Fastest:        names[0],
		FastestNsPerOp: results[names[0]].NsPerOp,
		Slowest:        names[0],
		SlowestNsPerOp: results[names[0]].NsPerOp,
	}
	for _, name := range names[1:] {
		ns := results[name].NsPerOp
		if ns < r.FastestNsPerOp {
			r.Fastest, r.FastestNsPerOp = name, ns
		}
		if ns > r.SlowestNsPerOp {
			r.Slowest, r.SlowestNsPerOp = name, ns
		}
	}

	if r.FastestNsPerOp != 0 {
		ratio := r.SlowestNsPerOp / r.FastestNsPerOp
		r.SpeedRatio = &ratio
	}
	return r, true
}

func runInfo(run *types.HistoryRun) *RunInfo {
	return &RunInfo{
		Timestamp:  run.Timestamp,
		Commit:     run.Commit,
		Ref:        run.Ref,
		Benchmarks: len(run.Results),
	}
}
