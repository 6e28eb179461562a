package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtrend/runner/types"
)

func TestRank(t *testing.T) {
	ranking, ok := Rank(types.Results{
		"Merge":     {NsPerOp: 400},
		"Insertion": {NsPerOp: 100},
		"Bubble":    {NsPerOp: 1000},
	})
	require.True(t, ok)

	assert.Equal(t, "Insertion", ranking.Fastest)
	assert.Equal(t, 100.0, ranking.FastestNsPerOp)
	assert.Equal(t, "Bubble", ranking.Slowest)
	assert.Equal(t, 1000.0, ranking.SlowestNsPerOp)
	require.NotNil(t, ranking.SpeedRatio)
	assert.Equal(t, 10.0, *ranking.SpeedRatio)
}

func TestRank_EdgeCases(t *testing.T) {
	_, ok := Rank(types.Results{})
	assert.False(t, ok)

	ranking, ok := Rank(types.Results{"Noop": {NsPerOp: 0}, "Work": {NsPerOp: 5}})
	require.True(t, ok)
	assert.Equal(t, "Noop", ranking.Fastest)
	assert.Nil(t, ranking.SpeedRatio)

	ranking, ok = Rank(types.Results{"B": {NsPerOp: 7}, "A": {NsPerOp: 7}})
	require.True(t, ok)
	assert.Equal(t, "A", ranking.Fastest)
	assert.Equal(t, "A", ranking.Slowest)
}

func TestSummarize(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		summary := Summarize(&types.History{})
		assert.Equal(t, 0, summary.TotalRuns)
		assert.Nil(t, summary.Latest)
		assert.Nil(t, summary.OverallChangePercent)
	})

	t.Run("SingleRun", func(t *testing.T) {
		summary := Summarize(&types.History{Runs: []types.HistoryRun{
			runAt(0, "a", map[string]float64{"X": 10}),
		}})
		assert.Equal(t, 1, summary.TotalRuns)
		require.NotNil(t, summary.Latest)
		assert.Equal(t, "a", summary.Latest.Commit)
		assert.Nil(t, summary.Previous)
		assert.Nil(t, summary.OverallChangePercent)
		require.NotNil(t, summary.Ranking)
	})

	t.Run("OverallChangeUsesSharedBenchmarks", func(t *testing.T) {
		summary := Summarize(&types.History{Runs: []types.HistoryRun{
			runAt(0, "a", map[string]float64{"X": 100, "Y": 100, "Gone": 1000}),
			runAt(time.Hour, "b", map[string]float64{"X": 150, "Y": 70, "New": 1000}),
		}})
		assert.Equal(t, 2, summary.TotalRuns)
		assert.Equal(t, 3, summary.Latest.Benchmarks)
		require.NotNil(t, summary.OverallChangePercent)
		assert.InDelta(t, 10.0, *summary.OverallChangePercent, 1e-9)
	})

	t.Run("ZeroPreviousSum", func(t *testing.T) {
		summary := Summarize(&types.History{Runs: []types.HistoryRun{
			runAt(0, "a", map[string]float64{"X": 0}),
			runAt(time.Hour, "b", map[string]float64{"X": 10}),
		}})
		assert.Nil(t, summary.OverallChangePercent)
	})
}

func TestAnalyze(t *testing.T) {
	history := &types.History{Runs: []types.HistoryRun{
		runAt(0, "a", map[string]float64{"Slower": 100, "Faster": 100, "Steady": 100}),
		runAt(time.Hour, "b", map[string]float64{"Slower": 120, "Faster": 50, "Steady": 101}),
	}}

	report := Analyze(history)
	assert.False(t, report.InsufficientData)
	assert.Len(t, report.Verdicts, 3)
	require.Len(t, report.Regressions, 1)
	assert.Equal(t, "Slower", report.Regressions[0].BenchmarkName)
	require.Len(t, report.Improvements, 1)
	assert.Equal(t, "Faster", report.Improvements[0].BenchmarkName)
	assert.True(t, report.HasRegressions())
	assert.Len(t, report.Trends, 3)

	trend, ok := report.Trend("Steady")
	require.True(t, ok)
	assert.Equal(t, "Steady", trend.BenchmarkName)

	_, ok = report.Trend("Missing")
	assert.False(t, ok)
}

func TestAnalyze_SingleRun(t *testing.T) {
	report := Analyze(&types.History{Runs: []types.HistoryRun{
		runAt(0, "a", map[string]float64{"X": 10}),
	}})

	assert.True(t, report.InsufficientData)
	assert.Empty(t, report.Verdicts)
	assert.Empty(t, report.Regressions)
	assert.Empty(t, report.Improvements)
	assert.Empty(t, report.Trends)
	assert.False(t, report.HasRegressions())
}

func TestCompareReport(t *testing.T) {
	report := CompareReport(
		types.Results{"Sort": {NsPerOp: 100}, "Search": {NsPerOp: 10}, "Gone": {NsPerOp: 1}},
		types.Results{"Sort": {NsPerOp: 90}, "Search": {NsPerOp: 10.4}, "New": {NsPerOp: 1}},
	)

	require.Len(t, report.Verdicts, 2)
	assert.Equal(t, "Sort", report.Verdicts[0].BenchmarkName)
	require.Len(t, report.Improvements, 1)
	assert.Empty(t, report.Regressions)
	assert.False(t, report.HasRegressions())
	assert.NotNil(t, report.Trends)
	assert.Zero(t, report.Summary.TotalRuns)
}
