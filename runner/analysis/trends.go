package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/benchtrend/runner/types"
)

// Fit methods recorded on a BenchmarkTrend
const (
	MethodTwoPoint     = "two_point"
	MethodLeastSquares = "least_squares"
)

// CalculateTrends fits ns/op against elapsed time for every benchmark in the
// retained history. Benchmarks with fewer than two points, or whose points
// all share one timestamp, have no slope and are left out. The result is
// ordered by benchmark name.
func CalculateTrends(history *types.History) []types.BenchmarkTrend {
	series := collectSeries(history)

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	trends := make([]types.BenchmarkTrend, 0, len(names))
	for _, name := range names {
		if trend, ok := FitTrend(name, series[name]); ok {
			trends = append(trends, trend)
		}
	}
	return trends
}

// collectSeries gathers one point per run for each benchmark name
func collectSeries(history *types.History) map[string][]types.TrendPoint {
	series := make(map[string][]types.TrendPoint)
	for _, run := range history.Runs {
		for name, result := range run.Results {
			series[name] = append(series[name], types.TrendPoint{
				Timestamp: run.Timestamp,
				NsPerOp:   result.NsPerOp,
				Commit:    run.Commit,
			})
		}
	}
	return series
}

// FitTrend fits a first-degree line to points after sorting them by
// timestamp. The x axis is seconds elapsed since the earliest point, so the
// slope is in ns/op per second. Two points are solved exactly; three or more
// use ordinary least squares.
func FitTrend(name string, points []types.TrendPoint) (types.BenchmarkTrend, bool) {
	if len(points) < 2 {
		return types.BenchmarkTrend{}, false
	}

	sorted := make([]types.TrendPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	origin := sorted[0].Timestamp
	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, p := range sorted {
		xs[i] = p.Timestamp.Sub(origin).Seconds()
		ys[i] = p.NsPerOp
	}

	// sorted ascending, so a zero last offset means every timestamp is equal
	if xs[len(xs)-1] == 0 {
		return types.BenchmarkTrend{}, false
	}

	trend := types.BenchmarkTrend{
		BenchmarkName: name,
		Points:        sorted,
	}

	if len(sorted) == 2 {
		trend.Slope = (ys[1] - ys[0]) / (xs[1] - xs[0])
		trend.Intercept = ys[0]
		trend.RSquared = 1
		trend.Method = MethodTwoPoint
	} else {
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		trend.Slope = beta
		trend.Intercept = alpha
		trend.RSquared = rSquared(xs, ys, alpha, beta)
		trend.Method = MethodLeastSquares
	}

	trend.Direction = directionOf(trend.Slope)
	return trend, true
}

// rSquared is zero when ys has no variance, where gonum would return NaN
func rSquared(xs, ys []float64, alpha, beta float64) float64 {
	if stat.Variance(ys, nil) == 0 {
		return 0
	}
	return stat.RSquared(xs, ys, nil, alpha, beta)
}

func directionOf(slope float64) types.TrendDirection {
	switch {
	case slope > 0:
		return types.TrendSlower
	case slope < 0:
		return types.TrendFaster
	default:
		return types.TrendFlat
	}
}
