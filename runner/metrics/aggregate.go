package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/benchtrend/runner/types"
)

// Aggregate collapses records sharing a name into one mean statistic.
// Names are compared exactly. Parallelism comes from the first record of
// each group and iterations use a truncating integer mean.
func Aggregate(records []types.BenchmarkRecord) types.Results {
	groups := make(map[string][]types.BenchmarkRecord)
	for _, rec := range records {
		groups[rec.Name] = append(groups[rec.Name], rec)
	}

	results := make(types.Results, len(groups))
	for name, group := range groups {
		results[name] = aggregateGroup(group)
	}
	return results
}

func aggregateGroup(group []types.BenchmarkRecord) types.AggregatedStat {
	n := len(group)
	ns := make([]float64, n)
	bytes := make([]float64, n)
	allocs := make([]float64, n)

	var iterations int64
	for i, rec := range group {
		ns[i] = rec.NsPerOp
		bytes[i] = rec.BytesPerOp
		allocs[i] = rec.AllocsPerOp
		iterations += rec.Iterations
	}

	return types.AggregatedStat{
		NsPerOp:     stat.Mean(ns, nil),
		BytesPerOp:  stat.Mean(bytes, nil),
		AllocsPerOp: stat.Mean(allocs, nil),
		Iterations:  iterations / int64(n),
		Parallelism: group[0].Parallelism,
		SampleCount: n,
	}
}
