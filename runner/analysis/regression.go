package analysis

import (
	"math"
	"sort"

	"github.com/benchtrend/runner/types"
)

// RegressionThresholdPercent is the fixed band around zero change inside
// which a benchmark is considered stable.
const RegressionThresholdPercent = 5.0

// DetectRegressions compares the latest run with the one before it.
// ok is false when the history holds fewer than two runs; that is an
// expected state for young histories, not an error.
func DetectRegressions(history *types.History) (verdicts []types.RegressionVerdict, ok bool) {
	current, previous := history.Latest(), history.Previous()
	if current == nil || previous == nil {
		return []types.RegressionVerdict{}, false
	}
	return CompareResults(previous.Results, current.Results), true
}

// CompareResults produces one verdict per benchmark present in both result
// sets. Benchmarks whose previous ns/op is zero have no defined change and
// are skipped. Verdicts are ordered by magnitude of change, largest first,
// then by name.
func CompareResults(previous, current types.Results) []types.RegressionVerdict {
	verdicts := make([]types.RegressionVerdict, 0, len(current))

	for name, cur := range current {
		prev, ok := previous[name]
		if !ok || prev.NsPerOp == 0 {
			continue
		}

		change := (cur.NsPerOp - prev.NsPerOp) / prev.NsPerOp * 100
		verdicts = append(verdicts, types.RegressionVerdict{
			BenchmarkName:   name,
			ChangePercent:   change,
			CurrentNsPerOp:  cur.NsPerOp,
			PreviousNsPerOp: prev.NsPerOp,
			Classification:  Classify(change),
		})
	}

	sortVerdicts(verdicts)
	return verdicts
}

// Classify applies the threshold rule to a signed percent change
func Classify(changePercent float64) types.Classification {
	switch {
	case changePercent > RegressionThresholdPercent:
		return types.Regressed
	case changePercent < -RegressionThresholdPercent:
		return types.Improved
	default:
		return types.Stable
	}
}

// filterVerdicts keeps verdicts with the given classification, preserving order
func filterVerdicts(verdicts []types.RegressionVerdict, class types.Classification) []types.RegressionVerdict {
	out := make([]types.RegressionVerdict, 0)
	for _, v := range verdicts {
		if v.Classification == class {
			out = append(out, v)
		}
	}
	return out
}

func sortVerdicts(verdicts []types.RegressionVerdict) {
	sort.Slice(verdicts, func(i, j int) bool {
		ai, aj := math.Abs(verdicts[i].ChangePercent), math.Abs(verdicts[j].ChangePercent)
		if ai != aj {
			return ai > aj
		}
		return verdicts[i].BenchmarkName < verdicts[j].BenchmarkName
	})
}
