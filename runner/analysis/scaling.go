package analysis

import (
	"sort"
	"strconv"
	"strings"

	"github.com/benchtrend/runner/types"
)

// minScalingPoints is the number of sizes a series needs to describe scaling
const minScalingPoints = 2

// Scalability groups benchmarks named "<base>_<size>" into one series per
// base name, points ordered by size. Series are ordered by base name.
func Scalability(results types.Results) []types.ScalingSeries {
	groups := make(map[string][]types.ScalingPoint)
	for name, stat := range results {
		base, size, ok := splitSize(name)
		if !ok {
			continue
		}
		groups[base] = append(groups[base], types.ScalingPoint{Size: size, NsPerOp: stat.NsPerOp})
	}

	series := make([]types.ScalingSeries, 0, len(groups))
	for base, points := range groups {
		if len(points) < minScalingPoints {
			continue
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Size < points[j].Size })
		series = append(series, types.ScalingSeries{BaseName: base, Points: points})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].BaseName < series[j].BaseName })
	return series
}

func splitSize(name string) (string, int64, bool) {
	i := strings.LastIndexByte(name, '_')
	if i <= 0 || i == len(name)-1 {
		return "", 0, false
	}
	digits := name[i+1:]
	if strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", 0, false
	}
	size, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return name[:i], size, true
}
