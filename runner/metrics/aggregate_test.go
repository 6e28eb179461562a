package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtrend/runner/types"
)

func record(name string, procs int, iters int64, ns, bytes, allocs float64) types.BenchmarkRecord {
	return types.BenchmarkRecord{
		Name:        name,
		Parallelism: procs,
		Iterations:  iters,
		NsPerOp:     ns,
		BytesPerOp:  bytes,
		AllocsPerOp: allocs,
		ObservedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAggregate_MeanOfDuplicates(t *testing.T) {
	results := Aggregate([]types.BenchmarkRecord{
		record("Sort", 8, 1000, 100, 64, 1),
		record("Sort", 4, 1001, 300, 128, 3),
	})

	require.Len(t, results, 1)
	stat := results["Sort"]
	assert.Equal(t, 200.0, stat.NsPerOp)
	assert.Equal(t, 96.0, stat.BytesPerOp)
	assert.Equal(t, 2.0, stat.AllocsPerOp)
	assert.Equal(t, 2, stat.SampleCount)

	t.Run("IterationsTruncate", func(t *testing.T) {
		assert.Equal(t, int64(1000), stat.Iterations)
	})

	t.Run("ParallelismFromFirstRecord", func(t *testing.T) {
		assert.Equal(t, 8, stat.Parallelism)
	})
}

func TestAggregate_SingleRecord(t *testing.T) {
	results := Aggregate([]types.BenchmarkRecord{record("Search", 2, 50, 12.5, 0, 0)})

	assert.Equal(t, types.AggregatedStat{
		NsPerOp:     12.5,
		Iterations:  50,
		Parallelism: 2,
		SampleCount: 1,
	}, results["Search"])
}

func TestAggregate_NamesAreExact(t *testing.T) {
	results := Aggregate([]types.BenchmarkRecord{
		record("Sort", 1, 1, 1, 0, 0),
		record("sort", 1, 1, 2, 0, 0),
		record("Sort/small", 1, 1, 3, 0, 0),
	})

	assert.ElementsMatch(t, []string{"Sort", "sort", "Sort/small"}, results.Names())
	for _, stat := range results {
		assert.Equal(t, 1, stat.SampleCount)
	}
}

func TestAggregate_Empty(t *testing.T) {
	results := Aggregate(nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
