package types

import (
	"encoding/json"
	"time"
)

// BenchmarkRecord is one benchmark line observed in a report
type BenchmarkRecord struct {
	Name        string    `json:"name"`
	Parallelism int       `json:"cpus"`
	Iterations  int64     `json:"iterations"`
	NsPerOp     float64   `json:"ns_per_op"`
	BytesPerOp  float64   `json:"bytes_per_op"`
	AllocsPerOp float64   `json:"allocs_per_op"`
	ObservedAt  time.Time `json:"timestamp"`
}

// AggregatedStat is the per-invocation mean of every record sharing a name.
// SampleCount is zero only for stats read from archives that predate it.
type AggregatedStat struct {
	NsPerOp     float64 `json:"ns_per_op"`
	BytesPerOp  float64 `json:"bytes_per_op"`
	AllocsPerOp float64 `json:"allocs_per_op"`
	Iterations  int64   `json:"iterations"`
	Parallelism int     `json:"cpus"`
	SampleCount int     `json:"sample_count,omitempty"`
}

// UnmarshalJSON accepts the older "run_count" key as the sample count.
func (s *AggregatedStat) UnmarshalJSON(data []byte) error {
	type plain AggregatedStat
	var aux struct {
		plain
		RunCount int `json:"run_count"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = AggregatedStat(aux.plain)
	if s.SampleCount == 0 && aux.RunCount > 0 {
		s.SampleCount = aux.RunCount
	}
	return nil
}

// Results maps benchmark name to its aggregated statistics
type Results map[string]AggregatedStat

// Names returns the benchmark names in r, unordered
func (r Results) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}
