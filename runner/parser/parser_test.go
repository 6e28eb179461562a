package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `goos: linux
goarch: amd64
pkg: github.com/example/algorithms/sorting
cpu: Intel(R) Xeon(R) CPU @ 2.20GHz
BenchmarkInsertionSort_100-8     	  250000	      4812 ns/op	     896 B/op	       1 allocs/op
BenchmarkInsertionSort_100-8     	  250000	      4790 ns/op	     896 B/op	       1 allocs/op
BenchmarkMergeSort_1000-8        	   20000	     61234 ns/op
=== RUN   TestSomething
--- PASS: TestSomething (0.00s)
BenchmarkQuickSort/random-4      	  100000	     10500.5 ns/op	  1024 B/op	       2 allocs/op
PASS
ok  	github.com/example/algorithms/sorting	12.345s
`

func TestParse(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	out, err := Parse(strings.NewReader(sampleReport), now)
	require.NoError(t, err)
	require.Len(t, out.Records, 4)
	records := out.Records

	t.Run("CountsSkippedLines", func(t *testing.T) {
		assert.Equal(t, 8, out.Skipped)
	})

	t.Run("KeepsInputOrder", func(t *testing.T) {
		names := make([]string, len(records))
		for i, r := range records {
			names[i] = r.Name
		}
		assert.Equal(t, []string{
			"InsertionSort_100",
			"InsertionSort_100",
			"MergeSort_1000",
			"QuickSort/random",
		}, names)
	})

	t.Run("AllOptionalFields", func(t *testing.T) {
		r := records[0]
		assert.Equal(t, 8, r.Parallelism)
		assert.Equal(t, int64(250000), r.Iterations)
		assert.Equal(t, 4812.0, r.NsPerOp)
		assert.Greater(t, r.BytesPerOp, 0.0)
		assert.Greater(t, r.AllocsPerOp, 0.0)
		assert.Equal(t, now, r.ObservedAt)
	})

	t.Run("OptionalFieldsDefaultToZero", func(t *testing.T) {
		r := records[2]
		assert.Equal(t, 61234.0, r.NsPerOp)
		assert.Equal(t, 0.0, r.BytesPerOp)
		assert.Equal(t, 0.0, r.AllocsPerOp)
	})

	t.Run("FractionalValues", func(t *testing.T) {
		r := records[3]
		assert.Equal(t, 4, r.Parallelism)
		assert.Equal(t, 10500.5, r.NsPerOp)
		assert.Equal(t, 1024.0, r.BytesPerOp)
		assert.Equal(t, 2.0, r.AllocsPerOp)
	})
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ok     bool
		bytes  float64
		allocs float64
	}{
		{"bytes only", "BenchmarkA-2 10 5 ns/op 64 B/op", true, 64, 0},
		{"allocs only", "BenchmarkA-2 10 5 ns/op 3 allocs/op", true, 0, 3},
		{"throughput before memory", "BenchmarkA-2 10 5 ns/op 12.5 MB/s 64 B/op 3 allocs/op", true, 64, 3},
		{"leading whitespace", "   BenchmarkA-2 10 5 ns/op", true, 0, 0},
		{"trailing value without unit", "BenchmarkA-2 10 5 ns/op extra", false, 0, 0},
		{"custom metric", "BenchmarkA-2 10 5 ns/op 7 widgets/op", true, 0, 0},
		{"missing parallelism", "BenchmarkA 10 5 ns/op", false, 0, 0},
		{"zero parallelism", "BenchmarkA-0 10 5 ns/op", false, 0, 0},
		{"empty name", "Benchmark-4 10 5 ns/op", false, 0, 0},
		{"name only", "BenchmarkA-4", false, 0, 0},
		{"non numeric iterations", "BenchmarkA-4 ten 5 ns/op", false, 0, 0},
		{"zero iterations", "BenchmarkA-4 0 5 ns/op", false, 0, 0},
		{"non numeric ns", "BenchmarkA-4 10 fast ns/op", false, 0, 0},
		{"negative ns", "BenchmarkA-4 10 -5 ns/op", false, 0, 0},
		{"malformed optional", "BenchmarkA-4 10 5 ns/op lots B/op", false, 0, 0},
		{"ns not first", "BenchmarkA-4 10 64 B/op 5 ns/op", false, 0, 0},
		{"not a benchmark", "ok  pkg 1.2s", false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ParseLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, "A", rec.Name)
			assert.Equal(t, 2, rec.Parallelism)
			assert.Equal(t, 5.0, rec.NsPerOp)
			assert.Equal(t, tt.bytes, rec.BytesPerOp)
			assert.Equal(t, tt.allocs, rec.AllocsPerOp)
		})
	}
}

func TestParseFile(t *testing.T) {
	now := time.Now()

	t.Run("ReadsFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "benchmark_output.txt")
		require.NoError(t, os.WriteFile(path, []byte(sampleReport), 0644))

		out, err := ParseFile(path, now)
		require.NoError(t, err)
		assert.Len(t, out.Records, 4)
	})

	t.Run("MissingFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.txt")

		out, err := ParseFile(path, now)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrReportNotFound))
		assert.Contains(t, err.Error(), path)
		assert.Nil(t, out)
	})

	t.Run("DirectoryIsUnreadable", func(t *testing.T) {
		dir := t.TempDir()

		out, err := ParseFile(dir, now)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrReportUnreadable))
		assert.Nil(t, out)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		out, err := ParseFile(path, now)
		require.NoError(t, err)
		assert.Empty(t, out.Records)
		assert.Zero(t, out.Skipped)
	})
}

func TestParseLongLines(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		input   string
		names   []string
		skipped int
	}{
		{
			name:    "log line over a megabyte",
			input:   "BenchmarkA-4 10 5 ns/op\nlog: " + strings.Repeat("x", 2<<20) + "\nBenchmarkB-4 10 7 ns/op\n",
			names:   []string{"A", "B"},
			skipped: 1,
		},
		{
			name:    "over-long benchmark line",
			input:   "BenchmarkA-4 10 5 ns/op\nBenchmarkLong" + strings.Repeat("x", maxLineSize) + "-4 10 5 ns/op\nBenchmarkB-4 10 7 ns/op\n",
			names:   []string{"A", "B"},
			skipped: 1,
		},
		{
			name:    "long final line without newline",
			input:   "BenchmarkA-4 10 5 ns/op\n" + strings.Repeat("y", maxLineSize+10),
			names:   []string{"A"},
			skipped: 1,
		},
		{
			name:    "crlf line endings",
			input:   "BenchmarkA-4 10 5 ns/op\r\nPASS\r\nBenchmarkB-4 10 7 ns/op\r\n",
			names:   []string{"A", "B"},
			skipped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Parse(strings.NewReader(tt.input), now)
			require.NoError(t, err)

			names := make([]string, len(out.Records))
			for i, r := range out.Records {
				names[i] = r.Name
			}
			assert.Equal(t, tt.names, names)
			assert.Equal(t, tt.skipped, out.Skipped)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("device gone")
}

func TestParseReadError(t *testing.T) {
	out, err := Parse(failingReader{}, time.Now())
	require.Error(t, err)
	assert.Nil(t, out)
}
