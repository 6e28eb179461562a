// Package parser turns Go benchmark output into benchmark records.
//
// A benchmark line has the form
//
//	Benchmark<Name>-<parallelism>  <iterations>  <value> ns/op [<value> B/op] [<value> allocs/op]
//
// Lines are read with golang.org/x/perf/benchfmt. Anything that is not a
// well-formed benchmark line is skipped: benchmark output routinely
// interleaves test logs, package headers and PASS/ok lines.
package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/perf/benchfmt"

	"github.com/benchtrend/runner/types"
)

const (
	unitNsPerOp     = "ns/op"
	unitBytesPerOp  = "B/op"
	unitAllocsPerOp = "allocs/op"

	// maxLineSize is the longest line benchfmt can scan. Longer lines
	// are skipped without being buffered.
	maxLineSize = bufio.MaxScanTokenSize
)

var benchmarkPrefix = []byte("Benchmark")

var (
	// ErrReportNotFound is returned when the report file does not exist
	ErrReportNotFound = errors.New("benchmark report not found")
	// ErrReportUnreadable is returned when the report exists but cannot be read
	ErrReportUnreadable = errors.New("benchmark report unreadable")
)

// Output is the outcome of parsing one report
type Output struct {
	Records []types.BenchmarkRecord
	// Skipped counts input lines that produced no record
	Skipped int
}

// ParseFile reads the report at path. Every record is stamped with now.
func ParseFile(path string, now time.Time) (*Output, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrReportUnreadable, path, err)
	}
	defer f.Close()

	out, err := Parse(f, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReportUnreadable, path, err)
	}
	return out, nil
}

// Parse returns the benchmark records in r in input order.
// An I/O error discards everything read so far.
func Parse(r io.Reader, now time.Time) (*Output, error) {
	bench, lines, err := benchmarkLines(r)
	if err != nil {
		return nil, err
	}

	out := &Output{}
	reader := benchfmt.NewReader(bench, "")
	for reader.Scan() {
		res, ok := reader.Result().(*benchfmt.Result)
		if !ok {
			// *benchfmt.SyntaxError: malformed lines are skipped
			continue
		}
		rec, ok := recordFrom(res)
		if !ok {
			continue
		}
		rec.ObservedAt = now
		out.Records = append(out.Records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}

	out.Skipped = lines - len(out.Records)
	return out, nil
}

// ParseLine parses a single benchmark line. It reports false for
// anything that is not a complete, well-formed benchmark result.
func ParseLine(line string) (types.BenchmarkRecord, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, string(benchmarkPrefix)) {
		return types.BenchmarkRecord{}, false
	}

	reader := benchfmt.NewReader(strings.NewReader(trimmed), "")
	for reader.Scan() {
		if res, ok := reader.Result().(*benchfmt.Result); ok {
			return recordFrom(res)
		}
	}
	return types.BenchmarkRecord{}, false
}

// benchmarkLines copies the lines starting with "Benchmark" into a buffer
// for benchfmt, which stops at the first line it cannot scan. It returns
// the number of lines read.
func benchmarkLines(r io.Reader) (*bytes.Buffer, int, error) {
	var (
		bench bytes.Buffer
		lines int
	)

	br := bufio.NewReaderSize(r, maxLineSize)
	for {
		line, err := br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			lines++
			if err := discardLine(br); err == io.EOF {
				break
			} else if err != nil {
				return nil, 0, err
			}
			continue
		}

		if len(line) > 0 {
			lines++
			line = bytes.TrimRight(line, "\r\n")
			line = bytes.TrimLeft(line, " \t")
			if bytes.HasPrefix(line, benchmarkPrefix) {
				bench.Write(line)
				bench.WriteByte('\n')
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}

	return &bench, lines, nil
}

// discardLine consumes the rest of an over-long line
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if err != bufio.ErrBufferFull {
			return err
		}
	}
}

// recordFrom applies the record rules on top of a benchfmt result: a
// positive parallelism suffix and iteration count, ns/op as the first
// measurement and no negative or non-finite values.
func recordFrom(res *benchfmt.Result) (types.BenchmarkRecord, bool) {
	var rec types.BenchmarkRecord

	name, procs, ok := splitParallelism(res.Name)
	if !ok || res.Iters <= 0 || len(res.Values) == 0 {
		return rec, false
	}

	rec.Name = name
	rec.Parallelism = procs
	rec.Iterations = int64(res.Iters)

	seen := make(map[string]bool, 3)
	for i, v := range res.Values {
		val, unit := untidy(v)
		if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
			return rec, false
		}
		if i == 0 && unit != unitNsPerOp {
			return rec, false
		}
		if seen[unit] {
			continue
		}
		seen[unit] = true

		switch unit {
		case unitNsPerOp:
			rec.NsPerOp = val
		case unitBytesPerOp:
			rec.BytesPerOp = val
		case unitAllocsPerOp:
			rec.AllocsPerOp = val
		}
	}

	return rec, true
}

// untidy returns the value and unit as written in the report. benchfmt
// rewrites ns/op to sec/op.
func untidy(v benchfmt.Value) (float64, string) {
	if v.OrigUnit != "" {
		return v.OrigValue, v.OrigUnit
	}
	return v.Value, v.Unit
}

// splitParallelism peels the trailing "-N" off a benchmark name
func splitParallelism(full benchfmt.Name) (string, int, bool) {
	base, parts := full.Parts()
	if len(base) == 0 || len(parts) == 0 {
		return "", 0, false
	}

	last := parts[len(parts)-1]
	if last[0] != '-' {
		return "", 0, false
	}
	procs, err := strconv.Atoi(string(last[1:]))
	if err != nil || procs <= 0 {
		return "", 0, false
	}

	return string(full[:len(full)-len(last)]), procs, true
}
