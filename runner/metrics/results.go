package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"

	"github.com/benchtrend/runner/types"
)

// ErrResultsNotFound is returned when the aggregated results document is missing
var ErrResultsNotFound = errors.New("aggregated results not found")

// WriteResults atomically replaces the results document at path
func WriteResults(path string, results types.Results) error {
	if results == nil {
		results = types.Results{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write results %s: %w", path, err)
	}
	return nil
}

// LoadResults reads a results document written by WriteResults
func LoadResults(path string) (types.Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResultsNotFound, path)
		}
		return nil, fmt.Errorf("failed to read results %s: %w", path, err)
	}

	var results types.Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode results %s: %w", path, err)
	}
	if results == nil {
		results = types.Results{}
	}
	return results, nil
}

// WriteFileAtomic creates the parent directory if needed, then writes data
// through a temporary file in the same directory that is synced and
// renamed over path. Readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return atomicwriter.WriteFile(path, data, 0644)
}
