package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
	"github.com/sirupsen/logrus"

	"github.com/benchtrend/runner/types"
)

// ErrHistoryCorrupt is returned when a history file exists but is not a
// valid history document
var ErrHistoryCorrupt = errors.New("benchmark history corrupt")

// HistoryStore persists the bounded run archive. Callers must not run two
// Append/Persist cycles against the same archive concurrently.
type HistoryStore interface {
	// Load returns the persisted archive, or an empty one when none exists
	Load() (*types.History, error)
	// Append returns archive with run added and the oldest runs evicted
	// beyond the retention limit. archive itself is not modified.
	Append(run types.HistoryRun, archive *types.History) *types.History
	// Persist atomically replaces the stored archive
	Persist(archive *types.History) error
}

// FileStore keeps the history in a single JSON document
type FileStore struct {
	path  string
	limit int
	log   logrus.FieldLogger
}

// NewFileStore creates a store for the history document at path
func NewFileStore(path string, log logrus.FieldLogger) *FileStore {
	return &FileStore{
		path:  path,
		limit: RetentionLimit,
		log:   log.WithField("component", "history_store"),
	}
}

// Path returns the location of the history document
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and validates the history document
func (s *FileStore) Load() (*types.History, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.WithField("path", s.path).Info("No history found, starting a new one")
			return &types.History{Runs: []types.HistoryRun{}}, nil
		}
		return nil, fmt.Errorf("failed to read history %s: %w", s.path, err)
	}

	if err := validateHistoryDocument(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrHistoryCorrupt, s.path, err)
	}

	var history types.History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrHistoryCorrupt, s.path, err)
	}
	if history.Runs == nil {
		history.Runs = []types.HistoryRun{}
	}

	s.log.WithFields(logrus.Fields{
		"path": s.path,
		"runs": len(history.Runs),
	}).Debug("Loaded history")

	return &history, nil
}

// Append adds run behind the existing runs, evicting the oldest first
func (s *FileStore) Append(run types.HistoryRun, archive *types.History) *types.History {
	var existing []types.HistoryRun
	if archive != nil {
		existing = archive.Runs
	}

	ring := NewRunRing(s.limit, existing)
	if evicted := ring.Push(run); evicted > 0 {
		s.log.WithField("evicted", evicted).Debug("Evicted oldest runs from history")
	}
	return &types.History{Runs: ring.Runs()}
}

// Persist writes archive through a synced temporary file that is renamed
// over the history document, so a crash never leaves a partial file.
func (s *FileStore) Persist(archive *types.History) error {
	doc := types.History{Runs: []types.HistoryRun{}}
	if archive != nil && archive.Runs != nil {
		doc.Runs = archive.Runs
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := atomicwriter.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history %s: %w", s.path, err)
	}

	s.log.WithFields(logrus.Fields{
		"path": s.path,
		"runs": len(doc.Runs),
	}).Info("Persisted history")
	return nil
}
