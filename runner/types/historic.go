package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnknownMetadata is recorded when the CI environment does not provide a value
const UnknownMetadata = "unknown"

// HistoryRun is one persisted snapshot of aggregated results
type HistoryRun struct {
	Timestamp time.Time `json:"timestamp"`
	Commit    string    `json:"commit"`
	Ref       string    `json:"ref"`
	Results   Results   `json:"results"`
}

// legacyTimestampLayouts are accepted for archives written without a zone offset
var legacyTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON reads RFC 3339 timestamps and, for older archives,
// zone-less ISO-8601 timestamps which are taken as UTC.
func (r *HistoryRun) UnmarshalJSON(data []byte) error {
	var aux struct {
		Timestamp string  `json:"timestamp"`
		Commit    string  `json:"commit"`
		Ref       string  `json:"ref"`
		Results   Results `json:"results"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	ts, err := parseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}

	r.Timestamp = ts
	r.Commit = aux.Commit
	r.Ref = aux.Ref
	r.Results = aux.Results
	if r.Results == nil {
		r.Results = Results{}
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	for _, layout := range legacyTimestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid run timestamp %q", s)
}

// History is the full archive of runs, oldest first
type History struct {
	Runs []HistoryRun `json:"runs"`
}

// Latest returns the newest run, or nil when the history is empty
func (h *History) Latest() *HistoryRun {
	if len(h.Runs) == 0 {
		return nil
	}
	return &h.Runs[len(h.Runs)-1]
}

// Previous returns the run before the newest, or nil
func (h *History) Previous() *HistoryRun {
	if len(h.Runs) < 2 {
		return nil
	}
	return &h.Runs[len(h.Runs)-2]
}
