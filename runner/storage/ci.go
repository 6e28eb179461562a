package storage

import (
	"os"
	"time"

	"github.com/benchtrend/runner/config"
	"github.com/benchtrend/runner/types"
)

// NewRunFromEnv builds the run for results, taking commit and ref from the
// CI environment. Missing values become types.UnknownMetadata.
func NewRunFromEnv(results types.Results, now time.Time, ci config.CIConfig) types.HistoryRun {
	commit := envOrUnknown(ci.CommitEnv)
	if commit != types.UnknownMetadata && ci.CommitLength > 0 && len(commit) > ci.CommitLength {
		commit = commit[:ci.CommitLength]
	}

	if results == nil {
		results = types.Results{}
	}

	return types.HistoryRun{
		Timestamp: now.UTC(),
		Commit:    commit,
		Ref:       envOrUnknown(ci.RefEnv),
		Results:   results,
	}
}

func envOrUnknown(name string) string {
	if name == "" {
		return types.UnknownMetadata
	}
	if v := os.Getenv(name); v != "" {
		return v
	}
	return types.UnknownMetadata
}
