package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benchtrend/runner/analysis"
	"github.com/benchtrend/runner/types"
)

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadHistory reads the store for one request. On failure the response
// has already been written.
func (s *server) loadHistory(w http.ResponseWriter) (*types.History, bool) {
	history, err := s.store.Load()
	if err != nil {
		s.log.WithError(err).Error("Failed to load history")
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return history, true
}

// handleHistory returns the whole history document
func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, ok := s.loadHistory(w)
	if !ok {
		return
	}
	s.writeJSONResponse(w, http.StatusOK, history)
}

// handleLatestRun returns the most recent run
func (s *server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	history, ok := s.loadHistory(w)
	if !ok {
		return
	}

	latest := history.Latest()
	if latest == nil {
		s.writeErrorResponse(w, http.StatusNotFound, "History has no runs")
		return
	}
	s.writeJSONResponse(w, http.StatusOK, latest)
}

// handleAnalysis returns verdicts, trends and summary for the current history
func (s *server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	history, ok := s.loadHistory(w)
	if !ok {
		return
	}
	s.writeJSONResponse(w, http.StatusOK, analysis.Analyze(history))
}

// handleTrend returns the fitted trend of one benchmark
func (s *server) handleTrend(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	history, ok := s.loadHistory(w)
	if !ok {
		return
	}

	report := analysis.Analyze(history)
	trend, found := report.Trend(name)
	if !found {
		s.writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("No trend for benchmark %q", name))
		return
	}
	s.writeJSONResponse(w, http.StatusOK, trend)
}
