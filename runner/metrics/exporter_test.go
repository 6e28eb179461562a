package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtrend/runner/analysis"
	"github.com/benchtrend/runner/config"
	"github.com/benchtrend/runner/types"
)

func exportFixture() (*types.HistoryRun, *analysis.Report) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	history := &types.History{Runs: []types.HistoryRun{
		{Timestamp: t0, Commit: "aaaaaaaa", Ref: "refs/heads/main", Results: types.Results{
			"Sort":   {NsPerOp: 100, BytesPerOp: 10, AllocsPerOp: 1, SampleCount: 1},
			"Search": {NsPerOp: 100, SampleCount: 1},
		}},
		{Timestamp: t0.Add(time.Hour), Commit: "abcdef12", Ref: "refs/heads/main", Results: types.Results{
			"Sort":   {NsPerOp: 120, BytesPerOp: 12, AllocsPerOp: 2, SampleCount: 1},
			"Search": {NsPerOp: 101, SampleCount: 1},
		}},
	}}
	return history.Latest(), analysis.Analyze(history)
}

// gaugeValue finds the value of a gauge sample whose labels match
func gaugeValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) (float64, bool) {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return m.GetGauge().GetValue(), true
			}
		}
	}
	return 0, false
}

func TestExporter_Registry(t *testing.T) {
	run, report := exportFixture()
	exp := NewExporter(&config.PrometheusConfig{}, logrus.New())

	families, err := exp.Registry(run, report).Gather()
	require.NoError(t, err)

	v, ok := gaugeValue(t, families, "benchtrend_ns_per_op", map[string]string{"benchmark": "Sort"})
	require.True(t, ok)
	assert.Equal(t, 120.0, v)

	v, ok = gaugeValue(t, families, "benchtrend_allocs_per_op", map[string]string{"benchmark": "Sort"})
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = gaugeValue(t, families, "benchtrend_change_percent", map[string]string{"benchmark": "Sort", "classification": "regressed"})
	require.True(t, ok)
	assert.InDelta(t, 20.0, v, 1e-9)

	_, ok = gaugeValue(t, families, "benchtrend_change_percent", map[string]string{"benchmark": "Search"})
	assert.False(t, ok, "stable benchmarks are not exported as changes")

	v, ok = gaugeValue(t, families, "benchtrend_verdicts", map[string]string{"classification": "stable"})
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = gaugeValue(t, families, "benchtrend_verdicts", map[string]string{"classification": "improved"})
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	v, ok = gaugeValue(t, families, "benchtrend_history_runs", map[string]string{})
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestExporter_Disabled(t *testing.T) {
	run, report := exportFixture()
	exp := NewExporter(&config.PrometheusConfig{Job: "benchtrend"}, logrus.New())

	assert.False(t, exp.Enabled())
	assert.NoError(t, exp.Export(context.Background(), run, report))
}

func TestExporter_Textfile(t *testing.T) {
	run, report := exportFixture()
	path := filepath.Join(t.TempDir(), "textfile", "benchtrend.prom")
	exp := NewExporter(&config.PrometheusConfig{TextfilePath: path}, logrus.New())

	require.NoError(t, exp.Export(context.Background(), run, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE benchtrend_ns_per_op gauge")
	assert.Contains(t, text, `benchtrend_ns_per_op{benchmark="Sort"} 120`)
	assert.Contains(t, text, "benchtrend_history_runs 2")
}

func TestExporter_Push(t *testing.T) {
	var method, path string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	run, report := exportFixture()
	exp := NewExporter(&config.PrometheusConfig{PushURL: server.URL, Job: "benchtrend"}, logrus.New())

	require.NoError(t, exp.Export(context.Background(), run, report))
	assert.Equal(t, http.MethodPut, method)
	assert.Contains(t, path, "/metrics/job/benchtrend")
	assert.Contains(t, path, "/commit/abcdef12")
	assert.Contains(t, path, "/ref@base64/")
	assert.NotEmpty(t, body)
}

func TestExporter_PushFailureStillWritesTextfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	run, report := exportFixture()
	path := filepath.Join(t.TempDir(), "benchtrend.prom")
	exp := NewExporter(&config.PrometheusConfig{
		PushURL:      server.URL,
		Job:          "benchtrend",
		TextfilePath: path,
	}, logrus.New())

	err := exp.Export(context.Background(), run, report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push metrics")
	assert.FileExists(t, path)
}
