package metrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"

	"github.com/benchtrend/runner/analysis"
	"github.com/benchtrend/runner/config"
	"github.com/benchtrend/runner/types"
)

const namespace = "benchtrend"

// Exporter publishes the latest run and its verdicts as Prometheus gauges,
// to a Pushgateway and/or a node_exporter textfile.
type Exporter struct {
	cfg *config.PrometheusConfig
	log logrus.FieldLogger
}

// NewExporter creates an exporter for the configured outputs
func NewExporter(cfg *config.PrometheusConfig, log logrus.FieldLogger) *Exporter {
	return &Exporter{
		cfg: cfg,
		log: log.WithField("component", "exporter"),
	}
}

// Enabled reports whether any output is configured
func (e *Exporter) Enabled() bool {
	return e.cfg != nil && e.cfg.Enabled()
}

// Registry builds a registry holding one snapshot of gauges for run and report
func (e *Exporter) Registry(run *types.HistoryRun, report *analysis.Report) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	benchLabels := []string{"benchmark"}
	nsPerOp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ns_per_op",
		Help:      "Mean nanoseconds per operation in the latest run.",
	}, benchLabels)
	bytesPerOp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bytes_per_op",
		Help:      "Mean bytes allocated per operation in the latest run.",
	}, benchLabels)
	allocsPerOp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "allocs_per_op",
		Help:      "Mean allocations per operation in the latest run.",
	}, benchLabels)
	changePercent := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "change_percent",
		Help:      "Percent change in ns/op against the previous run, for regressed and improved benchmarks.",
	}, []string{"benchmark", "classification"})
	verdicts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "verdicts",
		Help:      "Number of benchmarks per classification in the latest comparison.",
	}, []string{"classification"})
	historyRuns := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_runs",
		Help:      "Number of runs retained in the history.",
	})

	reg.MustRegister(nsPerOp, bytesPerOp, allocsPerOp, changePercent, verdicts, historyRuns)

	if run != nil {
		for name, stat := range run.Results {
			nsPerOp.WithLabelValues(name).Set(stat.NsPerOp)
			bytesPerOp.WithLabelValues(name).Set(stat.BytesPerOp)
			allocsPerOp.WithLabelValues(name).Set(stat.AllocsPerOp)
		}
	}

	if report != nil {
		for _, class := range []types.Classification{types.Regressed, types.Improved, types.Stable} {
			verdicts.WithLabelValues(string(class)).Set(0)
		}
		for _, v := range report.Verdicts {
			verdicts.WithLabelValues(string(v.Classification)).Inc()
			if v.Classification != types.Stable {
				changePercent.WithLabelValues(v.BenchmarkName, string(v.Classification)).Set(v.ChangePercent)
			}
		}
		historyRuns.Set(float64(report.Summary.TotalRuns))
	}

	return reg
}

// Export writes every configured output. Each output is attempted even when
// another fails; the returned error joins all failures.
func (e *Exporter) Export(ctx context.Context, run *types.HistoryRun, report *analysis.Report) error {
	if !e.Enabled() {
		return nil
	}

	reg := e.Registry(run, report)
	var errs []error

	if e.cfg.PushURL != "" {
		if err := e.push(ctx, reg, run); err != nil {
			errs = append(errs, err)
		} else {
			e.log.WithField("url", e.cfg.PushURL).Info("Pushed metrics to Pushgateway")
		}
	}

	if e.cfg.TextfilePath != "" {
		if err := WriteTextfile(e.cfg.TextfilePath, reg); err != nil {
			errs = append(errs, err)
		} else {
			e.log.WithField("path", e.cfg.TextfilePath).Info("Wrote metrics textfile")
		}
	}

	return errors.Join(errs...)
}

func (e *Exporter) push(ctx context.Context, reg *prometheus.Registry, run *types.HistoryRun) error {
	pusher := push.New(e.cfg.PushURL, e.cfg.Job).Gatherer(reg)
	if run != nil {
		pusher = pusher.Grouping("commit", run.Commit).Grouping("ref", run.Ref)
	}
	if e.cfg.BasicAuth.Username != "" {
		pusher = pusher.BasicAuth(e.cfg.BasicAuth.Username, e.cfg.BasicAuth.Password)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", e.cfg.PushURL, err)
	}
	return nil
}

// WriteTextfile renders every family gathered from g in the text
// exposition format and atomically replaces path with it.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}

	if err := WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
