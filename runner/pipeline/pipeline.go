// Package pipeline runs one benchtrend invocation end to end: parse the
// benchmark report, aggregate it, append it to the history and derive
// regression verdicts and trends from the updated history.
//
// Steps run strictly in sequence. A fatal error (missing report, corrupt
// history) aborts before the history is written, leaving it untouched.
// The database mirror and metric export run after the history is persisted
// and their failures are only logged.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/benchtrend/runner/analysis"
	"github.com/benchtrend/runner/config"
	"github.com/benchtrend/runner/metrics"
	"github.com/benchtrend/runner/parser"
	"github.com/benchtrend/runner/storage"
	"github.com/benchtrend/runner/types"
)

// Exporter publishes a run and its analysis
type Exporter interface {
	Export(ctx context.Context, run *types.HistoryRun, report *analysis.Report) error
}

// Result describes what one invocation produced
type Result struct {
	InvocationID string            `json:"invocation_id"`
	Records      int               `json:"records"`
	Run          *types.HistoryRun `json:"run,omitempty"` // nil when nothing was appended
	Report       *analysis.Report  `json:"report"`
}

// Pipeline wires the stages together
type Pipeline struct {
	cfg      *config.Config
	store    storage.HistoryStore
	mirror   storage.Mirror
	exporter Exporter
	now      func() time.Time
	log      logrus.FieldLogger
}

// Option configures optional collaborators
type Option func(*Pipeline)

// WithMirror mirrors each persisted run into m
func WithMirror(m storage.Mirror) Option {
	return func(p *Pipeline) { p.mirror = m }
}

// WithExporter publishes each analysis through e
func WithExporter(e Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// WithClock overrides the time source used to stamp records and runs
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline over store
func New(cfg *config.Config, store storage.HistoryStore, log logrus.FieldLogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:   cfg,
		store: store,
		now:   time.Now,
		log:   log.WithField("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the whole pipeline for the configured report
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	id := uuid.New().String()
	log := p.log.WithField("invocation_id", id)

	records, results, err := p.parse(log)
	if err != nil {
		return nil, err
	}

	// loaded before anything is written so a corrupt history aborts cleanly
	history, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	if err := metrics.WriteResults(p.cfg.ResultsPath, results); err != nil {
		return nil, err
	}

	result, err := p.update(ctx, log, id, history, results)
	if err != nil {
		return nil, err
	}
	result.Records = records
	return result, nil
}

// Parse parses and aggregates the report, then writes the aggregated
// results document. The history is not touched.
func (p *Pipeline) Parse() (types.Results, error) {
	_, results, err := p.parse(p.log)
	if err != nil {
		return nil, err
	}
	if err := metrics.WriteResults(p.cfg.ResultsPath, results); err != nil {
		return nil, err
	}
	p.log.WithField("path", p.cfg.ResultsPath).Info("Wrote aggregated results")
	return results, nil
}

// Update appends already aggregated results to the history and analyzes it
func (p *Pipeline) Update(ctx context.Context, results types.Results) (*Result, error) {
	id := uuid.New().String()
	log := p.log.WithField("invocation_id", id)

	history, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return p.update(ctx, log, id, history, results)
}

// Analyze derives the report from the stored history without modifying it
func (p *Pipeline) Analyze() (*analysis.Report, error) {
	history, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	report := analysis.Analyze(history)
	p.logReport(p.log, report)
	return report, nil
}

func (p *Pipeline) parse(log logrus.FieldLogger) (int, types.Results, error) {
	out, err := parser.ParseFile(p.cfg.ReportPath, p.now())
	if err != nil {
		return 0, nil, err
	}

	results := metrics.Aggregate(out.Records)
	log.WithFields(logrus.Fields{
		"report":     p.cfg.ReportPath,
		"records":    len(out.Records),
		"benchmarks": len(results),
	}).Info("Parsed benchmark report")
	log.WithField("skipped", out.Skipped).Debug("Skipped non-benchmark lines")

	if len(out.Records) == 0 {
		log.Warn("No benchmark lines found in report")
	}
	return len(out.Records), results, nil
}

func (p *Pipeline) update(ctx context.Context, log logrus.FieldLogger, id string, history *types.History, results types.Results) (*Result, error) {
	// an empty report leaves the history unchanged
	if len(results) == 0 {
		log.Warn("No benchmark results, history left unchanged")
		report := analysis.Analyze(history)
		p.logReport(log, report)
		return &Result{InvocationID: id, Report: report}, nil
	}

	run := storage.NewRunFromEnv(results, p.now(), p.cfg.CI)

	updated := p.store.Append(run, history)
	if err := p.store.Persist(updated); err != nil {
		return nil, fmt.Errorf("failed to persist history: %w", err)
	}

	log.WithFields(logrus.Fields{
		"commit": run.Commit,
		"ref":    run.Ref,
		"runs":   len(updated.Runs),
	}).Info("Appended run to history")

	p.mirrorRun(ctx, log, id, &run)

	report := analysis.Analyze(updated)
	p.logReport(log, report)

	if p.exporter != nil {
		if err := p.exporter.Export(ctx, &run, report); err != nil {
			log.WithError(err).Warn("Failed to export metrics")
		}
	}

	return &Result{
		InvocationID: id,
		Run:          &run,
		Report:       report,
	}, nil
}

func (p *Pipeline) mirrorRun(ctx context.Context, log logrus.FieldLogger, id string, run *types.HistoryRun) {
	if p.mirror == nil {
		return
	}

	if err := p.mirror.Start(ctx); err != nil {
		log.WithError(err).Error("Failed to start history mirror")
		return
	}
	defer func() {
		if err := p.mirror.Close(); err != nil {
			log.WithError(err).Warn("Failed to close history mirror")
		}
	}()

	if err := p.mirror.SaveRun(ctx, id, run); err != nil {
		log.WithError(err).Error("Failed to mirror run")
	}
}

func (p *Pipeline) logReport(log logrus.FieldLogger, report *analysis.Report) {
	if report.InsufficientData {
		log.WithField("runs", report.Summary.TotalRuns).
			Info("Not enough history for regression analysis, at least two runs are needed")
		return
	}

	for _, v := range report.Regressions {
		log.WithFields(logrus.Fields{
			"benchmark":      v.BenchmarkName,
			"change_percent": fmt.Sprintf("%.2f", v.ChangePercent),
			"previous_ns":    v.PreviousNsPerOp,
			"current_ns":     v.CurrentNsPerOp,
		}).Warn("Performance regression detected")
	}

	log.WithFields(logrus.Fields{
		"compared":     len(report.Verdicts),
		"regressions":  len(report.Regressions),
		"improvements": len(report.Improvements),
		"trends":       len(report.Trends),
	}).Info("Analyzed history")
}
