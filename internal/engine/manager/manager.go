package manager

import (
	"LogSpectra/internal/ai"
	"LogSpectra/internal/alerter"
	"LogSpectra/internal/config"
	"LogSpectra/internal/discovery"
	"LogSpectra/internal/engine/analyzer"
	_ "LogSpectra/internal/engine/impl/report" // Registers the report writers
	"LogSpectra/internal/factory"
	"LogSpectra/internal/metrics"
	"LogSpectra/internal/model"
	"LogSpectra/internal/notification"
	"LogSpectra/internal/probe"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Publisher fans a finished report out to subscribers.
type Publisher interface {
	Publish(report *model.Report) error
	Close()
}

// Alerter evaluates a finished report against the alert rules.
type Alerter interface {
	Evaluate(ctx context.Context, report *model.Report) ([]alerter.Alert, error)
}

// Manager runs one analysis: discovery, aggregation and fan-out to the writers.
type Manager struct {
	cfg       *config.Config
	writers   []model.Writer
	publisher Publisher
	alerter   Alerter
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithWriters replaces the writers built from the config.
func WithWriters(writers ...model.Writer) Option {
	return func(m *Manager) { m.writers = writers }
}

// WithPublisher replaces the NATS publisher built from the config.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithAlerter replaces the alerter built from the config.
func WithAlerter(a Alerter) Option {
	return func(m *Manager) { m.alerter = a }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a new Manager. Components not supplied through options are built from cfg.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	if m.writers == nil {
		writers, err := factory.CreateWriters(cfg)
		if err != nil {
			return nil, err
		}
		m.writers = writers
	}
	if len(m.writers) == 0 {
		log.Println("Warning: no report writers are enabled, reports will not be stored.")
	}

	if m.publisher == nil && cfg.Publisher.Enabled {
		p, err := probe.NewPublisher(cfg.Publisher)
		if err != nil {
			log.Printf("Warning: report publishing disabled: %v", err)
		} else {
			m.publisher = p
		}
	}

	if m.alerter == nil && cfg.Alerter.Enabled {
		a, err := newAlerter(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create alerter: %w", err)
		}
		if a != nil {
			m.alerter = a
		}
	}

	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	return m, nil
}

func newAlerter(cfg *config.Config) (*alerter.Alerter, error) {
	// Only the email notifier exists for now.
	if cfg.SMTP.Host == "" {
		log.Println("Alerter is enabled in config, but no notifiers are configured. Alerter will not run.")
		return nil, nil
	}
	notifier := notification.NewEmailNotifier(cfg.SMTP)

	var reportAnalyzer model.Analyzer
	if cfg.Alerter.AIAnalysis.Enabled {
		ra, err := ai.NewReportAnalyzer(&cfg.AI)
		if err != nil {
			log.Printf("Warning: AI analysis disabled: %v", err)
		} else {
			reportAnalyzer = ra
		}
	}

	a, err := alerter.NewAlerter(&cfg.Alerter, notifier, reportAnalyzer)
	if err != nil {
		return nil, err
	}
	log.Println("Alerter enabled and initialized.")
	return a, nil
}

// Metrics returns the collectors updated by Run.
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// Run analyzes the newest unreported log.
// A missing log or an exceeded parse error budget is not an error; nothing is written in both cases.
func (m *Manager) Run(ctx context.Context) error {
	start := m.now()
	outcome := metrics.OutcomeFailed
	defer func() {
		m.metrics.ObserveRun(outcome, m.now().Sub(start))
		m.flushMetrics()
	}()

	last, err := discovery.LastReportDate(m.cfg.Analyzer.ReportDir)
	if err != nil {
		return err
	}
	logFile, found, err := discovery.LatestLog(m.cfg.Analyzer.LogDir, m.cfg.Analyzer.LogPrefix, last)
	if err != nil {
		return err
	}
	if !found {
		log.Println("No log files to parse")
		outcome = metrics.OutcomeNoLog
		return nil
	}

	source := filepath.Base(logFile.Path)
	res, err := analyzer.AnalyzeFile(logFile.Path, m.cfg.Analyzer.ReportSize, m.cfg.Analyzer.MaxParseErrors)
	if err != nil {
		var aborted *analyzer.AbortedError
		if errors.As(err, &aborted) {
			m.metrics.ObserveCounts(aborted.Lines, aborted.Lines-aborted.Errors, aborted.Errors, 0)
			log.Printf("File %s was not processed.", source)
			outcome = metrics.OutcomeAborted
			return nil
		}
		return fmt.Errorf("failed to analyze %s: %w", source, err)
	}
	m.metrics.ObserveCounts(res.TotalLines, res.Processed, res.Errors, res.Endpoints)

	report := &model.Report{
		ID:          uuid.NewString(),
		Source:      source,
		Date:        logFile.Date,
		GeneratedAt: m.now(),
		Summary:     res.Summary(),
		Rows:        res.Rows(),
	}

	if err := m.write(ctx, report); err != nil {
		return err
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(report); err != nil {
			log.Printf("Warning: failed to publish report %s: %v", report.ID, err)
		}
	}

	if m.alerter != nil {
		if _, err := m.alerter.Evaluate(ctx, report); err != nil {
			log.Printf("ERROR: alert evaluation failed: %v", err)
		}
	}

	if err := m.writeTimestamp(); err != nil {
		return err
	}
	outcome = metrics.OutcomeSuccess
	log.Printf("Report %s for %s finished in %s", report.ID, source, m.now().Sub(start))
	return nil
}

// write hands the report to every writer. All writers run; failures are joined.
func (m *Manager) write(ctx context.Context, report *model.Report) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(ctx, report); err != nil {
			log.Printf("ERROR: writer '%s' failed: %v", w.Name(), err)
			m.metrics.WriterFailed(w.Name())
			errs = append(errs, fmt.Errorf("writer '%s': %w", w.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// writeTimestamp stores the completion time as unix seconds and sets the file mtime to it.
func (m *Manager) writeTimestamp() error {
	path := m.cfg.Analyzer.TSPath
	if path == "" {
		return nil
	}
	end := m.now()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create timestamp directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.FormatInt(end.Unix(), 10)), 0644); err != nil {
		return fmt.Errorf("failed to write timestamp file: %w", err)
	}
	if err := os.Chtimes(path, end, end); err != nil {
		return fmt.Errorf("failed to set timestamp file mtime: %w", err)
	}
	return nil
}

func (m *Manager) flushMetrics() {
	path := m.cfg.Metrics.TextfilePath
	if path == "" {
		return
	}
	if err := m.metrics.WriteTextfile(path); err != nil {
		log.Printf("Warning: %v", err)
	}
}

// Close releases the publisher and any writer holding a connection.
func (m *Manager) Close() error {
	if m.publisher != nil {
		m.publisher.Close()
	}
	var errs []error
	for _, w := range m.writers {
		if c, ok := w.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
