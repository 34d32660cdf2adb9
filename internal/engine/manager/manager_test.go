package manager

import (
	"LogSpectra/internal/alerter"
	"LogSpectra/internal/config"
	"LogSpectra/internal/model"
	"LogSpectra/pkg/logsource"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fixture = "../../../test/data/nginx-access-ui.log-20170630"

type recordingWriter struct {
	name    string
	err     error
	reports []*model.Report
}

func (w *recordingWriter) Name() string { return w.name }

func (w *recordingWriter) Write(_ context.Context, r *model.Report) error {
	w.reports = append(w.reports, r)
	return w.err
}

type fakePublisher struct {
	published []*model.Report
	closed    bool
}

func (p *fakePublisher) Publish(r *model.Report) error {
	p.published = append(p.published, r)
	return errors.New("nats: no servers available")
}

func (p *fakePublisher) Close() { p.closed = true }

type fakeAlerter struct{ calls int }

func (a *fakeAlerter) Evaluate(context.Context, *model.Report) ([]alerter.Alert, error) {
	a.calls++
	return nil, nil
}

// setup creates log, report and template directories and returns a config pointing at them.
func setup(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Analyzer.LogDir = filepath.Join(root, "log")
	cfg.Analyzer.ReportDir = filepath.Join(root, "reports")
	cfg.Analyzer.TSPath = filepath.Join(root, "log_analyzer.ts")
	cfg.Metrics.TextfilePath = filepath.Join(root, "textfile", "logspectra.prom")

	if err := os.MkdirAll(cfg.Analyzer.LogDir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Analyzer.LogDir, "nginx-access-ui.log-20170630"), data, 0644); err != nil {
		t.Fatal(err)
	}

	tpl := filepath.Join(root, "report.html")
	if err := os.WriteFile(tpl, []byte("var table = $table_json;"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Writers = []config.WriterDef{
		{Type: "html", Enabled: true, HTML: config.HTMLConfig{TemplatePath: tpl}},
		{Type: "snapshot", Enabled: true},
	}
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := setup(t)
	pub := &fakePublisher{}
	alerts := &fakeAlerter{}
	end := time.Date(2017, 7, 1, 3, 0, 0, 0, time.UTC)

	m, err := NewManager(cfg, WithPublisher(pub), WithAlerter(alerts), WithClock(func() time.Time { return end }))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	html, err := os.ReadFile(filepath.Join(cfg.Analyzer.ReportDir, "report-2017.06.30.html"))
	if err != nil {
		t.Fatalf("html report was not written: %v", err)
	}
	if !strings.Contains(string(html), `"url":"/api/v2/banner/25013431"`) {
		t.Errorf("html report does not contain the slowest endpoint")
	}
	if _, err := os.Stat(filepath.Join(cfg.Analyzer.ReportDir, "snapshots", "2017-06-30", "stats.dat")); err != nil {
		t.Errorf("snapshot was not written: %v", err)
	}

	ts, err := os.ReadFile(cfg.Analyzer.TSPath)
	if err != nil || string(ts) != "1498878000" {
		t.Errorf("Unexpected timestamp file: %q %v", ts, err)
	}
	if info, err := os.Stat(cfg.Analyzer.TSPath); err != nil || !info.ModTime().Equal(end) {
		t.Errorf("Timestamp file mtime was not set")
	}

	if len(pub.published) != 1 || pub.published[0].Summary.Processed != 20 || len(pub.published[0].Rows) != 20 {
		t.Errorf("Report was not published as expected: %+v", pub.published)
	}
	if pub.published[0].ID == "" {
		t.Error("Report should carry a run id")
	}
	if alerts.calls != 1 {
		t.Errorf("Alerter should be called once, got %d", alerts.calls)
	}

	prom, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("metrics textfile was not written: %v", err)
	}
	if !strings.Contains(string(prom), `logspectra_runs_total{outcome="success"} 1`) {
		t.Errorf("metrics textfile is missing the success run:\n%s", prom)
	}

	// The log is now reported; a second run has nothing to do.
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if len(pub.published) != 1 {
		t.Errorf("Second run should not publish again")
	}

	m.Close()
	if !pub.closed {
		t.Error("Close should close the publisher")
	}
}

func TestRun_NoLogs(t *testing.T) {
	cfg := setup(t)
	os.Remove(filepath.Join(cfg.Analyzer.LogDir, "nginx-access-ui.log-20170630"))
	w := &recordingWriter{name: "rec"}

	m, err := NewManager(cfg, WithWriters(w))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(w.reports) != 0 {
		t.Error("No report should be written without logs")
	}
	if _, err := os.Stat(cfg.Analyzer.TSPath); !os.IsNotExist(err) {
		t.Error("Timestamp file should not be written without logs")
	}
}

func TestRun_TooManyErrors(t *testing.T) {
	cfg := setup(t)
	cfg.Analyzer.MaxParseErrors = 2
	bad := "garbage\nmore garbage\nstill garbage\n"
	if err := os.WriteFile(filepath.Join(cfg.Analyzer.LogDir, "nginx-access-ui.log-20170701"), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	w := &recordingWriter{name: "rec"}

	m, err := NewManager(cfg, WithWriters(w))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("An aborted log should not fail the run: %v", err)
	}
	if len(w.reports) != 0 {
		t.Error("No report should be written for an aborted log")
	}
	if _, err := os.Stat(cfg.Analyzer.TSPath); !os.IsNotExist(err) {
		t.Error("Timestamp file should not be written for an aborted log")
	}
}

func TestRun_WriterFailure(t *testing.T) {
	cfg := setup(t)
	failing := &recordingWriter{name: "broken", err: errors.New("disk full")}
	ok := &recordingWriter{name: "ok"}

	m, err := NewManager(cfg, WithWriters(failing, ok))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	err = m.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Expected the writer error, got %v", err)
	}
	if len(ok.reports) != 1 {
		t.Error("Remaining writers should still run")
	}
	if _, err := os.Stat(cfg.Analyzer.TSPath); !os.IsNotExist(err) {
		t.Error("Timestamp file should not be written when a writer fails")
	}
}

func TestRun_CorruptGzip(t *testing.T) {
	cfg := setup(t)
	path := filepath.Join(cfg.Analyzer.LogDir, "nginx-access-ui.log-20170701.gz")
	if err := os.WriteFile(path, []byte("not gzip at all"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(cfg, WithWriters(&recordingWriter{name: "rec"}))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	err = m.Run(context.Background())
	if !errors.Is(err, logsource.ErrCorruptStream) {
		t.Fatalf("Expected ErrCorruptStream for a bad gzip header, got %v", err)
	}
}

func TestRun_MissingLogDir(t *testing.T) {
	cfg := setup(t)
	cfg.Analyzer.LogDir = filepath.Join(t.TempDir(), "missing")

	m, err := NewManager(cfg, WithWriters(&recordingWriter{name: "rec"}))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("Expected an error for a missing log dir")
	}
}

func TestNewManager_AlerterWithoutNotifier(t *testing.T) {
	cfg := setup(t)
	cfg.Alerter.Enabled = true

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m.alerter != nil {
		t.Error("Alerter should not run without a notifier")
	}
	if len(m.writers) != 2 {
		t.Errorf("Expected the html and snapshot writers, got %d", len(m.writers))
	}
}
