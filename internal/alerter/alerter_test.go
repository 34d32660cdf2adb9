package alerter

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/model"
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeNotifier struct {
	subject, body string
	calls         int
	err           error
}

func (f *fakeNotifier) Send(subject, body string) error {
	f.calls++
	f.subject, f.body = subject, body
	return f.err
}

type fakeAnalyzer struct {
	input string
	out   string
	err   error
}

func (f *fakeAnalyzer) AnalyzeReport(_ context.Context, input string) (string, error) {
	f.input = input
	return f.out, f.err
}

func report() *model.Report {
	return &model.Report{
		Source:  "nginx-access-ui.log-20170630",
		Summary: model.Summary{TotalLines: 100, Errors: 10, TotalTime: 50},
		Rows: []model.EndpointRow{
			{URL: "/fast", TimeSum: 5, TimePerc: 10, TimeAvg: 0.1, TimeMed: 0.1},
			{URL: "/slow", TimeSum: 45, TimePerc: 90, TimeAvg: 2.5, TimeMed: 2},
		},
	}
}

func TestMetricValue(t *testing.T) {
	tests := map[string]float64{
		"parse_errors":  10,
		"error_ratio":   0.1,
		"total_time":    50,
		"top_time_perc": 90,
		"top_time_avg":  2.5,
		"top_time_med":  2,
	}
	for metric, want := range tests {
		got, err := MetricValue(report(), metric)
		if err != nil {
			t.Fatalf("MetricValue(%s) failed: %v", metric, err)
		}
		if got != want {
			t.Errorf("MetricValue(%s) = %v, want %v", metric, got, want)
		}
	}

	empty := &model.Report{}
	if v, _ := MetricValue(empty, "error_ratio"); v != 0 {
		t.Errorf("error_ratio of an empty report should be 0, got %v", v)
	}
	if v, _ := MetricValue(empty, "top_time_perc"); v != 0 {
		t.Errorf("top_time_perc of an empty report should be 0, got %v", v)
	}
	if _, err := MetricValue(empty, "nope"); err == nil {
		t.Error("Expected an error for an unknown metric")
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		op   string
		v, t float64
		want bool
	}{
		{">", 2, 1, true}, {">", 1, 1, false},
		{"<", 0, 1, true}, {"=", 1, 1, true},
		{">=", 1, 1, true}, {"<=", 2, 1, false},
		{"!=", 2, 1, false},
	}
	for _, tt := range tests {
		if got := check(tt.v, tt.t, tt.op); got != tt.want {
			t.Errorf("check(%v %s %v) = %v, want %v", tt.v, tt.op, tt.t, got, tt.want)
		}
	}
}

func TestNewAlerter_Validation(t *testing.T) {
	bad := []config.AlerterConfig{
		{Rules: []config.AlerterRule{{Name: "x", Metric: "nope", Operator: ">"}}},
		{Rules: []config.AlerterRule{{Name: "x", Metric: "total_time", Operator: "!="}}},
		{AIAnalysis: config.AIAnalysisConfig{Timeout: "soon"}},
	}
	for i, cfg := range bad {
		if _, err := NewAlerter(&cfg, nil, nil); err == nil {
			t.Errorf("Case %d: expected a validation error", i)
		}
	}
}

func TestEvaluate(t *testing.T) {
	cfg := &config.AlerterConfig{
		Enabled: true,
		Rules: []config.AlerterRule{
			{Name: "hot endpoint", Metric: "top_time_perc", Operator: ">", Threshold: 50},
			{Name: "many errors", Metric: "error_ratio", Operator: ">=", Threshold: 0.5},
		},
		AIAnalysis: config.AIAnalysisConfig{Enabled: true, Timeout: "5s"},
	}
	notifier := &fakeNotifier{}
	analyzer := &fakeAnalyzer{out: "**/slow** dominates"}

	a, err := NewAlerter(cfg, notifier, analyzer)
	if err != nil {
		t.Fatalf("NewAlerter failed: %v", err)
	}

	alerts, err := a.Evaluate(context.Background(), report())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Rule.Name != "hot endpoint" {
		t.Fatalf("Expected only the hot endpoint rule, got %+v", alerts)
	}
	if notifier.calls != 1 || !strings.Contains(notifier.subject, "(1 Triggered)") {
		t.Errorf("Unexpected notification: %d calls, subject %q", notifier.calls, notifier.subject)
	}
	if !strings.Contains(notifier.body, "<h3>Alert: hot endpoint</h3>") {
		t.Errorf("Body is missing the alert: %s", notifier.body)
	}
	if !strings.Contains(notifier.body, "<strong>/slow</strong>") {
		t.Errorf("AI markdown was not rendered: %s", notifier.body)
	}
	if !strings.Contains(analyzer.input, "/slow count=0") {
		t.Errorf("Analyzer input is missing the slowest endpoint: %s", analyzer.input)
	}
}

func TestEvaluate_NothingTriggered(t *testing.T) {
	notifier := &fakeNotifier{}
	a, _ := NewAlerter(&config.AlerterConfig{
		Rules: []config.AlerterRule{{Name: "x", Metric: "parse_errors", Operator: ">", Threshold: 1000}},
	}, notifier, nil)

	alerts, err := a.Evaluate(context.Background(), report())
	if err != nil || len(alerts) != 0 || notifier.calls != 0 {
		t.Fatalf("Expected no alerts and no notification, got %v %v %d", alerts, err, notifier.calls)
	}
}

func TestEvaluate_AIFailureStillNotifies(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	a, _ := NewAlerter(&config.AlerterConfig{
		Rules:      []config.AlerterRule{{Name: "x", Metric: "parse_errors", Operator: ">", Threshold: 1}},
		AIAnalysis: config.AIAnalysisConfig{Enabled: true},
	}, notifier, &fakeAnalyzer{err: errors.New("timeout")})

	alerts, err := a.Evaluate(context.Background(), report())
	if len(alerts) != 1 {
		t.Fatalf("Expected one alert, got %d", len(alerts))
	}
	if err == nil {
		t.Error("Expected the notifier error to be returned")
	}
	if strings.Contains(notifier.body, "AI-Powered Analysis") {
		t.Error("Failed AI analysis should not be included")
	}
}

func TestEvaluate_AIRawHTMLDropped(t *testing.T) {
	notifier := &fakeNotifier{}
	a, err := NewAlerter(&config.AlerterConfig{
		Rules:      []config.AlerterRule{{Name: "x", Metric: "parse_errors", Operator: ">", Threshold: 1}},
		AIAnalysis: config.AIAnalysisConfig{Enabled: true},
	}, notifier, &fakeAnalyzer{out: "Check **/slow** first.\n\n<script>alert(1)</script>\n\n<a href=\"http://evil\">x</a>"})
	if err != nil {
		t.Fatalf("NewAlerter failed: %v", err)
	}

	if _, err := a.Evaluate(context.Background(), report()); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !strings.Contains(notifier.body, "<strong>/slow</strong>") {
		t.Errorf("Markdown was not rendered: %s", notifier.body)
	}
	if strings.Contains(notifier.body, "<script>") || strings.Contains(notifier.body, "http://evil") {
		t.Errorf("Raw HTML from the analysis leaked into the body: %s", notifier.body)
	}
}
