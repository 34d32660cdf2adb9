package alerter

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/model"
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
)

const defaultAITimeout = 60 * time.Second

// metricFuncs extracts the value a rule compares against its threshold.
var metricFuncs = map[string]func(r *model.Report) float64{
	"parse_errors": func(r *model.Report) float64 { return float64(r.Summary.Errors) },
	"error_ratio": func(r *model.Report) float64 {
		if r.Summary.TotalLines == 0 {
			return 0
		}
		return float64(r.Summary.Errors) / float64(r.Summary.TotalLines)
	},
	"total_time":    func(r *model.Report) float64 { return r.Summary.TotalTime },
	"p99":           func(r *model.Report) float64 { return r.Summary.P99 },
	"top_time_perc": func(r *model.Report) float64 { return topRow(r).TimePerc },
	"top_time_avg":  func(r *model.Report) float64 { return topRow(r).TimeAvg },
	"top_time_med":  func(r *model.Report) float64 { return topRow(r).TimeMed },
}

// topRow returns the endpoint with the largest total time. Rows are ascending by TimeSum.
func topRow(r *model.Report) model.EndpointRow {
	if len(r.Rows) == 0 {
		return model.EndpointRow{}
	}
	return r.Rows[len(r.Rows)-1]
}

// MetricValue returns the named metric of a report.
func MetricValue(r *model.Report, metric string) (float64, error) {
	f, ok := metricFuncs[metric]
	if !ok {
		return 0, fmt.Errorf("unknown alert metric '%s'", metric)
	}
	return f(r), nil
}

// Alerter evaluates a finished report against predefined rules
// and triggers a notification if any rule is violated.
type Alerter struct {
	rules     []config.AlerterRule
	notifier  model.Notifier
	analyzer  model.Analyzer
	aiTimeout time.Duration
}

// NewAlerter creates a new Alerter instance. analyzer may be nil.
func NewAlerter(cfg *config.AlerterConfig, notifier model.Notifier, analyzer model.Analyzer) (*Alerter, error) {
	for _, rule := range cfg.Rules {
		if _, ok := metricFuncs[rule.Metric]; !ok {
			return nil, fmt.Errorf("rule '%s': unknown metric '%s'", rule.Name, rule.Metric)
		}
		switch rule.Operator {
		case ">", "<", "=", ">=", "<=":
		default:
			return nil, fmt.Errorf("rule '%s': unsupported operator '%s'", rule.Name, rule.Operator)
		}
	}

	timeout := defaultAITimeout
	if cfg.AIAnalysis.Timeout != "" {
		d, err := time.ParseDuration(cfg.AIAnalysis.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid ai_analysis timeout: %w", err)
		}
		timeout = d
	}
	if !cfg.AIAnalysis.Enabled {
		analyzer = nil
	}

	return &Alerter{
		rules:     cfg.Rules,
		notifier:  notifier,
		analyzer:  analyzer,
		aiTimeout: timeout,
	}, nil
}

// check compares value against threshold with the given operator.
func check(value, threshold float64, operator string) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case "=":
		return value == threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	}
	return false
}

// Alert is one violated rule.
type Alert struct {
	Rule  config.AlerterRule
	Value float64
}

func (a Alert) String() string {
	return fmt.Sprintf("%s: %s = %.3f (threshold %s %.3f)", a.Rule.Name, a.Rule.Metric, a.Value, a.Rule.Operator, a.Rule.Threshold)
}

// Check returns every rule the report violates.
func (a *Alerter) Check(report *model.Report) []Alert {
	var alerts []Alert
	for _, rule := range a.rules {
		value, err := MetricValue(report, rule.Metric)
		if err != nil {
			continue
		}
		if check(value, rule.Threshold, rule.Operator) {
			alerts = append(alerts, Alert{Rule: rule, Value: value})
		}
	}
	return alerts
}

// Evaluate checks the report and sends one consolidated notification when rules trigger.
// It returns the triggered alerts.
func (a *Alerter) Evaluate(ctx context.Context, report *model.Report) ([]Alert, error) {
	alerts := a.Check(report)
	if len(alerts) == 0 {
		return nil, nil
	}
	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(alerts))

	var sb strings.Builder
	sb.WriteString("<h1>LogSpectra Alert Summary</h1>")
	fmt.Fprintf(&sb, "<p>Log <b>%s</b> (%s) triggered the following alerts:</p><hr>",
		html.EscapeString(report.Source), report.DateString())
	for _, alert := range alerts {
		fmt.Fprintf(&sb, "<h3>Alert: %s</h3><ul><li>Metric: %s</li><li>Value: %.3f</li><li>Threshold: %s %.3f</li></ul>",
			html.EscapeString(alert.Rule.Name), alert.Rule.Metric, alert.Value, html.EscapeString(alert.Rule.Operator), alert.Rule.Threshold)
	}

	analysis, err := a.getAIAnalysis(ctx, report, alerts)
	if err != nil {
		log.Printf("Failed to get AI analysis: %v", err)
	} else if analysis != "" {
		sb.WriteString("<hr><h2>AI-Powered Analysis</h2>")
		sb.Write(renderMarkdown(analysis))
	}

	if a.notifier == nil {
		return alerts, nil
	}
	subject := fmt.Sprintf("LogSpectra Alert Summary for %s (%d Triggered)", report.DateString(), len(alerts))
	if err := a.notifier.Send(subject, sb.String()); err != nil {
		return alerts, fmt.Errorf("failed to send alert notification: %w", err)
	}
	log.Printf("Alert notification sent successfully.")
	return alerts, nil
}

// renderMarkdown converts model output to HTML. Raw HTML in the input is dropped.
func renderMarkdown(md string) []byte {
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML,
	})
	return markdown.ToHTML([]byte(md), nil, renderer)
}

// getAIAnalysis asks the analyzer to comment on the triggered alerts.
func (a *Alerter) getAIAnalysis(ctx context.Context, report *model.Report, alerts []Alert) (string, error) {
	if a.analyzer == nil {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Log %s: %d lines, %d parse errors, total request time %.3fs, p50 %.3fs, p90 %.3fs, p99 %.3fs\n",
		report.Source, report.Summary.TotalLines, report.Summary.Errors, report.Summary.TotalTime,
		report.Summary.P50, report.Summary.P90, report.Summary.P99)
	for _, alert := range alerts {
		sb.WriteString(alert.String())
		sb.WriteByte('\n')
	}
	sb.WriteString("Slowest endpoints by total time:\n")
	for i := len(report.Rows) - 1; i >= 0 && i >= len(report.Rows)-10; i-- {
		r := report.Rows[i]
		fmt.Fprintf(&sb, "%s count=%d time_sum=%.3f time_perc=%.3f time_avg=%.3f time_med=%.3f\n",
			r.URL, r.Count, r.TimeSum, r.TimePerc, r.TimeAvg, r.TimeMed)
	}

	log.Println("Requesting AI analysis for alert summary...")
	ctx, cancel := context.WithTimeout(ctx, a.aiTimeout)
	defer cancel()
	return a.analyzer.AnalyzeReport(ctx, sb.String())
}
