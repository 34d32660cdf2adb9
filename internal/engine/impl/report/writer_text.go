package report

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/factory"
	"LogSpectra/internal/model"
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"text/tabwriter"
)

func init() {
	factory.RegisterWriter("text", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		root := def.Text.RootPath
		if root == "" {
			root = cfg.Analyzer.ReportDir
		}
		return NewTextWriter(root), nil
	})
}

// TextWriter writes a plain text table with the slowest endpoints first.
type TextWriter struct {
	rootPath string
}

// NewTextWriter creates a new text writer.
func NewTextWriter(rootPath string) *TextWriter {
	return &TextWriter{rootPath: rootPath}
}

func (w *TextWriter) Name() string { return "text" }

func (w *TextWriter) Write(_ context.Context, report *model.Report) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s  lines=%d processed=%d errors=%d total_time=%.3f p50=%.3f p90=%.3f p99=%.3f\n",
		report.Source, report.Summary.TotalLines, report.Summary.Processed, report.Summary.Errors,
		report.Summary.TotalTime, report.Summary.P50, report.Summary.P90, report.Summary.P99)

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "count\tcount%\ttime_sum\ttime%\ttime_avg\ttime_max\ttime_med\turl")
	for i := len(report.Rows) - 1; i >= 0; i-- {
		r := report.Rows[i]
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%s\n",
			r.Count, r.CountPerc, r.TimeSum, r.TimePerc, r.TimeAvg, r.TimeMax, r.TimeMed, r.URL)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to format text report: %w", err)
	}

	path := filepath.Join(w.rootPath, fmt.Sprintf("report-%s.txt", report.Date.Format("2006.01.02")))
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return err
	}

	log.Printf("Successfully wrote %d endpoints to %s", len(report.Rows), path)
	return nil
}
