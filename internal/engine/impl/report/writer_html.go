package report

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/discovery"
	"LogSpectra/internal/factory"
	"LogSpectra/internal/model"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// TablePlaceholder is replaced with the JSON rows in the html template.
const TablePlaceholder = "$table_json"

func init() {
	factory.RegisterWriter("html", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		return NewHTMLWriter(def.HTML.TemplatePath, cfg.Analyzer.ReportDir), nil
	})
}

// HTMLWriter renders the report rows into the html template.
type HTMLWriter struct {
	templatePath string
	reportDir    string
}

// NewHTMLWriter creates a writer that stores report-YYYY.MM.DD.html files in reportDir.
func NewHTMLWriter(templatePath, reportDir string) *HTMLWriter {
	return &HTMLWriter{templatePath: templatePath, reportDir: reportDir}
}

func (w *HTMLWriter) Name() string { return "html" }

// Write substitutes every occurrence of the placeholder with the rows as a JSON array.
func (w *HTMLWriter) Write(_ context.Context, report *model.Report) error {
	tpl, err := os.ReadFile(w.templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template '%s': %w", w.templatePath, err)
	}

	rows := report.Rows
	if rows == nil {
		rows = []model.EndpointRow{}
	}
	table, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode report table: %w", err)
	}

	out := bytes.ReplaceAll(tpl, []byte(TablePlaceholder), table)
	path := filepath.Join(w.reportDir, discovery.ReportFileName(report.Date))
	if err := writeFileAtomic(path, out); err != nil {
		return err
	}

	log.Printf("File %s created successfully.", filepath.Base(path))
	return nil
}
