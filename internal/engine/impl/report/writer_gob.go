package report

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/factory"
	"LogSpectra/internal/model"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	// StatsFileName holds the gob encoded rows of one snapshot.
	StatsFileName = "stats.dat"
	// SummaryFileName holds the JSON metadata of one snapshot.
	SummaryFileName = "summary.json"
)

func init() {
	factory.RegisterWriter("snapshot", func(def config.WriterDef, cfg *config.Config) (model.Writer, error) {
		root := def.Snapshot.RootPath
		if root == "" {
			root = filepath.Join(cfg.Analyzer.ReportDir, "snapshots")
		}
		return NewGobWriter(root), nil
	})
}

// SummaryData holds the metadata of a snapshot.
type SummaryData struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	Date        string        `json:"date"`
	GeneratedAt string        `json:"generated_at"`
	Rows        int           `json:"rows"`
	Summary     model.Summary `json:"summary"`
}

// GobWriter stores each report under <root>/<YYYY-MM-DD>/ as stats.dat and summary.json.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a new snapshot writer rooted at rootPath.
func NewGobWriter(rootPath string) *GobWriter {
	return &GobWriter{rootPath: rootPath}
}

func (w *GobWriter) Name() string { return "snapshot" }

// Write serializes the report rows in gob format and its summary as JSON.
func (w *GobWriter) Write(_ context.Context, report *model.Report) error {
	snapshotDir := filepath.Join(w.rootPath, report.DateString())
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	statsPath := filepath.Join(snapshotDir, StatsFileName)
	file, err := os.Create(statsPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", statsPath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(report.Rows); err != nil {
		return fmt.Errorf("failed to encode rows to gob for file '%s': %w", statsPath, err)
	}

	summary := SummaryData{
		ID:          report.ID,
		Source:      report.Source,
		Date:        report.DateString(),
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
		Rows:        len(report.Rows),
		Summary:     report.Summary,
	}
	summaryFile, err := os.Create(filepath.Join(snapshotDir, SummaryFileName))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	log.Printf("Wrote snapshot of %d endpoints to %s", len(report.Rows), snapshotDir)
	return nil
}

// ReadRows decodes the stats.dat file at path.
func ReadRows(path string) ([]model.EndpointRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open snapshot file: %w", err)
	}
	defer file.Close()

	var rows []model.EndpointRow
	if err := gob.NewDecoder(file).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode gob data: %w", err)
	}
	return rows, nil
}

// ReadSummary decodes the summary.json file at path.
func ReadSummary(path string) (*SummaryData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read summary file: %w", err)
	}
	var summary SummaryData
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &summary, nil
}
