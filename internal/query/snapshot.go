package query

import (
	"LogSpectra/internal/engine/impl/report"
	"LogSpectra/internal/model"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// snapshotQuerier reads the directories written by the snapshot writer.
type snapshotQuerier struct {
	rootPath string
}

// NewSnapshotQuerier creates a querier over <rootPath>/<YYYY-MM-DD>/ snapshots.
func NewSnapshotQuerier(rootPath string) Querier {
	return &snapshotQuerier{rootPath: rootPath}
}

func (q *snapshotQuerier) ListReports(_ context.Context) ([]ReportInfo, error) {
	entries, err := os.ReadDir(q.rootPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ReportInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	reports := []ReportInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := ParseDate(entry.Name()); err != nil {
			continue
		}
		summary, err := report.ReadSummary(filepath.Join(q.rootPath, entry.Name(), report.SummaryFileName))
		if err != nil {
			continue
		}
		reports = append(reports, ReportInfo{
			Date:      entry.Name(),
			ID:        summary.ID,
			Source:    summary.Source,
			Endpoints: summary.Summary.Endpoints,
			Processed: summary.Summary.Processed,
			TotalTime: summary.Summary.TotalTime,
		})
	}

	slices.SortFunc(reports, func(a, b ReportInfo) int {
		return strings.Compare(b.Date, a.Date)
	})
	return reports, nil
}

func (q *snapshotQuerier) Endpoints(_ context.Context, date string, limit int) ([]model.EndpointRow, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	rows, err := report.ReadRows(filepath.Join(q.rootPath, date, report.StatsFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	slices.Reverse(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
