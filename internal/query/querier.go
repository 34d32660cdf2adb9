package query

import (
	"LogSpectra/internal/model"
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no report exists for the requested date.
var ErrNotFound = errors.New("report not found")

const dateLayout = "2006-01-02"

// ReportInfo is the listing entry of one stored report.
type ReportInfo struct {
	Date      string  `json:"date"`
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Endpoints int     `json:"endpoints"`
	Processed int     `json:"processed"`
	TotalTime float64 `json:"total_time"`
}

// Querier defines the interface for reading stored reports.
type Querier interface {
	// ListReports returns every stored report, newest first.
	ListReports(ctx context.Context) ([]ReportInfo, error)
	// Endpoints returns the rows of the report for date (YYYY-MM-DD), slowest first.
	// A limit <= 0 returns every row.
	Endpoints(ctx context.Context, date string, limit int) ([]model.EndpointRow, error)
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s', expected YYYY-MM-DD", date)
	}
	return t, nil
}
