package query

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/engine/impl/report"
	"LogSpectra/internal/model"
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// listReportsQuery returns the latest run of every logged date.
const listReportsQuery = `
	SELECT
		toString(LogDate) AS Date,
		ReportID,
		any(Source),
		count() AS Endpoints,
		sum(Count) AS Processed,
		sum(TimeSum) AS TotalTime
	FROM endpoint_stats
	WHERE (LogDate, ReportID) IN (
		SELECT LogDate, argMax(ReportID, GeneratedAt) FROM endpoint_stats GROUP BY LogDate
	)
	GROUP BY LogDate, ReportID
	ORDER BY LogDate DESC
`

const endpointsQuery = `
	SELECT URL, Count, CountPerc, TimeAvg, TimeMax, TimeSum, TimePerc, TimeMed
	FROM endpoint_stats
	WHERE LogDate = ? AND ReportID = (
		SELECT argMax(ReportID, GeneratedAt) FROM endpoint_stats WHERE LogDate = ?
	)
	ORDER BY TimeSum DESC
`

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	db *sql.DB
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	db, err := report.OpenClickHouse(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{db: db}, nil
}

func (q *clickhouseQuerier) ListReports(ctx context.Context) ([]ReportInfo, error) {
	rows, err := q.db.QueryContext(ctx, listReportsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	reports := []ReportInfo{}
	for rows.Next() {
		var (
			info      ReportInfo
			endpoints uint64
			processed int64
		)
		if err := rows.Scan(&info.Date, &info.ID, &info.Source, &endpoints, &processed, &info.TotalTime); err != nil {
			return nil, fmt.Errorf("failed to scan report listing: %w", err)
		}
		info.Endpoints = int(endpoints)
		info.Processed = int(processed)
		reports = append(reports, info)
	}
	return reports, rows.Err()
}

func (q *clickhouseQuerier) Endpoints(ctx context.Context, date string, limit int) ([]model.EndpointRow, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(endpointsQuery)
	args := []any{day, day}
	if limit > 0 {
		queryBuilder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := q.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	result := []model.EndpointRow{}
	for rows.Next() {
		var (
			r     model.EndpointRow
			count int64
		)
		if err := rows.Scan(&r.URL, &count, &r.CountPerc, &r.TimeAvg, &r.TimeMax, &r.TimeSum, &r.TimePerc, &r.TimeMed); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint row: %w", err)
		}
		r.Count = int(count)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
