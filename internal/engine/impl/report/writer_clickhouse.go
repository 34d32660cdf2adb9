package report

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/factory"
	"LogSpectra/internal/model"
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// CreateTableStatement creates the table that receives one row per endpoint and report.
const CreateTableStatement = `
CREATE TABLE IF NOT EXISTS endpoint_stats (
    ReportID    String,
    LogDate     Date,
    GeneratedAt DateTime,
    Source      String,
    URL         String,
    Count       Int64,
    CountPerc   Float64,
    TimeAvg     Float64,
    TimeMax     Float64,
    TimeSum     Float64,
    TimePerc    Float64,
    TimeMed     Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(LogDate)
ORDER BY (LogDate, URL);
`

const insertStatement = `INSERT INTO endpoint_stats (ReportID, LogDate, GeneratedAt, Source, URL, Count, CountPerc, TimeAvg, TimeMax, TimeSum, TimePerc, TimeMed)`

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, _ *config.Config) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse)
	})
}

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	db *sql.DB
}

// NewClickHouseWriter connects to ClickHouse and ensures the endpoint_stats table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	db, err := OpenClickHouse(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	w, err := newClickHouseWriter(context.Background(), db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")
	return w, nil
}

func newClickHouseWriter(ctx context.Context, db *sql.DB) (*ClickHouseWriter, error) {
	if _, err := db.ExecContext(ctx, CreateTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &ClickHouseWriter{db: db}, nil
}

// OpenClickHouse opens a database/sql handle backed by the native ClickHouse protocol.
func OpenClickHouse(cfg config.ClickHouseConfig) (*sql.DB, error) {
	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return db, nil
}

func (w *ClickHouseWriter) Name() string { return "clickhouse" }

// Write inserts the report rows in a single batch.
func (w *ClickHouseWriter) Write(ctx context.Context, report *model.Report) error {
	if len(report.Rows) == 0 {
		return nil // Nothing to write
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertStatement)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, r := range report.Rows {
		_, err := stmt.ExecContext(ctx,
			report.ID,
			report.Date,
			report.GeneratedAt,
			report.Source,
			r.URL,
			int64(r.Count),
			r.CountPerc,
			r.TimeAvg,
			r.TimeMax,
			r.TimeSum,
			r.TimePerc,
			r.TimeMed,
		)
		if err != nil {
			return fmt.Errorf("failed to append row to batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d endpoints to ClickHouse for report '%s'", len(report.Rows), report.ID)
	return nil
}

// Close releases the database handle.
func (w *ClickHouseWriter) Close() error {
	return w.db.Close()
}
