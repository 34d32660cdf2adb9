package model

import "time"

// EndpointRow is the externally consumed form of one endpoint's statistics.
// Percentages are scaled to 0..100 and every float is rounded to 3 decimals.
type EndpointRow struct {
	URL       string  `json:"url"`
	Count     int     `json:"count"`
	CountPerc float64 `json:"count_perc"`
	TimeAvg   float64 `json:"time_avg"`
	TimeMax   float64 `json:"time_max"`
	TimeSum   float64 `json:"time_sum"`
	TimePerc  float64 `json:"time_perc"`
	TimeMed   float64 `json:"time_med"`
}

// Summary holds the stream level counters of one analysis run.
type Summary struct {
	TotalLines int     `json:"total_lines"`
	Processed  int     `json:"processed"`
	Errors     int     `json:"errors"`
	Endpoints  int     `json:"endpoints"`
	TotalTime  float64 `json:"total_time"`
	P50        float64 `json:"p50"`
	P90        float64 `json:"p90"`
	P99        float64 `json:"p99"`
}

// Report is the finished output of one run, handed to every writer.
// Rows are ordered ascending by TimeSum.
type Report struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	Date        time.Time     `json:"date"`
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     Summary       `json:"summary"`
	Rows        []EndpointRow `json:"rows"`
}

// DateString formats the log date the way report directories are named.
func (r *Report) DateString() string {
	return r.Date.Format("2006-01-02")
}
