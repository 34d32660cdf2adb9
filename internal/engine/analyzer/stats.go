package analyzer

import (
	"cmp"
	"math"
	"slices"

	"LogSpectra/internal/model"
)

// EndpointStats is the finalized summary of one endpoint.
// CountShare and TimeShare are fractions in 0..1.
type EndpointStats struct {
	URL        string
	Count      int
	CountShare float64
	TimeSum    float64
	TimeAvg    float64
	TimeMax    float64
	TimeMedian float64
	TimeShare  float64
}

// Quantiles are approximate latency quantiles over every processed sample.
type Quantiles struct {
	P50 float64
	P90 float64
	P99 float64
}

// Result is the ranked output of one aggregation pass.
type Result struct {
	// Stats is ascending by TimeSum; equal sums keep first-encounter order.
	Stats      []EndpointStats
	TotalLines int
	Processed  int
	Errors     int
	Endpoints  int
	TotalTime  float64
	Quantiles  Quantiles
}

// Finalize computes per-endpoint statistics and keeps the reportSize entries with the largest TimeSum.
// A reportSize <= 0 keeps every endpoint.
func (a *Aggregator) Finalize(reportSize int) *Result {
	res := &Result{
		TotalLines: a.lines,
		Processed:  a.processed,
		Errors:     a.errors,
		Endpoints:  len(a.order),
		TotalTime:  a.totalTime,
	}
	if a.processed == 0 {
		return res
	}

	res.Quantiles = Quantiles{
		P50: a.digest.Quantile(0.50),
		P90: a.digest.Quantile(0.90),
		P99: a.digest.Quantile(0.99),
	}

	stats := make([]EndpointStats, 0, len(a.order))
	for _, g := range a.order {
		stats = append(stats, a.summarize(g))
	}

	slices.SortStableFunc(stats, func(x, y EndpointStats) int {
		return cmp.Compare(x.TimeSum, y.TimeSum)
	})
	if reportSize > 0 && len(stats) > reportSize {
		stats = stats[len(stats)-reportSize:]
	}
	res.Stats = stats
	return res
}

func (a *Aggregator) summarize(g *group) EndpointStats {
	sorted := slices.Clone(g.samples)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	count := len(sorted)

	timeShare := 0.0
	if a.totalTime > 0 {
		timeShare = sum / a.totalTime
	}

	return EndpointStats{
		URL:        g.endpoint,
		Count:      count,
		CountShare: float64(count) / float64(a.processed),
		TimeSum:    sum,
		TimeAvg:    sum / float64(count),
		TimeMax:    sorted[count-1],
		TimeMedian: Median(sorted),
		TimeShare:  timeShare,
	}
}

// Median returns the median of an ascending slice.
// For an even length it is the mean of the two middle samples.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Row converts the stats to the report form: percentages scaled by 100, floats rounded to 3 places.
func (s EndpointStats) Row() model.EndpointRow {
	return model.EndpointRow{
		URL:       s.URL,
		Count:     s.Count,
		CountPerc: round3(100 * s.CountShare),
		TimeAvg:   round3(s.TimeAvg),
		TimeMax:   round3(s.TimeMax),
		TimeSum:   round3(s.TimeSum),
		TimePerc:  round3(100 * s.TimeShare),
		TimeMed:   round3(s.TimeMedian),
	}
}

// Rows returns the report rows in the same ascending order as Stats.
func (r *Result) Rows() []model.EndpointRow {
	rows := make([]model.EndpointRow, len(r.Stats))
	for i, s := range r.Stats {
		rows[i] = s.Row()
	}
	return rows
}

// Summary returns the stream counters in report form.
func (r *Result) Summary() model.Summary {
	return model.Summary{
		TotalLines: r.TotalLines,
		Processed:  r.Processed,
		Errors:     r.Errors,
		Endpoints:  r.Endpoints,
		TotalTime:  round3(r.TotalTime),
		P50:        round3(r.Quantiles.P50),
		P90:        round3(r.Quantiles.P90),
		P99:        round3(r.Quantiles.P99),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
