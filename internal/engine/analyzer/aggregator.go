package analyzer

import (
	"errors"
	"fmt"
	"iter"
	"log"

	"LogSpectra/pkg/logsource"

	"github.com/influxdata/tdigest"
)

// DefaultMaxParseErrors is the number of malformed lines tolerated per stream.
const DefaultMaxParseErrors = 200

// ErrTooManyErrors is matched by AbortedError.
var ErrTooManyErrors = errors.New("too many parsing errors")

// AbortedError reports that the parse error budget of a stream was exceeded.
// Callers should skip the report for this source rather than fail the process.
type AbortedError struct {
	Lines  int
	Errors int
	Limit  int
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("%v: %d of %d lines failed (limit %d)", ErrTooManyErrors, e.Errors, e.Lines, e.Limit)
}

func (e *AbortedError) Unwrap() error {
	return ErrTooManyErrors
}

// group collects every latency seen for one endpoint.
type group struct {
	endpoint string
	samples  []float64
}

// Aggregator groups latency samples by endpoint for a single stream.
// It is not safe for concurrent use; use one Aggregator per stream.
type Aggregator struct {
	maxErrors int
	groups    map[string]*group
	order     []*group // first-encounter order, used as the sort tie-breaker

	lines     int
	processed int
	errors    int
	totalTime float64
	digest    *tdigest.TDigest
	aborted   *AbortedError
}

// New creates an Aggregator that aborts once more than maxErrors lines fail to parse.
func New(maxErrors int) *Aggregator {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxParseErrors
	}
	return &Aggregator{
		maxErrors: maxErrors,
		groups:    make(map[string]*group),
		digest:    tdigest.NewWithCompression(100),
	}
}

// ProcessLine folds one raw line into the aggregation.
// Malformed lines are logged and counted; the only error returned is *AbortedError.
func (a *Aggregator) ProcessLine(line []byte) error {
	if a.aborted != nil {
		return a.aborted
	}
	a.lines++

	sample, err := ParseLine(line)
	if err != nil {
		a.errors++
		log.Printf("Warning: line %d was not parsed: %v", a.lines, err)
		if a.errors > a.maxErrors {
			a.aborted = &AbortedError{Lines: a.lines, Errors: a.errors, Limit: a.maxErrors}
			return a.aborted
		}
		return nil
	}

	g, ok := a.groups[sample.Endpoint]
	if !ok {
		g = &group{endpoint: sample.Endpoint}
		a.groups[sample.Endpoint] = g
		a.order = append(a.order, g)
	}
	g.samples = append(g.samples, sample.Latency)

	a.processed++
	a.totalTime += sample.Latency
	a.digest.Add(sample.Latency, 1)
	return nil
}

// Lines returns the number of lines seen so far.
func (a *Aggregator) Lines() int { return a.lines }

// Errors returns the number of lines that failed to parse so far.
func (a *Aggregator) Errors() int { return a.errors }

// Aggregate consumes lines and returns the reportSize endpoints with the largest total time.
// Source errors are returned unchanged; an exceeded error budget returns *AbortedError.
func Aggregate(lines iter.Seq2[[]byte, error], reportSize, maxErrors int) (*Result, error) {
	agg := New(maxErrors)
	for line, err := range lines {
		if err != nil {
			log.Printf("ERROR: source failed after %d lines (%d errors): %v", agg.Lines(), agg.Errors(), err)
			return nil, err
		}
		if err := agg.ProcessLine(line); err != nil {
			log.Printf("ERROR: Too many parsing errors. Exiting parsing after %d lines (%d errors)", agg.Lines(), agg.Errors())
			return nil, err
		}
	}

	res := agg.Finalize(reportSize)
	log.Printf("Parsed %d lines: %d processed, %d errors, %d endpoints", res.TotalLines, res.Processed, res.Errors, res.Endpoints)
	return res, nil
}

// AnalyzeFile opens the log at path and aggregates it. The file is closed on every exit path.
func AnalyzeFile(path string, reportSize, maxErrors int) (*Result, error) {
	reader, err := logsource.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	log.Printf("Parsing file %s", path)
	return Aggregate(reader.Lines(), reportSize, maxErrors)
}
