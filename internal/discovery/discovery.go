// Package discovery locates the newest unprocessed access log and the date of
// the most recent report.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	reportDateLayout = "2006.01.02"
	logDateLayout    = "20060102"
)

// ZeroDate is returned by LastReportDate when no report exists yet.
var ZeroDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var reportNamePattern = regexp.MustCompile(`^report-(\d{4}\.\d{2}\.\d{2})\.html$`)

// LogFile is a candidate access log found on disk.
type LogFile struct {
	Path string
	Date time.Time
	Gzip bool
}

// ReportFileName returns the html report name for the given log date.
func ReportFileName(date time.Time) string {
	return fmt.Sprintf("report-%s.html", date.Format(reportDateLayout))
}

// LastReportDate returns the newest date among report-YYYY.MM.DD.html files in reportDir.
// A missing directory is not an error.
func LastReportDate(reportDir string) (time.Time, error) {
	last := ZeroDate
	entries, err := os.ReadDir(reportDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return last, nil
		}
		return last, fmt.Errorf("failed to list report dir '%s': %w", reportDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := reportNamePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		date, err := time.Parse(reportDateLayout, m[1])
		if err != nil {
			continue
		}
		if date.After(last) {
			last = date
		}
	}
	return last, nil
}

// LatestLog returns the newest <prefix>YYYYMMDD or <prefix>YYYYMMDD.gz file in logDir
// dated strictly after the given time. When both variants share a date the plain file wins.
func LatestLog(logDir, prefix string, after time.Time) (LogFile, bool, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return LogFile{}, false, fmt.Errorf("failed to list log dir '%s': %w", logDir, err)
	}

	var (
		best  LogFile
		found bool
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		stamp, gz := strings.CutSuffix(rest, ".gz")
		if len(stamp) != len(logDateLayout) {
			continue
		}
		date, err := time.Parse(logDateLayout, stamp)
		if err != nil || !date.After(after) {
			continue
		}

		candidate := LogFile{Path: filepath.Join(logDir, name), Date: date, Gzip: gz}
		switch {
		case !found, date.After(best.Date):
			best, found = candidate, true
		case date.Equal(best.Date) && best.Gzip && !gz:
			best = candidate
		}
	}
	return best, found, nil
}
