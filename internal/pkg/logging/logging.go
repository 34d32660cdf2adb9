// Package logging points the standard logger at the configured destination
// and stamps every entry as "[2006.01.02 15:04:05] L message".
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const timeLayout = "2006.01.02 15:04:05"

// stampWriter prefixes each log entry with a timestamp and a one-letter level.
// The level is derived from the "ERROR:" and "Warning:" prefixes used across the code base.
type stampWriter struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func (w *stampWriter) Write(p []byte) (int, error) {
	level := byte('I')
	switch {
	case bytes.HasPrefix(p, []byte("ERROR:")):
		level = 'E'
	case bytes.HasPrefix(p, []byte("Warning:")):
		level = 'W'
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.out, "[%s] %c %s", w.now().Format(timeLayout), level, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup redirects the standard logger. An empty path logs to stdout; otherwise
// the file is opened for appending and created along with its directory.
// The returned Closer releases the file.
func Setup(path string) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out, closer = f, f
	}
	log.SetFlags(0)
	log.SetPrefix("")
	log.SetOutput(newStampWriter(out))
	return closer, nil
}

func newStampWriter(out io.Writer) *stampWriter {
	return &stampWriter{out: out, now: time.Now}
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	log.Printf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	log.Printf("ERROR: "+format, args...)
}
