package logsource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var (
	// ErrSourceUnavailable is returned when the log file cannot be opened.
	ErrSourceUnavailable = errors.New("log source unavailable")
	// ErrCorruptStream is returned when the stream cannot be read or inflated, gzip header included.
	ErrCorruptStream = errors.New("corrupt log stream")
)

const gzipSuffix = ".gz"

// Reader reads raw lines from a plain or gzip compressed access log.
type Reader struct {
	path    string
	file    *os.File
	gzipped bool
	gz      *gzip.Reader
	br      *bufio.Reader
	done    bool
}

// NewReader opens the log file at filePath. Files ending in .gz are inflated on the fly.
// Only the open can fail here; the gzip header is read by the first call to Lines.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return &Reader{
		path:    filePath,
		file:    file,
		gzipped: strings.HasSuffix(filePath, gzipSuffix),
	}, nil
}

// Path returns the path the reader was opened with.
func (r *Reader) Path() string {
	return r.path
}

// Close releases the decompressor and the file handle. It is safe to call more than once.
func (r *Reader) Close() error {
	var errs []error
	if r.gz != nil {
		errs = append(errs, r.gz.Close())
		r.gz = nil
	}
	if r.file != nil {
		errs = append(errs, r.file.Close())
		r.file = nil
	}
	r.br = nil
	r.done = true
	return errors.Join(errs...)
}

// open prepares the buffered reader on first use. A .gz file with no bytes at all is an empty stream.
func (r *Reader) open() (bool, error) {
	if r.done || r.file == nil {
		return false, nil
	}
	if r.br != nil {
		return true, nil
	}
	var src io.Reader = r.file
	if r.gzipped {
		gz, err := gzip.NewReader(r.file)
		if err == io.EOF {
			r.done = true
			return false, nil
		}
		if err != nil {
			r.done = true
			return false, fmt.Errorf("%w: gzip header of '%s': %w", ErrCorruptStream, r.path, err)
		}
		r.gz = gz
		src = gz
	}
	r.br = bufio.NewReaderSize(src, 64*1024)
	return true, nil
}

// Lines yields every line of the stream, trailing newline included.
// A read failure, including a bad gzip header, is yielded once wrapped in ErrCorruptStream and ends the sequence.
// The sequence is single pass: ranging over it a second time yields nothing new.
func (r *Reader) Lines() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		ok, err := r.open()
		if err != nil {
			yield(nil, err)
			return
		}
		if !ok {
			return
		}
		for {
			line, err := r.br.ReadBytes('\n')
			if len(line) > 0 && (err == nil || err == io.EOF) {
				if !yield(line, nil) {
					return
				}
			}
			if err == io.EOF {
				r.done = true
				return
			}
			if err != nil {
				r.done = true
				yield(nil, fmt.Errorf("%w: reading '%s': %w", ErrCorruptStream, r.path, err))
				return
			}
		}
	}
}
