package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// urlField is the position of the request path in the ui_short nginx log format:
// $remote_addr $remote_user $http_x_real_ip [$time_local] "$request" ... $request_time
const urlField = 6

var (
	// ErrTooFewFields is returned when a line has no endpoint token.
	ErrTooFewFields = errors.New("too few fields")
	// ErrInvalidEndpoint is returned when the endpoint token is not valid UTF-8.
	ErrInvalidEndpoint = errors.New("endpoint is not valid utf-8")
	// ErrInvalidLatency is returned when the last token is not a finite, non-negative decimal number.
	ErrInvalidLatency = errors.New("invalid latency")
)

// Sample is one (endpoint, latency) pair extracted from a log line.
type Sample struct {
	Endpoint string
	Latency  float64
}

// ParseLine extracts the endpoint and the request time from a raw log line.
func ParseLine(line []byte) (Sample, error) {
	fields := bytes.Fields(line)
	if len(fields) <= urlField {
		return Sample{}, fmt.Errorf("%w: got %d, need at least %d", ErrTooFewFields, len(fields), urlField+1)
	}

	endpoint := fields[urlField]
	if !utf8.Valid(endpoint) {
		return Sample{}, ErrInvalidEndpoint
	}

	raw := fields[len(fields)-1]
	if !isDecimal(raw) {
		return Sample{}, fmt.Errorf("%w: %q", ErrInvalidLatency, raw)
	}
	latency, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %q", ErrInvalidLatency, raw)
	}
	if latency < 0 || math.IsNaN(latency) || math.IsInf(latency, 0) {
		return Sample{}, fmt.Errorf("%w: %q out of range", ErrInvalidLatency, raw)
	}

	return Sample{Endpoint: string(endpoint), Latency: latency}, nil
}

// isDecimal reports whether tok only holds characters of a plain decimal float.
// strconv.ParseFloat alone would also take hex floats such as 0x1p-2.
func isDecimal(tok []byte) bool {
	for _, c := range tok {
		switch {
		case c >= '0' && c <= '9':
		case c == '.', c == 'e', c == 'E', c == '+', c == '-':
		default:
			return false
		}
	}
	return true
}
