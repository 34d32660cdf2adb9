package model

import "context"

// Writer defines a generic interface for persisting a finished report.
type Writer interface {
	// Name returns the writer type used in configuration and logs.
	Name() string

	// Write persists the report. Implementations must not modify it.
	Write(ctx context.Context, report *Report) error
}
