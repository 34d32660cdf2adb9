package main

import (
	"LogSpectra/internal/engine/impl/report"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <stats.dat>")
		os.Exit(1)
	}
	gobFile := os.Args[1]

	rows, err := report.ReadRows(gobFile)
	if err != nil {
		log.Fatalf("Failed to decode gob data: %v", err)
	}

	summaryPath := filepath.Join(filepath.Dir(gobFile), report.SummaryFileName)
	if summary, err := report.ReadSummary(summaryPath); err == nil {
		fmt.Printf("Report %s for %s (%s), %d lines, %d errors\n",
			summary.ID, summary.Source, summary.Date, summary.Summary.TotalLines, summary.Summary.Errors)
	}

	fmt.Printf("Decoded %d endpoints:\n", len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		fmt.Printf("%+v\n", rows[i])
	}
}
