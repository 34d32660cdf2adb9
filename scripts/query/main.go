package main

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/query"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
)

func main() {
	mode := flag.String("mode", "api", "Query mode: 'api' to query via HTTP API, 'direct' to query ClickHouse directly.")
	apiAddr := flag.String("api", "http://localhost:8080", "Base URL of ls-api.")
	date := flag.String("date", "", "Report date (YYYY-MM-DD). Lists reports when empty.")
	limit := flag.Int("limit", 20, "Number of endpoints to return.")
	chHost := flag.String("ch-host", "localhost", "ClickHouse host for direct mode.")
	chPort := flag.Int("ch-port", 9000, "ClickHouse native port for direct mode.")
	chUser := flag.String("ch-user", "default", "ClickHouse user for direct mode.")
	chPass := flag.String("ch-password", "", "ClickHouse password for direct mode.")
	flag.Parse()

	log.Printf("Running in '%s' mode.", *mode)

	switch *mode {
	case "api":
		queryViaAPI(*apiAddr, *date, *limit)
	case "direct":
		directQueryClickHouse(config.ClickHouseConfig{
			Host: *chHost, Port: *chPort, Database: "default", Username: *chUser, Password: *chPass,
		}, *date, *limit)
	default:
		log.Fatalf("Invalid mode: %s. Use 'api' or 'direct'.", *mode)
	}
}

func queryViaAPI(base, date string, limit int) {
	apiURL := base + "/api/v1/reports"
	if date != "" {
		apiURL = fmt.Sprintf("%s/%s/endpoints?limit=%s", apiURL, url.PathEscape(date), url.QueryEscape(fmt.Sprint(limit)))
	}

	log.Printf("Sending request to %s", apiURL)
	resp, err := http.Get(apiURL)
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, respBody, "", "  "); err != nil {
		log.Printf("Could not prettify JSON, printing raw response:")
		fmt.Println(string(respBody))
		return
	}
	fmt.Println(prettyJSON.String())
}

func directQueryClickHouse(cfg config.ClickHouseConfig, date string, limit int) {
	querier, err := query.NewClickHouseQuerier(cfg)
	if err != nil {
		log.Fatalf("Error connecting to ClickHouse: %v", err)
	}
	log.Println("Successfully connected to ClickHouse.")
	ctx := context.Background()

	if date == "" {
		reports, err := querier.ListReports(ctx)
		if err != nil {
			log.Fatalf("Error executing query: %v", err)
		}
		if len(reports) == 0 {
			log.Println("No reports stored yet.")
		}
		for _, r := range reports {
			fmt.Printf("%s  %s  endpoints=%d processed=%d total_time=%.3f  (%s)\n",
				r.Date, r.Source, r.Endpoints, r.Processed, r.TotalTime, r.ID)
		}
		return
	}

	rows, err := querier.Endpoints(ctx, date, limit)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	for _, r := range rows {
		fmt.Printf("%s\n", r.URL)
		fmt.Printf("  count: %d (%.3f%%)  time_sum: %.3f (%.3f%%)\n", r.Count, r.CountPerc, r.TimeSum, r.TimePerc)
		fmt.Printf("  avg: %.3f  max: %.3f  med: %.3f\n", r.TimeAvg, r.TimeMax, r.TimeMed)
		fmt.Println("---------------------")
	}
}
