package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	apiAddr := flag.String("api", "http://localhost:8080", "Base URL of ls-api")
	healthAddr := flag.String("health", "localhost:9090", "gRPC health address of ls-api")
	date := flag.String("date", "", "Report date (YYYY-MM-DD)")
	prompt := flag.String("prompt", "", "The question to ask about the report")
	flag.Parse()

	if *prompt == "" {
		if flag.NArg() > 0 {
			*prompt = strings.Join(flag.Args(), " ")
		} else {
			log.Fatalf("Error: A prompt is required. Use -prompt or provide it as an argument.")
		}
	}
	if *date == "" {
		log.Fatalf("Error: -date is required.")
	}

	checkHealth(*healthAddr)

	body, _ := json.Marshal(map[string]string{"question": *prompt})
	url := fmt.Sprintf("%s/api/v1/reports/%s/ask", *apiAddr, *date)

	log.Println("Sending prompt to AI... (waiting for stream)")
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		log.Fatalf("API returned %d: %s", resp.StatusCode, msg)
	}
	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		log.Fatalf("Error receiving stream: %v", err)
	}
	fmt.Println()
}

// checkHealth fails fast when ls-api is not serving.
func checkHealth(addr string) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Did not connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		log.Fatalf("ls-api is not serving: %s", resp.GetStatus())
	}
}
