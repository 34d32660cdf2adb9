package main

import (
	"LogSpectra/internal/ai"
	"LogSpectra/internal/api"
	"LogSpectra/internal/config"
	"LogSpectra/internal/metrics"
	"LogSpectra/internal/pkg/logging"
	"LogSpectra/internal/query"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// newQuerier picks the report store configured in api.source.
func newQuerier(cfg *config.Config) (query.Querier, error) {
	switch cfg.API.Source {
	case "", "snapshot":
		root := filepath.Join(cfg.Analyzer.ReportDir, "snapshots")
		for _, def := range cfg.Writers {
			if def.Type == "snapshot" && def.Snapshot.RootPath != "" {
				root = def.Snapshot.RootPath
				break
			}
		}
		log.Printf("Serving reports from snapshot directory %s", root)
		return query.NewSnapshotQuerier(root), nil
	case "clickhouse":
		for _, def := range cfg.Writers {
			if def.Enabled && def.Type == "clickhouse" {
				return query.NewClickHouseQuerier(def.ClickHouse)
			}
		}
		return nil, fmt.Errorf("no enabled ClickHouse writer found in config")
	default:
		return nil, fmt.Errorf("unknown api source '%s'", cfg.API.Source)
	}
}

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	closer, err := logging.Setup(cfg.Logging.Path)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	querier, err := newQuerier(cfg)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	var streamer api.Streamer
	if cfg.AI.APIKey != "" {
		reportAnalyzer, err := ai.NewReportAnalyzer(&cfg.AI)
		if err != nil {
			log.Fatalf("Failed to create AI analyzer: %v", err)
		}
		streamer = reportAnalyzer
	}

	mt := metrics.New()
	router := api.NewRouter(api.NewHandler(querier, streamer, mt), mt.Handler())

	server := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	lis, err := net.Listen("tcp", cfg.API.GRPCListenAddr)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	go func() {
		log.Printf("gRPC health server listening at %v", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	healthServer.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	log.Println("API server exited.")
}
