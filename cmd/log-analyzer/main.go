package main

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/engine/manager"
	"LogSpectra/internal/pkg/logging"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configFile := flag.String("config", "", "Path to the configuration file (YAML, or legacy KEY: value)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	closer, err := logging.Setup(cfg.Logging.Path)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := manager.NewManager(cfg)
	if err != nil {
		logging.Errorf("Failed to create manager: %v", err)
		os.Exit(1)
	}

	runErr := m.Run(ctx)
	if err := m.Close(); err != nil {
		log.Printf("Warning: failed to release resources: %v", err)
	}
	if runErr != nil {
		logging.Errorf("%v", runErr)
		closer.Close()
		os.Exit(1)
	}
}
