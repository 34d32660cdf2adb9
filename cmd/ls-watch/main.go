package main

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/model"
	"LogSpectra/internal/probe"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	raw := flag.Bool("raw", false, "Print the full report as JSON instead of a summary")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sub, err := probe.NewSubscriber(cfg.Publisher)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	marshaler := protojson.MarshalOptions{Multiline: true, Indent: "  "}
	err = sub.Start(func(report *model.Report, st *structpb.Struct) {
		if *raw {
			out, err := marshaler.Marshal(st)
			if err != nil {
				log.Printf("Warning: failed to format report: %v", err)
				return
			}
			fmt.Println(string(out))
			return
		}
		fmt.Printf("%s  %s  lines=%d errors=%d endpoints=%d total_time=%.3f p99=%.3f\n",
			report.DateString(), report.Source, report.Summary.TotalLines, report.Summary.Errors,
			report.Summary.Endpoints, report.Summary.TotalTime, report.Summary.P99)
		for i := len(report.Rows) - 1; i >= 0 && i >= len(report.Rows)-5; i-- {
			r := report.Rows[i]
			fmt.Printf("    %8.3f%%  %10.3f  %s\n", r.TimePerc, r.TimeSum, r.URL)
		}
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, exiting.")
}
