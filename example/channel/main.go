package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/opcbridge"
)

func main() {
	cfg, err := opcbridge.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sink, batches, closeBatches := opcbridge.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("ingest", batches)

	bridge, err := opcbridge.NewBridge(cfg, opcbridge.WithBatchSink(sink))
	if err != nil {
		log.Fatalf("build bridge: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bridge.Run(ctx); err != nil {
		log.Fatalf("bridge exited: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []opcbridge.Observation) {
	for batch := range batches {
		var unavailable int
		for _, o := range batch {
			if !o.Available {
				unavailable++
			}
		}
		fmt.Printf("[%s] %d observations (%d unavailable) at %s\n",
			name, len(batch), unavailable, time.Now().Format(time.RFC3339))
	}
}
