package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/opcbridge"
)

func main() {
	cfg, err := opcbridge.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	bridge, err := opcbridge.NewBridge(cfg)
	if err != nil {
		log.Fatalf("build bridge: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bridge.Run(ctx); err != nil {
		log.Fatalf("bridge exited: %v", err)
	}
}
