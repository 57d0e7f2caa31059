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

	callback := func(batch []opcbridge.Observation) error {
		for _, o := range batch {
			value := o.Text
			if !o.Available {
				value = "UNAVAILABLE"
			}
			fmt.Printf("%s %s slot=%s seq=%d %s\n",
				o.Timestamp.Format(time.RFC3339Nano),
				o.Category,
				o.Slot,
				o.Seq,
				value,
			)
		}
		return nil
	}

	bridge, err := opcbridge.NewBridge(cfg,
		opcbridge.WithBatchSink(opcbridge.NewCallbackSink("stdout", callback)),
	)
	if err != nil {
		log.Fatalf("build bridge: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bridge.Run(ctx); err != nil {
		log.Fatalf("bridge exited: %v", err)
	}
}
