package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/ghalamif/opcbridge"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "poll":
		err = pollCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("opcbridge %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to bridge configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := opcbridge.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := opcbridge.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	bridge, err := opcbridge.NewBridge(cfg, opcbridge.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("opcbridge starting",
		zap.String("device", cfg.Communications.Name),
		zap.String("endpoint", cfg.Communications.URL),
		zap.Int("points", bridge.Registry().Len()),
		zap.String("status_addr", cfg.Metrics.Addr))
	return bridge.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := opcbridge.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	reg, err := opcbridge.BuildRegistry(cfg.Data)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good: %s, %d data points\n", *cfgPath, cfg.Communications.URL, reg.Len())
	return nil
}

// pollCommand connects once, runs a single cycle and prints every outcome.
func pollCommand(args []string) error {
	fs := flag.NewFlagSet("poll", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to bridge configuration file")
	timeout := fs.Duration("timeout", 30*time.Second, "Overall deadline for connect and reads")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := opcbridge.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	printer := opcbridge.PublishFuncs{
		OnValue: func(s *opcbridge.Slot, v opcbridge.TypedValue) {
			fmt.Printf("%-24s %-8s %s\n", s.Name, v.Kind, v.Format())
		},
		OnUnavailable: func(s *opcbridge.Slot) {
			fmt.Printf("%-24s %-8s UNAVAILABLE\n", s.Name, s.Kind)
		},
	}

	bridge, err := opcbridge.NewBridge(cfg,
		opcbridge.WithPublishSink(printer),
		opcbridge.WithoutPersistence(),
		opcbridge.WithoutStatusServer(),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rep, err := bridge.PollOnce(ctx)
	shutdownErr := bridge.Shutdown(context.Background())
	if err != nil {
		return err
	}
	if rep.ConnectErr != nil {
		return rep.ConnectErr
	}
	fmt.Printf("\n%d published, %d unavailable in %s\n", rep.Published, rep.Unavailable, rep.Duration.Round(time.Millisecond))
	return shutdownErr
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] connected=%.0f cycles=%.0f skipped=%.0f published=%.0f unavailable=%.0f stored=%.0f queue=%.0f wal_bytes=%.0f\n",
		time.Now().Format(time.RFC3339),
		metricValue(families["opcbridge_connected"]),
		metricValue(families["opcbridge_poll_cycles_total"]),
		metricValue(families["opcbridge_poll_cycles_skipped_total"]),
		metricValue(families["opcbridge_points_published_total"]),
		metricValue(families["opcbridge_points_unavailable_total"]),
		metricValue(families["opcbridge_observations_stored_total"]),
		metricValue(families["opcbridge_queue_length"]),
		metricValue(families["opcbridge_wal_size_bytes"]),
	)
	return nil
}

// metricValue sums every series of a counter or gauge family.
func metricValue(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			total += m.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			total += m.GetGauge().GetValue()
		}
	}
	return total
}

func printUsage() {
	fmt.Printf(`opcbridge CLI

Usage:
  opcbridge <command> [flags]

Commands:
  run        Start polling the device and publishing data points
  validate   Load and validate a config file without connecting
  poll       Connect, run exactly one poll cycle and print the results
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  opcbridge run -config ./data/config.yaml
  opcbridge validate -config ./data/config.yaml
  opcbridge poll -config ./data/config.yaml
  opcbridge stats -url http://localhost:9100/metrics -interval 1s
`)
}
