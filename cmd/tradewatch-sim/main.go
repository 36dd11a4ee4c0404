// Command tradewatch-sim produces synthetic trade traffic onto the inbound
// transactions topic for exercising the detection pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tradewatch/internal/config"
	"tradewatch/internal/logging"
	"tradewatch/internal/simulator"
)

var version = "dev"

func main() {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to YAML or JSON config file")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("tradewatch-sim %s\n", version)
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(config.ResolvePath(configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting trade simulation",
		"version", version,
		"brokers", cfg.Kafka.Brokers,
		"topic", cfg.Kafka.TransactionsTopic,
		"accounts", len(cfg.Simulator.Accounts),
		"symbols", len(cfg.Simulator.Symbols),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := simulator.New(cfg.Kafka, cfg.Simulator, logger)
	if err := sim.Run(ctx); err != nil {
		logger.Error("simulation failed", "err", err)
		os.Exit(1)
	}
	logger.Info("trade simulation stopped")
}
