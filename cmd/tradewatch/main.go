// Command tradewatch runs the fraud-detection stream processor: it consumes
// trade events, evaluates the risk rules per account, and republishes fraud
// alerts or validated pass-through events.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"tradewatch/internal/alerts"
	"tradewatch/internal/api"
	"tradewatch/internal/config"
	"tradewatch/internal/detector"
	"tradewatch/internal/emit"
	"tradewatch/internal/ingest"
	"tradewatch/internal/logging"
	"tradewatch/internal/metrics"
	"tradewatch/internal/rules"
	"tradewatch/internal/storage"
	"tradewatch/internal/store"
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
		fmt.Printf("tradewatch %s\n", version)
		os.Exit(0)
	}

	var mgr *config.Manager
	if configPath != "" {
		m, err := config.NewManager(config.ResolvePath(configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		mgr = m
	} else {
		mgr = config.NewStaticManager(config.DefaultConfig())
	}
	cfg := mgr.Get()

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting fraud detection service",
		"version", version,
		"brokers", cfg.Kafka.Brokers,
		"transactions_topic", cfg.Kafka.TransactionsTopic,
		"group_id", cfg.Kafka.GroupID,
	)

	engine, err := rules.New(cfg.Detection)
	if err != nil {
		logger.Error("invalid detection config", "err", err)
		os.Exit(1)
	}

	eventStore := store.New(cfg.Retention.History, cfg.Retention.SweepHorizon)
	alertStore := alerts.NewStore(cfg.Alerts.StoreLimit)
	statsStore := metrics.NewStore(cfg.Metrics.StoreLimit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	persist, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	if persist != nil {
		if err := persist.Init(ctx); err != nil {
			logger.Error("storage schema init failed", "err", err)
			os.Exit(1)
		}
		defer persist.Close()
		logger.Info("alert persistence enabled", "driver", cfg.Storage.Driver)
	}

	publisher := emit.NewPublisher(cfg.Kafka, logger)
	det := detector.New(logger, eventStore, engine, alertStore, statsStore, persist, publisher, cfg.Detection.FlagThreshold)
	loop := ingest.NewLoop(cfg, det, logger)

	api.Start(ctx, mgr, statsStore, alertStore, eventStore, logger, version)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil {
			logger.Error("ingestion loop failed", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		detector.RunSweeper(ctx, eventStore, cfg.Retention.SweepInterval, logger)
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	// Both background tasks observe the cancel before the publisher is
	// torn down, so no sweep or emit races a closed writer.
	wg.Wait()
	if err := publisher.Close(); err != nil {
		logger.Warn("publisher close", "err", err)
	}
	logger.Info("fraud detection service stopped")
}
