package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/config"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ledger"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/metadata"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/metrics"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/replay"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/storage/postgres"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/store"
)

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProcess(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeKV()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	var sink replay.MetadataSink
	if cfg.MetadataGateway != "" {
		fetcher, err := metadata.NewFetcher(metadata.Config{
			Gateway:   cfg.MetadataGateway,
			Workers:   cfg.MetadataWorkers,
			QueueSize: cfg.BatchSize,
			Timeout:   cfg.MetadataTimeout,
		}, kv, &http.Client{Timeout: cfg.MetadataTimeout}, m, logger)
		if err != nil {
			return err
		}
		defer fetcher.Close()
		sink = fetcher
	}

	logger.Info("process start",
		zap.String("in", cfg.In),
		zap.String("store", cfg.Store),
		zap.String("pg_dsn", redactURL(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.String("metadata_gateway", cfg.MetadataGateway),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	replayer := replay.New(replay.Config{BatchSize: cfg.BatchSize}, kv, ledger.NewProcessor(logger), sink, m, logger)
	_, err = replayer.RunFile(ctx, cfg.In)
	return err
}

func openStore(ctx context.Context, cfg config.ProcessConfig, logger *zap.Logger) (store.KV, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return store.NewMemory(), func() {}, nil
	case config.StoreBadger:
		db, err := store.OpenBadger(cfg.BadgerDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger: %w", err)
		}
		return db, func() {
			if err := db.Close(); err != nil {
				logger.Warn("close badger", zap.Error(err))
			}
		}, nil
	case config.StorePostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
