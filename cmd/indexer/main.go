package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/chain"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/config"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/events"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/indexer"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/storage"
)

var (
	_ indexer.LogSource = (*chain.Client)(nil)
	_ events.Caller     = (*chain.Client)(nil)
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Graph Network analytics indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch protocol contract logs into JSONL",
		RunE:  runFetch,
	}

	fetchCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	fetchCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	fetchCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	fetchCmd.Flags().Uint64("confirmations", 0, "blocks behind the head to stay clear of")
	fetchCmd.Flags().String("contracts", "", "contract addresses by role (staking=0x..,gns=0x..|0x..)")
	fetchCmd.Flags().StringSlice("address", nil, "extra contract addresses (comma-separated)")
	fetchCmd.Flags().StringSlice("topic0", nil, "topic0 signatures (comma-separated)")
	fetchCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	fetchCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	fetchCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	fetchCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	fetchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fetchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(fetchCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "Ethereum RPC URL used for block-pinned contract reads")
	decodeCmd.Flags().String("in", "./data/logs.jsonl", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("contracts", "", "contract addresses by role (staking=0x..,gns=0x..|0x..)")
	decodeCmd.Flags().String("ens-registry", "", "ENS registry address for name verification")
	decodeCmd.Flags().Bool("enrich", true, "enrich events with contract reads (requires archive RPC)")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Replay typed events into the entity store",
		RunE:  runProcess,
	}

	processCmd.Flags().String("in", "./data/typed_events.jsonl", "input typed events JSONL")
	processCmd.Flags().String("store", config.StoreBadger, "entity store (memory, badger, postgres)")
	processCmd.Flags().String("badger-dir", "./data/ledger", "badger data directory")
	processCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	processCmd.Flags().Int("batch-size", 1000, "events per committed batch")
	processCmd.Flags().String("metadata-gateway", "", "IPFS gateway base URL, empty disables metadata fetch")
	processCmd.Flags().Int("metadata-workers", 4, "concurrent metadata fetches")
	processCmd.Flags().Duration("metadata-timeout", 30*time.Second, "metadata request timeout")
	processCmd.Flags().String("metrics-addr", "", "address to serve Prometheus metrics on")
	processCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(processCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	addresses, err := indexer.ContractAddresses(cfg.Contracts)
	if err != nil {
		return err
	}
	extra, err := indexer.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	addresses = append(addresses, extra...)
	if len(addresses) == 0 {
		return fmt.Errorf("contract addresses are required")
	}

	topic0, err := indexer.ParseTopic0(cfg.Topic0)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Confirmations:     cfg.Confirmations,
		Addresses:         addresses,
		Topic0:            topic0,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, storage.NewJsonlStorage(cfg.Out), logger)

	logger.Info("fetch start",
		zap.String("rpc", redactURL(cfg.RPCURL)),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("confirmations", cfg.Confirmations),
		zap.Int("addresses", len(addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
