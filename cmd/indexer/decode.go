package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/chain"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/config"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/events"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
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
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}
	if cfg.Enrich && cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required for enrichment (pass --enrich=false to skip)")
	}

	decoder, err := events.NewDecoder(events.Config{
		Contracts:   cfg.Contracts,
		ENSRegistry: cfg.ENSRegistry,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decodeCtx := events.DecodeContext{Context: ctx, Logger: logger}
	if cfg.Enrich {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		decodeCtx.Chain = chainClient
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := newJSONLWriter(cfg.Out)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := newJSONLWriter(cfg.Errors)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("rpc", redactURL(cfg.RPCURL)),
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Int("roles", len(cfg.Contracts)),
		zap.Bool("enrich", cfg.Enrich),
		zap.Bool("ens", cfg.ENSRegistry != ""),
	)

	stats, err := decodeStream(decoder, decodeCtx, inputFile, outWriter, errWriter)
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", stats.total),
		zap.Int("decoded", stats.decoded),
		zap.Int("skipped", stats.skipped),
		zap.Int("failed", stats.failed),
	)

	return nil
}

type recordWriter interface {
	Write(value interface{}) error
}

type decodeStats struct {
	total, decoded, skipped, failed int
}

// decodeStream decodes every raw log of in. Logs from unknown contracts or
// with unknown topics are skipped; broken ones go to errs.
func decodeStream(decoder *events.Decoder, decodeCtx events.DecodeContext, in io.Reader, out, errs recordWriter) (decodeStats, error) {
	var stats decodeStats
	logger := decodeCtx.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	err := storage.ScanLines(in, func(lineNo int, line []byte) error {
		if decodeCtx.Context != nil {
			if err := decodeCtx.Context.Err(); err != nil {
				return err
			}
		}
		stats.total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.failed++
			writeDecodeError(logger, errs, model.DecodeError{Line: lineNo, Error: err.Error()})
			return nil
		}
		if record.Topic0() == "" {
			stats.failed++
			writeDecodeError(logger, errs, lineError(lineNo, record, fmt.Errorf("missing topic0")))
			return nil
		}

		if !decoder.CanDecode(record.Address, record.Topic0()) {
			stats.skipped++
			return nil
		}

		event, err := decoder.Decode(record, decodeCtx)
		if errors.Is(err, events.ErrUnsupported) {
			stats.skipped++
			return nil
		}
		if err != nil {
			stats.failed++
			writeDecodeError(logger, errs, lineError(lineNo, record, err))
			return nil
		}

		if err := out.Write(event); err != nil {
			return err
		}
		stats.decoded++
		return nil
	})
	return stats, err
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

// newJSONLWriter truncates path; decode always rewrites its outputs.
func newJSONLWriter(path string) (*jsonlWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func lineError(lineNo int, record model.LogRecord, err error) model.DecodeError {
	decodeErr := model.NewDecodeError(record, err)
	decodeErr.Line = lineNo
	return decodeErr
}

// writeDecodeError never aborts the stream; a failing sink is only logged.
func writeDecodeError(logger *zap.Logger, writer recordWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	if err := writer.Write(errRecord); err != nil {
		logger.Warn("write decode error",
			zap.Int("line", errRecord.Line),
			zap.String("decode_error", errRecord.Error),
			zap.Error(err),
		)
	}
}

// redactURL keeps only the scheme and host of raw.
func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Scheme + "://" + u.Host
}
