package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/metrics"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/store"
)

const maxDocumentSize = 1 << 20

// Config controls the gateway fetcher.
type Config struct {
	Gateway   string
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Fetcher downloads account metadata documents on a worker pool and writes
// them straight to the entity store. Event processing never writes these
// records.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	kv      store.KV
	pool    pond.Pool
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewFetcher(cfg Config, kv store.KV, client *http.Client, m *metrics.Metrics, logger *zap.Logger) (*Fetcher, error) {
	if cfg.Gateway == "" {
		return nil, fmt.Errorf("metadata gateway is required")
	}
	if kv == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Gateway = strings.TrimRight(cfg.Gateway, "/")

	opts := []pond.Option{}
	if cfg.QueueSize > 0 {
		opts = append(opts, pond.WithQueueSize(cfg.QueueSize))
	}
	return &Fetcher{
		cfg:     cfg,
		client:  client,
		kv:      kv,
		pool:    pond.NewPool(cfg.Workers, opts...),
		metrics: m,
		logger:  logger,
	}, nil
}

// Submit queues a fetch. Failures are logged and counted, never returned.
func (f *Fetcher) Submit(ctx context.Context, id ids.ID, cid string) {
	f.pool.Submit(func() {
		if err := ctx.Err(); err != nil {
			return
		}
		if err := f.Fetch(ctx, id, cid); err != nil {
			f.logger.Warn("metadata fetch failed", zap.String("id", id.String()), zap.String("cid", cid), zap.Error(err))
		}
	})
}

// Close waits for queued fetches to finish.
func (f *Fetcher) Close() {
	f.pool.StopAndWait()
}

// Fetch downloads, parses and stores one document.
func (f *Fetcher) Fetch(ctx context.Context, id ids.ID, cid string) error {
	body, err := f.download(ctx, cid)
	if err != nil {
		f.metrics.MetadataFetched(metrics.ResultFailed)
		return err
	}

	meta, err := Parse(body)
	if err != nil {
		f.metrics.MetadataFetched(metrics.ResultInvalid)
		return fmt.Errorf("parse %s: %w", cid, err)
	}
	meta.ID = id
	meta.IPFSHash = cid

	data, err := json.Marshal(&meta)
	if err != nil {
		f.metrics.MetadataFetched(metrics.ResultFailed)
		return fmt.Errorf("encode metadata: %w", err)
	}
	rec := store.Record{Kind: meta.EntityKind(), ID: id, Data: data}
	if err := f.kv.Put(ctx, []store.Record{rec}); err != nil {
		f.metrics.MetadataFetched(metrics.ResultFailed)
		return fmt.Errorf("store metadata: %w", err)
	}
	f.metrics.MetadataFetched(metrics.ResultOK)
	return nil
}

func (f *Fetcher) download(ctx context.Context, cid string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	url := f.cfg.Gateway + "/ipfs/" + cid
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", cid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", cid, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cid, err)
	}
	return body, nil
}
