package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ledger"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/metrics"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/storage"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/store"
)

// CursorKind is the record kind holding the replay cursor. It is written in
// the same atomic Put as the entities it covers.
const CursorKind = "_cursor"

var cursorID = []byte("ledger")

// Applier applies one typed event to a write batch.
type Applier interface {
	Apply(ctx context.Context, batch *store.Batch, rec model.TypedEventRecord) ([]ledger.MetadataRequest, error)
}

// MetadataSink receives metadata requests once their events are committed.
type MetadataSink interface {
	Submit(ctx context.Context, id ids.ID, cid string)
}

type Config struct {
	// BatchSize is the number of consumed events per commit.
	BatchSize int
}

// Stats counts what one run did with its input.
type Stats struct {
	Total   int
	Applied int
	Skipped int
	Failed  int
	Cursor  model.Cursor
}

// Replayer feeds a typed event stream through the ledger in order.
type Replayer struct {
	cfg     Config
	kv      store.KV
	applier Applier
	sink    MetadataSink
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(cfg Config, kv store.KV, applier Applier, sink MetadataSink, m *metrics.Metrics, logger *zap.Logger) *Replayer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{cfg: cfg, kv: kv, applier: applier, sink: sink, metrics: m, logger: logger}
}

// LoadCursor returns the position of the last committed event.
func LoadCursor(ctx context.Context, r store.Reader) (model.Cursor, bool, error) {
	data, ok, err := r.Get(ctx, CursorKind, cursorID)
	if err != nil || !ok {
		return model.Cursor{}, false, err
	}
	var c model.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return model.Cursor{}, false, fmt.Errorf("decode cursor: %w", err)
	}
	return c, true, nil
}

// RunFile replays a typed events JSONL file.
func (r *Replayer) RunFile(ctx context.Context, path string) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return r.Run(ctx, file)
}

// run is the state of one pass over the input.
type run struct {
	*Replayer
	batch    *store.Batch
	requests []ledger.MetadataRequest
	cursor   model.Cursor
	started  bool
	pending  int
	stats    Stats
}

// Run applies every event after the stored cursor. An integrity violation
// commits the events before it and halts with the wrapped error.
func (r *Replayer) Run(ctx context.Context, in io.Reader) (Stats, error) {
	if r.kv == nil {
		return Stats{}, fmt.Errorf("store is nil")
	}
	if r.applier == nil {
		return Stats{}, fmt.Errorf("applier is nil")
	}

	cursor, ok, err := LoadCursor(ctx, r.kv)
	if err != nil {
		return Stats{}, err
	}
	st := &run{Replayer: r, batch: store.NewBatch(r.kv), cursor: cursor, started: ok}
	if ok {
		r.logger.Info("resume from cursor", zap.Uint64("block", cursor.BlockNumber), zap.Uint64("log_index", cursor.LogIndex))
	}

	scanErr := storage.ScanLines(in, func(lineNo int, line []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return st.consume(ctx, lineNo, line)
	})
	if scanErr != nil {
		// Events applied before the failure are kept.
		if err := st.commit(context.WithoutCancel(ctx)); err != nil {
			return st.stats, errors.Join(scanErr, err)
		}
		return st.stats, scanErr
	}
	if err := st.commit(ctx); err != nil {
		return st.stats, err
	}
	st.stats.Cursor = st.cursor

	r.logger.Info("replay complete",
		zap.Int("total", st.stats.Total),
		zap.Int("applied", st.stats.Applied),
		zap.Int("skipped", st.stats.Skipped),
		zap.Int("failed", st.stats.Failed),
		zap.Uint64("cursor_block", st.cursor.BlockNumber),
	)
	return st.stats, nil
}

func (st *run) consume(ctx context.Context, lineNo int, line []byte) error {
	st.stats.Total++

	var rec model.TypedEventRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		st.stats.Failed++
		st.metrics.Skipped("unparseable")
		st.logger.Warn("decode typed event", zap.Int("line", lineNo), zap.Error(err))
		return nil
	}

	pos := rec.Position()
	if st.started && !pos.After(st.cursor) {
		st.stats.Skipped++
		return nil
	}

	reqs, err := st.applier.Apply(ctx, st.batch, rec)
	switch {
	case err == nil:
		st.stats.Applied++
		st.metrics.Applied(rec.EventName)
		st.requests = append(st.requests, reqs...)
	case errors.Is(err, ledger.ErrUnknownEvent):
		st.stats.Skipped++
		st.metrics.Skipped("unknown")
		st.logger.Debug("no handler for event", zap.String("event", rec.EventName), zap.Uint64("block", rec.BlockNumber))
	case errors.Is(err, ledger.ErrMalformed):
		st.stats.Failed++
		st.metrics.Skipped("malformed")
		st.logger.Warn("malformed event skipped", zap.Uint64("block", rec.BlockNumber), zap.Uint64("log_index", rec.LogIndex), zap.Error(err))
	case errors.Is(err, ledger.ErrIntegrity):
		st.metrics.IntegrityViolation()
		st.logger.Error("integrity violation", zap.Uint64("block", rec.BlockNumber), zap.Uint64("log_index", rec.LogIndex), zap.Error(err))
		return err
	default:
		return err
	}

	st.cursor = pos
	st.started = true
	st.pending++
	if st.pending >= st.cfg.BatchSize {
		return st.commit(ctx)
	}
	return nil
}

// commit writes the batch and the cursor in one Put, then releases the
// metadata requests of the committed events.
func (st *run) commit(ctx context.Context) error {
	if st.pending == 0 {
		return nil
	}
	data, err := json.Marshal(st.cursor)
	if err != nil {
		return fmt.Errorf("encode cursor: %w", err)
	}
	st.batch.Set(store.Record{Kind: CursorKind, ID: cursorID, Data: data})
	if err := st.batch.Commit(ctx); err != nil {
		return err
	}
	st.metrics.Committed(st.cursor.BlockNumber)
	st.stats.Cursor = st.cursor

	if st.sink != nil {
		for _, req := range st.requests {
			st.sink.Submit(ctx, req.ID, req.CID)
		}
	}
	st.requests = nil
	st.pending = 0
	return nil
}
