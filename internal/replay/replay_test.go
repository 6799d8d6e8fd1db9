package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ledger"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/metrics"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/store"
)

var (
	indexerAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	curatorAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	// keccak256("GRAPH NAME SERVICE")
	graphNameService = common.HexToHash("0x72abcb436eed911d1b6046bbe645c235ec3767c842eb1005a6da9326c2347e4c")
)

type recordingSink struct {
	cids []string
}

func (s *recordingSink) Submit(_ context.Context, _ ids.ID, cid string) {
	s.cids = append(s.cids, cid)
}

type stream struct {
	t   *testing.T
	buf bytes.Buffer
}

func (s *stream) event(block, logIndex uint64, name string, payload interface{}) *stream {
	s.t.Helper()
	decoded, err := json.Marshal(payload)
	require.NoError(s.t, err)
	return s.raw(block, logIndex, name, decoded)
}

func (s *stream) raw(block, logIndex uint64, name string, decoded json.RawMessage) *stream {
	s.t.Helper()
	line, err := json.Marshal(model.TypedEventRecord{
		ChainID:     1,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + logIndex)).Hex(),
		LogIndex:    logIndex,
		EventName:   name,
		Timestamp:   1609502400,
		Decoded:     decoded,
	})
	require.NoError(s.t, err)
	s.buf.Write(line)
	s.buf.WriteByte('\n')
	return s
}

func (s *stream) line(text string) *stream {
	s.buf.WriteString(text + "\n")
	return s
}

func deposit(tokens uint64) model.StakeDeposited {
	return model.StakeDeposited{Indexer: indexerAddr, Tokens: model.AmountFromUint64(tokens)}
}

func stakedTokens(t *testing.T, kv store.KV) *big.Int {
	t.Helper()
	data, ok, err := kv.Get(context.Background(), model.KindIndexer, ids.FromAddress(indexerAddr))
	require.NoError(t, err)
	require.True(t, ok)
	var ix model.Indexer
	require.NoError(t, json.Unmarshal(data, &ix))
	return ix.StakedTokens
}

func TestReplayAppliesInBatches(t *testing.T) {
	s := &stream{t: t}
	s.event(100, 1, "StakeDeposited", deposit(1000)).
		event(100, 2, "Mystery", map[string]string{}).
		raw(101, 0, "StakeDeposited", json.RawMessage(`{"indexer":"`+indexerAddr.Hex()+`","tokens":"abc"}`)).
		event(101, 5, "StakeDeposited", deposit(500)).
		line("not json").
		event(102, 0, "DIDAttributeChanged", model.DIDAttributeChanged{
			Identity: indexerAddr,
			Name:     graphNameService,
			Value:    bytes.Repeat([]byte{0x42}, 32),
		})
	input := s.buf.Bytes()

	kv := store.NewMemory()
	sink := &recordingSink{}
	m := metrics.New(nil)
	r := New(Config{BatchSize: 2}, kv, ledger.NewProcessor(zap.NewNop()), sink, m, zap.NewNop())

	stats, err := r.Run(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 6, Applied: 3, Skipped: 1, Failed: 2, Cursor: stats.Cursor}, stats)
	assert.Equal(t, uint64(102), stats.Cursor.BlockNumber)
	assert.Equal(t, uint64(0), stats.Cursor.LogIndex)
	assert.Zero(t, big.NewInt(1500).Cmp(stakedTokens(t, kv)))
	assert.Len(t, sink.cids, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BatchesCommitted))
	assert.Equal(t, 102.0, testutil.ToFloat64(m.LastBlock))

	cursor, ok, err := LoadCursor(context.Background(), kv)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stats.Cursor, cursor)

	// A second pass over the same input finds nothing new.
	stats, err = r.Run(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Applied)
	assert.Equal(t, 5, stats.Skipped)
	assert.Zero(t, big.NewInt(1500).Cmp(stakedTokens(t, kv)))
	assert.Len(t, sink.cids, 1)
}

func TestReplayHaltsOnIntegrityViolation(t *testing.T) {
	s := &stream{t: t}
	s.event(100, 1, "StakeDeposited", deposit(1000)).
		event(100, 2, "Burned", model.Burned{Curator: curatorAddr, SubgraphDeploymentID: common.HexToHash("0xd0")}).
		event(100, 3, "StakeDeposited", deposit(1))

	kv := store.NewMemory()
	m := metrics.New(nil)
	r := New(Config{BatchSize: 10}, kv, ledger.NewProcessor(zap.NewNop()), nil, m, nil)

	stats, err := r.Run(context.Background(), &s.buf)
	require.ErrorIs(t, err, ledger.ErrIntegrity)
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntegrityViolations))

	cursor, ok, err := LoadCursor(context.Background(), kv)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.Cursor{BlockNumber: 100, LogIndex: 1, TxHash: cursor.TxHash}, cursor)
	assert.Zero(t, big.NewInt(1000).Cmp(stakedTokens(t, kv)))
}

func TestReplayFile(t *testing.T) {
	s := &stream{t: t}
	s.event(7, 0, "StakeDeposited", deposit(3))
	path := filepath.Join(t.TempDir(), "typed_events.jsonl")
	require.NoError(t, os.WriteFile(path, s.buf.Bytes(), 0o644))

	db, err := store.OpenBadger("", nil)
	require.NoError(t, err)
	defer db.Close()

	r := New(Config{}, db, ledger.NewProcessor(nil), nil, nil, nil)
	stats, err := r.RunFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Applied)
	assert.Zero(t, big.NewInt(3).Cmp(stakedTokens(t, db)))

	_, err = r.RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestReplayStopsOnCancel(t *testing.T) {
	s := &stream{t: t}
	s.event(1, 0, "StakeDeposited", deposit(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	kv := store.NewMemory()
	_, err := New(Config{}, kv, ledger.NewProcessor(nil), nil, nil, nil).Run(ctx, strings.NewReader(s.buf.String()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, kv.Len())
}
