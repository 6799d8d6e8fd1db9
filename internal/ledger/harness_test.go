package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/store"
)

// 2021-01-01T12:00:00Z
const testTimestamp = 1609502400

// harness applies events one by one, committing each to an in-memory store.
type harness struct {
	t     *testing.T
	kv    *store.Memory
	proc  *Processor
	block uint64
	log   uint64
	ts    uint64
}

func newHarness(t *testing.T, logger *zap.Logger, opts ...Option) *harness {
	t.Helper()
	return &harness{
		t:     t,
		kv:    store.NewMemory(),
		proc:  NewProcessor(logger, opts...),
		block: 100,
		ts:    testTimestamp,
	}
}

func (h *harness) record(name string, payload any) model.TypedEventRecord {
	h.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(h.t, err)
	h.log++
	return model.TypedEventRecord{
		ChainID:     1,
		BlockNumber: h.block,
		TxHash:      fmt.Sprintf("0x%064x", h.log),
		LogIndex:    h.log,
		EventName:   name,
		Timestamp:   h.ts,
		Decoded:     data,
	}
}

// lastEventID is the key of records written for the last applied event.
func (h *harness) lastEventID() ids.ID {
	return ids.JoinKeys(common.FromHex(fmt.Sprintf("0x%064x", h.log)), ids.Uint32Bytes(uint32(h.log)))
}

func (h *harness) apply(name string, payload any) ([]MetadataRequest, error) {
	h.t.Helper()
	ctx := context.Background()
	batch := store.NewBatch(h.kv)
	reqs, err := h.proc.Apply(ctx, batch, h.record(name, payload))
	if err != nil {
		return nil, err
	}
	require.NoError(h.t, batch.Commit(ctx))
	return reqs, nil
}

func (h *harness) mustApply(name string, payload any) []MetadataRequest {
	h.t.Helper()
	reqs, err := h.apply(name, payload)
	require.NoError(h.t, err, name)
	return reqs
}

func (h *harness) nextDay() {
	h.ts += 86400
	h.block += 7000
}

func fetch[T any, PT interface {
	*T
	Entity
}](h *harness, id ids.ID) PT {
	h.t.Helper()
	kind := PT(new(T)).EntityKind()
	data, ok, err := h.kv.Get(context.Background(), kind, id)
	require.NoError(h.t, err)
	require.True(h.t, ok, "%s %s not stored", kind, id)
	out := PT(new(T))
	require.NoError(h.t, json.Unmarshal(data, out))
	return out
}

func exists(h *harness, kind string, id ids.ID) bool {
	h.t.Helper()
	_, ok, err := h.kv.Get(context.Background(), kind, id)
	require.NoError(h.t, err)
	return ok
}

var wei = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// grt returns n whole tokens in wei.
func grt(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), wei)
}

func amt(n int64) model.Amount {
	return model.NewAmount(grt(n))
}

func amtPtr(v uint64) *model.Amount {
	a := model.AmountFromUint64(v)
	return &a
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(t, want).Equal(got), "want %s, got %s", want, got)
}

func requireBig(t *testing.T, want, got *big.Int) {
	t.Helper()
	require.Zerof(t, want.Cmp(got), "want %s, got %s", want, got)
}
