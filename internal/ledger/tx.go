package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/store"
)

// Entity is any record the ledger persists.
type Entity interface {
	EntityKind() string
	EntityID() ids.ID
}

// MetadataRequest asks the metadata fetcher to resolve a document for an account.
type MetadataRequest struct {
	ID  ids.ID
	CID string
}

// Tx is the unit of work for one event. Entities are loaded at most once,
// mutated in place and written back only if the whole handler succeeds.
type Tx struct {
	ctx      context.Context
	reader   store.Reader
	ev       *model.TypedEventRecord
	logger   *zap.Logger
	loaded   map[string]Entity
	dirty    []string
	isDirty  map[string]bool
	network  *model.GraphNetwork
	requests []MetadataRequest
}

func newTx(ctx context.Context, reader store.Reader, ev *model.TypedEventRecord, logger *zap.Logger) *Tx {
	return &Tx{
		ctx:     ctx,
		reader:  reader,
		ev:      ev,
		logger:  logger,
		loaded:  make(map[string]Entity),
		isDirty: make(map[string]bool),
	}
}

// Timestamp is the block time of the event being applied.
func (tx *Tx) Timestamp() uint64 {
	return tx.ev.Timestamp
}

// EventID keys records that belong to the event itself: transaction hash
// joined with the log index.
func (tx *Tx) EventID() ids.ID {
	return ids.JoinKeys(common.FromHex(tx.ev.TxHash), ids.Uint32Bytes(uint32(tx.ev.LogIndex)))
}

// BlockNumber is the block of the event being applied.
func (tx *Tx) BlockNumber() uint64 {
	return tx.ev.BlockNumber
}

// Save marks e for write-back. Writes happen in first-save order.
func (tx *Tx) Save(e Entity) {
	key := string(store.Key(e.EntityKind(), e.EntityID()))
	tx.loaded[key] = e
	if tx.isDirty[key] {
		return
	}
	tx.isDirty[key] = true
	tx.dirty = append(tx.dirty, key)
}

// Network returns the network aggregate, creating it on first use.
func (tx *Tx) Network() (*model.GraphNetwork, error) {
	if tx.network != nil {
		return tx.network, nil
	}
	net, err := load[model.GraphNetwork](tx, model.NetworkID)
	if err != nil {
		return nil, err
	}
	if net == nil {
		net = model.NewGraphNetwork()
		tx.loaded[string(store.Key(net.EntityKind(), net.EntityID()))] = net
	}
	tx.network = net
	return net, nil
}

func (tx *Tx) requestMetadata(id ids.ID, cid string) {
	tx.requests = append(tx.requests, MetadataRequest{ID: id, CID: cid})
}

func (tx *Tx) flush(batch *store.Batch) error {
	for _, key := range tx.dirty {
		e := tx.loaded[key]
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
		}
		batch.Set(store.Record{Kind: e.EntityKind(), ID: e.EntityID(), Data: data})
	}
	return nil
}

// load returns the entity or nil when it does not exist.
func load[T any, PT interface {
	*T
	Entity
}](tx *Tx, id ids.ID) (PT, error) {
	kind := PT(new(T)).EntityKind()
	key := string(store.Key(kind, id))
	if e, ok := tx.loaded[key]; ok {
		return e.(PT), nil
	}

	data, ok, err := tx.reader.Get(tx.ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	if !ok {
		return nil, nil
	}

	out := PT(new(T))
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	tx.loaded[key] = out
	return out, nil
}

// mustLoad is load for entities created by a causally prior event.
func mustLoad[T any, PT interface {
	*T
	Entity
}](tx *Tx, id ids.ID) (PT, error) {
	e, err := load[T, PT](tx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, missing(PT(new(T)).EntityKind(), id)
	}
	return e, nil
}
