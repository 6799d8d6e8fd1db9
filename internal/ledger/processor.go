package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/store"
)

type handler func(tx *Tx) error

// Processor applies typed events to the ledger, one at a time.
type Processor struct {
	logger   *zap.Logger
	oracle   OwnerOracle
	handlers map[string]handler
}

// Option configures a Processor.
type Option func(*Processor)

// WithOwnerOracle verifies name ownership through o instead of the owner
// carried in the event payload.
func WithOwnerOracle(o OwnerOracle) Option {
	return func(p *Processor) { p.oracle = o }
}

func NewProcessor(logger *zap.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	p.handlers = p.routes()
	return p
}

func (p *Processor) routes() map[string]handler {
	return map[string]handler{
		// staking
		"StakeDeposited":              bind(p.stakeDeposited),
		"StakeLocked":                 bind(p.stakeLocked),
		"StakeWithdrawn":              bind(p.stakeWithdrawn),
		"StakeSlashed":                bind(p.stakeSlashed),
		"StakeDelegated":              bind(p.stakeDelegated),
		"StakeDelegatedLocked":        bind(p.stakeDelegatedLocked),
		"StakeDelegatedWithdrawn":     bind(p.stakeDelegatedWithdrawn),
		"AllocationCreated":           bind(p.allocationCreated),
		"AllocationCollected":         bind(p.allocationCollected),
		"AllocationClosed":            bind(p.allocationClosed),
		"RebateClaimed":               bind(p.rebateClaimed),
		"StakingParameterUpdated":     bind(p.stakingParameterUpdated),
		"DelegationParametersUpdated": bind(p.delegationParametersUpdated),
		"RewardsAssigned":             bind(p.rewardsAssigned),

		// layer transfers
		"IndexerStakeTransferredToL2":              bind(p.indexerStakeTransferredToL2),
		"DelegationTransferredToL2":                bind(p.delegationTransferredToL2),
		"TransferredDelegationReturnedToDelegator": bind(p.transferredDelegationReturned),
		"SubgraphSentToL2":                         bind(p.subgraphSentToL2),
		"SubgraphReceivedFromL1":                   bind(p.subgraphReceivedFromL1),

		// curation
		"Signalled":                bind(p.signalled),
		"Burned":                   bind(p.burned),
		"CurationParameterUpdated": bind(p.curationParameterUpdated),

		// names and subgraphs
		"SetDefaultName":            bind(p.setDefaultName),
		"SubgraphPublished":         bind(p.subgraphPublished),
		"SubgraphPublishedV2":       bind(p.subgraphPublished),
		"SubgraphMetadataUpdated":   bind(p.subgraphMetadataUpdated),
		"SubgraphMetadataUpdatedV2": bind(p.subgraphMetadataUpdated),
		"SubgraphDeprecated":        bind(p.subgraphDeprecated),
		"SubgraphDeprecatedV2":      bind(p.subgraphDeprecated),
		"NameSignalEnabled":         bind(p.nameSignalEnabled),
		"NSignalMinted":             bind(p.signalMinted),
		"SignalMinted":              bind(p.signalMinted),
		"NSignalBurned":             bind(p.signalBurned),
		"SignalBurned":              bind(p.signalBurned),
		"NameSignalUpgrade":         bind(p.signalUpgraded),
		"SubgraphUpgraded":          bind(p.signalUpgraded),
		"NameSignalDisabled":        bind(p.nameSignalDisabled),
		"GRTWithdrawn":              bind(p.grtWithdrawn),
		"GRTWithdrawnV2":            bind(p.grtWithdrawn),
		"SubgraphVersionUpdated":    bind(p.subgraphVersionUpdated),
		"LegacySubgraphClaimed":     bind(p.legacySubgraphClaimed),
		"Transfer":                  bind(p.subgraphTransfer),

		// off-chain metadata
		"DIDAttributeChanged": bind(p.didAttributeChanged),
	}
}

// bind decodes the event payload into P before calling fn.
func bind[P any](fn func(tx *Tx, e *P) error) handler {
	return func(tx *Tx) error {
		var payload P
		if err := json.Unmarshal(tx.ev.Decoded, &payload); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformed, tx.ev.EventName, err)
		}
		return fn(tx, &payload)
	}
}

// Handles reports whether name has a handler.
func (p *Processor) Handles(name string) bool {
	_, ok := p.handlers[name]
	return ok
}

// Apply runs one event against batch. Its writes reach batch only when the
// handler succeeds; on error nothing is written. Metadata requests are
// returned for the caller to release once the batch is committed.
func (p *Processor) Apply(ctx context.Context, batch *store.Batch, rec model.TypedEventRecord) ([]MetadataRequest, error) {
	h, ok := p.handlers[rec.EventName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, rec.EventName)
	}

	tx := newTx(ctx, batch, &rec, p.logger)
	if err := h(tx); err != nil {
		return nil, fmt.Errorf("%s at block %d log %d: %w", rec.EventName, rec.BlockNumber, rec.LogIndex, err)
	}
	if err := tx.flush(batch); err != nil {
		return nil, err
	}
	return tx.requests, nil
}
