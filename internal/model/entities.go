package model

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
)

// Entity kinds, also used as store key prefixes.
const (
	KindNetwork             = "GraphNetwork"
	KindGraphAccount        = "GraphAccount"
	KindGraphAccountName    = "GraphAccountName"
	KindAccountMetadata     = "GraphAccountMetadata"
	KindIndexer             = "Indexer"
	KindDelegator           = "Delegator"
	KindDelegatedStake      = "DelegatedStake"
	KindStakeRelation       = "IndexerDelegatedStakeRelation"
	KindCurator             = "Curator"
	KindSignal              = "Signal"
	KindNameSignal          = "NameSignal"
	KindSubgraph            = "Subgraph"
	KindSubgraphVersion     = "SubgraphVersion"
	KindDeployment          = "SubgraphDeployment"
	KindAllocation          = "Allocation"
	KindPool                = "Pool"
	KindIndexerDaily        = "IndexerDailyData"
	KindDelegatorDaily      = "DelegatorDailyData"
	KindDelegatedStakeDaily = "DelegatedStakeDailyData"
	KindDeploymentDaily     = "SubgraphDeploymentDailyData"
	KindNetworkDaily        = "GraphNetworkDailyData"
	KindSignalTx            = "SignalTransaction"
	KindNameSignalTx        = "NameSignalTransaction"
)

// NetworkID keys the single GraphNetwork record.
var NetworkID = ids.FromString("1")

// Allocation status values.
const (
	AllocationStatusActive  = "Active"
	AllocationStatusClosed  = "Closed"
	AllocationStatusClaimed = "Claimed"
)

// Zero returns a fresh zero amount.
func Zero() *big.Int {
	return new(big.Int)
}

type GraphNetwork struct {
	ID                              ids.ID   `json:"id"`
	DelegationRatio                 uint32   `json:"delegation_ratio"`
	DefaultReserveRatio             uint32   `json:"default_reserve_ratio"`
	TotalTokensStaked               *big.Int `json:"total_tokens_staked"`
	TotalUnstakedTokensLocked       *big.Int `json:"total_unstaked_tokens_locked"`
	TotalTokensAllocated            *big.Int `json:"total_tokens_allocated"`
	TotalDelegatedTokens            *big.Int `json:"total_delegated_tokens"`
	TotalTokensSignalled            *big.Int `json:"total_tokens_signalled"`
	TotalQueryFees                  *big.Int `json:"total_query_fees"`
	TotalIndexerQueryFeesCollected  *big.Int `json:"total_indexer_query_fees_collected"`
	TotalIndexerQueryFeeRebates     *big.Int `json:"total_indexer_query_fee_rebates"`
	TotalDelegatorQueryFeeRebates   *big.Int `json:"total_delegator_query_fee_rebates"`
	TotalCuratorQueryFees           *big.Int `json:"total_curator_query_fees"`
	TotalTaxedQueryFees             *big.Int `json:"total_taxed_query_fees"`
	TotalUnclaimedQueryFeeRebates   *big.Int `json:"total_unclaimed_query_fee_rebates"`
	TotalIndexingRewards            *big.Int `json:"total_indexing_rewards"`
	TotalIndexingIndexerRewards     *big.Int `json:"total_indexing_indexer_rewards"`
	TotalIndexingDelegatorRewards   *big.Int `json:"total_indexing_delegator_rewards"`
	TotalTokensSignalledTransferred *big.Int `json:"total_tokens_signalled_transferred_to_l2"`
	TotalStakeTransferredToL2       *big.Int `json:"total_stake_transferred_to_l2"`
	TotalDelegationTransferredToL2  *big.Int `json:"total_delegation_transferred_to_l2"`
	IndexerCount                    int32    `json:"indexer_count"`
	StakedIndexersCount             int32    `json:"staked_indexers_count"`
	DelegatorCount                  int32    `json:"delegator_count"`
	ActiveDelegatorCount            int32    `json:"active_delegator_count"`
	DelegationCount                 int32    `json:"delegation_count"`
	ActiveDelegationCount           int32    `json:"active_delegation_count"`
	CuratorCount                    int32    `json:"curator_count"`
	ActiveCuratorCount              int32    `json:"active_curator_count"`
	SubgraphCount                   int32    `json:"subgraph_count"`
	ActiveSubgraphCount             int32    `json:"active_subgraph_count"`
	SubgraphDeploymentCount         int32    `json:"subgraph_deployment_count"`
	AllocationCount                 int32    `json:"allocation_count"`
	ActiveAllocationCount           int32    `json:"active_allocation_count"`
}

func NewGraphNetwork() *GraphNetwork {
	return &GraphNetwork{
		ID:                              NetworkID,
		TotalTokensStaked:               Zero(),
		TotalUnstakedTokensLocked:       Zero(),
		TotalTokensAllocated:            Zero(),
		TotalDelegatedTokens:            Zero(),
		TotalTokensSignalled:            Zero(),
		TotalQueryFees:                  Zero(),
		TotalIndexerQueryFeesCollected:  Zero(),
		TotalIndexerQueryFeeRebates:     Zero(),
		TotalDelegatorQueryFeeRebates:   Zero(),
		TotalCuratorQueryFees:           Zero(),
		TotalTaxedQueryFees:             Zero(),
		TotalUnclaimedQueryFeeRebates:   Zero(),
		TotalIndexingRewards:            Zero(),
		TotalIndexingIndexerRewards:     Zero(),
		TotalIndexingDelegatorRewards:   Zero(),
		TotalTokensSignalledTransferred: Zero(),
		TotalStakeTransferredToL2:       Zero(),
		TotalDelegationTransferredToL2:  Zero(),
	}
}

func (e *GraphNetwork) EntityKind() string { return KindNetwork }
func (e *GraphNetwork) EntityID() ids.ID   { return e.ID }

type GraphAccount struct {
	ID                              ids.ID   `json:"id"`
	CreatedAt                       uint64   `json:"created_at"`
	DefaultName                     ids.ID   `json:"default_name,omitempty"`
	DefaultDisplayName              string   `json:"default_display_name,omitempty"`
	Metadata                        ids.ID   `json:"metadata,omitempty"`
	BalanceReceivedFromL1Delegation *big.Int `json:"balance_received_from_l1_delegation"`
	SubgraphCount                   int32    `json:"subgraph_count"`
}

func NewGraphAccount(id ids.ID, ts uint64) *GraphAccount {
	return &GraphAccount{ID: id, CreatedAt: ts, BalanceReceivedFromL1Delegation: Zero()}
}

func (e *GraphAccount) EntityKind() string { return KindGraphAccount }
func (e *GraphAccount) EntityID() ids.ID   { return e.ID }

type GraphAccountName struct {
	ID           ids.ID `json:"id"`
	NameSystem   string `json:"name_system"`
	Name         string `json:"name"`
	GraphAccount ids.ID `json:"graph_account,omitempty"`
}

func (e *GraphAccountName) EntityKind() string { return KindGraphAccountName }
func (e *GraphAccountName) EntityID() ids.ID   { return e.ID }

// GraphAccountMetadata is written by the metadata fetcher, never by event handlers.
type GraphAccountMetadata struct {
	ID             ids.ID `json:"id"`
	IPFSHash       string `json:"ipfs_hash"`
	CodeRepository string `json:"code_repository"`
	Description    string `json:"description"`
	Image          string `json:"image"`
	DisplayName    string `json:"display_name"`
	IsOrganization *bool  `json:"is_organization,omitempty"`
	Website        string `json:"website"`
}

func (e *GraphAccountMetadata) EntityKind() string { return KindAccountMetadata }
func (e *GraphAccountMetadata) EntityID() ids.ID   { return e.ID }

type Indexer struct {
	ID                               ids.ID          `json:"id"`
	Account                          ids.ID          `json:"account"`
	CreatedAt                        uint64          `json:"created_at"`
	DefaultDisplayName               string          `json:"default_display_name,omitempty"`
	StakedTokens                     *big.Int        `json:"staked_tokens"`
	AllocatedTokens                  *big.Int        `json:"allocated_tokens"`
	LockedTokens                     *big.Int        `json:"locked_tokens"`
	UnstakedTokens                   *big.Int        `json:"unstaked_tokens"`
	TokensLockedUntil                uint64          `json:"tokens_locked_until"`
	QueryFeesCollected               *big.Int        `json:"query_fees_collected"`
	QueryFeeRebates                  *big.Int        `json:"query_fee_rebates"`
	RewardsEarned                    *big.Int        `json:"rewards_earned"`
	IndexerIndexingRewards           *big.Int        `json:"indexer_indexing_rewards"`
	DelegatorIndexingRewards         *big.Int        `json:"delegator_indexing_rewards"`
	DelegatorQueryFees               *big.Int        `json:"delegator_query_fees"`
	DelegatedTokens                  *big.Int        `json:"delegated_tokens"`
	DelegatorShares                  *big.Int        `json:"delegator_shares"`
	DelegationExchangeRate           decimal.Decimal `json:"delegation_exchange_rate"`
	IndexingRewardCut                uint32          `json:"indexing_reward_cut"`
	QueryFeeCut                      uint32          `json:"query_fee_cut"`
	DelegatorParameterCooldown       uint32          `json:"delegator_parameter_cooldown"`
	LastDelegationParameterUpdate    uint64          `json:"last_delegation_parameter_update"`
	ForcedClosures                   int32           `json:"forced_closures"`
	AllocationCount                  int32           `json:"allocation_count"`
	TotalAllocationCount             int32           `json:"total_allocation_count"`
	DelegatorsCount                  int32           `json:"delegators_count"`
	RelationsCount                   uint32          `json:"relations_count"`
	DelegatedCapacity                *big.Int        `json:"delegated_capacity"`
	TokenCapacity                    *big.Int        `json:"token_capacity"`
	AvailableStake                   *big.Int        `json:"available_stake"`
	OwnStakeRatio                    decimal.Decimal `json:"own_stake_ratio"`
	DelegatedStakeRatio              decimal.Decimal `json:"delegated_stake_ratio"`
	IndexingRewardEffectiveCut       decimal.Decimal `json:"indexing_reward_effective_cut"`
	QueryFeeEffectiveCut             decimal.Decimal `json:"query_fee_effective_cut"`
	IndexerRewardsOwnGenerationRatio decimal.Decimal `json:"indexer_rewards_own_generation_ratio"`
	OverDelegationDilution           decimal.Decimal `json:"over_delegation_dilution"`
	NetDailyDelegatedTokens          *big.Int        `json:"net_daily_delegated_tokens"`
	NetDailyDay                      int32           `json:"net_daily_day"`
	TransferredToL2                  bool            `json:"transferred_to_l2"`
	IDOnL2                           ids.ID          `json:"id_on_l2,omitempty"`
	StakedTokensTransferredToL2      *big.Int        `json:"staked_tokens_transferred_to_l2"`
	FirstTransferredToL2At           uint64          `json:"first_transferred_to_l2_at,omitempty"`
	LastTransferredToL2At            uint64          `json:"last_transferred_to_l2_at,omitempty"`
}

func NewIndexer(id ids.ID, ts uint64) *Indexer {
	return &Indexer{
		ID:                          id,
		Account:                     id,
		CreatedAt:                   ts,
		StakedTokens:                Zero(),
		AllocatedTokens:             Zero(),
		LockedTokens:                Zero(),
		UnstakedTokens:              Zero(),
		QueryFeesCollected:          Zero(),
		QueryFeeRebates:             Zero(),
		RewardsEarned:               Zero(),
		IndexerIndexingRewards:      Zero(),
		DelegatorIndexingRewards:    Zero(),
		DelegatorQueryFees:          Zero(),
		DelegatedTokens:             Zero(),
		DelegatorShares:             Zero(),
		DelegationExchangeRate:      decimal.NewFromInt(1),
		DelegatedCapacity:           Zero(),
		TokenCapacity:               Zero(),
		AvailableStake:              Zero(),
		NetDailyDelegatedTokens:     Zero(),
		StakedTokensTransferredToL2: Zero(),
	}
}

func (e *Indexer) EntityKind() string { return KindIndexer }
func (e *Indexer) EntityID() ids.ID   { return e.ID }

type Delegator struct {
	ID                          ids.ID          `json:"id"`
	Account                     ids.ID          `json:"account"`
	CreatedAt                   uint64          `json:"created_at"`
	DefaultDisplayName          string          `json:"default_display_name,omitempty"`
	StakedTokens                *big.Int        `json:"staked_tokens"`
	LockedTokens                *big.Int        `json:"locked_tokens"`
	TotalStakedTokens           *big.Int        `json:"total_staked_tokens"`
	TotalUnstakedTokens         *big.Int        `json:"total_unstaked_tokens"`
	OriginalDelegation          decimal.Decimal `json:"original_delegation"`
	CurrentDelegation           decimal.Decimal `json:"current_delegation"`
	TotalRealizedRewards        decimal.Decimal `json:"total_realized_rewards"`
	TotalUnrealizedRewards      decimal.Decimal `json:"total_unrealized_rewards"`
	StakesCount                 int32           `json:"stakes_count"`
	ActiveStakesCount           int32           `json:"active_stakes_count"`
	LastDelegatedAt             uint64          `json:"last_delegated_at,omitempty"`
	LastUndelegatedAt           uint64          `json:"last_undelegated_at,omitempty"`
	FirstDelegation             ids.ID          `json:"first_delegation,omitempty"`
	LastDelegation              ids.ID          `json:"last_delegation,omitempty"`
	LastUndelegation            ids.ID          `json:"last_undelegation,omitempty"`
	TransferredToL2             bool            `json:"transferred_to_l2"`
	StakedTokensTransferredToL2 *big.Int        `json:"staked_tokens_transferred_to_l2"`
}

func NewDelegator(id ids.ID, ts uint64) *Delegator {
	return &Delegator{
		ID:                          id,
		Account:                     id,
		CreatedAt:                   ts,
		StakedTokens:                Zero(),
		LockedTokens:                Zero(),
		TotalStakedTokens:           Zero(),
		TotalUnstakedTokens:         Zero(),
		StakedTokensTransferredToL2: Zero(),
	}
}

func (e *Delegator) EntityKind() string { return KindDelegator }
func (e *Delegator) EntityID() ids.ID   { return e.ID }

type DelegatedStake struct {
	ID                          ids.ID          `json:"id"`
	Indexer                     ids.ID          `json:"indexer"`
	Delegator                   ids.ID          `json:"delegator"`
	Relation                    ids.ID          `json:"relation"`
	CreatedAt                   uint64          `json:"created_at"`
	StakedTokens                *big.Int        `json:"staked_tokens"`
	TotalStakedTokens           *big.Int        `json:"total_staked_tokens"`
	TotalUnstakedTokens         *big.Int        `json:"total_unstaked_tokens"`
	LockedTokens                *big.Int        `json:"locked_tokens"`
	LockedUntil                 uint64          `json:"locked_until"`
	ShareAmount                 *big.Int        `json:"share_amount"`
	PersonalExchangeRate        decimal.Decimal `json:"personal_exchange_rate"`
	LatestIndexerExchangeRate   decimal.Decimal `json:"latest_indexer_exchange_rate"`
	RealizedRewards             decimal.Decimal `json:"realized_rewards"`
	UnrealizedRewards           decimal.Decimal `json:"unrealized_rewards"`
	OriginalDelegation          decimal.Decimal `json:"original_delegation"`
	CurrentDelegation           decimal.Decimal `json:"current_delegation"`
	LastDelegatedAt             uint64          `json:"last_delegated_at,omitempty"`
	LastUndelegatedAt           uint64          `json:"last_undelegated_at,omitempty"`
	TransferredToL2             bool            `json:"transferred_to_l2"`
	IDOnL2                      ids.ID          `json:"id_on_l2,omitempty"`
	StakedTokensTransferredToL2 *big.Int        `json:"staked_tokens_transferred_to_l2"`
}

func NewDelegatedStake(id, indexer, delegator ids.ID, ts uint64) *DelegatedStake {
	return &DelegatedStake{
		ID:                          id,
		Indexer:                     indexer,
		Delegator:                   delegator,
		CreatedAt:                   ts,
		StakedTokens:                Zero(),
		TotalStakedTokens:           Zero(),
		TotalUnstakedTokens:         Zero(),
		LockedTokens:                Zero(),
		ShareAmount:                 Zero(),
		PersonalExchangeRate:        decimal.NewFromInt(1),
		LatestIndexerExchangeRate:   decimal.NewFromInt(1),
		StakedTokensTransferredToL2: Zero(),
	}
}

func (e *DelegatedStake) EntityKind() string { return KindDelegatedStake }
func (e *DelegatedStake) EntityID() ids.ID   { return e.ID }

// IndexerDelegatedStakeRelation enumerates an indexer's stakes for reconciliation.
type IndexerDelegatedStakeRelation struct {
	ID        ids.ID `json:"id"`
	Indexer   ids.ID `json:"indexer"`
	Stake     ids.ID `json:"stake"`
	Delegator ids.ID `json:"delegator"`
	Active    bool   `json:"active"`
}

func (e *IndexerDelegatedStakeRelation) EntityKind() string { return KindStakeRelation }
func (e *IndexerDelegatedStakeRelation) EntityID() ids.ID   { return e.ID }

type Curator struct {
	ID                                 ids.ID          `json:"id"`
	Account                            ids.ID          `json:"account"`
	CreatedAt                          uint64          `json:"created_at"`
	TotalSignalledTokens               *big.Int        `json:"total_signalled_tokens"`
	TotalUnsignalledTokens             *big.Int        `json:"total_unsignalled_tokens"`
	TotalNameSignalledTokens           *big.Int        `json:"total_name_signalled_tokens"`
	TotalNameUnsignalledTokens         *big.Int        `json:"total_name_unsignalled_tokens"`
	TotalWithdrawnTokens               *big.Int        `json:"total_withdrawn_tokens"`
	RealizedRewards                    decimal.Decimal `json:"realized_rewards"`
	TotalNameSignal                    decimal.Decimal `json:"total_name_signal"`
	TotalNameSignalAverageCostBasis    decimal.Decimal `json:"total_name_signal_average_cost_basis"`
	TotalAverageCostBasisPerNameSignal decimal.Decimal `json:"total_average_cost_basis_per_name_signal"`
	TotalSignal                        decimal.Decimal `json:"total_signal"`
	TotalSignalAverageCostBasis        decimal.Decimal `json:"total_signal_average_cost_basis"`
	TotalAverageCostBasisPerSignal     decimal.Decimal `json:"total_average_cost_basis_per_signal"`
	SignalCount                        int32           `json:"signal_count"`
	ActiveSignalCount                  int32           `json:"active_signal_count"`
	NameSignalCount                    int32           `json:"name_signal_count"`
	ActiveNameSignalCount              int32           `json:"active_name_signal_count"`
}

func NewCurator(id ids.ID, ts uint64) *Curator {
	return &Curator{
		ID:                         id,
		Account:                    id,
		CreatedAt:                  ts,
		TotalSignalledTokens:       Zero(),
		TotalUnsignalledTokens:     Zero(),
		TotalNameSignalledTokens:   Zero(),
		TotalNameUnsignalledTokens: Zero(),
		TotalWithdrawnTokens:       Zero(),
	}
}

func (e *Curator) EntityKind() string { return KindCurator }
func (e *Curator) EntityID() ids.ID   { return e.ID }

type Signal struct {
	ID                        ids.ID          `json:"id"`
	Curator                   ids.ID          `json:"curator"`
	SubgraphDeployment        ids.ID          `json:"subgraph_deployment"`
	CreatedAt                 uint64          `json:"created_at"`
	LastSignalChange          uint64          `json:"last_signal_change"`
	SignalledTokens           *big.Int        `json:"signalled_tokens"`
	UnsignalledTokens         *big.Int        `json:"unsignalled_tokens"`
	Signal                    *big.Int        `json:"signal"`
	AverageCostBasis          decimal.Decimal `json:"average_cost_basis"`
	AverageCostBasisPerSignal decimal.Decimal `json:"average_cost_basis_per_signal"`
	RealizedRewards           decimal.Decimal `json:"realized_rewards"`
}

func NewSignal(id, curator, deployment ids.ID, ts uint64) *Signal {
	return &Signal{
		ID:                 id,
		Curator:            curator,
		SubgraphDeployment: deployment,
		CreatedAt:          ts,
		SignalledTokens:    Zero(),
		UnsignalledTokens:  Zero(),
		Signal:             Zero(),
	}
}

func (e *Signal) EntityKind() string { return KindSignal }
func (e *Signal) EntityID() ids.ID   { return e.ID }

// Signal transaction types.
const (
	SignalTxMint     = "MintSignal"
	SignalTxBurn     = "BurnSignal"
	NameSignalTxMint = "MintNSignal"
	NameSignalTxBurn = "BurnNSignal"
)

// SignalTransaction is the history record of one curation mint or burn,
// keyed by the emitting log.
type SignalTransaction struct {
	ID                 ids.ID   `json:"id"`
	BlockNumber        uint64   `json:"block_number"`
	Timestamp          uint64   `json:"timestamp"`
	Signer             ids.ID   `json:"signer"`
	Type               string   `json:"type"`
	Signal             *big.Int `json:"signal"`
	Tokens             *big.Int `json:"tokens"`
	WithdrawalFees     *big.Int `json:"withdrawal_fees"`
	SubgraphDeployment ids.ID   `json:"subgraph_deployment"`
}

func (e *SignalTransaction) EntityKind() string { return KindSignalTx }
func (e *SignalTransaction) EntityID() ids.ID   { return e.ID }

// NameSignalTransaction is the history record of one name-signal mint or burn.
type NameSignalTransaction struct {
	ID            ids.ID   `json:"id"`
	BlockNumber   uint64   `json:"block_number"`
	Timestamp     uint64   `json:"timestamp"`
	Signer        ids.ID   `json:"signer"`
	Type          string   `json:"type"`
	NameSignal    *big.Int `json:"name_signal"`
	VersionSignal *big.Int `json:"version_signal"`
	Tokens        *big.Int `json:"tokens"`
	Subgraph      ids.ID   `json:"subgraph"`
}

func (e *NameSignalTransaction) EntityKind() string { return KindNameSignalTx }
func (e *NameSignalTransaction) EntityID() ids.ID   { return e.ID }

type NameSignal struct {
	ID                        ids.ID          `json:"id"`
	Curator                   ids.ID          `json:"curator"`
	Subgraph                  ids.ID          `json:"subgraph"`
	LegacyAlias               string          `json:"legacy_alias,omitempty"`
	CreatedAt                 uint64          `json:"created_at"`
	LastNameSignalChange      uint64          `json:"last_name_signal_change"`
	SignalledTokens           *big.Int        `json:"signalled_tokens"`
	UnsignalledTokens         *big.Int        `json:"unsignalled_tokens"`
	WithdrawnTokens           *big.Int        `json:"withdrawn_tokens"`
	NameSignal                *big.Int        `json:"name_signal"`
	AverageCostBasis          decimal.Decimal `json:"average_cost_basis"`
	AverageCostBasisPerSignal decimal.Decimal `json:"average_cost_basis_per_signal"`
	RealizedRewards           decimal.Decimal `json:"realized_rewards"`
}

func NewNameSignal(id, curator, subgraph ids.ID, ts uint64) *NameSignal {
	return &NameSignal{
		ID:                id,
		Curator:           curator,
		Subgraph:          subgraph,
		CreatedAt:         ts,
		SignalledTokens:   Zero(),
		UnsignalledTokens: Zero(),
		WithdrawnTokens:   Zero(),
		NameSignal:        Zero(),
	}
}

func (e *NameSignal) EntityKind() string { return KindNameSignal }
func (e *NameSignal) EntityID() ids.ID   { return e.ID }

type Subgraph struct {
	ID                          ids.ID          `json:"id"`
	DisplayID                   string          `json:"display_id"`
	Owner                       ids.ID          `json:"owner"`
	Creator                     ids.ID          `json:"creator"`
	SubgraphNumber              string          `json:"subgraph_number,omitempty"`
	LegacyAlias                 string          `json:"legacy_alias,omitempty"`
	CreatedAt                   uint64          `json:"created_at"`
	UpdatedAt                   uint64          `json:"updated_at"`
	Active                      bool            `json:"active"`
	Migrated                    bool            `json:"migrated"`
	Initializing                bool            `json:"initializing"`
	CurrentVersion              ids.ID          `json:"current_version,omitempty"`
	VersionCount                uint32          `json:"version_count"`
	MetadataHash                string          `json:"metadata_hash,omitempty"`
	ReserveRatio                uint32          `json:"reserve_ratio"`
	SignalledTokens             *big.Int        `json:"signalled_tokens"`
	UnsignalledTokens           *big.Int        `json:"unsignalled_tokens"`
	CurrentSignalledTokens      *big.Int        `json:"current_signalled_tokens"`
	NameSignalAmount            *big.Int        `json:"name_signal_amount"`
	SignalAmount                *big.Int        `json:"signal_amount"`
	WithdrawableTokens          *big.Int        `json:"withdrawable_tokens"`
	WithdrawnTokens             *big.Int        `json:"withdrawn_tokens"`
	PricePerShare               decimal.Decimal `json:"price_per_share"`
	NameSignalCount             int32           `json:"name_signal_count"`
	TransferredToL2             bool            `json:"transferred_to_l2"`
	IDOnL2                      string          `json:"id_on_l2,omitempty"`
	IDOnL1                      string          `json:"id_on_l1,omitempty"`
	SignalledTokensSentToL2     *big.Int        `json:"signalled_tokens_sent_to_l2"`
	SignalledTokensReceivedOnL2 *big.Int        `json:"signalled_tokens_received_on_l2"`
}

func NewSubgraph(id ids.ID, display string, ts uint64) *Subgraph {
	return &Subgraph{
		ID:                          id,
		DisplayID:                   display,
		CreatedAt:                   ts,
		UpdatedAt:                   ts,
		SignalledTokens:             Zero(),
		UnsignalledTokens:           Zero(),
		CurrentSignalledTokens:      Zero(),
		NameSignalAmount:            Zero(),
		SignalAmount:                Zero(),
		WithdrawableTokens:          Zero(),
		WithdrawnTokens:             Zero(),
		SignalledTokensSentToL2:     Zero(),
		SignalledTokensReceivedOnL2: Zero(),
	}
}

func (e *Subgraph) EntityKind() string { return KindSubgraph }
func (e *Subgraph) EntityID() ids.ID   { return e.ID }

type SubgraphVersion struct {
	ID                 ids.ID `json:"id"`
	Subgraph           ids.ID `json:"subgraph"`
	SubgraphDeployment ids.ID `json:"subgraph_deployment"`
	Version            uint32 `json:"version"`
	LegacyAlias        string `json:"legacy_alias,omitempty"`
	MetadataHash       string `json:"metadata_hash,omitempty"`
	CreatedAt          uint64 `json:"created_at"`
}

func (e *SubgraphVersion) EntityKind() string { return KindSubgraphVersion }
func (e *SubgraphVersion) EntityID() ids.ID   { return e.ID }

type SubgraphDeployment struct {
	ID                            ids.ID          `json:"id"`
	IPFSHash                      string          `json:"ipfs_hash"`
	CreatedAt                     uint64          `json:"created_at"`
	StakedTokens                  *big.Int        `json:"staked_tokens"`
	IndexingRewardAmount          *big.Int        `json:"indexing_reward_amount"`
	IndexingIndexerRewardAmount   *big.Int        `json:"indexing_indexer_reward_amount"`
	IndexingDelegatorRewardAmount *big.Int        `json:"indexing_delegator_reward_amount"`
	QueryFeesAmount               *big.Int        `json:"query_fees_amount"`
	QueryFeeRebates               *big.Int        `json:"query_fee_rebates"`
	DelegatorQueryFees            *big.Int        `json:"delegator_query_fees"`
	CuratorFeeRewards             *big.Int        `json:"curator_fee_rewards"`
	SignalledTokens               *big.Int        `json:"signalled_tokens"`
	UnsignalledTokens             *big.Int        `json:"unsignalled_tokens"`
	SignalAmount                  *big.Int        `json:"signal_amount"`
	PricePerShare                 decimal.Decimal `json:"price_per_share"`
	ReserveRatio                  uint32          `json:"reserve_ratio"`
}

func NewSubgraphDeployment(id ids.ID, ipfsHash string, reserveRatio uint32, ts uint64) *SubgraphDeployment {
	return &SubgraphDeployment{
		ID:                            id,
		IPFSHash:                      ipfsHash,
		CreatedAt:                     ts,
		StakedTokens:                  Zero(),
		IndexingRewardAmount:          Zero(),
		IndexingIndexerRewardAmount:   Zero(),
		IndexingDelegatorRewardAmount: Zero(),
		QueryFeesAmount:               Zero(),
		QueryFeeRebates:               Zero(),
		DelegatorQueryFees:            Zero(),
		CuratorFeeRewards:             Zero(),
		SignalledTokens:               Zero(),
		UnsignalledTokens:             Zero(),
		SignalAmount:                  Zero(),
		ReserveRatio:                  reserveRatio,
	}
}

func (e *SubgraphDeployment) EntityKind() string { return KindDeployment }
func (e *SubgraphDeployment) EntityID() ids.ID   { return e.ID }

type Allocation struct {
	ID                       ids.ID   `json:"id"`
	Indexer                  ids.ID   `json:"indexer"`
	SubgraphDeployment       ids.ID   `json:"subgraph_deployment"`
	AllocatedTokens          *big.Int `json:"allocated_tokens"`
	EffectiveAllocation      *big.Int `json:"effective_allocation"`
	CreatedAtEpoch           uint64   `json:"created_at_epoch"`
	ClosedAtEpoch            uint64   `json:"closed_at_epoch,omitempty"`
	CreatedAt                uint64   `json:"created_at"`
	ClosedAt                 uint64   `json:"closed_at,omitempty"`
	QueryFeesCollected       *big.Int `json:"query_fees_collected"`
	QueryFeeRebates          *big.Int `json:"query_fee_rebates"`
	CuratorRewards           *big.Int `json:"curator_rewards"`
	DelegationFees           *big.Int `json:"delegation_fees"`
	IndexingRewards          *big.Int `json:"indexing_rewards"`
	IndexingIndexerRewards   *big.Int `json:"indexing_indexer_rewards"`
	IndexingDelegatorRewards *big.Int `json:"indexing_delegator_rewards"`
	Status                   string   `json:"status"`
	POI                      string   `json:"poi,omitempty"`
	PoolClosedIn             ids.ID   `json:"pool_closed_in,omitempty"`
	Metadata                 string   `json:"metadata,omitempty"`
}

func NewAllocation(id, indexer, deployment ids.ID, ts uint64) *Allocation {
	return &Allocation{
		ID:                       id,
		Indexer:                  indexer,
		SubgraphDeployment:       deployment,
		CreatedAt:                ts,
		AllocatedTokens:          Zero(),
		EffectiveAllocation:      Zero(),
		QueryFeesCollected:       Zero(),
		QueryFeeRebates:          Zero(),
		CuratorRewards:           Zero(),
		DelegationFees:           Zero(),
		IndexingRewards:          Zero(),
		IndexingIndexerRewards:   Zero(),
		IndexingDelegatorRewards: Zero(),
		Status:                   AllocationStatusActive,
	}
}

func (e *Allocation) EntityKind() string { return KindAllocation }
func (e *Allocation) EntityID() ids.ID   { return e.ID }

// Pool aggregates allocation and fees per reward epoch.
type Pool struct {
	ID             ids.ID   `json:"id"`
	Allocation     *big.Int `json:"allocation"`
	TotalQueryFees *big.Int `json:"total_query_fees"`
	ClaimedFees    *big.Int `json:"claimed_fees"`
	CuratorRewards *big.Int `json:"curator_rewards"`
}

func NewPool(id ids.ID) *Pool {
	return &Pool{
		ID:             id,
		Allocation:     Zero(),
		TotalQueryFees: Zero(),
		ClaimedFees:    Zero(),
		CuratorRewards: Zero(),
	}
}

func (e *Pool) EntityKind() string { return KindPool }
func (e *Pool) EntityID() ids.ID   { return e.ID }
