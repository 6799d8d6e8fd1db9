package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// StakeDeposited is the decoded Staking.StakeDeposited payload.
type StakeDeposited struct {
	Indexer common.Address `json:"indexer"`
	Tokens  Amount         `json:"tokens"`
}

type StakeLocked struct {
	Indexer common.Address `json:"indexer"`
	Tokens  Amount         `json:"tokens"`
	Until   Amount         `json:"until"`
}

type StakeWithdrawn struct {
	Indexer common.Address `json:"indexer"`
	Tokens  Amount         `json:"tokens"`
}

// StakeSlashed carries LockedTokens when the decoder could read the
// indexer's stake at the event block.
type StakeSlashed struct {
	Indexer      common.Address `json:"indexer"`
	Tokens       Amount         `json:"tokens"`
	Reward       Amount         `json:"reward"`
	Beneficiary  common.Address `json:"beneficiary"`
	LockedTokens *Amount        `json:"locked_tokens,omitempty"`
}

type StakeDelegated struct {
	Indexer   common.Address `json:"indexer"`
	Delegator common.Address `json:"delegator"`
	Tokens    Amount         `json:"tokens"`
	Shares    Amount         `json:"shares"`
}

type StakeDelegatedLocked struct {
	Indexer   common.Address `json:"indexer"`
	Delegator common.Address `json:"delegator"`
	Tokens    Amount         `json:"tokens"`
	Shares    Amount         `json:"shares"`
	Until     Amount         `json:"until"`
}

type StakeDelegatedWithdrawn struct {
	Indexer   common.Address `json:"indexer"`
	Delegator common.Address `json:"delegator"`
	Tokens    Amount         `json:"tokens"`
}

type AllocationCreated struct {
	Indexer              common.Address `json:"indexer"`
	SubgraphDeploymentID common.Hash    `json:"subgraph_deployment_id"`
	Epoch                Amount         `json:"epoch"`
	Tokens               Amount         `json:"tokens"`
	AllocationID         common.Address `json:"allocation_id"`
	Metadata             common.Hash    `json:"metadata"`
}

type AllocationCollected struct {
	Indexer              common.Address `json:"indexer"`
	SubgraphDeploymentID common.Hash    `json:"subgraph_deployment_id"`
	Epoch                Amount         `json:"epoch"`
	Tokens               Amount         `json:"tokens"`
	AllocationID         common.Address `json:"allocation_id"`
	From                 common.Address `json:"from"`
	CurationFees         Amount         `json:"curation_fees"`
	RebateFees           Amount         `json:"rebate_fees"`
}

type AllocationClosed struct {
	Indexer              common.Address `json:"indexer"`
	SubgraphDeploymentID common.Hash    `json:"subgraph_deployment_id"`
	Epoch                Amount         `json:"epoch"`
	Tokens               Amount         `json:"tokens"`
	AllocationID         common.Address `json:"allocation_id"`
	EffectiveAllocation  Amount         `json:"effective_allocation"`
	Sender               common.Address `json:"sender"`
	POI                  common.Hash    `json:"poi"`
	IsPublic             bool           `json:"is_public"`
}

type RebateClaimed struct {
	Indexer                   common.Address `json:"indexer"`
	SubgraphDeploymentID      common.Hash    `json:"subgraph_deployment_id"`
	AllocationID              common.Address `json:"allocation_id"`
	Epoch                     Amount         `json:"epoch"`
	ForEpoch                  Amount         `json:"for_epoch"`
	Tokens                    Amount         `json:"tokens"`
	UnclaimedAllocationsCount Amount         `json:"unclaimed_allocations_count"`
	DelegationFees            Amount         `json:"delegation_fees"`
}

// ParameterUpdated carries the parameter's value read at the event block.
type ParameterUpdated struct {
	Param string  `json:"param"`
	Value *Amount `json:"value,omitempty"`
}

type DelegationParametersUpdated struct {
	Indexer           common.Address `json:"indexer"`
	IndexingRewardCut uint32         `json:"indexing_reward_cut"`
	QueryFeeCut       uint32         `json:"query_fee_cut"`
	CooldownBlocks    uint32         `json:"cooldown_blocks"`
}

type RewardsAssigned struct {
	Indexer      common.Address `json:"indexer"`
	AllocationID common.Address `json:"allocation_id"`
	Epoch        Amount         `json:"epoch"`
	Amount       Amount         `json:"amount"`
}

type IndexerStakeTransferredToL2 struct {
	Indexer                common.Address `json:"indexer"`
	L2Indexer              common.Address `json:"l2_indexer"`
	TransferredStakeTokens Amount         `json:"transferred_stake_tokens"`
}

type DelegationTransferredToL2 struct {
	Delegator                   common.Address `json:"delegator"`
	L2Delegator                 common.Address `json:"l2_delegator"`
	Indexer                     common.Address `json:"indexer"`
	L2Indexer                   common.Address `json:"l2_indexer"`
	TransferredDelegationTokens Amount         `json:"transferred_delegation_tokens"`
}

type TransferredDelegationReturnedToDelegator struct {
	Indexer   common.Address `json:"indexer"`
	Delegator common.Address `json:"delegator"`
	Amount    Amount         `json:"amount"`
}

type Signalled struct {
	Curator              common.Address `json:"curator"`
	SubgraphDeploymentID common.Hash    `json:"subgraph_deployment_id"`
	Tokens               Amount         `json:"tokens"`
	Signal               Amount         `json:"signal"`
	CurationTax          Amount         `json:"curation_tax"`
}

type Burned struct {
	Curator              common.Address `json:"curator"`
	SubgraphDeploymentID common.Hash    `json:"subgraph_deployment_id"`
	Tokens               Amount         `json:"tokens"`
	Signal               Amount         `json:"signal"`
}

// SubgraphRef names a subgraph either by (account, number) or by its id.
type SubgraphRef struct {
	GraphAccount   common.Address `json:"graph_account"`
	SubgraphNumber *Amount        `json:"subgraph_number,omitempty"`
	SubgraphID     *Amount        `json:"subgraph_id,omitempty"`
}

// SetDefaultName carries NameOwner when the ENS registry answered at the
// event block. It is absent when the call reverted.
type SetDefaultName struct {
	GraphAccount   common.Address  `json:"graph_account"`
	NameSystem     Amount          `json:"name_system"`
	NameIdentifier common.Hash     `json:"name_identifier"`
	Name           string          `json:"name"`
	NameOwner      *common.Address `json:"name_owner,omitempty"`
}

type SubgraphPublished struct {
	SubgraphRef
	SubgraphDeploymentID common.Hash `json:"subgraph_deployment_id"`
	VersionMetadata      common.Hash `json:"version_metadata"`
	ReserveRatio         uint32      `json:"reserve_ratio"`
}

type SubgraphMetadataUpdated struct {
	SubgraphRef
	SubgraphMetadata common.Hash `json:"subgraph_metadata"`
}

type SubgraphDeprecated struct {
	SubgraphRef
	WithdrawableGRT *Amount `json:"withdrawable_grt,omitempty"`
}

type NameSignalEnabled struct {
	SubgraphRef
	SubgraphDeploymentID common.Hash `json:"subgraph_deployment_id"`
	ReserveRatio         uint32      `json:"reserve_ratio"`
}

type SignalMinted struct {
	SubgraphRef
	NameCurator     common.Address `json:"name_curator"`
	Curator         common.Address `json:"curator"`
	NSignalCreated  Amount         `json:"n_signal_created"`
	VSignalCreated  Amount         `json:"v_signal_created"`
	TokensDeposited Amount         `json:"tokens_deposited"`
}

// Who returns the curating account for either contract generation.
func (e SignalMinted) Who() common.Address {
	if e.Curator != (common.Address{}) {
		return e.Curator
	}
	return e.NameCurator
}

type SignalBurned struct {
	SubgraphRef
	NameCurator    common.Address `json:"name_curator"`
	Curator        common.Address `json:"curator"`
	NSignalBurnt   Amount         `json:"n_signal_burnt"`
	VSignalBurnt   Amount         `json:"v_signal_burnt"`
	TokensReceived Amount         `json:"tokens_received"`
}

func (e SignalBurned) Who() common.Address {
	if e.Curator != (common.Address{}) {
		return e.Curator
	}
	return e.NameCurator
}

type SignalUpgraded struct {
	SubgraphRef
	NewVSignalCreated    *Amount     `json:"new_v_signal_created,omitempty"`
	VSignalCreated       *Amount     `json:"v_signal_created,omitempty"`
	TokensSignalled      Amount      `json:"tokens_signalled"`
	SubgraphDeploymentID common.Hash `json:"subgraph_deployment_id"`
}

// Created returns the vSignal minted on the new deployment.
func (e SignalUpgraded) Created() Amount {
	if e.VSignalCreated != nil {
		return *e.VSignalCreated
	}
	if e.NewVSignalCreated != nil {
		return *e.NewVSignalCreated
	}
	return Amount{}
}

type NameSignalDisabled struct {
	SubgraphRef
	WithdrawableGRT Amount `json:"withdrawable_grt"`
}

type GRTWithdrawn struct {
	SubgraphRef
	NameCurator  common.Address `json:"name_curator"`
	Curator      common.Address `json:"curator"`
	NSignalBurnt Amount         `json:"n_signal_burnt"`
	WithdrawnGRT Amount         `json:"withdrawn_grt"`
}

func (e GRTWithdrawn) Who() common.Address {
	if e.Curator != (common.Address{}) {
		return e.Curator
	}
	return e.NameCurator
}

type SubgraphVersionUpdated struct {
	SubgraphRef
	SubgraphDeploymentID common.Hash `json:"subgraph_deployment_id"`
	VersionMetadata      common.Hash `json:"version_metadata"`
}

type LegacySubgraphClaimed struct {
	SubgraphRef
}

type SubgraphTransfer struct {
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	TokenID Amount         `json:"token_id"`
}

type SubgraphSentToL2 struct {
	SubgraphID Amount         `json:"subgraph_id"`
	L1Owner    common.Address `json:"l1_owner"`
	L2Owner    common.Address `json:"l2_owner"`
	Tokens     Amount         `json:"tokens"`
}

type SubgraphReceivedFromL1 struct {
	L1SubgraphID Amount         `json:"l1_subgraph_id"`
	L2SubgraphID Amount         `json:"l2_subgraph_id"`
	Owner        common.Address `json:"owner"`
	Tokens       Amount         `json:"tokens"`
}

type DIDAttributeChanged struct {
	Identity       common.Address `json:"identity"`
	Name           common.Hash    `json:"name"`
	Value          hexutil.Bytes  `json:"value"`
	ValidTo        Amount         `json:"valid_to"`
	PreviousChange Amount         `json:"previous_change"`
}
