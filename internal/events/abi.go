package events

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract roles.
const (
	RoleStaking     = "staking"
	RoleCuration    = "curation"
	RoleGNS         = "gns"
	RoleRewards     = "rewards"
	RoleDIDRegistry = "did-registry"
)

const stakingABIJSON = `[
  {"anonymous": false, "type": "event", "name": "StakeDeposited", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "StakeLocked", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": false, "name": "until", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "StakeWithdrawn", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "StakeSlashed", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": false, "name": "reward", "type": "uint256"},
    {"indexed": false, "name": "beneficiary", "type": "address"}]},
  {"anonymous": false, "type": "event", "name": "StakeDelegated", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "delegator", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": false, "name": "shares", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "StakeDelegatedLocked", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "delegator", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": false, "name": "shares", "type": "uint256"},
    {"indexed": false, "name": "until", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "StakeDelegatedWithdrawn", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "delegator", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "AllocationCreated", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": false, "name": "epoch", "type": "uint256"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": true, "name": "allocationID", "type": "address"},
    {"indexed": false, "name": "metadata", "type": "bytes32"}]},
  {"anonymous": false, "type": "event", "name": "AllocationCollected", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": false, "name": "epoch", "type": "uint256"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": true, "name": "allocationID", "type": "address"},
    {"indexed": false, "name": "from", "type": "address"},
    {"indexed": false, "name": "curationFees", "type": "uint256"},
    {"indexed": false, "name": "rebateFees", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "AllocationClosed", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": false, "name": "epoch", "type": "uint256"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": true, "name": "allocationID", "type": "address"},
    {"indexed": false, "name": "effectiveAllocation", "type": "uint256"},
    {"indexed": false, "name": "sender", "type": "address"},
    {"indexed": false, "name": "poi", "type": "bytes32"},
    {"indexed": false, "name": "isPublic", "type": "bool"}]},
  {"anonymous": false, "type": "event", "name": "RebateClaimed", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": true, "name": "allocationID", "type": "address"},
    {"indexed": false, "name": "epoch", "type": "uint256"},
    {"indexed": false, "name": "forEpoch", "type": "uint256"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": false, "name": "unclaimedAllocationsCount", "type": "uint256"},
    {"indexed": false, "name": "delegationFees", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "ParameterUpdated", "inputs": [
    {"indexed": false, "name": "param", "type": "string"}]},
  {"anonymous": false, "type": "event", "name": "DelegationParametersUpdated", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": false, "name": "indexingRewardCut", "type": "uint32"},
    {"indexed": false, "name": "queryFeeCut", "type": "uint32"},
    {"indexed": false, "name": "cooldownBlocks", "type": "uint32"}]},
  {"anonymous": false, "type": "event", "name": "IndexerStakeTransferredToL2", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "l2Indexer", "type": "address"},
    {"indexed": false, "name": "transferredStakeTokens", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "DelegationTransferredToL2", "inputs": [
    {"indexed": true, "name": "delegator", "type": "address"},
    {"indexed": true, "name": "l2Delegator", "type": "address"},
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": false, "name": "l2Indexer", "type": "address"},
    {"indexed": false, "name": "transferredDelegationTokens", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "TransferredDelegationReturnedToDelegator", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "delegator", "type": "address"},
    {"indexed": false, "name": "amount", "type": "uint256"}]},
  {"inputs": [], "name": "delegationRatio", "outputs": [{"name": "", "type": "uint32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "indexer", "type": "address"}], "name": "stakes", "outputs": [
    {"name": "tokensStaked", "type": "uint256"},
    {"name": "tokensAllocated", "type": "uint256"},
    {"name": "tokensLocked", "type": "uint256"},
    {"name": "tokensLockedUntil", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const rewardsABIJSON = `[
  {"anonymous": false, "type": "event", "name": "RewardsAssigned", "inputs": [
    {"indexed": true, "name": "indexer", "type": "address"},
    {"indexed": true, "name": "allocationID", "type": "address"},
    {"indexed": false, "name": "epoch", "type": "uint256"},
    {"indexed": false, "name": "amount", "type": "uint256"}]}
]`

const curationABIJSON = `[
  {"anonymous": false, "type": "event", "name": "Signalled", "inputs": [
    {"indexed": true, "name": "curator", "type": "address"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": false, "name": "signal", "type": "uint256"},
    {"indexed": false, "name": "curationTax", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "Burned", "inputs": [
    {"indexed": true, "name": "curator", "type": "address"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": false, "name": "tokens", "type": "uint256"},
    {"indexed": false, "name": "signal", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "ParameterUpdated", "inputs": [
    {"indexed": false, "name": "param", "type": "string"}]},
  {"inputs": [], "name": "defaultReserveRatio", "outputs": [{"name": "", "type": "uint32"}], "stateMutability": "view", "type": "function"}
]`

// The name-service contract kept its address across the v1 to v2 upgrade,
// so both generations are decoded under one role.
const gnsV1ABIJSON = `[
  {"anonymous": false, "type": "event", "name": "SetDefaultName", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": false, "name": "nameSystem", "type": "uint256"},
    {"indexed": false, "name": "nameIdentifier", "type": "bytes32"},
    {"indexed": false, "name": "name", "type": "string"}]},
  {"anonymous": false, "type": "event", "name": "SubgraphPublished", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": true, "name": "subgraphNumber", "type": "uint256"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": false, "name": "versionMetadata", "type": "bytes32"}]},
  {"anonymous": false, "type": "event", "name": "SubgraphMetadataUpdated", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": true, "name": "subgraphNumber", "type": "uint256"},
    {"indexed": false, "name": "subgraphMetadata", "type": "bytes32"}]},
  {"anonymous": false, "type": "event", "name": "SubgraphDeprecated", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": true, "name": "subgraphNumber", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "NameSignalEnabled", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": true, "name": "subgraphNumber", "type": "uint256"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": false, "name": "reserveRatio", "type": "uint32"}]},
  {"anonymous": false, "type": "event", "name": "NSignalMinted", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": true, "name": "subgraphNumber", "type": "uint256"},
    {"indexed": true, "name": "nameCurator", "type": "address"},
    {"indexed": false, "name": "nSignalCreated", "type": "uint256"},
    {"indexed": false, "name": "vSignalCreated", "type": "uint256"},
    {"indexed": false, "name": "tokensDeposited", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "NSignalBurned", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": true, "name": "subgraphNumber", "type": "uint256"},
    {"indexed": true, "name": "nameCurator", "type": "address"},
    {"indexed": false, "name": "nSignalBurnt", "type": "uint256"},
    {"indexed": false, "name": "vSignalBurnt", "type": "uint256"},
    {"indexed": false, "name": "tokensReceived", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "NameSignalUpgrade", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": true, "name": "subgraphNumber", "type": "uint256"},
    {"indexed": false, "name": "newVSignalCreated", "type": "uint256"},
    {"indexed": false, "name": "tokensSignalled", "type": "uint256"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"}]},
  {"anonymous": false, "type": "event", "name": "NameSignalDisabled", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": true, "name": "subgraphNumber", "type": "uint256"},
    {"indexed": false, "name": "withdrawableGRT", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "GRTWithdrawn", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": true, "name": "subgraphNumber", "type": "uint256"},
    {"indexed": true, "name": "nameCurator", "type": "address"},
    {"indexed": false, "name": "nSignalBurnt", "type": "uint256"},
    {"indexed": false, "name": "withdrawnGRT", "type": "uint256"}]}
]`

const gnsV2ABIJSON = `[
  {"anonymous": false, "type": "event", "name": "SubgraphPublished", "inputs": [
    {"indexed": true, "name": "subgraphID", "type": "uint256"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": false, "name": "reserveRatio", "type": "uint32"}]},
  {"anonymous": false, "type": "event", "name": "SubgraphDeprecated", "inputs": [
    {"indexed": true, "name": "subgraphID", "type": "uint256"},
    {"indexed": false, "name": "withdrawableGRT", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "SubgraphMetadataUpdated", "inputs": [
    {"indexed": true, "name": "subgraphID", "type": "uint256"},
    {"indexed": false, "name": "subgraphMetadata", "type": "bytes32"}]},
  {"anonymous": false, "type": "event", "name": "SignalMinted", "inputs": [
    {"indexed": true, "name": "subgraphID", "type": "uint256"},
    {"indexed": true, "name": "curator", "type": "address"},
    {"indexed": false, "name": "nSignalCreated", "type": "uint256"},
    {"indexed": false, "name": "vSignalCreated", "type": "uint256"},
    {"indexed": false, "name": "tokensDeposited", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "SignalBurned", "inputs": [
    {"indexed": true, "name": "subgraphID", "type": "uint256"},
    {"indexed": true, "name": "curator", "type": "address"},
    {"indexed": false, "name": "nSignalBurnt", "type": "uint256"},
    {"indexed": false, "name": "vSignalBurnt", "type": "uint256"},
    {"indexed": false, "name": "tokensReceived", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "GRTWithdrawn", "inputs": [
    {"indexed": true, "name": "subgraphID", "type": "uint256"},
    {"indexed": true, "name": "curator", "type": "address"},
    {"indexed": false, "name": "nSignalBurnt", "type": "uint256"},
    {"indexed": false, "name": "withdrawnGRT", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "SubgraphUpgraded", "inputs": [
    {"indexed": true, "name": "subgraphID", "type": "uint256"},
    {"indexed": false, "name": "vSignalCreated", "type": "uint256"},
    {"indexed": false, "name": "tokensSignalled", "type": "uint256"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"}]},
  {"anonymous": false, "type": "event", "name": "SubgraphVersionUpdated", "inputs": [
    {"indexed": true, "name": "subgraphID", "type": "uint256"},
    {"indexed": true, "name": "subgraphDeploymentID", "type": "bytes32"},
    {"indexed": false, "name": "versionMetadata", "type": "bytes32"}]},
  {"anonymous": false, "type": "event", "name": "LegacySubgraphClaimed", "inputs": [
    {"indexed": true, "name": "graphAccount", "type": "address"},
    {"indexed": false, "name": "subgraphNumber", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "Transfer", "inputs": [
    {"indexed": true, "name": "from", "type": "address"},
    {"indexed": true, "name": "to", "type": "address"},
    {"indexed": true, "name": "tokenId", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "SubgraphSentToL2", "inputs": [
    {"indexed": true, "name": "_subgraphID", "type": "uint256"},
    {"indexed": true, "name": "_l1Owner", "type": "address"},
    {"indexed": true, "name": "_l2Owner", "type": "address"},
    {"indexed": false, "name": "_tokens", "type": "uint256"}]},
  {"anonymous": false, "type": "event", "name": "SubgraphReceivedFromL1", "inputs": [
    {"indexed": true, "name": "_l1SubgraphID", "type": "uint256"},
    {"indexed": true, "name": "_l2SubgraphID", "type": "uint256"},
    {"indexed": true, "name": "_owner", "type": "address"},
    {"indexed": false, "name": "_tokens", "type": "uint256"}]}
]`

const didRegistryABIJSON = `[
  {"anonymous": false, "type": "event", "name": "DIDAttributeChanged", "inputs": [
    {"indexed": true, "name": "identity", "type": "address"},
    {"indexed": false, "name": "name", "type": "bytes32"},
    {"indexed": false, "name": "value", "type": "bytes"},
    {"indexed": false, "name": "validTo", "type": "uint256"},
    {"indexed": false, "name": "previousChange", "type": "uint256"}]}
]`

const ensRegistryABIJSON = `[
  {"inputs": [{"name": "node", "type": "bytes32"}], "name": "owner", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

// abiSource is one ABI generation of a role. Renames map ABI event names
// that collide across roles or generations onto the names the ledger routes.
type abiSource struct {
	json    string
	renames map[string]string
}

var roleSources = map[string][]abiSource{
	RoleStaking: {{
		json:    stakingABIJSON,
		renames: map[string]string{"ParameterUpdated": "StakingParameterUpdated"},
	}},
	RoleCuration: {{
		json:    curationABIJSON,
		renames: map[string]string{"ParameterUpdated": "CurationParameterUpdated"},
	}},
	RoleRewards: {{json: rewardsABIJSON}},
	RoleGNS: {
		{json: gnsV1ABIJSON},
		{
			json: gnsV2ABIJSON,
			renames: map[string]string{
				"SubgraphPublished":       "SubgraphPublishedV2",
				"SubgraphDeprecated":      "SubgraphDeprecatedV2",
				"SubgraphMetadataUpdated": "SubgraphMetadataUpdatedV2",
				"GRTWithdrawn":            "GRTWithdrawnV2",
			},
		},
	},
	RoleDIDRegistry: {{json: didRegistryABIJSON}},
}

// Roles lists the contract roles the decoder understands.
func Roles() []string {
	return []string{RoleStaking, RoleCuration, RoleGNS, RoleRewards, RoleDIDRegistry}
}

// eventSpec is one decodable event of a role.
type eventSpec struct {
	event abi.Event
	name  string
}

var (
	parsedMu  sync.Mutex
	parsedABI = make(map[string]abi.ABI)
)

func parseABI(source string) (abi.ABI, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if parsed, ok := parsedABI[source]; ok {
		return parsed, nil
	}
	parsed, err := abi.JSON(strings.NewReader(source))
	if err != nil {
		return abi.ABI{}, err
	}
	parsedABI[source] = parsed
	return parsed, nil
}

// roleEvents maps lowercase topic0 to the events a role emits.
func roleEvents(role string) (map[string]eventSpec, error) {
	sources, ok := roleSources[role]
	if !ok {
		return nil, fmt.Errorf("unknown contract role: %s", role)
	}
	out := make(map[string]eventSpec)
	for _, src := range sources {
		parsed, err := parseABI(src.json)
		if err != nil {
			return nil, fmt.Errorf("parse %s abi: %w", role, err)
		}
		for _, ev := range parsed.Events {
			name := ev.Name
			if renamed, ok := src.renames[name]; ok {
				name = renamed
			}
			out[strings.ToLower(ev.ID.Hex())] = eventSpec{event: ev, name: name}
		}
	}
	return out, nil
}

// StakingABI returns the parsed staking ABI.
func StakingABI() (abi.ABI, error) { return parseABI(stakingABIJSON) }

// CurationABI returns the parsed curation ABI.
func CurationABI() (abi.ABI, error) { return parseABI(curationABIJSON) }

func RewardsABI() (abi.ABI, error) { return parseABI(rewardsABIJSON) }

func GNSV1ABI() (abi.ABI, error) { return parseABI(gnsV1ABIJSON) }

func GNSV2ABI() (abi.ABI, error) { return parseABI(gnsV2ABIJSON) }

func DIDRegistryABI() (abi.ABI, error) { return parseABI(didRegistryABIJSON) }

// ENSRegistryABI returns the registry's owner(bytes32) function.
func ENSRegistryABI() (abi.ABI, error) { return parseABI(ensRegistryABIJSON) }
