package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

type mapOracle map[common.Hash]common.Address

func (m mapOracle) OwnerOf(node common.Hash) (common.Address, bool) {
	owner, ok := m[node]
	return owner, ok
}

func ethName(label string) common.Hash {
	return common.BytesToHash(crypto.Keccak256(ethNode.Bytes(), crypto.Keccak256([]byte(label))))
}

func TestCheckTLD(t *testing.T) {
	node := ethName("graphprotocol")
	tests := []struct {
		name  string
		label string
		node  common.Hash
		want  bool
	}{
		{name: "first level", label: "graphprotocol", node: node, want: true},
		{name: "subdomain", label: "api.graphprotocol", node: node},
		{name: "empty", label: "", node: node},
		{name: "hash mismatch", label: "graph", node: node},
		{name: "label eth", label: "eth", node: ethName("eth"), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkTLD(tt.label, tt.node))
		})
	}
}

func TestEthNode(t *testing.T) {
	want := crypto.Keccak256(make([]byte, 32), crypto.Keccak256([]byte("eth")))
	assert.Equal(t, common.BytesToHash(want), ethNode)
}

func setName(account common.Address, label string) model.SetDefaultName {
	return model.SetDefaultName{
		GraphAccount:   account,
		NameIdentifier: ethName(label),
		Name:           label,
	}
}

func TestSetDefaultNameVerified(t *testing.T) {
	node := ethName("graphprotocol")
	h := newHarness(t, zap.NewNop(), WithOwnerOracle(mapOracle{node: indexerAddr}))
	h.mustApply("StakeDeposited", model.StakeDeposited{Indexer: indexerAddr, Tokens: amt(1)})
	h.mustApply("SetDefaultName", setName(indexerAddr, "graphprotocol"))

	acc := fetch[model.GraphAccount](h, ids.FromAddress(indexerAddr))
	assert.Equal(t, accountNameID(node), acc.DefaultName)
	assert.Equal(t, "graphprotocol", acc.DefaultDisplayName)
	assert.Equal(t, "graphprotocol", fetch[model.Indexer](h, acc.ID).DefaultDisplayName)

	name := fetch[model.GraphAccountName](h, accountNameID(node))
	assert.Equal(t, nameSystemENS, name.NameSystem)
	assert.Equal(t, acc.ID, name.GraphAccount)

	// Delegators created later inherit the display name.
	h.mustApply("StakeDelegated", model.StakeDelegated{Indexer: delegatorAddr, Delegator: indexerAddr, Tokens: amt(1), Shares: amt(1)})
	assert.Equal(t, "graphprotocol", fetch[model.Delegator](h, acc.ID).DefaultDisplayName)
}

func TestSetDefaultNameLookupReverted(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := newHarness(t, zap.New(core), WithOwnerOracle(mapOracle{}))
	h.mustApply("SetDefaultName", setName(indexerAddr, "graphprotocol"))

	acc := fetch[model.GraphAccount](h, ids.FromAddress(indexerAddr))
	assert.True(t, acc.DefaultName.IsZero())
	assert.Empty(t, acc.DefaultDisplayName)
	assert.False(t, exists(h, model.KindGraphAccountName, accountNameID(ethName("graphprotocol"))))
	assert.Equal(t, 1, logs.FilterMessage("name owner lookup reverted").Len())
}

func TestUnverifiedNameKeepsCurrent(t *testing.T) {
	h := newHarness(t, zap.NewNop(), WithOwnerOracle(mapOracle{ethName("graphprotocol"): indexerAddr}))
	h.mustApply("SetDefaultName", setName(indexerAddr, "graphprotocol"))
	h.mustApply("SetDefaultName", setName(indexerAddr, "notmine"))

	acc := fetch[model.GraphAccount](h, ids.FromAddress(indexerAddr))
	assert.Equal(t, "graphprotocol", acc.DefaultDisplayName)
}

func TestNameChangesHands(t *testing.T) {
	node := ethName("graphprotocol")
	oracle := mapOracle{node: indexerAddr}
	h := newHarness(t, zap.NewNop(), WithOwnerOracle(oracle))
	h.mustApply("SetDefaultName", setName(indexerAddr, "graphprotocol"))

	oracle[node] = delegatorAddr
	h.mustApply("SetDefaultName", setName(delegatorAddr, "graphprotocol"))

	prev := fetch[model.GraphAccount](h, ids.FromAddress(indexerAddr))
	assert.True(t, prev.DefaultName.IsZero())
	assert.Empty(t, prev.DefaultDisplayName)

	next := fetch[model.GraphAccount](h, ids.FromAddress(delegatorAddr))
	assert.Equal(t, "graphprotocol", next.DefaultDisplayName)
	assert.Equal(t, next.ID, fetch[model.GraphAccountName](h, accountNameID(node)).GraphAccount)
}

func TestResetDefaultName(t *testing.T) {
	node := ethName("graphprotocol")
	h := newHarness(t, zap.NewNop(), WithOwnerOracle(mapOracle{node: indexerAddr}))
	h.mustApply("SetDefaultName", setName(indexerAddr, "graphprotocol"))
	h.mustApply("SetDefaultName", model.SetDefaultName{GraphAccount: indexerAddr})

	acc := fetch[model.GraphAccount](h, ids.FromAddress(indexerAddr))
	assert.True(t, acc.DefaultName.IsZero())
	assert.Empty(t, acc.DefaultDisplayName)
	assert.True(t, fetch[model.GraphAccountName](h, accountNameID(node)).GraphAccount.IsZero())
}

func TestNameOwnerFromPayload(t *testing.T) {
	h := newHarness(t, zap.NewNop())

	unowned := setName(indexerAddr, "graphprotocol")
	h.mustApply("SetDefaultName", unowned)
	assert.Empty(t, fetch[model.GraphAccount](h, ids.FromAddress(indexerAddr)).DefaultDisplayName)

	owned := setName(indexerAddr, "graphprotocol")
	owner := indexerAddr
	owned.NameOwner = &owner
	h.mustApply("SetDefaultName", owned)
	assert.Equal(t, "graphprotocol", fetch[model.GraphAccount](h, ids.FromAddress(indexerAddr)).DefaultDisplayName)
}
