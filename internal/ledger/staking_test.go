package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/store"
)

var (
	indexerAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	delegatorAddr  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	allocationAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	deploymentHash = common.HexToHash("0xd0")
)

// delegatedIndexer stakes 1000 GRT with a delegation ratio of 16 and
// delegates 500 GRT for 500 shares.
func delegatedIndexer(t *testing.T) *harness {
	h := newHarness(t, zap.NewNop())
	h.mustApply("StakingParameterUpdated", model.ParameterUpdated{Param: "delegationRatio", Value: amtPtr(16)})
	h.mustApply("StakeDeposited", model.StakeDeposited{Indexer: indexerAddr, Tokens: amt(1000)})
	h.mustApply("StakeDelegated", model.StakeDelegated{
		Indexer:   indexerAddr,
		Delegator: delegatorAddr,
		Tokens:    amt(500),
		Shares:    amt(500),
	})
	return h
}

func allocate(h *harness, tokens int64) {
	h.mustApply("AllocationCreated", model.AllocationCreated{
		Indexer:              indexerAddr,
		SubgraphDeploymentID: deploymentHash,
		Epoch:                model.AmountFromUint64(1),
		Tokens:               amt(tokens),
		AllocationID:         allocationAddr,
	})
}

func TestStakeDelegated(t *testing.T) {
	h := delegatedIndexer(t)

	ix := fetch[model.Indexer](h, ids.FromAddress(indexerAddr))
	requireBig(t, grt(500), ix.DelegatedTokens)
	requireDec(t, "1", ix.DelegationExchangeRate)
	requireBig(t, grt(500), ix.DelegatedCapacity)
	requireBig(t, grt(1500), ix.AvailableStake)
	requireBig(t, grt(500), ix.NetDailyDelegatedTokens)

	st := fetch[model.DelegatedStake](h, stakeID(ids.FromAddress(delegatorAddr), ix.ID))
	requireBig(t, grt(500), st.ShareAmount)
	requireDec(t, "500000000000000000000", st.OriginalDelegation)
	requireDec(t, "500000000000000000000", st.CurrentDelegation)
	assert.True(t, st.UnrealizedRewards.IsZero())

	rel := fetch[model.IndexerDelegatedStakeRelation](h, st.Relation)
	assert.True(t, rel.Active)

	net := fetch[model.GraphNetwork](h, model.NetworkID)
	assert.EqualValues(t, 1, net.IndexerCount)
	assert.EqualValues(t, 1, net.StakedIndexersCount)
	assert.EqualValues(t, 1, net.DelegatorCount)
	assert.EqualValues(t, 1, net.ActiveDelegatorCount)
	assert.EqualValues(t, 1, net.DelegationCount)
	assert.EqualValues(t, 1, net.ActiveDelegationCount)
	requireBig(t, grt(500), net.TotalDelegatedTokens)
	requireBig(t, grt(1000), net.TotalTokensStaked)
}

func TestRewardsRaiseExchangeRate(t *testing.T) {
	h := delegatedIndexer(t)
	allocate(h, 100)
	h.mustApply("RewardsAssigned", model.RewardsAssigned{
		Indexer:      indexerAddr,
		AllocationID: allocationAddr,
		Epoch:        model.AmountFromUint64(1),
		Amount:       amt(50),
	})

	ix := fetch[model.Indexer](h, ids.FromAddress(indexerAddr))
	requireDec(t, "1.1", ix.DelegationExchangeRate)
	requireBig(t, grt(550), ix.DelegatedTokens)
	requireBig(t, grt(50), ix.DelegatorIndexingRewards)
	requireBig(t, grt(1000), ix.StakedTokens)

	st := fetch[model.DelegatedStake](h, stakeID(ids.FromAddress(delegatorAddr), ix.ID))
	requireDec(t, "550000000000000000000", st.CurrentDelegation)
	requireDec(t, "50000000000000000000", st.UnrealizedRewards)
	requireDec(t, "1.1", st.LatestIndexerExchangeRate)

	d := fetch[model.Delegator](h, ids.FromAddress(delegatorAddr))
	requireDec(t, "50000000000000000000", d.TotalUnrealizedRewards)
	requireDec(t, "550000000000000000000", d.CurrentDelegation)

	alloc := fetch[model.Allocation](h, ids.FromAddress(allocationAddr))
	requireBig(t, grt(50), alloc.IndexingDelegatorRewards)

	net := fetch[model.GraphNetwork](h, model.NetworkID)
	requireBig(t, grt(550), net.TotalDelegatedTokens)
	requireBig(t, grt(50), net.TotalIndexingRewards)
}

func TestUndelegationRealizesRewards(t *testing.T) {
	h := delegatedIndexer(t)
	allocate(h, 100)
	h.mustApply("RewardsAssigned", model.RewardsAssigned{
		Indexer:      indexerAddr,
		AllocationID: allocationAddr,
		Amount:       amt(50),
	})
	h.mustApply("StakeDelegatedLocked", model.StakeDelegatedLocked{
		Indexer:   indexerAddr,
		Delegator: delegatorAddr,
		Tokens:    amt(275),
		Shares:    amt(250),
		Until:     model.AmountFromUint64(500),
	})

	stID := stakeID(ids.FromAddress(delegatorAddr), ids.FromAddress(indexerAddr))
	st := fetch[model.DelegatedStake](h, stID)
	requireBig(t, grt(250), st.ShareAmount)
	requireDec(t, "25000000000000000000", st.RealizedRewards)
	requireDec(t, "275000000000000000000", st.CurrentDelegation)
	requireDec(t, "250000000000000000000", st.OriginalDelegation)
	requireDec(t, "25000000000000000000", st.UnrealizedRewards)
	requireBig(t, grt(275), st.LockedTokens)
	assert.EqualValues(t, 500, st.LockedUntil)

	d := fetch[model.Delegator](h, ids.FromAddress(delegatorAddr))
	requireBig(t, grt(275), d.LockedTokens)
	requireDec(t, "25000000000000000000", d.TotalRealizedRewards)
	requireDec(t, "25000000000000000000", d.TotalUnrealizedRewards)

	ix := fetch[model.Indexer](h, ids.FromAddress(indexerAddr))
	requireDec(t, "1.1", ix.DelegationExchangeRate)
	requireBig(t, grt(275), ix.DelegatedTokens)

	h.mustApply("StakeDelegatedWithdrawn", model.StakeDelegatedWithdrawn{
		Indexer:   indexerAddr,
		Delegator: delegatorAddr,
		Tokens:    amt(275),
	})
	st = fetch[model.DelegatedStake](h, stID)
	assert.Zero(t, st.LockedTokens.Sign())
	d = fetch[model.Delegator](h, ids.FromAddress(delegatorAddr))
	assert.Zero(t, d.LockedTokens.Sign())

	h.mustApply("StakeDelegatedLocked", model.StakeDelegatedLocked{
		Indexer:   indexerAddr,
		Delegator: delegatorAddr,
		Tokens:    amt(275),
		Shares:    amt(250),
	})
	st = fetch[model.DelegatedStake](h, stID)
	assert.Zero(t, st.ShareAmount.Sign())
	requireDec(t, "50000000000000000000", st.RealizedRewards)
	assert.True(t, st.UnrealizedRewards.IsZero())
	assert.False(t, fetch[model.IndexerDelegatedStakeRelation](h, st.Relation).Active)

	net := fetch[model.GraphNetwork](h, model.NetworkID)
	assert.EqualValues(t, 0, net.ActiveDelegationCount)
	assert.EqualValues(t, 0, net.ActiveDelegatorCount)
	assert.EqualValues(t, 1, net.DelegationCount)
}

func TestRedelegationReactivates(t *testing.T) {
	h := delegatedIndexer(t)
	h.mustApply("StakeDelegatedLocked", model.StakeDelegatedLocked{
		Indexer: indexerAddr, Delegator: delegatorAddr, Tokens: amt(500), Shares: amt(500),
	})
	h.mustApply("StakeDelegated", model.StakeDelegated{
		Indexer: indexerAddr, Delegator: delegatorAddr, Tokens: amt(100), Shares: amt(100),
	})

	net := fetch[model.GraphNetwork](h, model.NetworkID)
	assert.EqualValues(t, 1, net.ActiveDelegationCount)
	assert.EqualValues(t, 1, net.DelegationCount)
	ix := fetch[model.Indexer](h, ids.FromAddress(indexerAddr))
	assert.EqualValues(t, 1, ix.RelationsCount)
	assert.EqualValues(t, 1, ix.DelegatorsCount)
}

func TestStakeLifecycle(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	h.mustApply("StakeDeposited", model.StakeDeposited{Indexer: indexerAddr, Tokens: amt(100)})
	h.mustApply("StakeLocked", model.StakeLocked{Indexer: indexerAddr, Tokens: amt(100), Until: model.AmountFromUint64(42)})

	ix := fetch[model.Indexer](h, ids.FromAddress(indexerAddr))
	requireBig(t, grt(100), ix.StakedTokens)
	requireBig(t, grt(100), ix.LockedTokens)
	assert.EqualValues(t, 42, ix.TokensLockedUntil)
	assert.EqualValues(t, 0, fetch[model.GraphNetwork](h, model.NetworkID).StakedIndexersCount)

	h.mustApply("StakeWithdrawn", model.StakeWithdrawn{Indexer: indexerAddr, Tokens: amt(100)})
	ix = fetch[model.Indexer](h, ids.FromAddress(indexerAddr))
	assert.Zero(t, ix.StakedTokens.Sign())
	assert.Zero(t, ix.LockedTokens.Sign())
	assert.Zero(t, ix.TokensLockedUntil)

	net := fetch[model.GraphNetwork](h, model.NetworkID)
	assert.Zero(t, net.TotalTokensStaked.Sign())
	assert.Zero(t, net.TotalUnstakedTokensLocked.Sign())
}

func TestStakeSlashed(t *testing.T) {
	tests := []struct {
		name   string
		locked *model.Amount
		want   int64
	}{
		{name: "clamped to remaining stake", want: 50},
		{name: "locked read from chain", locked: func() *model.Amount { a := amt(10); return &a }(), want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, zap.NewNop())
			h.mustApply("StakeDeposited", model.StakeDeposited{Indexer: indexerAddr, Tokens: amt(100)})
			h.mustApply("StakeLocked", model.StakeLocked{Indexer: indexerAddr, Tokens: amt(80)})
			h.mustApply("StakeSlashed", model.StakeSlashed{Indexer: indexerAddr, Tokens: amt(50), LockedTokens: tt.locked})

			ix := fetch[model.Indexer](h, ids.FromAddress(indexerAddr))
			requireBig(t, grt(50), ix.StakedTokens)
			requireBig(t, grt(tt.want), ix.LockedTokens)
		})
	}
}

func TestQueryFeeLifecycle(t *testing.T) {
	h := delegatedIndexer(t)
	allocate(h, 100)
	h.mustApply("AllocationCollected", model.AllocationCollected{
		Indexer:              indexerAddr,
		SubgraphDeploymentID: deploymentHash,
		Epoch:                model.AmountFromUint64(1),
		Tokens:               amt(100),
		AllocationID:         allocationAddr,
		CurationFees:         amt(10),
		RebateFees:           amt(80),
	})

	// Fees collected on an open allocation wait for the close.
	pool := fetch[model.Pool](h, ids.FromString("1"))
	assert.Zero(t, pool.TotalQueryFees.Sign())
	requireBig(t, grt(10), pool.CuratorRewards)

	h.mustApply("AllocationClosed", model.AllocationClosed{
		Indexer:              indexerAddr,
		SubgraphDeploymentID: deploymentHash,
		Epoch:                model.AmountFromUint64(2),
		Tokens:               amt(100),
		AllocationID:         allocationAddr,
		EffectiveAllocation:  amt(100),
		Sender:               indexerAddr,
	})
	pool = fetch[model.Pool](h, ids.FromString("2"))
	requireBig(t, grt(80), pool.TotalQueryFees)
	requireBig(t, grt(100), pool.Allocation)

	alloc := fetch[model.Allocation](h, ids.FromAddress(allocationAddr))
	assert.Equal(t, model.AllocationStatusClosed, alloc.Status)
	assert.Equal(t, ids.FromString("2"), alloc.PoolClosedIn)

	h.mustApply("RebateClaimed", model.RebateClaimed{
		Indexer:              indexerAddr,
		SubgraphDeploymentID: deploymentHash,
		AllocationID:         allocationAddr,
		Epoch:                model.AmountFromUint64(3),
		ForEpoch:             model.AmountFromUint64(2),
		Tokens:               amt(70),
		DelegationFees:       amt(10),
	})

	alloc = fetch[model.Allocation](h, ids.FromAddress(allocationAddr))
	assert.Equal(t, model.AllocationStatusClaimed, alloc.Status)

	ix := fetch[model.Indexer](h, ids.FromAddress(indexerAddr))
	requireBig(t, grt(510), ix.DelegatedTokens)
	requireDec(t, "1.02", ix.DelegationExchangeRate)
	assert.Zero(t, ix.AllocatedTokens.Sign())

	st := fetch[model.DelegatedStake](h, stakeID(ids.FromAddress(delegatorAddr), ix.ID))
	requireDec(t, "10000000000000000000", st.UnrealizedRewards)

	net := fetch[model.GraphNetwork](h, model.NetworkID)
	requireBig(t, grt(10), net.TotalTaxedQueryFees)
	assert.Zero(t, net.TotalUnclaimedQueryFeeRebates.Sign())
	assert.EqualValues(t, 0, net.ActiveAllocationCount)
	assert.EqualValues(t, 1, net.AllocationCount)
}

func TestForcedClosure(t *testing.T) {
	h := delegatedIndexer(t)
	allocate(h, 100)
	h.mustApply("AllocationClosed", model.AllocationClosed{
		Indexer:              indexerAddr,
		SubgraphDeploymentID: deploymentHash,
		Epoch:                model.AmountFromUint64(2),
		Tokens:               amt(100),
		AllocationID:         allocationAddr,
		Sender:               delegatorAddr,
	})
	assert.EqualValues(t, 1, fetch[model.Indexer](h, ids.FromAddress(indexerAddr)).ForcedClosures)
}

func TestDelegationParametersUpdated(t *testing.T) {
	h := delegatedIndexer(t)
	h.mustApply("DelegationParametersUpdated", model.DelegationParametersUpdated{
		Indexer:           indexerAddr,
		IndexingRewardCut: 500_000,
		QueryFeeCut:       250_000,
		CooldownBlocks:    10,
	})

	ix := fetch[model.Indexer](h, ids.FromAddress(indexerAddr))
	assert.EqualValues(t, 500_000, ix.IndexingRewardCut)
	assert.EqualValues(t, 250_000, ix.QueryFeeCut)
	assert.EqualValues(t, 10, ix.DelegatorParameterCooldown)
	assert.Equal(t, h.block, ix.LastDelegationParameterUpdate)
	requireDec(t, "0.666666666666666666", ix.OwnStakeRatio)
}

func TestMissingEntityIsIntegrityError(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	ctx := context.Background()
	batch := store.NewBatch(h.kv)

	_, err := h.proc.Apply(ctx, batch, h.record("StakeLocked", model.StakeLocked{Indexer: indexerAddr, Tokens: amt(1)}))
	require.ErrorIs(t, err, ErrIntegrity)
	assert.Zero(t, batch.Len())
	assert.Zero(t, h.kv.Len())
}

func TestRejectedEvents(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	ctx := context.Background()

	_, err := h.proc.Apply(ctx, store.NewBatch(h.kv), h.record("Unheard", struct{}{}))
	require.ErrorIs(t, err, ErrUnknownEvent)
	assert.False(t, h.proc.Handles("Unheard"))

	rec := h.record("StakeDeposited", struct{}{})
	rec.Decoded = json.RawMessage(`{"tokens":"ten"}`)
	batch := store.NewBatch(h.kv)
	_, err = h.proc.Apply(ctx, batch, rec)
	require.ErrorIs(t, err, ErrMalformed)
	assert.Zero(t, batch.Len())
}

func TestDailySnapshots(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	ixID := ids.FromAddress(indexerAddr)
	firstDay := h.ts

	h.mustApply("StakeDeposited", model.StakeDeposited{Indexer: indexerAddr, Tokens: amt(100)})
	h.nextDay()
	h.mustApply("StakeDeposited", model.StakeDeposited{Indexer: indexerAddr, Tokens: amt(100)})
	h.mustApply("StakeDeposited", model.StakeDeposited{Indexer: indexerAddr, Tokens: amt(100)})

	first := fetch[model.IndexerDailyData](h, ids.DayKey(ixID, firstDay))
	requireBig(t, grt(100), first.State.StakedTokens)
	assert.Equal(t, ids.DayNumber(firstDay), first.DayNumber)

	second := fetch[model.IndexerDailyData](h, ids.DayKey(ixID, h.ts))
	requireBig(t, grt(300), second.State.StakedTokens)
	assert.Equal(t, first.DayNumber+1, second.DayNumber)
	assert.Equal(t, first.DayEnd, second.DayStart)

	net := fetch[model.GraphNetworkDailyData](h, ids.DayKey(model.NetworkID, h.ts))
	requireBig(t, grt(300), net.State.TotalTokensStaked)
}

func TestSnapshotIsIdempotent(t *testing.T) {
	h := newHarness(t, zap.NewNop())
	rec := h.record("StakeDeposited", struct{}{})
	ix := model.NewIndexer(ids.FromAddress(indexerAddr), rec.Timestamp)
	ix.StakedTokens = grt(7)

	ctx := context.Background()
	var encoded [][]byte
	for i := 0; i < 2; i++ {
		batch := store.NewBatch(store.NewMemory())
		tx := newTx(ctx, batch, &rec, zap.NewNop())
		snapshotIndexer(tx, ix)
		snapshotIndexer(tx, ix)
		require.NoError(t, tx.flush(batch))
		require.Equal(t, 1, batch.Len())

		data, ok, err := batch.Get(ctx, model.KindIndexerDaily, ids.DayKey(ix.ID, rec.Timestamp))
		require.NoError(t, err)
		require.True(t, ok)
		encoded = append(encoded, data)
	}
	assert.Equal(t, encoded[0], encoded[1])
}

func TestPoolReconciliation(t *testing.T) {
	second := common.HexToAddress("0x00000000000000000000000000000000000000d2")
	third := common.HexToAddress("0x00000000000000000000000000000000000000d3")
	ixID := ids.FromAddress(indexerAddr)
	firstID := stakeID(ids.FromAddress(delegatorAddr), ixID)
	secondID := stakeID(ids.FromAddress(second), ixID)
	thirdID := stakeID(ids.FromAddress(third), ixID)

	h := delegatedIndexer(t)
	h.mustApply("StakeDelegated", model.StakeDelegated{
		Indexer: indexerAddr, Delegator: second, Tokens: amt(500), Shares: amt(500),
	})
	h.mustApply("StakeDelegated", model.StakeDelegated{
		Indexer: indexerAddr, Delegator: third, Tokens: amt(100), Shares: amt(100),
	})
	h.mustApply("StakeDelegatedLocked", model.StakeDelegatedLocked{
		Indexer: indexerAddr, Delegator: third, Tokens: amt(100), Shares: amt(100),
	})
	allocate(h, 100)

	// Both live stakes move in one event; the drained one is skipped.
	h.nextDay()
	h.mustApply("RewardsAssigned", model.RewardsAssigned{
		Indexer:      indexerAddr,
		AllocationID: allocationAddr,
		Amount:       amt(100),
	})
	requireDec(t, "1.1", fetch[model.Indexer](h, ixID).DelegationExchangeRate)
	for _, id := range []ids.ID{firstID, secondID} {
		st := fetch[model.DelegatedStake](h, id)
		requireDec(t, "1.1", st.LatestIndexerExchangeRate)
		requireDec(t, "550000000000000000000", st.CurrentDelegation)
		requireDec(t, "50000000000000000000", st.UnrealizedRewards)
		assert.True(t, exists(h, model.KindDelegatedStakeDaily, ids.DayKey(id, h.ts)))
	}
	for _, addr := range []common.Address{delegatorAddr, second} {
		d := fetch[model.Delegator](h, ids.FromAddress(addr))
		requireDec(t, "550000000000000000000", d.CurrentDelegation)
		requireDec(t, "50000000000000000000", d.TotalUnrealizedRewards)
	}
	drained := fetch[model.DelegatedStake](h, thirdID)
	requireDec(t, "1", drained.LatestIndexerExchangeRate)
	assert.True(t, drained.CurrentDelegation.IsZero())
	assert.False(t, exists(h, model.KindDelegatedStakeDaily, ids.DayKey(thirdID, h.ts)))

	// Same rate: nothing to revalue.
	h.nextDay()
	h.mustApply("StakeDelegatedWithdrawn", model.StakeDelegatedWithdrawn{
		Indexer: indexerAddr, Delegator: third, Tokens: amt(100),
	})
	assert.False(t, exists(h, model.KindDelegatedStakeDaily, ids.DayKey(firstID, h.ts)))
	assert.False(t, exists(h, model.KindDelegatedStakeDaily, ids.DayKey(secondID, h.ts)))
	assert.False(t, exists(h, model.KindDelegatorDaily, ids.DayKey(ids.FromAddress(delegatorAddr), h.ts)))

	// 1200 tokens over 1250 shares lowers the rate below the first stake's basis.
	h.nextDay()
	h.mustApply("StakeDelegated", model.StakeDelegated{
		Indexer: indexerAddr, Delegator: second, Tokens: amt(100), Shares: amt(250),
	})
	requireDec(t, "0.96", fetch[model.Indexer](h, ixID).DelegationExchangeRate)

	first := fetch[model.DelegatedStake](h, firstID)
	requireDec(t, "0.96", first.LatestIndexerExchangeRate)
	requireDec(t, "500000000000000000000", first.OriginalDelegation)
	requireDec(t, "480000000000000000000", first.CurrentDelegation)
	assert.True(t, first.UnrealizedRewards.IsZero())
	assert.True(t, exists(h, model.KindDelegatedStakeDaily, ids.DayKey(firstID, h.ts)))

	d := fetch[model.Delegator](h, ids.FromAddress(delegatorAddr))
	requireDec(t, "500000000000000000000", d.OriginalDelegation)
	requireDec(t, "480000000000000000000", d.CurrentDelegation)
	assert.False(t, d.TotalUnrealizedRewards.IsNegative())
	assert.True(t, d.TotalUnrealizedRewards.IsZero())

	topUp := fetch[model.DelegatedStake](h, secondID)
	requireDec(t, "0.8", topUp.PersonalExchangeRate)
	requireDec(t, "600000000000000000000", topUp.OriginalDelegation)
	requireDec(t, "720000000000000000000", topUp.CurrentDelegation)
	requireDec(t, "120000000000000000000", topUp.UnrealizedRewards)
	d = fetch[model.Delegator](h, ids.FromAddress(second))
	requireDec(t, "720000000000000000000", d.CurrentDelegation)
	requireDec(t, "120000000000000000000", d.TotalUnrealizedRewards)

	assert.False(t, exists(h, model.KindDelegatedStakeDaily, ids.DayKey(thirdID, h.ts)))
	requireDec(t, "1", fetch[model.DelegatedStake](h, thirdID).LatestIndexerExchangeRate)
}
