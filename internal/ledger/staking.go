package ledger

import (
	"math/big"

	"go.uber.org/zap"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// commitIndexer refreshes the derived figures, saves and snapshots.
func commitIndexer(tx *Tx, net *model.GraphNetwork, ix *model.Indexer) {
	refreshIndexer(ix, net)
	tx.Save(ix)
	snapshotIndexer(tx, ix)
}

func commitNetwork(tx *Tx, net *model.GraphNetwork) {
	tx.Save(net)
	snapshotNetwork(tx, net)
}

// addNetDaily tracks the indexer's net delegation flow for the current day.
func addNetDaily(tx *Tx, ix *model.Indexer, delta *big.Int) {
	day := ids.DayNumber(tx.Timestamp())
	if ix.NetDailyDay != day {
		ix.NetDailyDay = day
		ix.NetDailyDelegatedTokens = model.Zero()
	}
	ix.NetDailyDelegatedTokens = add(ix.NetDailyDelegatedTokens, delta)
}

func setRelationActive(tx *Tx, st *model.DelegatedStake, active bool) error {
	rel, err := mustLoad[model.IndexerDelegatedStakeRelation](tx, st.Relation)
	if err != nil {
		return err
	}
	if rel.Active != active {
		rel.Active = active
		tx.Save(rel)
	}
	return nil
}

func activateStake(net *model.GraphNetwork, d *model.Delegator) {
	if d.ActiveStakesCount == 0 {
		net.ActiveDelegatorCount++
	}
	d.ActiveStakesCount++
	net.ActiveDelegationCount++
}

func deactivateStake(net *model.GraphNetwork, d *model.Delegator) {
	d.ActiveStakesCount--
	if d.ActiveStakesCount == 0 {
		net.ActiveDelegatorCount--
	}
	net.ActiveDelegationCount--
}

func (p *Processor) stakeDeposited(tx *Tx, e *model.StakeDeposited) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := loadOrCreateIndexer(tx, net, e.Indexer)
	if err != nil {
		return err
	}

	tokens := e.Tokens.Big()
	if ix.StakedTokens.Sign() == 0 {
		net.StakedIndexersCount++
	}
	ix.StakedTokens = add(ix.StakedTokens, tokens)
	commitIndexer(tx, net, ix)

	net.TotalTokensStaked = add(net.TotalTokensStaked, tokens)
	commitNetwork(tx, net)
	return nil
}

// stakeLocked records the indexer's locked total. The contract leaves the
// staked amount unchanged until withdrawal.
func (p *Processor) stakeLocked(tx *Tx, e *model.StakeLocked) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}

	tokens := e.Tokens.Big()
	ix.LockedTokens = tokens
	ix.TokensLockedUntil = e.Until.Big().Uint64()
	commitIndexer(tx, net, ix)

	net.TotalUnstakedTokensLocked = add(net.TotalUnstakedTokensLocked, tokens)
	if ix.StakedTokens.Cmp(ix.LockedTokens) == 0 {
		net.StakedIndexersCount--
	}
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) stakeWithdrawn(tx *Tx, e *model.StakeWithdrawn) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}

	tokens := e.Tokens.Big()
	ix.StakedTokens = sub(ix.StakedTokens, tokens)
	ix.LockedTokens = sub(ix.LockedTokens, tokens)
	ix.TokensLockedUntil = 0
	commitIndexer(tx, net, ix)

	net.TotalTokensStaked = sub(net.TotalTokensStaked, tokens)
	net.TotalUnstakedTokensLocked = sub(net.TotalUnstakedTokensLocked, tokens)
	commitNetwork(tx, net)
	return nil
}

// stakeSlashed takes the locked remainder from the payload when the decoder
// could read it. Otherwise locked tokens are capped at the remaining stake.
func (p *Processor) stakeSlashed(tx *Tx, e *model.StakeSlashed) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}

	tokens := e.Tokens.Big()
	ix.StakedTokens = sub(ix.StakedTokens, tokens)
	switch {
	case e.LockedTokens != nil:
		ix.LockedTokens = e.LockedTokens.Big()
	case ix.LockedTokens.Cmp(ix.StakedTokens) > 0:
		p.logger.Debug("slash without locked stake read, clamping",
			zap.String("indexer", ix.ID.Hex()),
		)
		ix.LockedTokens = new(big.Int).Set(ix.StakedTokens)
	}
	commitIndexer(tx, net, ix)

	net.TotalTokensStaked = sub(net.TotalTokensStaked, tokens)
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) stakeDelegated(tx *Tx, e *model.StakeDelegated) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := loadOrCreateIndexer(tx, net, e.Indexer)
	if err != nil {
		return err
	}
	tokens, shares := e.Tokens.Big(), e.Shares.Big()
	Deposit(ix, tokens, shares)

	d, err := loadOrCreateDelegator(tx, net, e.Delegator)
	if err != nil {
		return err
	}
	st, err := loadOrCreateStake(tx, net, ix, d)
	if err != nil {
		return err
	}

	d.TotalStakedTokens = add(d.TotalStakedTokens, tokens)
	d.StakedTokens = add(d.StakedTokens, tokens)

	becomingActive := st.ShareAmount.Sign() == 0 && shares.Sign() != 0
	UpdateStakeCostBasis(st, tokens, shares)
	st.StakedTokens = add(st.StakedTokens, tokens)
	st.TotalStakedTokens = add(st.TotalStakedTokens, tokens)
	st.ShareAmount = add(st.ShareAmount, shares)
	st.LastDelegatedAt = tx.Timestamp()
	Revalue(st, d, ix.DelegationExchangeRate)

	d.LastDelegatedAt = tx.Timestamp()
	d.LastDelegation = st.ID
	if becomingActive {
		activateStake(net, d)
	}
	// A zero-share deposit must not revive a drained relation.
	if st.ShareAmount.Sign() != 0 {
		if err := setRelationActive(tx, st, true); err != nil {
			return err
		}
	}
	tx.Save(st)
	tx.Save(d)

	net.TotalDelegatedTokens = add(net.TotalDelegatedTokens, tokens)
	addNetDaily(tx, ix, tokens)
	tx.Save(ix)

	if err := reconcilePoolMembers(tx, ix); err != nil {
		return err
	}
	snapshotStake(tx, st)
	snapshotDelegator(tx, d)
	commitIndexer(tx, net, ix)
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) stakeDelegatedLocked(tx *Tx, e *model.StakeDelegatedLocked) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}
	d, err := mustLoad[model.Delegator](tx, ids.FromAddress(e.Delegator))
	if err != nil {
		return err
	}
	st, err := mustLoad[model.DelegatedStake](tx, stakeID(d.ID, ix.ID))
	if err != nil {
		return err
	}

	tokens, shares := e.Tokens.Big(), e.Shares.Big()
	rateBefore := ix.DelegationExchangeRate
	Withdraw(ix, tokens, shares)

	becomingInactive := st.ShareAmount.Sign() != 0 && st.ShareAmount.Cmp(shares) == 0
	st.TotalUnstakedTokens = add(st.TotalUnstakedTokens, tokens)
	st.StakedTokens = sub(st.StakedTokens, tokens)
	st.ShareAmount = sub(st.ShareAmount, shares)
	st.LockedTokens = add(st.LockedTokens, tokens)
	st.LockedUntil = e.Until.Big().Uint64()
	st.LastUndelegatedAt = tx.Timestamp()

	RealizeOnWithdrawal(st, d, shares, rateBefore)
	Revalue(st, d, ix.DelegationExchangeRate)

	d.TotalUnstakedTokens = add(d.TotalUnstakedTokens, tokens)
	d.StakedTokens = sub(d.StakedTokens, tokens)
	d.LockedTokens = add(d.LockedTokens, tokens)
	d.LastUndelegatedAt = tx.Timestamp()
	d.LastUndelegation = st.ID
	if becomingInactive {
		deactivateStake(net, d)
	}
	if st.ShareAmount.Sign() == 0 {
		if err := setRelationActive(tx, st, false); err != nil {
			return err
		}
	}
	tx.Save(st)
	tx.Save(d)

	net.TotalDelegatedTokens = sub(net.TotalDelegatedTokens, tokens)
	addNetDaily(tx, ix, new(big.Int).Neg(tokens))
	tx.Save(ix)

	if err := reconcilePoolMembers(tx, ix); err != nil {
		return err
	}
	snapshotStake(tx, st)
	snapshotDelegator(tx, d)
	commitIndexer(tx, net, ix)
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) stakeDelegatedWithdrawn(tx *Tx, e *model.StakeDelegatedWithdrawn) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}
	d, err := mustLoad[model.Delegator](tx, ids.FromAddress(e.Delegator))
	if err != nil {
		return err
	}
	st, err := mustLoad[model.DelegatedStake](tx, stakeID(d.ID, ix.ID))
	if err != nil {
		return err
	}

	d.LockedTokens = sub(d.LockedTokens, st.LockedTokens)
	st.LockedTokens = model.Zero()
	st.LockedUntil = 0
	tx.Save(st)
	tx.Save(d)

	if err := reconcilePoolMembers(tx, ix); err != nil {
		return err
	}
	snapshotStake(tx, st)
	snapshotDelegator(tx, d)
	commitIndexer(tx, net, ix)
	return nil
}

func (p *Processor) allocationCreated(tx *Tx, e *model.AllocationCreated) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}
	tokens := e.Tokens.Big()

	ix.AllocatedTokens = add(ix.AllocatedTokens, tokens)
	ix.TotalAllocationCount++
	ix.AllocationCount++
	commitIndexer(tx, net, ix)

	dep, err := loadOrCreateDeployment(tx, net, e.SubgraphDeploymentID)
	if err != nil {
		return err
	}
	dep.StakedTokens = add(dep.StakedTokens, tokens)
	tx.Save(dep)
	snapshotDeployment(tx, dep)

	alloc := model.NewAllocation(ids.FromAddress(e.AllocationID), ix.ID, dep.ID, tx.Timestamp())
	alloc.AllocatedTokens = tokens
	alloc.CreatedAtEpoch = e.Epoch.Big().Uint64()
	alloc.Metadata = e.Metadata.Hex()
	tx.Save(alloc)

	net.TotalTokensAllocated = add(net.TotalTokensAllocated, tokens)
	net.AllocationCount++
	net.ActiveAllocationCount++
	commitNetwork(tx, net)
	return nil
}

// allocationCollected books query fees. They reach the epoch pool only if
// the allocation is already closed; open allocations hand them over at close.
func (p *Processor) allocationCollected(tx *Tx, e *model.AllocationCollected) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}
	alloc, err := mustLoad[model.Allocation](tx, ids.FromAddress(e.AllocationID))
	if err != nil {
		return err
	}
	dep, err := mustLoad[model.SubgraphDeployment](tx, ids.FromHash(e.SubgraphDeploymentID))
	if err != nil {
		return err
	}
	tokens, rebate, curation := e.Tokens.Big(), e.RebateFees.Big(), e.CurationFees.Big()

	ix.QueryFeesCollected = add(ix.QueryFeesCollected, rebate)
	commitIndexer(tx, net, ix)

	alloc.QueryFeesCollected = add(alloc.QueryFeesCollected, rebate)
	alloc.CuratorRewards = add(alloc.CuratorRewards, curation)
	tx.Save(alloc)

	pool, err := loadOrCreatePool(tx, &e.Epoch)
	if err != nil {
		return err
	}
	if alloc.Status == model.AllocationStatusClosed {
		pool.TotalQueryFees = add(pool.TotalQueryFees, rebate)
	}
	pool.CuratorRewards = add(pool.CuratorRewards, curation)
	tx.Save(pool)

	dep.QueryFeesAmount = add(dep.QueryFeesAmount, rebate)
	dep.SignalledTokens = add(dep.SignalledTokens, curation)
	dep.CuratorFeeRewards = add(dep.CuratorFeeRewards, curation)
	dep.PricePerShare = PriceApproximation(dep.SignalledTokens, dep.SignalAmount, dep.ReserveRatio)
	tx.Save(dep)
	snapshotDeployment(tx, dep)

	// The protocol tax is not emitted; it is whatever neither party received.
	taxed := sub(tokens, add(rebate, curation))
	net.TotalQueryFees = add(net.TotalQueryFees, tokens)
	net.TotalIndexerQueryFeesCollected = add(net.TotalIndexerQueryFeesCollected, rebate)
	net.TotalCuratorQueryFees = add(net.TotalCuratorQueryFees, curation)
	net.TotalTaxedQueryFees = add(net.TotalTaxedQueryFees, taxed)
	net.TotalUnclaimedQueryFeeRebates = add(net.TotalUnclaimedQueryFeeRebates, rebate)
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) allocationClosed(tx *Tx, e *model.AllocationClosed) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}
	alloc, err := mustLoad[model.Allocation](tx, ids.FromAddress(e.AllocationID))
	if err != nil {
		return err
	}
	dep, err := mustLoad[model.SubgraphDeployment](tx, ids.FromHash(e.SubgraphDeploymentID))
	if err != nil {
		return err
	}
	tokens := e.Tokens.Big()

	if e.Sender != e.Indexer {
		ix.ForcedClosures++
	}
	ix.AllocatedTokens = sub(ix.AllocatedTokens, tokens)
	ix.AllocationCount--
	commitIndexer(tx, net, ix)

	alloc.PoolClosedIn = poolID(&e.Epoch)
	alloc.ClosedAtEpoch = e.Epoch.Big().Uint64()
	alloc.ClosedAt = tx.Timestamp()
	alloc.EffectiveAllocation = e.EffectiveAllocation.Big()
	alloc.Status = model.AllocationStatusClosed
	alloc.POI = e.POI.Hex()
	tx.Save(alloc)

	pool, err := loadOrCreatePool(tx, &e.Epoch)
	if err != nil {
		return err
	}
	pool.Allocation = add(pool.Allocation, alloc.EffectiveAllocation)
	pool.TotalQueryFees = add(pool.TotalQueryFees, alloc.QueryFeesCollected)
	tx.Save(pool)

	dep.StakedTokens = sub(dep.StakedTokens, tokens)
	tx.Save(dep)
	snapshotDeployment(tx, dep)

	net.TotalTokensAllocated = sub(net.TotalTokensAllocated, tokens)
	net.ActiveAllocationCount--
	commitNetwork(tx, net)
	return nil
}

// rebateClaimed restakes the delegators' share of query fees into the pool.
func (p *Processor) rebateClaimed(tx *Tx, e *model.RebateClaimed) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}
	alloc, err := mustLoad[model.Allocation](tx, ids.FromAddress(e.AllocationID))
	if err != nil {
		return err
	}
	pool, err := mustLoad[model.Pool](tx, poolID(&e.ForEpoch))
	if err != nil {
		return err
	}
	dep, err := mustLoad[model.SubgraphDeployment](tx, ids.FromHash(e.SubgraphDeploymentID))
	if err != nil {
		return err
	}
	tokens, fees := e.Tokens.Big(), e.DelegationFees.Big()

	ix.QueryFeeRebates = add(ix.QueryFeeRebates, tokens)
	ix.DelegatorQueryFees = add(ix.DelegatorQueryFees, fees)
	Deposit(ix, fees, model.Zero())
	tx.Save(ix)

	alloc.QueryFeeRebates = tokens
	alloc.DelegationFees = fees
	alloc.Status = model.AllocationStatusClaimed
	tx.Save(alloc)

	pool.ClaimedFees = add(pool.ClaimedFees, tokens)
	tx.Save(pool)

	dep.QueryFeeRebates = add(dep.QueryFeeRebates, tokens)
	dep.DelegatorQueryFees = add(dep.DelegatorQueryFees, fees)
	tx.Save(dep)
	snapshotDeployment(tx, dep)

	net.TotalIndexerQueryFeeRebates = add(net.TotalIndexerQueryFeeRebates, tokens)
	net.TotalDelegatorQueryFeeRebates = add(net.TotalDelegatorQueryFeeRebates, fees)
	net.TotalUnclaimedQueryFeeRebates = sub(net.TotalUnclaimedQueryFeeRebates, add(tokens, fees))
	net.TotalDelegatedTokens = add(net.TotalDelegatedTokens, fees)

	if err := reconcilePoolMembers(tx, ix); err != nil {
		return err
	}
	commitIndexer(tx, net, ix)
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) stakingParameterUpdated(tx *Tx, e *model.ParameterUpdated) error {
	if e.Param != "delegationRatio" {
		return nil
	}
	if e.Value == nil {
		p.logger.Warn("parameter update without value", zap.String("param", e.Param))
		return nil
	}
	net, err := tx.Network()
	if err != nil {
		return err
	}
	net.DelegationRatio = uint32(e.Value.Big().Uint64())
	commitNetwork(tx, net)
	return nil
}

func (p *Processor) delegationParametersUpdated(tx *Tx, e *model.DelegationParametersUpdated) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := loadOrCreateIndexer(tx, net, e.Indexer)
	if err != nil {
		return err
	}
	ix.IndexingRewardCut = e.IndexingRewardCut
	ix.QueryFeeCut = e.QueryFeeCut
	ix.DelegatorParameterCooldown = e.CooldownBlocks
	ix.LastDelegationParameterUpdate = tx.ev.BlockNumber
	commitIndexer(tx, net, ix)
	return nil
}

// rewardsAssigned splits indexing rewards by the indexer's reward cut. The
// indexer part is restaked, the delegator part grows the pool without
// minting shares, which raises the exchange rate.
func (p *Processor) rewardsAssigned(tx *Tx, e *model.RewardsAssigned) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}
	alloc, err := mustLoad[model.Allocation](tx, ids.FromAddress(e.AllocationID))
	if err != nil {
		return err
	}
	dep, err := mustLoad[model.SubgraphDeployment](tx, alloc.SubgraphDeployment)
	if err != nil {
		return err
	}

	amount := e.Amount.Big()
	indexerPart, delegatorPart := splitRewards(ix, amount)

	ix.StakedTokens = add(ix.StakedTokens, indexerPart)
	ix.RewardsEarned = add(ix.RewardsEarned, amount)
	ix.IndexerIndexingRewards = add(ix.IndexerIndexingRewards, indexerPart)
	ix.DelegatorIndexingRewards = add(ix.DelegatorIndexingRewards, delegatorPart)
	Deposit(ix, delegatorPart, model.Zero())
	tx.Save(ix)

	alloc.IndexingRewards = add(alloc.IndexingRewards, amount)
	alloc.IndexingIndexerRewards = add(alloc.IndexingIndexerRewards, indexerPart)
	alloc.IndexingDelegatorRewards = add(alloc.IndexingDelegatorRewards, delegatorPart)
	tx.Save(alloc)

	dep.IndexingRewardAmount = add(dep.IndexingRewardAmount, amount)
	dep.IndexingIndexerRewardAmount = add(dep.IndexingIndexerRewardAmount, indexerPart)
	dep.IndexingDelegatorRewardAmount = add(dep.IndexingDelegatorRewardAmount, delegatorPart)
	tx.Save(dep)
	snapshotDeployment(tx, dep)

	net.TotalIndexingRewards = add(net.TotalIndexingRewards, amount)
	net.TotalIndexingIndexerRewards = add(net.TotalIndexingIndexerRewards, indexerPart)
	net.TotalIndexingDelegatorRewards = add(net.TotalIndexingDelegatorRewards, delegatorPart)
	net.TotalTokensStaked = add(net.TotalTokensStaked, indexerPart)
	net.TotalDelegatedTokens = add(net.TotalDelegatedTokens, delegatorPart)

	if err := reconcilePoolMembers(tx, ix); err != nil {
		return err
	}
	commitIndexer(tx, net, ix)
	commitNetwork(tx, net)
	return nil
}
