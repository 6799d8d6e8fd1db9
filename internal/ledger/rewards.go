package ledger

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// Revalue marks the stake to rate and adds the resulting deltas to the
// delegator's aggregates. Aggregates are never summed from scratch.
func Revalue(st *model.DelegatedStake, d *model.Delegator, rate decimal.Decimal) {
	oldOriginal := st.OriginalDelegation
	oldCurrent := st.CurrentDelegation
	oldUnrealized := st.UnrealizedRewards

	shares := toDecimal(st.ShareAmount)
	st.OriginalDelegation = mulTrunc(st.PersonalExchangeRate, shares)
	st.LatestIndexerExchangeRate = rate
	st.CurrentDelegation = mulTrunc(rate, shares)
	st.UnrealizedRewards = ClampNonNegative(st.CurrentDelegation.Sub(st.OriginalDelegation))

	d.OriginalDelegation = d.OriginalDelegation.Add(st.OriginalDelegation.Sub(oldOriginal))
	d.CurrentDelegation = d.CurrentDelegation.Add(st.CurrentDelegation.Sub(oldCurrent))
	d.TotalUnrealizedRewards = ClampNonNegative(
		d.TotalUnrealizedRewards.Add(st.UnrealizedRewards.Sub(oldUnrealized)),
	)
}

// RealizeOnWithdrawal books the gain locked in by withdrawing shares at
// rateBefore, the pool rate before the withdrawal was applied.
func RealizeOnWithdrawal(st *model.DelegatedStake, d *model.Delegator, shares *big.Int, rateBefore decimal.Decimal) decimal.Decimal {
	withdrawn := toDecimal(shares)
	realized := mulTrunc(withdrawn, rateBefore).Sub(mulTrunc(withdrawn, st.PersonalExchangeRate))
	st.RealizedRewards = st.RealizedRewards.Add(realized)
	d.TotalRealizedRewards = d.TotalRealizedRewards.Add(realized)
	return realized
}

func relationID(indexer ids.ID, n uint32) ids.ID {
	return ids.CompoundKey(indexer, ids.Uint32Bytes(n))
}

// reconcilePoolMembers brings every active stake of the indexer up to the
// current pool rate. Stakes already at that rate are left untouched.
func reconcilePoolMembers(tx *Tx, ix *model.Indexer) error {
	rate := ix.DelegationExchangeRate
	for i := uint32(0); i < ix.RelationsCount; i++ {
		rel, err := mustLoad[model.IndexerDelegatedStakeRelation](tx, relationID(ix.ID, i))
		if err != nil {
			return err
		}
		if !rel.Active {
			continue
		}

		st, err := mustLoad[model.DelegatedStake](tx, rel.Stake)
		if err != nil {
			return err
		}
		if st.LatestIndexerExchangeRate.Equal(rate) {
			continue
		}
		d, err := mustLoad[model.Delegator](tx, rel.Delegator)
		if err != nil {
			return err
		}

		Revalue(st, d, rate)
		tx.Save(st)
		tx.Save(d)
		snapshotStake(tx, st)
		snapshotDelegator(tx, d)
	}
	return nil
}

// signalPosition is the average cost basis bookkeeping shared by curation
// signal and name signal.
type signalPosition struct {
	acb       *decimal.Decimal
	perSignal *decimal.Decimal
	realized  *decimal.Decimal
}

// mint adds deposited tokens to the cost basis. balance is the signal held
// after the mint.
func (p signalPosition) mint(tokens, balance *big.Int) {
	*p.acb = p.acb.Add(toDecimal(tokens))
	if balance.Sign() != 0 {
		*p.perSignal = divTrunc(*p.acb, toDecimal(balance))
	}
}

// burn re-derives the cost basis from the remaining balance and books the
// difference between tokens received and basis released. It returns the
// basis released.
func (p signalPosition) burn(received, balance *big.Int) decimal.Decimal {
	previous := *p.acb
	*p.acb = mulTrunc(toDecimal(balance), *p.perSignal)
	released := previous.Sub(*p.acb)
	if p.acb.IsZero() {
		*p.perSignal = decimal.Zero
	}
	*p.realized = p.realized.Add(toDecimal(received).Sub(released))
	return released
}
