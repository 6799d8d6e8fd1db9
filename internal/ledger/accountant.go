package ledger

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// Precision matches the on-chain 18 decimal token unit.
const Precision = 18

var (
	one           = decimal.NewFromInt(1)
	ppm           = decimal.NewFromInt(1_000_000)
	ppmInt        = big.NewInt(1_000_000)
	hotfixReserve = decimal.NewFromInt(2)
)

// Amounts are never mutated in place: every helper returns a new value so
// snapshot copies can share pointers with the live entity.
func add(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }
func sub(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }

func clampZero(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return model.Zero()
	}
	return v
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return a
	}
	return b
}

func toDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

// divTrunc divides and truncates toward zero at Precision digits. b must not be zero.
func divTrunc(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, Precision)
	return q
}

func mulTrunc(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b).Truncate(Precision)
}

// ClampNonNegative suppresses negative truncation artifacts.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Deposit adds tokens and shares to an indexer's delegation pool.
func Deposit(ix *model.Indexer, tokens, shares *big.Int) {
	ix.DelegatedTokens = add(ix.DelegatedTokens, tokens)
	ix.DelegatorShares = add(ix.DelegatorShares, shares)
	updateExchangeRate(ix)
}

// Withdraw removes tokens and shares from an indexer's delegation pool.
func Withdraw(ix *model.Indexer, tokens, shares *big.Int) {
	ix.DelegatedTokens = sub(ix.DelegatedTokens, tokens)
	ix.DelegatorShares = sub(ix.DelegatorShares, shares)
	updateExchangeRate(ix)
}

// updateExchangeRate keeps the last rate while the pool has no shares.
func updateExchangeRate(ix *model.Indexer) {
	if ix.DelegatorShares.Sign() == 0 {
		return
	}
	ix.DelegationExchangeRate = divTrunc(toDecimal(ix.DelegatedTokens), toDecimal(ix.DelegatorShares))
}

// UpdateStakeCostBasis folds a deposit into the stake's personal exchange
// rate. It must run before the stake's share amount is increased.
func UpdateStakeCostBasis(st *model.DelegatedStake, tokens, shares *big.Int) {
	if shares.Sign() == 0 {
		return
	}
	total := add(st.ShareAmount, shares)
	if total.Sign() <= 0 {
		return
	}
	basis := st.PersonalExchangeRate.Mul(toDecimal(st.ShareAmount)).Add(toDecimal(tokens))
	st.PersonalExchangeRate = divTrunc(basis, toDecimal(total))
}

// PriceApproximation estimates the bonding curve price of one share as
// (value/shares) * (1e6/reserveRatio), truncated once at Precision digits.
// It is not the exact curve price. A zero reserve ratio is read as 2.
func PriceApproximation(value, shares *big.Int, reserveRatio uint32) decimal.Decimal {
	if shares == nil || shares.Sign() == 0 {
		return decimal.Zero
	}
	rr := hotfixReserve
	if reserveRatio != 0 {
		rr = decimal.NewFromInt(int64(reserveRatio))
	}
	return divTrunc(toDecimal(value).Mul(ppm), toDecimal(shares).Mul(rr))
}

// CalculateCapacities derives how much stake the indexer can allocate.
func CalculateCapacities(ix *model.Indexer, net *model.GraphNetwork) {
	maxDelegated := new(big.Int).Mul(ix.StakedTokens, big.NewInt(int64(net.DelegationRatio)))
	ix.DelegatedCapacity = new(big.Int).Set(minBig(ix.DelegatedTokens, maxDelegated))
	ix.TokenCapacity = add(ix.StakedTokens, ix.DelegatedCapacity)
	ix.AvailableStake = sub(sub(ix.TokenCapacity, ix.AllocatedTokens), ix.LockedTokens)
}

// UpdateAdvancedMetrics recomputes the derived stake and cut ratios.
func UpdateAdvancedMetrics(ix *model.Indexer, net *model.GraphNetwork) {
	staked := toDecimal(ix.StakedTokens)
	delegated := toDecimal(ix.DelegatedTokens)
	ratio := decimal.NewFromInt(int64(net.DelegationRatio))
	maxDelegated := staked.Mul(ratio)

	usable := decimal.Min(staked.Add(maxDelegated), staked.Add(delegated))
	ix.OwnStakeRatio = decimal.Zero
	if !usable.IsZero() {
		ix.OwnStakeRatio = divTrunc(staked, usable)
	}

	ix.DelegatedStakeRatio = decimal.Zero
	if !ix.OwnStakeRatio.IsZero() {
		ix.DelegatedStakeRatio = one.Sub(ix.OwnStakeRatio)
	}

	ix.IndexingRewardEffectiveCut = effectiveCut(ix.IndexingRewardCut, ix.DelegatedStakeRatio)
	ix.QueryFeeEffectiveCut = effectiveCut(ix.QueryFeeCut, ix.DelegatedStakeRatio)

	ix.IndexerRewardsOwnGenerationRatio = decimal.Zero
	if !ix.OwnStakeRatio.IsZero() {
		rewardCut := divTrunc(decimal.NewFromInt(int64(ix.IndexingRewardCut)), ppm)
		ix.IndexerRewardsOwnGenerationRatio = divTrunc(rewardCut, ix.OwnStakeRatio)
	}

	ix.OverDelegationDilution = decimal.Zero
	if !staked.IsZero() {
		denom := decimal.Max(maxDelegated, delegated)
		if !denom.IsZero() {
			ix.OverDelegationDilution = one.Sub(divTrunc(maxDelegated, denom))
		}
	}
}

func effectiveCut(cut uint32, delegatedRatio decimal.Decimal) decimal.Decimal {
	if delegatedRatio.IsZero() {
		return decimal.Zero
	}
	delegatorCut := divTrunc(decimal.NewFromInt(1_000_000-int64(cut)), ppm)
	return one.Sub(divTrunc(delegatorCut, delegatedRatio))
}

// refreshIndexer recomputes every derived indexer figure after a balance change.
func refreshIndexer(ix *model.Indexer, net *model.GraphNetwork) {
	UpdateAdvancedMetrics(ix, net)
	CalculateCapacities(ix, net)
}

// splitRewards divides an indexing reward between the indexer and its
// delegators. Without delegation everything goes to the indexer.
func splitRewards(ix *model.Indexer, amount *big.Int) (indexerPart, delegatorPart *big.Int) {
	if ix.DelegatedTokens.Sign() == 0 {
		return new(big.Int).Set(amount), new(big.Int)
	}
	delegatorPart = new(big.Int).Mul(amount, big.NewInt(1_000_000-int64(ix.IndexingRewardCut)))
	delegatorPart.Quo(delegatorPart, ppmInt)
	return sub(amount, delegatorPart), delegatorPart
}
