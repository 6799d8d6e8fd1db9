package ledger

import (
	"fmt"
	"math/big"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// indexerStakeTransferredToL2 may fire several times; partial transfers
// accumulate and only the first one fixes the L2 identity.
func (p *Processor) indexerStakeTransferredToL2(tx *Tx, e *model.IndexerStakeTransferredToL2) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ix, err := mustLoad[model.Indexer](tx, ids.FromAddress(e.Indexer))
	if err != nil {
		return err
	}

	tokens := e.TransferredStakeTokens.Big()
	ix.StakedTokensTransferredToL2 = add(ix.StakedTokensTransferredToL2, tokens)
	if !ix.TransferredToL2 {
		ix.TransferredToL2 = true
		ix.FirstTransferredToL2At = tx.Timestamp()
		ix.IDOnL2 = ids.FromAddress(e.L2Indexer)
	}
	ix.StakedTokens = sub(ix.StakedTokens, tokens)
	ix.LastTransferredToL2At = tx.Timestamp()
	commitIndexer(tx, net, ix)

	net.TotalTokensStaked = sub(net.TotalTokensStaked, tokens)
	net.TotalStakeTransferredToL2 = add(net.TotalStakeTransferredToL2, tokens)
	commitNetwork(tx, net)
	return nil
}

// delegationTransferredToL2 moves a delegator's entire position. All shares
// leave the pool at once, so the gain is realized at the pre-transfer rate.
func (p *Processor) delegationTransferredToL2(tx *Tx, e *model.DelegationTransferredToL2) error {
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

	tokens := e.TransferredDelegationTokens.Big()
	sharesBefore := st.ShareAmount
	rateBefore := ix.DelegationExchangeRate
	Withdraw(ix, tokens, sharesBefore)

	RealizeOnWithdrawal(st, d, sharesBefore, rateBefore)
	st.ShareAmount = model.Zero()
	st.StakedTokens = sub(st.StakedTokens, tokens)
	st.TotalUnstakedTokens = add(st.TotalUnstakedTokens, tokens)
	st.StakedTokensTransferredToL2 = add(st.StakedTokensTransferredToL2, tokens)
	st.TransferredToL2 = true
	st.IDOnL2 = stakeID(ids.FromAddress(e.L2Delegator), ids.FromAddress(e.L2Indexer))
	st.LastUndelegatedAt = tx.Timestamp()
	Revalue(st, d, ix.DelegationExchangeRate)

	d.TotalUnstakedTokens = add(d.TotalUnstakedTokens, tokens)
	d.StakedTokens = sub(d.StakedTokens, tokens)
	d.StakedTokensTransferredToL2 = add(d.StakedTokensTransferredToL2, tokens)
	d.TransferredToL2 = true
	d.LastUndelegatedAt = tx.Timestamp()
	d.LastUndelegation = st.ID
	if sharesBefore.Sign() != 0 {
		deactivateStake(net, d)
	}
	if err := setRelationActive(tx, st, false); err != nil {
		return err
	}
	tx.Save(st)
	tx.Save(d)

	net.TotalDelegatedTokens = sub(net.TotalDelegatedTokens, tokens)
	net.TotalDelegationTransferredToL2 = add(net.TotalDelegationTransferredToL2, tokens)
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

// transferredDelegationReturned credits tokens that could not be delegated
// on L2 back to the delegator's account.
func (p *Processor) transferredDelegationReturned(tx *Tx, e *model.TransferredDelegationReturnedToDelegator) error {
	acc, err := loadOrCreateAccount(tx, e.Delegator)
	if err != nil {
		return err
	}
	acc.BalanceReceivedFromL1Delegation = add(acc.BalanceReceivedFromL1Delegation, e.Amount.Big())
	tx.Save(acc)
	return nil
}

// subgraphSentToL2 records the id the subgraph will carry on L2.
func (p *Processor) subgraphSentToL2(tx *Tx, e *model.SubgraphSentToL2) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(model.SubgraphRef{SubgraphID: &e.SubgraphID})
	if err != nil {
		return err
	}
	sg, err := mustLoad[model.Subgraph](tx, ref.key)
	if err != nil {
		return err
	}

	tokens := e.Tokens.Big()
	sg.TransferredToL2 = true
	sg.IDOnL2 = ids.Base58(ids.AliasAcrossLayer(ref.id))
	sg.SignalledTokensSentToL2 = add(sg.SignalledTokensSentToL2, tokens)
	sg.UpdatedAt = tx.Timestamp()
	deactivateSubgraph(net, sg)
	tx.Save(sg)

	net.TotalTokensSignalledTransferred = add(net.TotalTokensSignalledTransferred, tokens)
	commitNetwork(tx, net)
	return nil
}

// subgraphReceivedFromL1 creates the L2 side of a transferred subgraph. It
// stays inactive until a version is published for it.
func (p *Processor) subgraphReceivedFromL1(tx *Tx, e *model.SubgraphReceivedFromL1) error {
	net, err := tx.Network()
	if err != nil {
		return err
	}
	ref, err := p.resolveSubgraph(model.SubgraphRef{SubgraphID: &e.L2SubgraphID})
	if err != nil {
		return err
	}
	l1, err := ids.FromBig(e.L1SubgraphID.Big())
	if err != nil {
		return fmt.Errorf("%w: l1 subgraph id: %v", ErrMalformed, err)
	}
	sg, err := loadOrCreateSubgraph(tx, net, ref, e.Owner)
	if err != nil {
		return err
	}

	sg.IDOnL1 = ids.Base58(l1)
	sg.SignalledTokensReceivedOnL2 = add(sg.SignalledTokensReceivedOnL2, e.Tokens.Big())
	sg.UpdatedAt = tx.Timestamp()
	tx.Save(sg)
	tx.Save(net)
	return nil
}
