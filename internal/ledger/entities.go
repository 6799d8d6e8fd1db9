package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// Lazily created entities. Creation bumps the matching network counter.

func loadOrCreateAccount(tx *Tx, addr common.Address) (*model.GraphAccount, error) {
	id := ids.FromAddress(addr)
	acc, err := load[model.GraphAccount](tx, id)
	if err != nil || acc != nil {
		return acc, err
	}
	acc = model.NewGraphAccount(id, tx.Timestamp())
	tx.Save(acc)
	return acc, nil
}

func loadOrCreateIndexer(tx *Tx, net *model.GraphNetwork, addr common.Address) (*model.Indexer, error) {
	id := ids.FromAddress(addr)
	ix, err := load[model.Indexer](tx, id)
	if err != nil || ix != nil {
		return ix, err
	}
	acc, err := loadOrCreateAccount(tx, addr)
	if err != nil {
		return nil, err
	}
	ix = model.NewIndexer(id, tx.Timestamp())
	ix.DefaultDisplayName = acc.DefaultDisplayName
	net.IndexerCount++
	tx.Save(ix)
	tx.Save(net)
	return ix, nil
}

func loadOrCreateDelegator(tx *Tx, net *model.GraphNetwork, addr common.Address) (*model.Delegator, error) {
	id := ids.FromAddress(addr)
	d, err := load[model.Delegator](tx, id)
	if err != nil || d != nil {
		return d, err
	}
	acc, err := loadOrCreateAccount(tx, addr)
	if err != nil {
		return nil, err
	}
	d = model.NewDelegator(id, tx.Timestamp())
	d.DefaultDisplayName = acc.DefaultDisplayName
	net.DelegatorCount++
	tx.Save(d)
	tx.Save(net)
	return d, nil
}

func stakeID(delegator, indexer ids.ID) ids.ID {
	return ids.CompoundKey(delegator, indexer)
}

// loadOrCreateStake also registers the stake with the indexer so that
// reconciliation can find it.
func loadOrCreateStake(tx *Tx, net *model.GraphNetwork, ix *model.Indexer, d *model.Delegator) (*model.DelegatedStake, error) {
	id := stakeID(d.ID, ix.ID)
	st, err := load[model.DelegatedStake](tx, id)
	if err != nil || st != nil {
		return st, err
	}

	st = model.NewDelegatedStake(id, ix.ID, d.ID, tx.Timestamp())
	rel := &model.IndexerDelegatedStakeRelation{
		ID:        relationID(ix.ID, ix.RelationsCount),
		Indexer:   ix.ID,
		Stake:     st.ID,
		Delegator: d.ID,
	}
	st.Relation = rel.ID
	ix.RelationsCount++
	ix.DelegatorsCount++
	d.StakesCount++
	if d.FirstDelegation.IsZero() {
		d.FirstDelegation = st.ID
	}
	net.DelegationCount++

	tx.Save(rel)
	tx.Save(st)
	tx.Save(net)
	return st, nil
}

func loadOrCreateCurator(tx *Tx, net *model.GraphNetwork, addr common.Address) (*model.Curator, error) {
	id := ids.FromAddress(addr)
	c, err := load[model.Curator](tx, id)
	if err != nil || c != nil {
		return c, err
	}
	if _, err := loadOrCreateAccount(tx, addr); err != nil {
		return nil, err
	}
	c = model.NewCurator(id, tx.Timestamp())
	net.CuratorCount++
	tx.Save(c)
	tx.Save(net)
	return c, nil
}

// ipfsHash renders a sha2-256 digest as a CIDv0 string.
func ipfsHash(digest []byte) string {
	buf := make([]byte, 0, 2+len(digest))
	buf = append(buf, 0x12, 0x20)
	buf = append(buf, digest...)
	return base58.Encode(buf)
}

func loadOrCreateDeployment(tx *Tx, net *model.GraphNetwork, hash common.Hash) (*model.SubgraphDeployment, error) {
	id := ids.FromHash(hash)
	dep, err := load[model.SubgraphDeployment](tx, id)
	if err != nil || dep != nil {
		return dep, err
	}
	dep = model.NewSubgraphDeployment(id, ipfsHash(hash.Bytes()), net.DefaultReserveRatio, tx.Timestamp())
	net.SubgraphDeploymentCount++
	tx.Save(dep)
	tx.Save(net)
	return dep, nil
}

func loadOrCreatePool(tx *Tx, epoch *model.Amount) (*model.Pool, error) {
	id := poolID(epoch)
	pool, err := load[model.Pool](tx, id)
	if err != nil || pool != nil {
		return pool, err
	}
	pool = model.NewPool(id)
	tx.Save(pool)
	return pool, nil
}

func poolID(epoch *model.Amount) ids.ID {
	return ids.FromString(epoch.String())
}
