package ledger

import (
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"
	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// Snapshots copy the entity as it stands into a record keyed by
// (entity, day). A later write on the same day replaces the earlier one.
// The copies share amount pointers with the live entity, which is safe
// because amounts are always replaced, never mutated.

func dayBucket(entity ids.ID, ts uint64) model.DayBucket {
	start, end := ids.DayBounds(ts)
	return model.DayBucket{
		ID:        ids.DayKey(entity, ts),
		DayNumber: ids.DayNumber(ts),
		DayStart:  start,
		DayEnd:    end,
	}
}

func snapshotIndexer(tx *Tx, ix *model.Indexer) {
	tx.Save(&model.IndexerDailyData{
		DayBucket: dayBucket(ix.ID, tx.Timestamp()),
		Indexer:   ix.ID,
		State:     *ix,
	})
}

func snapshotDelegator(tx *Tx, d *model.Delegator) {
	tx.Save(&model.DelegatorDailyData{
		DayBucket: dayBucket(d.ID, tx.Timestamp()),
		Delegator: d.ID,
		State:     *d,
	})
}

func snapshotStake(tx *Tx, st *model.DelegatedStake) {
	tx.Save(&model.DelegatedStakeDailyData{
		DayBucket: dayBucket(st.ID, tx.Timestamp()),
		Stake:     st.ID,
		Delegator: st.Delegator,
		Indexer:   st.Indexer,
		State:     *st,
	})
}

func snapshotDeployment(tx *Tx, dep *model.SubgraphDeployment) {
	tx.Save(&model.SubgraphDeploymentDailyData{
		DayBucket:          dayBucket(dep.ID, tx.Timestamp()),
		SubgraphDeployment: dep.ID,
		State:              *dep,
	})
}

// snapshotNetwork copies every global counter and total.
func snapshotNetwork(tx *Tx, net *model.GraphNetwork) {
	tx.Save(&model.GraphNetworkDailyData{
		DayBucket: dayBucket(net.ID, tx.Timestamp()),
		State:     *net,
	})
}
