package model

import "github.com/graphprotocol/graph-network-analytics-subgraph/internal/ids"

// DayBucket is shared by every daily snapshot.
type DayBucket struct {
	ID        ids.ID `json:"id"`
	DayNumber int32  `json:"day_number"`
	DayStart  uint64 `json:"day_start"`
	DayEnd    uint64 `json:"day_end"`
}

type IndexerDailyData struct {
	DayBucket
	Indexer ids.ID  `json:"indexer"`
	State   Indexer `json:"state"`
}

func (e *IndexerDailyData) EntityKind() string { return KindIndexerDaily }
func (e *IndexerDailyData) EntityID() ids.ID   { return e.ID }

type DelegatorDailyData struct {
	DayBucket
	Delegator ids.ID    `json:"delegator"`
	State     Delegator `json:"state"`
}

func (e *DelegatorDailyData) EntityKind() string { return KindDelegatorDaily }
func (e *DelegatorDailyData) EntityID() ids.ID   { return e.ID }

type DelegatedStakeDailyData struct {
	DayBucket
	Stake     ids.ID         `json:"stake"`
	Delegator ids.ID         `json:"delegator"`
	Indexer   ids.ID         `json:"indexer"`
	State     DelegatedStake `json:"state"`
}

func (e *DelegatedStakeDailyData) EntityKind() string { return KindDelegatedStakeDaily }
func (e *DelegatedStakeDailyData) EntityID() ids.ID   { return e.ID }

type SubgraphDeploymentDailyData struct {
	DayBucket
	SubgraphDeployment ids.ID             `json:"subgraph_deployment"`
	State              SubgraphDeployment `json:"state"`
}

func (e *SubgraphDeploymentDailyData) EntityKind() string { return KindDeploymentDaily }
func (e *SubgraphDeploymentDailyData) EntityID() ids.ID   { return e.ID }

type GraphNetworkDailyData struct {
	DayBucket
	State GraphNetwork `json:"state"`
}

func (e *GraphNetworkDailyData) EntityKind() string { return KindNetworkDaily }
func (e *GraphNetworkDailyData) EntityID() ids.ID   { return e.ID }
