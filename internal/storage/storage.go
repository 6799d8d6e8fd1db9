package storage

import "github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"

// Storage receives fetched logs one settled batch at a time, in order.
// A batch is either fully written or reported as failed.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}
