package indexer

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

type logKey struct {
	block uint64
	tx    common.Hash
	index uint
}

// settledLogs drops removed and duplicate logs and orders the rest by
// (block, log index), the order the ledger applies them in.
func settledLogs(logs []types.Log) []types.Log {
	seen := make(map[logKey]struct{}, len(logs))
	out := make([]types.Log, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		key := logKey{block: log.BlockNumber, tx: log.TxHash, index: log.Index}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, log)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].Index < out[j].Index
	})
	return out
}

func toLogRecord(chainID uint64, log types.Log, timestamp uint64, ingestedAt time.Time) model.LogRecord {
	topics := make([]string, len(log.Topics))
	for i, topic := range log.Topics {
		topics[i] = topic.Hex()
	}

	return model.LogRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Timestamp:   timestamp,
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
	}
}
