package model

import "encoding/json"

// TypedEvent is a decoded protocol event with its chain position. Decoded
// holds the snake_case payload map.
type TypedEvent struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	BlockHash   string      `json:"block_hash"`
	TxHash      string      `json:"tx_hash"`
	TxIndex     uint64      `json:"tx_index"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	Contract    string      `json:"contract"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// RawLogRef points back at the log an event was decoded from.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// TypedEventRecord is a TypedEvent read back from JSONL, with the payload
// left raw until a handler binds it.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	TxIndex     uint64          `json:"tx_index"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	Contract    string          `json:"contract"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

// Position orders records by (block, log index).
func (r TypedEventRecord) Position() Cursor {
	return Cursor{BlockNumber: r.BlockNumber, LogIndex: r.LogIndex, TxHash: r.TxHash}
}

// Cursor marks the last event applied to the ledger.
type Cursor struct {
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
	TxHash      string `json:"tx_hash"`
}

// After reports whether c is strictly later than other.
func (c Cursor) After(other Cursor) bool {
	if c.BlockNumber != other.BlockNumber {
		return c.BlockNumber > other.BlockNumber
	}
	return c.LogIndex > other.LogIndex
}
