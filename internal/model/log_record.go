package model

// LogRecord is one fetched chain log as stored in the raw JSONL stream.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed,omitempty"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at,omitempty"`
}

// Topic0 returns the event signature hash, or "" for anonymous logs.
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return lr.Topics[0]
}

func (lr LogRecord) Position() Cursor {
	return Cursor{BlockNumber: lr.BlockNumber, LogIndex: lr.LogIndex, TxHash: lr.TxHash}
}

// DecodeError records a raw log the decoder could not turn into an event.
type DecodeError struct {
	Line        int    `json:"line,omitempty"`
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Error       string `json:"error"`
}

// NewDecodeError describes err against the log it was raised for.
func NewDecodeError(lr LogRecord, err error) DecodeError {
	return DecodeError{
		ChainID:     lr.ChainID,
		BlockNumber: lr.BlockNumber,
		TxHash:      lr.TxHash,
		LogIndex:    lr.LogIndex,
		Address:     lr.Address,
		Topic0:      lr.Topic0(),
		Error:       err.Error(),
	}
}
