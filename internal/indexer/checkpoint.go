package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint tracks the last fetched block of one chain.
type Checkpoint struct {
	ChainID            uint64 `json:"chain_id"`
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// ResumeFrom returns the first block still to fetch on chainID when the
// configured start is from. Checkpoints written for another chain are
// rejected; ones without a chain id are trusted.
func (cp Checkpoint) ResumeFrom(chainID, from uint64) (uint64, error) {
	if cp.ChainID != 0 && cp.ChainID != chainID {
		return 0, fmt.Errorf("checkpoint belongs to chain %d, connected to %d", cp.ChainID, chainID)
	}
	if cp.LastProcessedBlock >= from {
		return cp.LastProcessedBlock + 1, nil
	}
	return from, nil
}

// CheckpointStore keeps the checkpoint in a JSON file. A disabled store
// loads nothing and saves nothing.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

// Load returns nil when no checkpoint has been written yet.
func (c *CheckpointStore) Load() (*Checkpoint, error) {
	if !c.enabled {
		return nil, nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	cp := new(Checkpoint)
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", c.path, err)
	}
	return cp, nil
}

// Save replaces the checkpoint through a rename so a crash never leaves
// a partial file behind.
func (c *CheckpointStore) Save(chainID, lastProcessed uint64) error {
	if !c.enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	data, err := json.Marshal(Checkpoint{
		ChainID:            chainID,
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
