package store

import (
	"context"
	"fmt"
)

// Batch buffers writes in front of a KV. Reads see pending writes first.
// Commit hands every pending record to the backend in one Put.
type Batch struct {
	kv      KV
	pending map[string]int
	records []Record
}

func NewBatch(kv KV) *Batch {
	return &Batch{kv: kv, pending: make(map[string]int)}
}

func (b *Batch) Get(ctx context.Context, kind string, id []byte) ([]byte, bool, error) {
	if idx, ok := b.pending[string(Key(kind, id))]; ok {
		return b.records[idx].Data, true, nil
	}
	return b.kv.Get(ctx, kind, id)
}

// Set replaces any pending write for the same key.
func (b *Batch) Set(rec Record) {
	key := string(Key(rec.Kind, rec.ID))
	if idx, ok := b.pending[key]; ok {
		b.records[idx] = rec
		return
	}
	b.pending[key] = len(b.records)
	b.records = append(b.records, rec)
}

// Len is the number of distinct pending keys.
func (b *Batch) Len() int {
	return len(b.records)
}

func (b *Batch) Commit(ctx context.Context) error {
	if len(b.records) == 0 {
		return nil
	}
	if err := b.kv.Put(ctx, b.records); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.pending = make(map[string]int)
	b.records = nil
	return nil
}
