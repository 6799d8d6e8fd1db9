package store

import "context"

// Record is one persisted entity.
type Record struct {
	Kind string
	ID   []byte
	Data []byte
}

// Reader loads the JSON encoding of an entity.
type Reader interface {
	Get(ctx context.Context, kind string, id []byte) ([]byte, bool, error)
}

// KV is a keyed entity store. Put must apply all records atomically.
type KV interface {
	Reader
	Put(ctx context.Context, records []Record) error
}

// Key is the flat storage key for backends without separate columns.
func Key(kind string, id []byte) []byte {
	out := make([]byte, 0, len(kind)+1+len(id))
	out = append(out, kind...)
	out = append(out, '/')
	return append(out, id...)
}
