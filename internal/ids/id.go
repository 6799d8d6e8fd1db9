package ids

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ID is an opaque entity key. It encodes as 0x-prefixed hex in JSON.
type ID []byte

// FromAddress returns the key for an account-like entity.
func FromAddress(addr common.Address) ID {
	return ID(addr.Bytes())
}

// FromHash returns the key for a hash-identified entity.
func FromHash(h common.Hash) ID {
	return ID(h.Bytes())
}

// FromString keys an entity by raw text bytes.
func FromString(s string) ID {
	return ID(s)
}

func (id ID) Hex() string {
	return hexutil.Encode(id)
}

func (id ID) String() string {
	return id.Hex()
}

func (id ID) Equal(other ID) bool {
	return bytes.Equal(id, other)
}

func (id ID) IsZero() bool {
	return len(id) == 0
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(id)), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = nil
		return nil
	}
	data, err := hexutil.Decode(string(text))
	if err != nil {
		return err
	}
	*id = data
	return nil
}
