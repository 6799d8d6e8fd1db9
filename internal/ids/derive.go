package ids

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// aliasOffset maps an id minted on L1 to the id the paired L2 contract assigns.
var aliasOffset = uint256.MustFromHex("0x1111000000000000000000000000000000000000000000000000000000001111")

// DeriveSequentialID hashes owner ++ pad32(seq) with keccak256 and reads the
// digest as an unsigned 256-bit integer.
func DeriveSequentialID(owner common.Address, seq *big.Int, logger *zap.Logger) (*uint256.Int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if seq == nil || seq.Sign() < 0 {
		return nil, fmt.Errorf("sequence number must be non-negative")
	}
	if seq.BitLen() > 256 {
		return nil, fmt.Errorf("sequence number overflows 256 bits: %s", seq)
	}

	digits := seq.Text(16)
	if len(digits)%2 == 1 {
		logger.Warn("odd-length sequence hex, padding nibble",
			zap.String("owner", owner.Hex()),
			zap.String("seq", seq.String()),
		)
		digits = "0" + digits
	}
	padded := strings.Repeat("00", 32-len(digits)/2) + digits

	seqBytes, err := hex.DecodeString(padded)
	if err != nil {
		return nil, fmt.Errorf("decode sequence: %w", err)
	}

	digest := crypto.Keccak256(owner.Bytes(), seqBytes)
	return new(uint256.Int).SetBytes32(digest), nil
}

// FromBig converts an on-chain uint256 into the id domain.
func FromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return nil, fmt.Errorf("nil id")
	}
	out, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		return nil, fmt.Errorf("id out of range: %s", v)
	}
	return out, nil
}

// DisplayID returns the minimal big-endian bytes of v. Zero yields an empty key.
func DisplayID(v *uint256.Int) ID {
	return ID(v.Bytes())
}

// Base58 renders the external form of a display id.
func Base58(v *uint256.Int) string {
	return base58.Encode(v.Bytes())
}

// AliasAcrossLayer returns (id + offset) mod 2^256.
func AliasAcrossLayer(id *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(id, aliasOffset)
}
