package ids

import (
	"encoding/binary"
	"strings"
)

// Separator sits between every pair of parts in a joined key.
var Separator = []byte("---")

const (
	secondsPerDay = 86400
	// LaunchDay is the protocol launch (17 Dec 2020) in days since the epoch.
	LaunchDay = 18613
)

// JoinKeys concatenates parts with Separator between each pair.
func JoinKeys(parts ...[]byte) ID {
	if len(parts) == 0 {
		return ID{}
	}
	size := len(Separator) * (len(parts) - 1)
	for _, part := range parts {
		size += len(part)
	}
	out := make([]byte, 0, size)
	for i, part := range parts {
		if i > 0 {
			out = append(out, Separator...)
		}
		out = append(out, part...)
	}
	return ID(out)
}

// CompoundKey keys a pairwise relation.
func CompoundKey(a, b []byte) ID {
	return JoinKeys(a, b)
}

// JoinKeysAsText builds a hyphen-joined display label. Never used for lookups.
func JoinKeysAsText(parts ...string) string {
	return strings.Join(parts, "-")
}

// DayNumber counts days since launch for a unix timestamp.
func DayNumber(ts uint64) int32 {
	return int32(int64(ts/secondsPerDay) - LaunchDay)
}

// DayBounds returns the unix start and end of the day containing ts.
func DayBounds(ts uint64) (start, end uint64) {
	start = (ts / secondsPerDay) * secondsPerDay
	return start, start + secondsPerDay
}

// DayKey keys the snapshot of entity for the day containing ts.
func DayKey(entity []byte, ts uint64) ID {
	return JoinKeys(entity, Int32Bytes(DayNumber(ts)))
}

// Int32Bytes is the 4-byte big-endian encoding of v.
func Int32Bytes(v int32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(v))
	return out
}

// Uint32Bytes is the 4-byte big-endian encoding of v.
func Uint32Bytes(v uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}

// Uint64Bytes is the 8-byte big-endian encoding of v.
func Uint64Bytes(v uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, v)
	return out
}
