package book

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Partition key schema for the durable store:
//
//   b:<16-byte-uuid> → Order (bid)
//   a:<16-byte-uuid> → Order (ask)
//   n:               → uint64 order count (|bids| + |asks|)
//   s:               → uint64 commit sequence, monotonic, survives clears
//
// Values are JSON-encoded orders; counters are big-endian uint64.

const (
	prefixBid = "b:"
	prefixAsk = "a:"
)

var (
	keyCount = []byte("n:")
	keySeq   = []byte("s:")
)

func sidePrefix(s Side) []byte {
	if s == Bid {
		return []byte(prefixBid)
	}
	return []byte(prefixAsk)
}

func orderKey(s Side, id uuid.UUID) []byte {
	return append(sidePrefix(s), id[:]...)
}

func encodeU64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func decodeU64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
