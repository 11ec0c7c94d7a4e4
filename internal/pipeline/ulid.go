package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: 48 bits of millisecond timestamp and 80 random bits,
// Crockford Base32 encoded into 26 characters, so they sort by creation time.
// A sequence number in the first random bytes keeps IDs created within the
// same millisecond ordered.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewJobID returns a new, time-ordered job identifier.
func NewJobID() string {
	return newULID(time.Now())
}

func newULID(now time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(now.UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(ts>>32))
	binary.BigEndian.PutUint32(b[2:6], uint32(ts))
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], lastSeq)
	return encodeULID(b)
}

// encodeULID writes the 128 bits as 26 five-bit groups, most significant
// first. The first group only carries the top 3 bits.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])
	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
