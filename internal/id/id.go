package id

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/oklog/ulid/v2"
)

// ForTrade returns a ULID string for the seq-th trade of symbol opened at entry.
//
// The timestamp half is the entry time and the entropy half is a hash of
// symbol and seq, so the same bars and signals always give the same IDs.
func ForTrade(symbol string, entry time.Time, seq int) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seq))

	h := sha256.New()
	h.Write([]byte(symbol))
	h.Write(buf[:])
	sum := h.Sum(nil)

	var ms uint64
	if entry.Unix() >= 0 {
		ms = ulid.Timestamp(entry.UTC())
	}

	id, err := ulid.New(ms, bytes.NewReader(sum))
	if err != nil {
		// Only reachable for timestamps past year 10889.
		id, _ = ulid.New(0, bytes.NewReader(sum))
	}
	return id.String()
}
