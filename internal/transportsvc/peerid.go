package transportsvc

import (
	"sync/atomic"

	"milkyway/internal/codec"
)

// peerIDFlag is the high bit (bit 127) spec.md §4.8 reserves to
// distinguish peers from brokers in an assigned ID's Hi half.
const peerIDFlag = uint64(1) << 63

// peerIDCounter hands out monotonically increasing 128-bit peer IDs, never
// reused within a process lifetime. Go has no atomic 128-bit primitive, so
// the low 64 bits are the atomic counter; IDs are unique for the lifetime
// of any realistic process (2^64 assignments) without needing to carry
// into Hi.
type peerIDCounter struct {
	next uint64
}

// Next returns the next peer ID, with the reserved high bit set.
func (c *peerIDCounter) Next() codec.Uint128 {
	v := atomic.AddUint64(&c.next, 1)
	return codec.Uint128{Lo: v, Hi: peerIDFlag}
}
