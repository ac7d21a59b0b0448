package codec

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Uint128 is a fixed-width 128-bit unsigned integer, used on the wire for
// certificate serials, timestamps, message/peer IDs, and flag bitfields.
// Go has no native u128, so it is carried as two u64 halves.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

// U128FromUint64 lifts a u64 into a Uint128.
func U128FromUint64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// IsZero reports whether the value is exactly zero (the reserved root
// serial).
func (u Uint128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

// Equal reports bitwise equality.
func (u Uint128) Equal(other Uint128) bool {
	return u.Lo == other.Lo && u.Hi == other.Hi
}

// Cmp returns -1, 0, or 1 comparing u to other as unsigned 128-bit
// integers.
func (u Uint128) Cmp(other Uint128) int {
	if u.Hi != other.Hi {
		if u.Hi < other.Hi {
			return -1
		}
		return 1
	}
	if u.Lo != other.Lo {
		if u.Lo < other.Lo {
			return -1
		}
		return 1
	}
	return 0
}

// And returns the bitwise AND of u and mask, used for flag-bit checks.
func (u Uint128) And(mask Uint128) Uint128 {
	return Uint128{Lo: u.Lo & mask.Lo, Hi: u.Hi & mask.Hi}
}

// Or returns the bitwise OR of u and other, used to set flag bits.
func (u Uint128) Or(other Uint128) Uint128 {
	return Uint128{Lo: u.Lo | other.Lo, Hi: u.Hi | other.Hi}
}

// AndNot returns u with every bit set in other cleared.
func (u Uint128) AndNot(other Uint128) Uint128 {
	return Uint128{Lo: u.Lo &^ other.Lo, Hi: u.Hi &^ other.Hi}
}

// HasAny reports whether any bit of the AND of u and mask is set.
func (u Uint128) HasAny(mask Uint128) bool {
	return !u.And(mask).IsZero()
}

// Big returns u as a *big.Int, useful for formatting and test assertions.
func (u Uint128) Big() *big.Int {
	hi := new(big.Int).SetUint64(u.Hi)
	hi.Lsh(hi, 64)
	return hi.Or(hi, new(big.Int).SetUint64(u.Lo))
}

// String renders u as a lowercase hex string, zero-padded to at least one
// digit, matching the teacher's FormatSerial convention for certificate
// serials.
func (u Uint128) String() string {
	return fmt.Sprintf("%x", u.Big())
}

// EncodeUint128 writes u as 16 little-endian bytes (low half first).
func EncodeUint128(u Uint128) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:8], u.Lo)
	binary.LittleEndian.PutUint64(out[8:16], u.Hi)
	return out
}

// DecodeUint128 reads a Uint128 from b, returning the value and the number
// of bytes consumed (always 16 on success).
func DecodeUint128(b []byte) (Uint128, int, error) {
	if err := need(b, 16); err != nil {
		return Uint128{}, 0, err
	}
	return Uint128{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}, 16, nil
}
