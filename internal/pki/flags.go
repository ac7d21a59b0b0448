package pki

import "milkyway/internal/codec"

// Flags is the u128 bitfield carried by every certificate, per spec.md
// §3. It wraps codec.Uint128 so the same bitwise helpers used for wire
// values serve flag arithmetic.
type Flags struct {
	codec.Uint128
}

func flag(bit uint) Flags {
	if bit < 64 {
		return Flags{codec.Uint128{Lo: 1 << bit}}
	}
	return Flags{codec.Uint128{Hi: 1 << (bit - 64)}}
}

// Exact bit values per spec.md §3.
var (
	FlagRoot         = flag(0)
	FlagUser         = flag(1)
	FlagServer       = flag(2)
	FlagClient       = flag(3)
	FlagSignCerts    = flag(4)
	FlagSignMessages = flag(5)
	FlagNoWrite      = flag(6)
	FlagNoRead       = flag(7)
)

// RootFlags is the fixed flag set every root certificate carries; it can
// never be altered.
var RootFlags = FlagRoot.Or(FlagNoRead).Or(FlagNoWrite).Or(FlagSignCerts)

// Or returns the bitwise OR of f and other.
func (f Flags) Or(other Flags) Flags {
	return Flags{f.Uint128.Or(other.Uint128)}
}

// AndNot clears every bit set in other from f.
func (f Flags) AndNot(other Flags) Flags {
	return Flags{f.Uint128.AndNot(other.Uint128)}
}

// Has reports whether every bit of mask is set in f.
func (f Flags) Has(mask Flags) bool {
	return f.Uint128.And(mask.Uint128).Equal(mask.Uint128) && !mask.Uint128.IsZero()
}

func (f Flags) Encode() []byte {
	return codec.EncodeUint128(f.Uint128)
}

// ValidForEncryption reports whether f is a legal flag set for an
// EncryptionCertificate: spec.md §3 forbids SignCerts and SignMessages on
// encryption certs.
func (f Flags) ValidForEncryption() bool {
	return !f.Has(FlagSignCerts) && !f.Has(FlagSignMessages)
}

var flagNames = []struct {
	bit  Flags
	name string
}{
	{FlagRoot, "ROOT"},
	{FlagUser, "USER"},
	{FlagServer, "SERVER"},
	{FlagClient, "CLIENT"},
	{FlagSignCerts, "SIGN_CERTS"},
	{FlagSignMessages, "SIGN_MESSAGES"},
	{FlagNoWrite, "NO_WRITE"},
	{FlagNoRead, "NO_READ"},
}

// String renders f as a "|"-joined list of its set flag names, in bit
// order, for the CLI's cert list table. An all-zero Flags renders "-".
func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.bit) {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += "|" + n
	}
	return out
}

func DecodeFlags(b []byte) (Flags, int, error) {
	v, n, err := codec.DecodeUint128(b)
	if err != nil {
		return Flags{}, 0, err
	}
	return Flags{v}, n, nil
}
