package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	u8 := EncodeUint8(0xAB)
	v8, n, err := DecodeUint8(u8)
	require.NoError(t, err)
	require.Equal(t, uint8(0xAB), v8)
	require.Equal(t, len(u8), n)

	u64 := EncodeUint64(0x0102030405060708)
	v64, n, err := DecodeUint64(u64)
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), v64)
	require.Equal(t, len(u64), n)

	u128 := EncodeUint128(Uint128{Lo: 42, Hi: 7})
	v128, n, err := DecodeUint128(u128)
	require.NoError(t, err)
	require.Equal(t, Uint128{Lo: 42, Hi: 7}, v128)
	require.Equal(t, len(u128), n)

	for _, b := range []bool{true, false} {
		enc := EncodeBool(b)
		dec, n, err := DecodeBool(enc)
		require.NoError(t, err)
		require.Equal(t, b, dec)
		require.Equal(t, 1, n)
	}
}

func TestBytesAndStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "a longer certificate name with spaces"} {
		enc := EncodeString(s)
		dec, n, err := DecodeString(enc)
		require.NoError(t, err)
		require.Equal(t, s, dec)
		require.Equal(t, len(enc), n)
	}

	raw := []byte{0x01, 0x02, 0x03}
	enc := EncodeBytes(raw)
	dec, n, err := DecodeBytes(enc)
	require.NoError(t, err)
	require.Equal(t, raw, dec)
	require.Equal(t, len(enc), n)
}

func TestOptionRoundTrip(t *testing.T) {
	var absent *uint32
	enc := EncodeOption(absent, EncodeUint32)
	dec, n, err := DecodeOption(enc, DecodeUint32)
	require.NoError(t, err)
	require.Nil(t, dec)
	require.Equal(t, 1, n)

	v := uint32(99)
	enc = EncodeOption(&v, EncodeUint32)
	dec, n, err = DecodeOption(enc, DecodeUint32)
	require.NoError(t, err)
	require.NotNil(t, dec)
	require.Equal(t, v, *dec)
	require.Equal(t, len(enc), n)
}

func TestSliceRoundTrip(t *testing.T) {
	items := []uint16{1, 2, 3, 65535}
	enc := EncodeSlice(items, EncodeUint16)
	dec, n, err := DecodeSlice(enc, DecodeUint16)
	require.NoError(t, err)
	require.Equal(t, items, dec)
	require.Equal(t, len(enc), n)
}

func TestMapRoundTripDeterministic(t *testing.T) {
	entries := []MapEntry[uint32, string]{
		{Key: 3, Value: "c"},
		{Key: 1, Value: "a"},
		{Key: 2, Value: "b"},
	}
	enc1 := EncodeMap(entries, EncodeUint32, EncodeString)

	shuffled := []MapEntry[uint32, string]{
		{Key: 2, Value: "b"},
		{Key: 3, Value: "c"},
		{Key: 1, Value: "a"},
	}
	enc2 := EncodeMap(shuffled, EncodeUint32, EncodeString)
	require.Equal(t, enc1, enc2, "map encoding must be deterministic regardless of input order")

	dec, n, err := DecodeMap(enc1, DecodeUint32, DecodeString)
	require.NoError(t, err)
	require.Equal(t, len(enc1), n)
	require.Equal(t, []MapEntry[uint32, string]{
		{Key: 1, Value: "a"},
		{Key: 2, Value: "b"},
		{Key: 3, Value: "c"},
	}, dec)
}

func TestMapLengthMismatchFails(t *testing.T) {
	keys := EncodeSlice([]uint32{1, 2}, EncodeUint32)
	values := EncodeSlice([]string{"only-one"}, EncodeString)
	malformed := append(keys, values...)

	_, _, err := DecodeMap(malformed, DecodeUint32, DecodeString)
	require.Error(t, err)
}

func TestTruncatedBufferFails(t *testing.T) {
	enc := EncodeUint64(123456)
	for i := 0; i < len(enc); i++ {
		_, _, err := DecodeUint64(enc[:i])
		require.Error(t, err)
	}

	strEnc := EncodeString("truncate me")
	for i := 0; i < len(strEnc); i++ {
		_, _, err := DecodeString(strEnc[:i])
		require.Error(t, err)
	}
}
