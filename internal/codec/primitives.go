package codec

import "encoding/binary"

// EncodeUint8 and friends encode fixed-width little-endian integers. usize
// is carried as a 64-bit quantity throughout, per spec.

func EncodeUint8(v uint8) []byte { return []byte{v} }

func DecodeUint8(b []byte) (uint8, int, error) {
	if err := need(b, 1); err != nil {
		return 0, 0, err
	}
	return b[0], 1, nil
}

func EncodeUint16(v uint16) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

func DecodeUint16(b []byte) (uint16, int, error) {
	if err := need(b, 2); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint16(b), 2, nil
}

func EncodeUint32(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

func DecodeUint32(b []byte) (uint32, int, error) {
	if err := need(b, 4); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(b), 4, nil
}

func EncodeUint64(v uint64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, v)
	return out
}

func DecodeUint64(b []byte) (uint64, int, error) {
	if err := need(b, 8); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint64(b), 8, nil
}

// Usize is the 64-bit length/count prefix used for sequences and byte
// strings.
func EncodeUsize(v uint64) []byte { return EncodeUint64(v) }

func DecodeUsize(b []byte) (uint64, int, error) { return DecodeUint64(b) }

func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func DecodeBool(b []byte) (bool, int, error) {
	if err := need(b, 1); err != nil {
		return false, 0, err
	}
	if b[0] != 0 && b[0] != 1 {
		return false, 0, ErrInvalidData("boolean tag not 0 or 1")
	}
	return b[0] == 1, 1, nil
}

// EncodeBytes writes a usize length followed by the raw bytes.
func EncodeBytes(v []byte) []byte {
	out := make([]byte, 0, 8+len(v))
	out = append(out, EncodeUsize(uint64(len(v)))...)
	out = append(out, v...)
	return out
}

func DecodeBytes(b []byte) ([]byte, int, error) {
	n, consumed, err := DecodeUsize(b)
	if err != nil {
		return nil, 0, err
	}
	rest := b[consumed:]
	if err := need(rest, int(n)); err != nil {
		return nil, 0, err
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, consumed + int(n), nil
}

// EncodeString writes a usize byte-length followed by the UTF-8 bytes.
func EncodeString(v string) []byte {
	return EncodeBytes([]byte(v))
}

func DecodeString(b []byte) (string, int, error) {
	raw, consumed, err := DecodeBytes(b)
	if err != nil {
		return "", 0, err
	}
	return string(raw), consumed, nil
}
