package codec

import "sort"

// DecodeFunc decodes one value of T from the front of b, returning the
// value and the number of bytes consumed.
type DecodeFunc[T any] func(b []byte) (T, int, error)

// EncodeFunc encodes one value of T.
type EncodeFunc[T any] func(v T) []byte

// EncodeOption writes the one-byte presence tag followed by the encoded
// value when present.
func EncodeOption[T any](v *T, enc EncodeFunc[T]) []byte {
	if v == nil {
		return []byte{0}
	}
	out := []byte{1}
	out = append(out, enc(*v)...)
	return out
}

// DecodeOption reads a one-byte presence tag and, if set, the value.
func DecodeOption[T any](b []byte, dec DecodeFunc[T]) (*T, int, error) {
	tag, consumed, err := DecodeUint8(b)
	if err != nil {
		return nil, 0, err
	}
	switch tag {
	case 0:
		return nil, consumed, nil
	case 1:
		v, n, err := dec(b[consumed:])
		if err != nil {
			return nil, 0, err
		}
		return &v, consumed + n, nil
	default:
		return nil, 0, ErrInvalidData("option tag not 0 or 1")
	}
}

// EncodeSlice writes a usize length followed by the concatenated
// encodings of each element, in order.
func EncodeSlice[T any](items []T, enc EncodeFunc[T]) []byte {
	out := EncodeUsize(uint64(len(items)))
	for _, it := range items {
		out = append(out, enc(it)...)
	}
	return out
}

// DecodeSlice reads a usize length then that many elements.
func DecodeSlice[T any](b []byte, dec DecodeFunc[T]) ([]T, int, error) {
	n, consumed, err := DecodeUsize(b)
	if err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, n)
	off := consumed
	for i := uint64(0); i < n; i++ {
		v, used, err := dec(b[off:])
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
		off += used
	}
	return items, off, nil
}

// MapEntry is one key/value pair of a decoded Map, preserving decode
// order (ascending by encoded key, since EncodeMap sorts for
// determinism).
type MapEntry[K any, V any] struct {
	Key   K
	Value V
}

// EncodeMap writes the encoded sequence of keys followed by the encoded
// sequence of values, both in the same (deterministic) key order: keys
// are sorted by their own encoding so that two calls over the same
// logical map always produce identical bytes.
func EncodeMap[K any, V any](entries []MapEntry[K, V], kenc EncodeFunc[K], venc EncodeFunc[V]) []byte {
	sorted := make([]MapEntry[K, V], len(entries))
	copy(sorted, entries)
	keyBytes := make([][]byte, len(sorted))
	for i, e := range sorted {
		keyBytes[i] = kenc(e.Key)
	}
	idx := make([]int, len(sorted))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return lessBytes(keyBytes[idx[i]], keyBytes[idx[j]])
	})

	keys := make([]K, len(sorted))
	values := make([]V, len(sorted))
	for pos, i := range idx {
		keys[pos] = sorted[i].Key
		values[pos] = sorted[i].Value
	}

	out := EncodeSlice(keys, kenc)
	out = append(out, EncodeSlice(values, venc)...)
	return out
}

// DecodeMap reads the key sequence then the value sequence, failing with
// InvalidData if their lengths differ.
func DecodeMap[K any, V any](b []byte, kdec DecodeFunc[K], vdec DecodeFunc[V]) ([]MapEntry[K, V], int, error) {
	keys, consumed, err := DecodeSlice(b, kdec)
	if err != nil {
		return nil, 0, err
	}
	values, used, err := DecodeSlice(b[consumed:], vdec)
	if err != nil {
		return nil, 0, err
	}
	if len(keys) != len(values) {
		return nil, 0, ErrInvalidData("map key/value sequence length mismatch")
	}
	entries := make([]MapEntry[K, V], len(keys))
	for i := range keys {
		entries[i] = MapEntry[K, V]{Key: keys[i], Value: values[i]}
	}
	return entries, consumed + used, nil
}

func lessBytes(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
