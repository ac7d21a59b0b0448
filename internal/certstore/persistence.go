package certstore

import (
	"os"

	"milkyway/internal/codec"
	"milkyway/internal/pki"
)

// Commit serializes the whole store to <path>.tmp and atomically renames
// it to <path>, per spec.md §4.4. The source merely dumps its state; this
// is the "harden before productionisation" step spec.md §4.4 calls out as
// the implementer's job, following the teacher's writeFileAtomic pattern
// (write-then-rename, best-effort cleanup of the temp file on failure).
func (s *Store) Commit() error {
	s.mu.Lock()
	data := s.encodeLocked()
	path := s.path
	s.mu.Unlock()

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Load decodes the full snapshot at the store's path. If the file does
// not exist, the store remains empty (a fresh store's natural starting
// state).
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	root, signing, encryption, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
	s.signing = signing
	s.encryption = encryption
	return nil
}

// encodeLocked encodes (path, Option<root>, signing map, encryption map)
// per spec.md §6's snapshot layout. Must be called with s.mu held.
func (s *Store) encodeLocked() []byte {
	out := codec.EncodeString(s.path)
	out = append(out, encodeOptionRoot(s.root)...)
	out = append(out, encodeSigningMap(s.signing)...)
	out = append(out, encodeEncryptionMap(s.encryption)...)
	return out
}

func decodeSnapshot(b []byte) (*pki.RootCertificate, map[codec.Uint128]*pki.SigningCertificate, map[codec.Uint128]*pki.EncryptionCertificate, error) {
	// The path field is rewritten on load to match the load path, per
	// spec.md §6, so it is decoded only to advance the cursor.
	_, n1, err := codec.DecodeString(b)
	if err != nil {
		return nil, nil, nil, err
	}
	off := n1

	root, n2, err := decodeOptionRoot(b[off:])
	if err != nil {
		return nil, nil, nil, err
	}
	off += n2

	signing, n3, err := decodeSigningMap(b[off:])
	if err != nil {
		return nil, nil, nil, err
	}
	off += n3

	encryption, _, err := decodeEncryptionMap(b[off:])
	if err != nil {
		return nil, nil, nil, err
	}

	return root, signing, encryption, nil
}

func encodeOptionRoot(root *pki.RootCertificate) []byte {
	if root == nil {
		return []byte{0}
	}
	out := []byte{1}
	out = append(out, root.Encode()...)
	return out
}

func decodeOptionRoot(b []byte) (*pki.RootCertificate, int, error) {
	tag, n1, err := codec.DecodeUint8(b)
	if err != nil {
		return nil, 0, err
	}
	if tag == 0 {
		return nil, n1, nil
	}
	root, n2, err := pki.DecodeRootCertificate(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	return root, n1 + n2, nil
}

func encodeSigningMap(m map[codec.Uint128]*pki.SigningCertificate) []byte {
	entries := make([]codec.MapEntry[codec.Uint128, *pki.SigningCertificate], 0, len(m))
	for k, v := range m {
		entries = append(entries, codec.MapEntry[codec.Uint128, *pki.SigningCertificate]{Key: k, Value: v})
	}
	return codec.EncodeMap(entries, codec.EncodeUint128, func(c *pki.SigningCertificate) []byte { return c.Encode() })
}

func decodeSigningMap(b []byte) (map[codec.Uint128]*pki.SigningCertificate, int, error) {
	entries, n, err := codec.DecodeMap(b, codec.DecodeUint128, func(b []byte) (*pki.SigningCertificate, int, error) {
		return pki.DecodeSigningCertificate(b)
	})
	if err != nil {
		return nil, 0, err
	}
	out := make(map[codec.Uint128]*pki.SigningCertificate, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, n, nil
}

func encodeEncryptionMap(m map[codec.Uint128]*pki.EncryptionCertificate) []byte {
	entries := make([]codec.MapEntry[codec.Uint128, *pki.EncryptionCertificate], 0, len(m))
	for k, v := range m {
		entries = append(entries, codec.MapEntry[codec.Uint128, *pki.EncryptionCertificate]{Key: k, Value: v})
	}
	return codec.EncodeMap(entries, codec.EncodeUint128, func(c *pki.EncryptionCertificate) []byte { return c.Encode() })
}

func decodeEncryptionMap(b []byte) (map[codec.Uint128]*pki.EncryptionCertificate, int, error) {
	entries, n, err := codec.DecodeMap(b, codec.DecodeUint128, func(b []byte) (*pki.EncryptionCertificate, int, error) {
		return pki.DecodeEncryptionCertificate(b)
	})
	if err != nil {
		return nil, 0, err
	}
	out := make(map[codec.Uint128]*pki.EncryptionCertificate, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, n, nil
}
