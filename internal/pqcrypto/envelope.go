package pqcrypto

import "milkyway/internal/codec"

// Envelope is a ciphertext envelope: (KEM encapsulation bytes, ASC nonce,
// ASC ciphertext), per spec.md §3. Nonce and ciphertext are kept as
// separate fields on the wire even though ascEncrypt returns them
// concatenated, to match the product-type layout spec.md specifies.
type Envelope struct {
	KEMCiphertext []byte
	Nonce         []byte
	ASCCiphertext []byte
}

func (e Envelope) Encode() []byte {
	out := codec.EncodeBytes(e.KEMCiphertext)
	out = append(out, codec.EncodeBytes(e.Nonce)...)
	out = append(out, codec.EncodeBytes(e.ASCCiphertext)...)
	return out
}

func DecodeEnvelope(b []byte) (Envelope, int, error) {
	kemCT, n1, err := codec.DecodeBytes(b)
	if err != nil {
		return Envelope{}, 0, err
	}
	off := n1
	nonce, n2, err := codec.DecodeBytes(b[off:])
	if err != nil {
		return Envelope{}, 0, err
	}
	off += n2
	ascCT, n3, err := codec.DecodeBytes(b[off:])
	if err != nil {
		return Envelope{}, 0, err
	}
	off += n3
	return Envelope{KEMCiphertext: kemCT, Nonce: nonce, ASCCiphertext: ascCT}, off, nil
}

// EncryptFor encrypts plaintext for the holder of the KEM public key
// kemPublic: KEM-encapsulate to derive a shared secret, then
// AES-256-GCM-encrypt plaintext under its first 32 bytes.
func EncryptFor(kemPublic []byte, plaintext []byte) (Envelope, error) {
	ct, shared, err := kemEncapsulate(kemPublic)
	if err != nil {
		return Envelope{}, err
	}
	key, err := ASCKeyFromSharedSecret(shared)
	if err != nil {
		return Envelope{}, err
	}
	nonceAndCiphertext, err := ascEncrypt(key, plaintext)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		KEMCiphertext: ct,
		Nonce:         nonceAndCiphertext[:ASCNonceSize],
		ASCCiphertext: nonceAndCiphertext[ASCNonceSize:],
	}, nil
}

// DecryptWith decrypts an Envelope using the matching KEM secret key.
func DecryptWith(kemSecret []byte, env Envelope) ([]byte, error) {
	shared, err := kemDecapsulate(kemSecret, env.KEMCiphertext)
	if err != nil {
		return nil, err
	}
	key, err := ASCKeyFromSharedSecret(shared)
	if err != nil {
		return nil, err
	}
	nonceAndCiphertext := make([]byte, 0, len(env.Nonce)+len(env.ASCCiphertext))
	nonceAndCiphertext = append(nonceAndCiphertext, env.Nonce...)
	nonceAndCiphertext = append(nonceAndCiphertext, env.ASCCiphertext...)
	return ascDecrypt(key, nonceAndCiphertext)
}
