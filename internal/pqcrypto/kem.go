package pqcrypto

import (
	"crypto/rand"

	"github.com/cloudflare/circl/kem/kyber/kyber1024"
)

// KEMTag names the key-encapsulation + symmetric-cipher combination bound
// to an Envelope.
const KEMTag = "Kyber1024+AES-256-GCM"

// EncryptionKeyPair holds a KEM public/secret key pair.
type EncryptionKeyPair struct {
	Public []byte
	Secret []byte
}

// GenerateEncryptionKeyPair creates a fresh Kyber1024 key pair.
func GenerateEncryptionKeyPair() (EncryptionKeyPair, error) {
	pub, sec, err := kyber1024.GenerateKeyPair(rand.Reader)
	if err != nil {
		return EncryptionKeyPair{}, errFormat("failed to generate encryption key pair: " + err.Error())
	}
	pubBytes := make([]byte, kyber1024.PublicKeySize)
	secBytes := make([]byte, kyber1024.PrivateKeySize)
	pub.Pack(pubBytes)
	sec.Pack(secBytes)
	return EncryptionKeyPair{Public: pubBytes, Secret: secBytes}, nil
}

// kemEncapsulate runs Kyber1024 encapsulation against a public key,
// returning the ciphertext to transmit and the shared secret to keep.
// Shared secret size is >= 32 bytes; ASCKeyFromSharedSecret takes the
// first 32.
func kemEncapsulate(public []byte) (ciphertext []byte, sharedSecret []byte, err error) {
	if len(public) != kyber1024.PublicKeySize {
		return nil, nil, errFormat("malformed KEM public key: wrong size")
	}
	var pk kyber1024.PublicKey
	pk.Unpack(public)

	ct := make([]byte, kyber1024.CiphertextSize)
	ss := make([]byte, kyber1024.SharedKeySize)
	pk.EncapsulateTo(ct, ss, nil)
	return ct, ss, nil
}

// kemDecapsulate recovers the shared secret from a ciphertext using a
// secret key.
func kemDecapsulate(secret []byte, ciphertext []byte) ([]byte, error) {
	if len(secret) != kyber1024.PrivateKeySize {
		return nil, errFormat("malformed KEM secret key: wrong size")
	}
	if len(ciphertext) != kyber1024.CiphertextSize {
		return nil, errFormat("KEM ciphertext has wrong size")
	}
	var sk kyber1024.PrivateKey
	sk.Unpack(secret)

	ss := make([]byte, kyber1024.SharedKeySize)
	sk.DecapsulateTo(ss, ciphertext)
	return ss, nil
}

// ASCKeyFromSharedSecret takes the first 32 bytes of a KEM shared secret
// as the AES-256-GCM key, per spec.md §3.
func ASCKeyFromSharedSecret(sharedSecret []byte) ([]byte, error) {
	if len(sharedSecret) < 32 {
		return nil, errFormat("shared secret shorter than 32 bytes")
	}
	key := make([]byte, 32)
	copy(key, sharedSecret[:32])
	return key, nil
}
