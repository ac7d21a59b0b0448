package pqcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
)

// ASCNonceSize is the 96-bit nonce CIRCL-adjacent AEAD constructions and
// crypto/cipher.NewGCM both standardize on.
const ASCNonceSize = 12

// ascEncrypt authenticated-encrypts plaintext under key with a freshly
// sampled nonce, returning nonce || ciphertext. AES-256-GCM is
// implemented via the standard library (crypto/aes + crypto/cipher): see
// DESIGN.md for why no third-party AEAD replaces it here.
func ascEncrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errFormat("invalid ASC key: " + err.Error())
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errFormat("failed to build AES-GCM: " + err.Error())
	}
	nonce := make([]byte, ASCNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errFormat("failed to sample nonce: " + err.Error())
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// ascDecrypt reverses ascEncrypt. Any tag mismatch is reported as
// DataTampered.
func ascDecrypt(key, nonceAndCiphertext []byte) ([]byte, error) {
	if len(nonceAndCiphertext) < ASCNonceSize {
		return nil, errFormat("ASC payload shorter than one nonce")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errFormat("invalid ASC key: " + err.Error())
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errFormat("failed to build AES-GCM: " + err.Error())
	}
	nonce := nonceAndCiphertext[:ASCNonceSize]
	ciphertext := nonceAndCiphertext[ASCNonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errTampered("AES-GCM authentication failed")
	}
	return plaintext, nil
}
