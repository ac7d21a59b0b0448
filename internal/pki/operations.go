package pki

import (
	"milkyway/internal/codec"
	"milkyway/internal/pqcrypto"
)

// SignValue implements spec.md §4.2's sign_data: encode value, then
// PQS-sign with cert's secret key. Only a SigningCertificate or
// RootCertificate with a secret key may sign; an EncryptionCertificate,
// or any certificate missing its secret key, fails ArgumentError.
func SignValue(cert Certificate, value codec.Encodable, hash pqcrypto.HashType) (pqcrypto.Signature, error) {
	if cert.Type() == CertTypeEncryption {
		return pqcrypto.Signature{}, &ArgumentError{Reason: "encryption certificates cannot sign"}
	}
	secret := cert.SecretKey()
	if len(secret) == 0 {
		return pqcrypto.Signature{}, &ArgumentError{Reason: "certificate has no secret key"}
	}
	return pqcrypto.Sign(secret, value.Encode(), hash)
}

// VerifyValue implements spec.md §4.2's verify_signature: encode value,
// PQS-open under cert's public key, compare recovered bytes. An
// EncryptionCertificate cannot verify and returns ArgumentError.
func VerifyValue(cert Certificate, value codec.Encodable, sig pqcrypto.Signature) (bool, error) {
	if cert.Type() == CertTypeEncryption {
		return false, &ArgumentError{Reason: "encryption certificates cannot verify"}
	}
	recovered, err := pqcrypto.Open(cert.PublicKey(), sig)
	if err != nil {
		return false, nil
	}
	expected := value.Encode()
	if len(recovered) != len(expected) {
		return false, nil
	}
	for i := range expected {
		if recovered[i] != expected[i] {
			return false, nil
		}
	}
	return true, nil
}

// EncryptValue implements spec.md §4.3's encrypt<T>: encode v, then
// KEM-encapsulate + ASC-encrypt under cert's public key, returning the
// encoded ciphertext envelope. Only an EncryptionCertificate may encrypt.
func EncryptValue(cert Certificate, v codec.Encodable) ([]byte, error) {
	if cert.Type() != CertTypeEncryption {
		return nil, &ArgumentError{Reason: "only encryption certificates may encrypt"}
	}
	env, err := pqcrypto.EncryptFor(cert.PublicKey(), v.Encode())
	if err != nil {
		return nil, err
	}
	return env.Encode(), nil
}

// DecryptValue implements spec.md §4.3's decrypt<T>: decode the envelope,
// KEM-decapsulate + ASC-decrypt under cert's secret key, then decode the
// recovered plaintext as T via dec.
func DecryptValue[T any](cert Certificate, data []byte, dec codec.DecodeFunc[T]) (T, error) {
	var zero T
	if cert.Type() != CertTypeEncryption {
		return zero, &ArgumentError{Reason: "only encryption certificates may decrypt"}
	}
	if len(cert.SecretKey()) == 0 {
		return zero, &ArgumentError{Reason: "certificate has no secret key"}
	}
	env, _, err := pqcrypto.DecodeEnvelope(data)
	if err != nil {
		return zero, err
	}
	plaintext, err := pqcrypto.DecryptWith(cert.SecretKey(), env)
	if err != nil {
		return zero, err
	}
	v, _, err := dec(plaintext)
	if err != nil {
		return zero, err
	}
	return v, nil
}
