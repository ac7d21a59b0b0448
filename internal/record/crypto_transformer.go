package record

import (
	"milkyway/internal/codec"
	"milkyway/internal/pki"
	"milkyway/internal/pqcrypto"
)

// CryptoTransformer is the encrypt-then-sign transformer of spec.md §4.7,
// the only transformer the present core installs. It holds the four keys
// a session needs after a successful handshake: the local party's own
// signing and encryption certificates (with secrets, to sign outgoing
// frames and decrypt incoming ones), and the remote party's signing and
// encryption certificates (public only, to verify incoming frames and
// encrypt outgoing ones).
type CryptoTransformer struct {
	LocalSigning    *pki.SigningCertificate
	LocalEncryption *pki.EncryptionCertificate
	RemoteSigning   *pki.SigningCertificate
	RemoteEncryption *pki.EncryptionCertificate
}

// Transform KEM+ASC-encrypts data under the remote encryption certificate,
// PQS-signs the resulting ciphertext with the local signing certificate,
// and encodes the (signature, ciphertext) product. This cannot fail with
// valid, well-formed certificates.
func (c *CryptoTransformer) Transform(data []byte) []byte {
	env, err := pqcrypto.EncryptFor(c.RemoteEncryption.PublicKey(), data)
	if err != nil {
		panic("record: encrypt-then-sign transform failed with valid certificates: " + err.Error())
	}
	ct := env.Encode()

	sig, err := pqcrypto.Sign(c.LocalSigning.SecretKey(), ct, pqcrypto.HashNone)
	if err != nil {
		panic("record: sign failed with valid certificate: " + err.Error())
	}

	out := sig.Encode()
	out = append(out, codec.EncodeBytes(ct)...)
	return out
}

// Detransform decodes the (signature, ciphertext) product, verifies the
// signature under the remote signing certificate, then KEM+ASC-decrypts
// the ciphertext under the local encryption certificate.
func (c *CryptoTransformer) Detransform(data []byte) ([]byte, error) {
	sig, n1, err := pqcrypto.DecodeSignature(data)
	if err != nil {
		return nil, ErrCryptoTransform
	}
	ct, _, err := codec.DecodeBytes(data[n1:])
	if err != nil {
		return nil, ErrCryptoTransform
	}

	ok, err := pki.VerifyValue(c.RemoteSigning, plainBytes(ct), sig)
	if err != nil || !ok {
		return nil, ErrCryptoTransform
	}

	env, _, err := pqcrypto.DecodeEnvelope(ct)
	if err != nil {
		return nil, ErrCryptoTransform
	}
	plaintext, err := pqcrypto.DecryptWith(c.LocalEncryption.SecretKey(), env)
	if err != nil {
		return nil, ErrCryptoTransform
	}
	return plaintext, nil
}

// plainBytes adapts a raw []byte to codec.Encodable so pki.VerifyValue can
// compare it against the signature's recovered message.
type plainBytes []byte

func (p plainBytes) Encode() []byte { return p }
