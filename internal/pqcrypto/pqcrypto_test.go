package pqcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	msg := []byte("hello milkyway")
	sig, err := Sign(kp.Secret, msg, HashNone)
	require.NoError(t, err)

	recovered, err := Open(kp.Public, sig)
	require.NoError(t, err)
	require.Equal(t, msg, recovered)
}

func TestTamperedSignatureFails(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	sig, err := Sign(kp.Secret, []byte("original"), HashNone)
	require.NoError(t, err)

	tampered := sig
	tampered.Message = append([]byte(nil), sig.Message...)
	tampered.Message[0] ^= 0xFF

	_, err = Open(kp.Public, tampered)
	require.Error(t, err)
	require.True(t, IsKind(err, DataTampered))
}

func TestWrongKeyFailsVerification(t *testing.T) {
	kp1, err := GenerateSigningKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateSigningKeyPair()
	require.NoError(t, err)

	sig, err := Sign(kp1.Secret, []byte("mine"), HashNone)
	require.NoError(t, err)

	_, err = Open(kp2.Public, sig)
	require.Error(t, err)
}

func TestSignatureEncodeDecodeRoundTrip(t *testing.T) {
	kp, err := GenerateSigningKeyPair()
	require.NoError(t, err)
	sig, err := Sign(kp.Secret, []byte("wire me"), HashNone)
	require.NoError(t, err)

	enc := sig.Encode()
	dec, n, err := DecodeSignature(enc)
	require.NoError(t, err)
	require.Equal(t, len(enc), n)
	require.Equal(t, sig, dec)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	kp, err := GenerateEncryptionKeyPair()
	require.NoError(t, err)

	plaintext := []byte{0x01, 0x02, 0x03}
	env, err := EncryptFor(kp.Public, plaintext)
	require.NoError(t, err)

	got, err := DecryptWith(kp.Secret, env)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestEnvelopeEncodeDecodeRoundTrip(t *testing.T) {
	kp, err := GenerateEncryptionKeyPair()
	require.NoError(t, err)
	env, err := EncryptFor(kp.Public, []byte("roundtrip me"))
	require.NoError(t, err)

	enc := env.Encode()
	dec, n, err := DecodeEnvelope(enc)
	require.NoError(t, err)
	require.Equal(t, len(enc), n)
	require.Equal(t, env, dec)
}

func TestTamperedCiphertextFailsDecrypt(t *testing.T) {
	kp, err := GenerateEncryptionKeyPair()
	require.NoError(t, err)
	env, err := EncryptFor(kp.Public, []byte("secret"))
	require.NoError(t, err)

	env.ASCCiphertext[0] ^= 0xFF
	_, err = DecryptWith(kp.Secret, env)
	require.Error(t, err)
	require.True(t, IsKind(err, DataTampered))
}
