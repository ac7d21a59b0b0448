package certstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"milkyway/internal/codec"
	"milkyway/internal/pki"
	"milkyway/internal/pqcrypto"
)

func newTestRoot(t *testing.T) (*pki.RootCertificate, pqcrypto.SigningKeyPair) {
	t.Helper()
	kp, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	return &pki.RootCertificate{Public: kp.Public, Secret: kp.Secret, CertName: "root"}, kp
}

func signChild(t *testing.T, signer pki.Certificate, child *pki.SigningCertificate) {
	t.Helper()
	unsigned := child.CloneStripSignatureAndSecret()
	sig, err := pki.SignValue(signer, unsigned, pqcrypto.HashNone)
	require.NoError(t, err)
	child.Sig = &sig
}

func signEncChild(t *testing.T, signer pki.Certificate, child *pki.EncryptionCertificate) {
	t.Helper()
	unsigned := child.CloneStripSignatureAndSecret()
	sig, err := pki.SignValue(signer, unsigned, pqcrypto.HashNone)
	require.NoError(t, err)
	child.Sig = &sig
}

func TestTwoLevelChain(t *testing.T) {
	root, _ := newTestRoot(t)
	store := New(filepath.Join(t.TempDir(), "store.bin"))
	store.SetRootCertificate(root)

	signKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	s1 := &pki.SigningCertificate{
		SerialNum: codec.U128FromUint64(1),
		ParentNum: codec.U128FromUint64(0),
		Public:    signKP.Public,
		Secret:    signKP.Secret,
		CertName:  "s1",
		FlagBits:  pki.FlagSignMessages.Or(pki.FlagSignCerts),
	}
	signChild(t, root, s1)

	require.True(t, store.AddSigningCertificate(s1))
	require.True(t, store.VerifySigningCertificate(store.GetSigning(codec.U128FromUint64(1))))
	require.False(t, store.AddSigningCertificate(s1), "adding the same serial twice must be rejected")
}

func TestEncryptionCertificateEncryptDecrypt(t *testing.T) {
	root, _ := newTestRoot(t)
	store := New(filepath.Join(t.TempDir(), "store.bin"))
	store.SetRootCertificate(root)

	signKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	s1 := &pki.SigningCertificate{
		SerialNum: codec.U128FromUint64(1),
		Public:    signKP.Public, Secret: signKP.Secret, CertName: "s1",
		FlagBits: pki.FlagSignMessages.Or(pki.FlagSignCerts),
	}
	signChild(t, root, s1)
	require.True(t, store.AddSigningCertificate(s1))

	encKP, err := pqcrypto.GenerateEncryptionKeyPair()
	require.NoError(t, err)
	e1 := &pki.EncryptionCertificate{
		SerialNum: codec.U128FromUint64(2),
		ParentNum: codec.U128FromUint64(1),
		Public:    encKP.Public, Secret: encKP.Secret, CertName: "e1",
	}
	signEncChild(t, s1, e1)
	require.True(t, store.AddEncryptionCertificate(e1))
	require.True(t, store.VerifyEncryptionCertificate(e1))

	plaintext := plainBytes([]byte{0x01, 0x02, 0x03})
	ct, err := pki.EncryptValue(e1, plaintext)
	require.NoError(t, err)
	got, err := pki.DecryptValue(e1, ct, codec.DecodeBytes)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, got)
}

func TestChainLookupUsesParentSerialNotOwnSerial(t *testing.T) {
	// Regression for the bug spec.md §9 requires fixed: a three-level
	// chain where the middle cert's own serial does NOT equal its
	// parent's serial must still verify by following ParentSerial().
	root, _ := newTestRoot(t)
	store := New(filepath.Join(t.TempDir(), "store.bin"))
	store.SetRootCertificate(root)

	midKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	mid := &pki.SigningCertificate{SerialNum: codec.U128FromUint64(42), ParentNum: codec.U128FromUint64(0), Public: midKP.Public, Secret: midKP.Secret, FlagBits: pki.FlagSignCerts}
	signChild(t, root, mid)
	require.True(t, store.AddSigningCertificate(mid))

	leafKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	leaf := &pki.SigningCertificate{SerialNum: codec.U128FromUint64(7), ParentNum: codec.U128FromUint64(42), Public: leafKP.Public, Secret: leafKP.Secret, FlagBits: pki.FlagSignMessages}
	signChild(t, mid, leaf)
	require.True(t, store.AddSigningCertificate(leaf))

	require.True(t, store.VerifySigningCertificate(store.GetSigning(codec.U128FromUint64(7))))
}

func TestCycleDetectionTerminates(t *testing.T) {
	root, _ := newTestRoot(t)
	store := New(filepath.Join(t.TempDir(), "store.bin"))
	store.SetRootCertificate(root)

	kpA, _ := pqcrypto.GenerateSigningKeyPair()
	kpB, _ := pqcrypto.GenerateSigningKeyPair()
	a := &pki.SigningCertificate{SerialNum: codec.U128FromUint64(1), ParentNum: codec.U128FromUint64(2), Public: kpA.Public, Secret: kpA.Secret}
	b := &pki.SigningCertificate{SerialNum: codec.U128FromUint64(2), ParentNum: codec.U128FromUint64(1), Public: kpB.Public, Secret: kpB.Secret}

	// Sign each other to produce a structurally-valid-looking but
	// cyclic pair; bypass AddSigningCertificate (which would itself
	// reject one of them) by inserting directly for this test.
	signChild(t, b, a)
	signChild(t, a, b)
	store.signing[a.SerialNum] = a
	store.signing[b.SerialNum] = b

	require.False(t, store.VerifySigningCertificate(a))
}

func TestCommitLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.bin")

	root, _ := newTestRoot(t)
	store := New(path)
	store.SetRootCertificate(root)

	signKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	s1 := &pki.SigningCertificate{SerialNum: codec.U128FromUint64(1), Public: signKP.Public, Secret: signKP.Secret, CertName: "s1", FlagBits: pki.FlagSignCerts}
	signChild(t, root, s1)
	require.True(t, store.AddSigningCertificate(s1))

	require.NoError(t, store.Commit())
	_, err = os.Stat(path)
	require.NoError(t, err)

	loaded := New(path)
	require.NoError(t, loaded.Load())
	require.Equal(t, store.GetRoot().Public, loaded.GetRoot().Public)
	require.True(t, loaded.VerifySigningCertificate(loaded.GetSigning(codec.U128FromUint64(1))))
}

func TestLoadMissingFileLeavesStoreEmpty(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	require.NoError(t, store.Load())
	require.Nil(t, store.GetRoot())
}

func TestReplaceRootRefusesWithLeavesUnlessForced(t *testing.T) {
	root, _ := newTestRoot(t)
	store := New(filepath.Join(t.TempDir(), "store.bin"))
	store.SetRootCertificate(root)

	signKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	s1 := &pki.SigningCertificate{SerialNum: codec.U128FromUint64(1), Public: signKP.Public, Secret: signKP.Secret, FlagBits: pki.FlagSignCerts}
	signChild(t, root, s1)
	require.True(t, store.AddSigningCertificate(s1))

	newRoot, _ := newTestRoot(t)
	err = store.ReplaceRoot(newRoot, false)
	require.ErrorIs(t, err, ErrLeavesPresent)

	err = store.ReplaceRoot(newRoot, true)
	require.Error(t, err, "forced replacement must report the now-invalid leaf")
	require.False(t, store.VerifySigningCertificate(store.GetSigning(codec.U128FromUint64(1))))
}

// plainBytes adapts a []byte to codec.Encodable for tests.
type plainBytes []byte

func (p plainBytes) Encode() []byte { return codec.EncodeBytes(p) }
