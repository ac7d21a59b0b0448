package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"milkyway/internal/certstore"
	"milkyway/internal/certsvc"
	"milkyway/internal/codec"
	"milkyway/internal/pki"
	"milkyway/internal/pqcrypto"
)

// hostWithLeaf builds a certsvc.Client backed by a fresh store containing
// root R, a signing cert S (serial 1, SIGN_CERTS|SIGN_MESSAGES), and an
// encryption cert E (serial 2, parent S), mirroring spec.md's handshake
// scenario (host A has R, S_a serial 1, E_a serial 2).
func hostWithLeaf(t *testing.T) (*certsvc.Client, *pki.RootCertificate) {
	t.Helper()
	rootKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	root := &pki.RootCertificate{Public: rootKP.Public, Secret: rootKP.Secret, CertName: "root"}

	store := certstore.New(filepath.Join(t.TempDir(), "store.bin"))
	store.SetRootCertificate(root)

	signKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	s := &pki.SigningCertificate{
		SerialNum: codec.U128FromUint64(1),
		Public:    signKP.Public, Secret: signKP.Secret, CertName: "s",
		FlagBits: pki.FlagSignCerts.Or(pki.FlagSignMessages),
	}
	unsigned := s.CloneStripSignatureAndSecret()
	sig, err := pki.SignValue(root, unsigned, pqcrypto.HashNone)
	require.NoError(t, err)
	s.Sig = &sig
	require.True(t, store.AddSigningCertificate(s))

	encKP, err := pqcrypto.GenerateEncryptionKeyPair()
	require.NoError(t, err)
	e := &pki.EncryptionCertificate{
		SerialNum: codec.U128FromUint64(2),
		ParentNum: codec.U128FromUint64(1),
		Public:    encKP.Public, Secret: encKP.Secret, CertName: "e",
	}
	eUnsigned := e.CloneStripSignatureAndSecret()
	eSig, err := pki.SignValue(s, eUnsigned, pqcrypto.HashNone)
	require.NoError(t, err)
	e.Sig = &eSig
	require.True(t, store.AddEncryptionCertificate(e))

	svc := certsvc.NewService(store, 8)
	t.Cleanup(svc.Shutdown)
	return svc.Bind(), root
}

func TestGenerateThenCheckInstallsChainAndReturnsPair(t *testing.T) {
	a, root := hostWithLeaf(t)

	msg, err := Generate(a, codec.U128FromUint64(2), codec.U128FromUint64(1), true)
	require.NoError(t, err)
	require.Len(t, msg.SigningChain, 1)
	require.Equal(t, codec.U128FromUint64(1), msg.SigningChain[0].SerialNum)

	bStore := certstore.New(filepath.Join(t.TempDir(), "store.bin"))
	bStore.SetRootCertificate(root)
	bSvc := certsvc.NewService(bStore, 8)
	defer bSvc.Shutdown()
	b := bSvc.Bind()

	signCert, encCert, err := Check(b, msg)
	require.NoError(t, err)
	require.NotNil(t, signCert)
	require.NotNil(t, encCert)

	require.NotNil(t, b.GetSigning(codec.U128FromUint64(1)))
	require.NotNil(t, b.GetEncryption(codec.U128FromUint64(2)))
}

func TestGenerateRejectsSerialZero(t *testing.T) {
	a, _ := hostWithLeaf(t)
	_, err := Generate(a, codec.U128FromUint64(0), codec.U128FromUint64(1), false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateRejectsSigningCertWithoutSignMessagesFlag(t *testing.T) {
	a, root := hostWithLeaf(t)

	// Add a second signing cert that can only sign other certs.
	signKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	s2 := &pki.SigningCertificate{
		SerialNum: codec.U128FromUint64(3),
		Public:    signKP.Public, Secret: signKP.Secret, CertName: "s2",
		FlagBits: pki.FlagSignCerts,
	}
	unsigned := s2.CloneStripSignatureAndSecret()
	sig, err := pki.SignValue(root, unsigned, pqcrypto.HashNone)
	require.NoError(t, err)
	s2.Sig = &sig
	require.True(t, a.AddSigningCertificate(s2))

	_, err = Generate(a, codec.U128FromUint64(2), codec.U128FromUint64(3), false)
	require.ErrorIs(t, err, ErrArgument)
}

func TestCheckRejectsTamperedSignature(t *testing.T) {
	a, root := hostWithLeaf(t)
	msg, err := Generate(a, codec.U128FromUint64(2), codec.U128FromUint64(1), true)
	require.NoError(t, err)

	tampered := *msg.Sig
	tampered.Message = append([]byte(nil), tampered.Message...)
	tampered.Message[0] ^= 0xFF
	msg.Sig = &tampered

	bStore := certstore.New(filepath.Join(t.TempDir(), "store.bin"))
	bStore.SetRootCertificate(root)
	bSvc := certsvc.NewService(bStore, 8)
	defer bSvc.Shutdown()
	b := bSvc.Bind()

	_, _, err = Check(b, msg)
	require.ErrorIs(t, err, ErrCheckFailed)
}

func TestIsFreshWithinAndOutsideWindow(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	window := 1000 * time.Millisecond

	fresh := codec.U128FromUint64(uint64(now.UnixMilli()))
	require.True(t, IsFresh(fresh, now, window))

	stale := codec.U128FromUint64(uint64(now.Add(-2 * time.Second).UnixMilli()))
	require.False(t, IsFresh(stale, now, window))
}
