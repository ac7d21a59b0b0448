package ping

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"milkyway/internal/certstore"
	"milkyway/internal/certsvc"
	"milkyway/internal/codec"
	"milkyway/internal/message"
	"milkyway/internal/pki"
	"milkyway/internal/pqcrypto"
	"milkyway/internal/transportsvc"
)

func buildIdentity(t *testing.T, root *pki.RootCertificate, signSerial, encSerial uint64) (*certsvc.Client, transportsvc.Identity) {
	t.Helper()
	store := certstore.New(filepath.Join(t.TempDir(), "store.bin"))
	store.SetRootCertificate(root)

	signKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	s := &pki.SigningCertificate{
		SerialNum: codec.U128FromUint64(signSerial),
		Public:    signKP.Public, Secret: signKP.Secret,
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
		SerialNum: codec.U128FromUint64(encSerial),
		ParentNum: codec.U128FromUint64(signSerial),
		Public:    encKP.Public, Secret: encKP.Secret,
	}
	eUnsigned := e.CloneStripSignatureAndSecret()
	eSig, err := pki.SignValue(s, eUnsigned, pqcrypto.HashNone)
	require.NoError(t, err)
	e.Sig = &eSig
	require.True(t, store.AddEncryptionCertificate(e))

	svc := certsvc.NewService(store, 8)
	t.Cleanup(svc.Shutdown)

	return svc.Bind(), transportsvc.Identity{
		EncryptionSerial: codec.U128FromUint64(encSerial),
		SigningSerial:    codec.U128FromUint64(signSerial),
	}
}

func TestPingModuleAnswersWithPong(t *testing.T) {
	rootKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	root := &pki.RootCertificate{Public: rootKP.Public, Secret: rootKP.Secret, CertName: "root"}

	aCerts, aID := buildIdentity(t, root, 1, 2)
	bCerts, bID := buildIdentity(t, root, 3, 4)

	window := 5 * time.Second
	a := transportsvc.NewService(aCerts, aID, window)
	b := transportsvc.NewService(bCerts, bID, window)
	Register(a)

	received := make(chan *message.Message, 1)
	b.Subscribe(transportsvc.Filter{}, func(peerID codec.Uint128, m *message.Message) {
		if m.MessageType == message.TypePong {
			received <- m
		}
	})

	go a.Listen("127.0.0.1:18472")
	time.Sleep(50 * time.Millisecond)
	bPeerID, err := b.Connect("127.0.0.1:18472")
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	require.False(t, bPeerID.IsZero())

	require.True(t, b.SendMessage(bPeerID, message.New().SetType(message.TypePing).SetCurrentTimestamp()))

	select {
	case got := <-received:
		require.Equal(t, message.TypePong, got.MessageType)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive pong")
	}
}
