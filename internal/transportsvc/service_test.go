package transportsvc

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
)

// buildIdentity installs root into a fresh store, adds one signing cert
// (SIGN_CERTS|SIGN_MESSAGES) and one encryption cert under it, and returns
// a bound certsvc.Client plus the serials to present as this host's
// Identity.
func buildIdentity(t *testing.T, root *pki.RootCertificate, signSerial, encSerial uint64) (*certsvc.Client, Identity) {
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

	return svc.Bind(), Identity{
		EncryptionSerial: codec.U128FromUint64(encSerial),
		SigningSerial:    codec.U128FromUint64(signSerial),
	}
}

func TestHandshakeThenMessageDispatch(t *testing.T) {
	rootKP, err := pqcrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	root := &pki.RootCertificate{Public: rootKP.Public, Secret: rootKP.Secret, CertName: "root"}

	aCerts, aID := buildIdentity(t, root, 1, 2)
	bCerts, bID := buildIdentity(t, root, 3, 4)

	window := 5 * time.Second
	a := NewService(aCerts, aID, window)
	b := NewService(bCerts, bID, window)

	received := make(chan *message.Message, 1)
	b.Subscribe(Filter{}, func(peerID codec.Uint128, m *message.Message) {
		// The SetPeerID frame a sends when arming is dispatched here too.
		if m.MessageType == message.TypePing {
			received <- m
		}
	})

	go a.Listen("127.0.0.1:18372")
	time.Sleep(50 * time.Millisecond)

	_, err = b.Connect("127.0.0.1:18372")
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	a.mu.Lock()
	var aPeerID codec.Uint128
	for id := range a.peers {
		aPeerID = id
	}
	a.mu.Unlock()
	require.False(t, aPeerID.IsZero())

	ok := a.SendMessage(aPeerID, message.New().SetType(message.TypePing).SetCurrentTimestamp())
	require.True(t, ok)

	select {
	case got := <-received:
		require.Equal(t, message.TypePing, got.MessageType)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not dispatched to subscriber")
	}
}

func TestFilterMatches(t *testing.T) {
	src := codec.U128FromUint64(7)
	f := Filter{Source: &src}
	m := message.New().SetSource(codec.U128FromUint64(7))
	require.True(t, f.Matches(m))

	m2 := message.New().SetSource(codec.U128FromUint64(8))
	require.False(t, f.Matches(m2))
}
