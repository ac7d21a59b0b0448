// Package auth implements the authorization controller of spec.md §4.6:
// building, signing, and checking the handshake message two peers exchange
// before the record layer is armed.
package auth

import (
	"errors"
	"time"

	"milkyway/internal/certsvc"
	"milkyway/internal/codec"
	"milkyway/internal/pki"
	"milkyway/internal/pqcrypto"
)

// ErrBrokenChain is returned by Generate when walking a signing
// certificate's ancestry hits a missing parent before reaching the root.
var ErrBrokenChain = errors.New("auth: signing certificate chain is broken")

// ErrNotFound is returned by Generate when the requested local certificate
// serial does not exist, or names the reserved root serial.
var ErrNotFound = errors.New("auth: certificate not found")

// ErrArgument is returned when a certificate lacks the flag its role in
// the handshake requires.
var ErrArgument = errors.New("auth: certificate missing required flag")

// ErrCheckFailed is returned by Check for any step of the verification
// procedure that fails; spec.md §4.6 treats the whole check as a single
// pass/fail gate, not a field-by-field diagnostic.
var ErrCheckFailed = errors.New("auth: handshake message failed verification")

// Message is the AuthorizationMessage of spec.md §3/§6: the first wire
// unit a peer sends after connecting, bundling its encryption and signing
// certificates, an optional supporting chain, a timestamp, and a
// signature over the whole message with that signature field cleared.
type Message struct {
	EncryptionCertificate *pki.EncryptionCertificate
	SigningCertificate    *pki.SigningCertificate
	SigningChain          []*pki.SigningCertificate
	Timestamp             codec.Uint128
	Sig                   *pqcrypto.Signature
}

// AsSignable returns a copy of m with Sig cleared, the form the message is
// signed and verified in.
func (m *Message) AsSignable() *Message {
	clone := *m
	clone.Sig = nil
	return &clone
}

func (m *Message) Encode() []byte {
	out := encodeOptionEncryption(m.EncryptionCertificate)
	out = append(out, encodeOptionSigning(m.SigningCertificate)...)
	out = append(out, encodeSigningChain(m.SigningChain)...)
	out = append(out, codec.EncodeUint128(m.Timestamp)...)
	out = append(out, encodeOptionSignature(m.Sig)...)
	return out
}

func DecodeMessage(b []byte) (*Message, int, error) {
	encCert, n1, err := decodeOptionEncryption(b)
	if err != nil {
		return nil, 0, err
	}
	off := n1

	signCert, n2, err := decodeOptionSigning(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n2

	chain, n3, err := decodeSigningChain(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n3

	ts, n4, err := codec.DecodeUint128(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n4

	sig, n5, err := decodeOptionSignature(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n5

	return &Message{
		EncryptionCertificate: encCert,
		SigningCertificate:    signCert,
		SigningChain:          chain,
		Timestamp:             ts,
		Sig:                   sig,
	}, off, nil
}

// Generate assembles and signs an outgoing Message per spec.md §4.6: look
// up the local encryption cert at serialEnc (must exist, must not be the
// root serial), optionally walk the signing chain up from serialSign to
// (but not through) the root, look up the signing cert at serialSign
// (must carry SIGN_MESSAGES), then sign the cleared form.
func Generate(store *certsvc.Client, serialEnc, serialSign codec.Uint128, fullChain bool) (*Message, error) {
	encCert := store.GetEncryption(serialEnc)
	if encCert == nil || serialEnc.IsZero() {
		return nil, ErrNotFound
	}

	signCert := store.GetSigning(serialSign)
	if signCert == nil {
		return nil, ErrNotFound
	}
	if !signCert.CheckFlag(pki.FlagSignMessages) {
		return nil, ErrArgument
	}

	var chain []*pki.SigningCertificate
	if fullChain {
		var err error
		chain, err = walkChain(store, serialSign)
		if err != nil {
			return nil, err
		}
	}

	msg := &Message{
		EncryptionCertificate: encCert.CloneStripSecret(),
		SigningCertificate:    signCert.CloneStripSecret(),
		SigningChain:          chain,
		Timestamp:             codec.U128FromUint64(uint64(time.Now().UnixMilli())),
	}

	unsigned := msg.AsSignable()
	sig, err := pqcrypto.Sign(signCert.SecretKey(), unsigned.Encode(), pqcrypto.HashNone)
	if err != nil {
		return nil, err
	}
	msg.Sig = &sig
	return msg, nil
}

// walkChain returns the ancestry of the signing certificate at serial,
// ordered root-adjacent first and leaf-adjacent (serial itself) last, with
// secrets stripped. It stops once a certificate's parent is the root
// serial (0); a missing parent before then is ErrBrokenChain.
func walkChain(store *certsvc.Client, serial codec.Uint128) ([]*pki.SigningCertificate, error) {
	var reversed []*pki.SigningCertificate
	cur := serial
	for {
		cert := store.GetSigning(cur)
		if cert == nil {
			return nil, ErrBrokenChain
		}
		reversed = append(reversed, cert.CloneStripSecret())
		if cert.ParentNum.IsZero() {
			break
		}
		cur = cert.ParentNum
	}

	chain := make([]*pki.SigningCertificate, len(reversed))
	for i, c := range reversed {
		chain[len(reversed)-1-i] = c
	}
	return chain, nil
}

// Check implements spec.md §4.6's check(): install msg's signing chain,
// verify its signing certificate's stored chain, verify the message's own
// signature, verify and install the encryption certificate. On success it
// returns the now-trusted (signing, encryption) pair; freshness is the
// transport layer's responsibility (IsFresh), enforced before Check is
// ever called.
func Check(store *certsvc.Client, msg *Message) (*pki.SigningCertificate, *pki.EncryptionCertificate, error) {
	if msg.SigningCertificate == nil || msg.Sig == nil {
		return nil, nil, ErrCheckFailed
	}
	if !msg.SigningCertificate.CheckFlag(pki.FlagSignMessages) {
		return nil, nil, ErrCheckFailed
	}

	for _, cert := range msg.SigningChain {
		if !cert.CheckFlag(pki.FlagSignCerts) {
			return nil, nil, ErrCheckFailed
		}
		if !store.AddSigningCertificate(cert) {
			return nil, nil, ErrCheckFailed
		}
	}

	if !store.VerifySigningCertificate(msg.SigningCertificate) {
		return nil, nil, ErrCheckFailed
	}

	ok, err := pki.VerifyValue(msg.SigningCertificate, msg.AsSignable(), *msg.Sig)
	if err != nil || !ok {
		return nil, nil, ErrCheckFailed
	}

	if msg.EncryptionCertificate == nil {
		return nil, nil, ErrCheckFailed
	}
	if !store.VerifyEncryptionCertificate(msg.EncryptionCertificate) {
		return nil, nil, ErrCheckFailed
	}
	if !store.AddEncryptionCertificate(msg.EncryptionCertificate) {
		return nil, nil, ErrCheckFailed
	}

	return msg.SigningCertificate, msg.EncryptionCertificate, nil
}

// IsFresh reports whether ts falls within window of now, the symmetric
// freshness check spec.md §9 requires both handshake sides perform (the
// original only enforced it on the responding side).
func IsFresh(ts codec.Uint128, now time.Time, window time.Duration) bool {
	nowMs := uint64(now.UnixMilli())
	tsMs := ts.Lo // timestamps fit in 64 bits until the year 292471208, per Uint128's Lo/Hi split
	windowMs := uint64(window.Milliseconds())

	var low, high uint64
	if nowMs > windowMs {
		low = nowMs - windowMs
	}
	high = nowMs + windowMs
	return tsMs >= low && tsMs <= high
}

func encodeOptionEncryption(c *pki.EncryptionCertificate) []byte {
	if c == nil {
		return []byte{0}
	}
	return append([]byte{1}, c.Encode()...)
}

func decodeOptionEncryption(b []byte) (*pki.EncryptionCertificate, int, error) {
	tag, n1, err := codec.DecodeUint8(b)
	if err != nil {
		return nil, 0, err
	}
	if tag == 0 {
		return nil, n1, nil
	}
	c, n2, err := pki.DecodeEncryptionCertificate(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	return c, n1 + n2, nil
}

func encodeOptionSigning(c *pki.SigningCertificate) []byte {
	if c == nil {
		return []byte{0}
	}
	return append([]byte{1}, c.Encode()...)
}

func decodeOptionSigning(b []byte) (*pki.SigningCertificate, int, error) {
	tag, n1, err := codec.DecodeUint8(b)
	if err != nil {
		return nil, 0, err
	}
	if tag == 0 {
		return nil, n1, nil
	}
	c, n2, err := pki.DecodeSigningCertificate(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	return c, n1 + n2, nil
}

// encodeSigningChain/decodeSigningChain encode signing_chain as
// Option<Sequence<SigningCertificate>>, per spec.md §3's "optional". A nil
// slice (fullchain=false) is absent; any non-nil slice, including empty,
// is present.
func encodeSigningChain(chain []*pki.SigningCertificate) []byte {
	if chain == nil {
		return []byte{0}
	}
	out := []byte{1}
	out = append(out, codec.EncodeUsize(uint64(len(chain)))...)
	for _, c := range chain {
		out = append(out, c.Encode()...)
	}
	return out
}

func decodeSigningChain(b []byte) ([]*pki.SigningCertificate, int, error) {
	tag, n0, err := codec.DecodeUint8(b)
	if err != nil {
		return nil, 0, err
	}
	if tag == 0 {
		return nil, n0, nil
	}
	off := n0
	n, n1, err := codec.DecodeUsize(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n1
	chain := make([]*pki.SigningCertificate, 0, n)
	for i := uint64(0); i < n; i++ {
		c, consumed, err := pki.DecodeSigningCertificate(b[off:])
		if err != nil {
			return nil, 0, err
		}
		chain = append(chain, c)
		off += consumed
	}
	return chain, off, nil
}

func encodeOptionSignature(s *pqcrypto.Signature) []byte {
	if s == nil {
		return []byte{0}
	}
	return append([]byte{1}, s.Encode()...)
}

func decodeOptionSignature(b []byte) (*pqcrypto.Signature, int, error) {
	tag, n1, err := codec.DecodeUint8(b)
	if err != nil {
		return nil, 0, err
	}
	if tag == 0 {
		return nil, n1, nil
	}
	sig, n2, err := pqcrypto.DecodeSignature(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	return &sig, n1 + n2, nil
}
