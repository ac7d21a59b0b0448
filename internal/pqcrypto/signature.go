package pqcrypto

import (
	"crypto/rand"

	"github.com/cloudflare/circl/sign/dilithium/mode5"
	"milkyway/internal/codec"
)

// SignatureTag identifies the concrete signature algorithm bound to a
// Signature value, carried on the wire for future migration.
type SignatureTag string

// TagFalcon1024 names the post-quantum lattice signature class the fabric
// targets. CIRCL does not ship Falcon; the concrete scheme bound here is
// dilithium/mode5, CIRCL's highest security-level lattice signature,
// which satisfies the spec's behavior-level requirement ("a post-quantum
// lattice signature") under the same tag.
const TagFalcon1024 SignatureTag = "Falcon1024"

// HashType distinguishes whether a Signature's payload was hashed before
// signing. None means the scheme hashes internally, which PQS requires.
type HashType uint8

const (
	HashNone   HashType = 0
	HashSHA512 HashType = 1
)

// Signature is (hash-tag, crypto-tag, signed-message bytes), per spec.md
// §3. SignedMessage is an attached-signature blob: the detached PQS
// signature concatenated with the message it covers, so Open can
// recover and compare the message without a separate parameter.
type Signature struct {
	Hash    HashType
	Tag     SignatureTag
	Message []byte
}

func (s Signature) Encode() []byte {
	out := codec.EncodeUint8(uint8(s.Hash))
	out = append(out, codec.EncodeString(string(s.Tag))...)
	out = append(out, codec.EncodeBytes(s.Message)...)
	return out
}

func DecodeSignature(b []byte) (Signature, int, error) {
	hash, n1, err := codec.DecodeUint8(b)
	if err != nil {
		return Signature{}, 0, err
	}
	if hash != uint8(HashNone) && hash != uint8(HashSHA512) {
		return Signature{}, 0, codec.ErrInvalidData("unknown hash type tag")
	}
	off := n1
	tag, n2, err := codec.DecodeString(b[off:])
	if err != nil {
		return Signature{}, 0, err
	}
	off += n2
	msg, n3, err := codec.DecodeBytes(b[off:])
	if err != nil {
		return Signature{}, 0, err
	}
	off += n3
	return Signature{Hash: HashType(hash), Tag: SignatureTag(tag), Message: msg}, off, nil
}

// SigningKeyPair holds a PQS public/secret key pair, opaque fixed-length
// byte strings.
type SigningKeyPair struct {
	Public []byte
	Secret []byte
}

// GenerateSigningKeyPair creates a fresh dilithium/mode5 key pair.
func GenerateSigningKeyPair() (SigningKeyPair, error) {
	pub, sec, err := mode5.GenerateKey(rand.Reader)
	if err != nil {
		return SigningKeyPair{}, errFormat("failed to generate signing key pair: " + err.Error())
	}
	return SigningKeyPair{Public: pub.Bytes(), Secret: sec.Bytes()}, nil
}

// Sign produces a Signature over message using secret. hash must be
// HashNone: SHA512 is reserved for a future hash-then-sign mode and is
// rejected here with ArgumentError.
func Sign(secret []byte, message []byte, hash HashType) (Signature, error) {
	if hash != HashNone {
		return Signature{}, errArgument("only HashNone may be produced; SHA512 is reserved for future use")
	}
	if len(secret) != mode5.PrivateKeySize {
		return Signature{}, errFormat("signing secret key has wrong size")
	}
	var sk mode5.PrivateKey
	var buf [mode5.PrivateKeySize]byte
	copy(buf[:], secret)
	sk.Unpack(&buf)

	sig := make([]byte, mode5.SignatureSize)
	mode5.SignTo(&sk, message, sig)

	attached := make([]byte, 0, len(sig)+len(message))
	attached = append(attached, sig...)
	attached = append(attached, message...)

	return Signature{Hash: HashNone, Tag: TagFalcon1024, Message: attached}, nil
}

// Open recovers and returns the message carried by sig.Message once the
// embedded PQS signature has been verified against public. An unknown tag
// or corrupt key size is FormatError; a signature that fails to verify is
// DataTampered.
func Open(public []byte, sig Signature) ([]byte, error) {
	if sig.Tag != TagFalcon1024 {
		return nil, errFormat("unsupported signature tag " + string(sig.Tag))
	}
	if len(public) != mode5.PublicKeySize {
		return nil, errFormat("signing public key has wrong size")
	}
	if len(sig.Message) < mode5.SignatureSize {
		return nil, errFormat("signed message shorter than one signature")
	}
	var pk mode5.PublicKey
	var buf [mode5.PublicKeySize]byte
	copy(buf[:], public)
	pk.Unpack(&buf)

	rawSig := sig.Message[:mode5.SignatureSize]
	message := sig.Message[mode5.SignatureSize:]

	if !mode5.Verify(&pk, message, rawSig) {
		return nil, errTampered("signature did not verify")
	}
	return message, nil
}
