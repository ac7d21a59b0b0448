// Package pki implements the two-certificate (signing + encryption) chain
// model of spec.md §3-§4.3: algorithm-neutral certificate types, their
// deterministic encoding, and the sign/verify/encrypt/decrypt operations
// a certificate's role permits.
package pki

import (
	"milkyway/internal/codec"
	"milkyway/internal/pqcrypto"
)

// CertType tags which of the three certificate variants a value is.
type CertType uint8

const (
	CertTypeRootSigning CertType = iota
	CertTypeSigning
	CertTypeEncryption
)

func (t CertType) String() string {
	switch t {
	case CertTypeRootSigning:
		return "RootSigning"
	case CertTypeSigning:
		return "Signing"
	case CertTypeEncryption:
		return "Encryption"
	default:
		return "Unknown"
	}
}

// ArgumentError reports that an operation was attempted on a certificate
// whose role does not permit it (e.g. signing with an encryption
// certificate).
type ArgumentError struct{ Reason string }

func (e *ArgumentError) Error() string { return "pki: argument error: " + e.Reason }

// Certificate is the read-only, role-agnostic view spec.md §4.3 exposes
// over all three variants.
type Certificate interface {
	Type() CertType
	Serial() codec.Uint128
	// ParentSerial returns (parent, true), or (zero, false) for a root,
	// which has no parent.
	ParentSerial() (codec.Uint128, bool)
	PublicKey() []byte
	SecretKey() []byte
	Signature() *pqcrypto.Signature
	Name() string
	Flags() Flags
	CheckFlag(f Flags) bool
}

// SigningCertificate signs messages and/or other certificates, per
// spec.md §3.
type SigningCertificate struct {
	SerialNum    codec.Uint128
	ParentNum    codec.Uint128
	Public       []byte
	Secret       []byte // nil if stripped/absent
	Sig          *pqcrypto.Signature
	CertName     string
	FlagBits     Flags
}

func (c *SigningCertificate) Type() CertType                      { return CertTypeSigning }
func (c *SigningCertificate) Serial() codec.Uint128                { return c.SerialNum }
func (c *SigningCertificate) ParentSerial() (codec.Uint128, bool)  { return c.ParentNum, true }
func (c *SigningCertificate) PublicKey() []byte                    { return c.Public }
func (c *SigningCertificate) SecretKey() []byte                    { return c.Secret }
func (c *SigningCertificate) Signature() *pqcrypto.Signature        { return c.Sig }
func (c *SigningCertificate) Name() string                          { return c.CertName }
func (c *SigningCertificate) Flags() Flags                          { return c.FlagBits }
func (c *SigningCertificate) CheckFlag(f Flags) bool                { return c.FlagBits.Has(f) }

// SetFlag, UnsetFlag mutate a leaf certificate's flag bitfield; there is
// no such operation on a root (its flags are fixed).
func (c *SigningCertificate) SetFlag(f Flags)   { c.FlagBits = c.FlagBits.Or(f) }
func (c *SigningCertificate) UnsetFlag(f Flags) { c.FlagBits = c.FlagBits.AndNot(f) }

// CloneStripSecret returns a copy with SecretKey cleared.
func (c *SigningCertificate) CloneStripSecret() *SigningCertificate {
	clone := *c
	clone.Secret = nil
	return &clone
}

// CloneStripSignature returns a copy with Signature cleared.
func (c *SigningCertificate) CloneStripSignature() *SigningCertificate {
	clone := *c
	clone.Sig = nil
	return &clone
}

// CloneStripSignatureAndSecret returns a copy with both Signature and
// SecretKey cleared — the form a certificate is signed in and exported
// in.
func (c *SigningCertificate) CloneStripSignatureAndSecret() *SigningCertificate {
	clone := *c
	clone.Sig = nil
	clone.Secret = nil
	return &clone
}

func (c *SigningCertificate) Encode() []byte {
	out := codec.EncodeUint128(c.SerialNum)
	out = append(out, codec.EncodeUint128(c.ParentNum)...)
	out = append(out, codec.EncodeBytes(c.Public)...)
	out = append(out, codec.EncodeOption(optBytes(c.Secret), codec.EncodeBytes)...)
	out = append(out, encodeOptionSignature(c.Sig)...)
	out = append(out, codec.EncodeString(c.CertName)...)
	out = append(out, c.FlagBits.Encode()...)
	return out
}

func DecodeSigningCertificate(b []byte) (*SigningCertificate, int, error) {
	serial, n1, err := codec.DecodeUint128(b)
	if err != nil {
		return nil, 0, err
	}
	off := n1
	parent, n2, err := codec.DecodeUint128(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n2
	pub, n3, err := codec.DecodeBytes(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n3
	secret, n4, err := codec.DecodeOption(b[off:], codec.DecodeBytes)
	if err != nil {
		return nil, 0, err
	}
	off += n4
	sig, n5, err := decodeOptionSignature(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n5
	name, n6, err := codec.DecodeString(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n6
	flags, n7, err := DecodeFlags(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n7

	return &SigningCertificate{
		SerialNum: serial,
		ParentNum: parent,
		Public:    pub,
		Secret:    derefBytes(secret),
		Sig:       sig,
		CertName:  name,
		FlagBits:  flags,
	}, off, nil
}

// EncryptionCertificate holds a KEM keypair and must never carry
// SignCerts/SignMessages bits, per spec.md §3's invariants.
type EncryptionCertificate struct {
	SerialNum codec.Uint128
	ParentNum codec.Uint128
	Public    []byte
	Secret    []byte
	Sig       *pqcrypto.Signature
	CertName  string
	FlagBits  Flags
}

func (c *EncryptionCertificate) Type() CertType                     { return CertTypeEncryption }
func (c *EncryptionCertificate) Serial() codec.Uint128               { return c.SerialNum }
func (c *EncryptionCertificate) ParentSerial() (codec.Uint128, bool) { return c.ParentNum, true }
func (c *EncryptionCertificate) PublicKey() []byte                   { return c.Public }
func (c *EncryptionCertificate) SecretKey() []byte                   { return c.Secret }
func (c *EncryptionCertificate) Signature() *pqcrypto.Signature       { return c.Sig }
func (c *EncryptionCertificate) Name() string                         { return c.CertName }
func (c *EncryptionCertificate) Flags() Flags                         { return c.FlagBits }
func (c *EncryptionCertificate) CheckFlag(f Flags) bool               { return c.FlagBits.Has(f) }

func (c *EncryptionCertificate) SetFlag(f Flags) {
	c.FlagBits = c.FlagBits.Or(f)
}
func (c *EncryptionCertificate) UnsetFlag(f Flags) { c.FlagBits = c.FlagBits.AndNot(f) }

func (c *EncryptionCertificate) CloneStripSecret() *EncryptionCertificate {
	clone := *c
	clone.Secret = nil
	return &clone
}

func (c *EncryptionCertificate) CloneStripSignature() *EncryptionCertificate {
	clone := *c
	clone.Sig = nil
	return &clone
}

func (c *EncryptionCertificate) CloneStripSignatureAndSecret() *EncryptionCertificate {
	clone := *c
	clone.Sig = nil
	clone.Secret = nil
	return &clone
}

func (c *EncryptionCertificate) Encode() []byte {
	out := codec.EncodeUint128(c.SerialNum)
	out = append(out, codec.EncodeUint128(c.ParentNum)...)
	out = append(out, codec.EncodeBytes(c.Public)...)
	out = append(out, codec.EncodeOption(optBytes(c.Secret), codec.EncodeBytes)...)
	out = append(out, encodeOptionSignature(c.Sig)...)
	out = append(out, codec.EncodeString(c.CertName)...)
	out = append(out, c.FlagBits.Encode()...)
	return out
}

func DecodeEncryptionCertificate(b []byte) (*EncryptionCertificate, int, error) {
	sc, n, err := DecodeSigningCertificate(b)
	if err != nil {
		return nil, 0, err
	}
	return &EncryptionCertificate{
		SerialNum: sc.SerialNum,
		ParentNum: sc.ParentNum,
		Public:    sc.Public,
		Secret:    sc.Secret,
		Sig:       sc.Sig,
		CertName:  sc.CertName,
		FlagBits:  sc.FlagBits,
	}, n, nil
}

// RootCertificate is the trust anchor: implicit serial 0, no parent, no
// outer signature, fixed flags.
type RootCertificate struct {
	Public   []byte
	Secret   []byte
	CertName string
}

func (c *RootCertificate) Type() CertType                     { return CertTypeRootSigning }
func (c *RootCertificate) Serial() codec.Uint128               { return codec.U128FromUint64(0) }
func (c *RootCertificate) ParentSerial() (codec.Uint128, bool) { return codec.Uint128{}, false }
func (c *RootCertificate) PublicKey() []byte                   { return c.Public }
func (c *RootCertificate) SecretKey() []byte                   { return c.Secret }
func (c *RootCertificate) Signature() *pqcrypto.Signature       { return nil }
func (c *RootCertificate) Name() string                         { return c.CertName }
func (c *RootCertificate) Flags() Flags                         { return RootFlags }
func (c *RootCertificate) CheckFlag(f Flags) bool               { return RootFlags.Has(f) }

func (c *RootCertificate) CloneStripSecret() *RootCertificate {
	clone := *c
	clone.Secret = nil
	return &clone
}

func (c *RootCertificate) Encode() []byte {
	out := codec.EncodeBytes(c.Public)
	out = append(out, codec.EncodeOption(optBytes(c.Secret), codec.EncodeBytes)...)
	out = append(out, codec.EncodeString(c.CertName)...)
	return out
}

func DecodeRootCertificate(b []byte) (*RootCertificate, int, error) {
	pub, n1, err := codec.DecodeBytes(b)
	if err != nil {
		return nil, 0, err
	}
	off := n1
	secret, n2, err := codec.DecodeOption(b[off:], codec.DecodeBytes)
	if err != nil {
		return nil, 0, err
	}
	off += n2
	name, n3, err := codec.DecodeString(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n3
	return &RootCertificate{Public: pub, Secret: derefBytes(secret), CertName: name}, off, nil
}

func optBytes(b []byte) *[]byte {
	if b == nil {
		return nil
	}
	return &b
}

func derefBytes(b *[]byte) []byte {
	if b == nil {
		return nil
	}
	return *b
}

func encodeOptionSignature(s *pqcrypto.Signature) []byte {
	if s == nil {
		return []byte{0}
	}
	out := []byte{1}
	out = append(out, s.Encode()...)
	return out
}

func decodeOptionSignature(b []byte) (*pqcrypto.Signature, int, error) {
	tag, n1, err := codec.DecodeUint8(b)
	if err != nil {
		return nil, 0, err
	}
	switch tag {
	case 0:
		return nil, n1, nil
	case 1:
		sig, n2, err := pqcrypto.DecodeSignature(b[n1:])
		if err != nil {
			return nil, 0, err
		}
		return &sig, n1 + n2, nil
	default:
		return nil, 0, codec.ErrInvalidData("option tag not 0 or 1")
	}
}
