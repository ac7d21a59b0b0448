// Package certstore implements the certificate store of spec.md §4.4: an
// in-memory index of root, signing, and encryption certificates, its
// chain-verification algorithm, and a file-backed snapshot.
package certstore

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"milkyway/internal/codec"
	"milkyway/internal/pki"
)

// Store owns the root certificate (if installed), the signing and
// encryption certificate maps, and the file path used by Commit/Load.
//
// spec.md §4.5/§5 assign exclusive ownership of the store to one task
// (the certificate-service worker reached only through the binder
// fabric); Store itself additionally carries a mutex so a direct,
// non-binder embedding (as in tests, or a single-goroutine CLI command)
// stays safe without requiring every caller to route through a binder.
type Store struct {
	mu sync.Mutex

	root       *pki.RootCertificate
	signing    map[codec.Uint128]*pki.SigningCertificate
	encryption map[codec.Uint128]*pki.EncryptionCertificate
	path       string

	log zerolog.Logger
}

// New creates an empty store backed by the snapshot file at path (not
// read until Load is called).
func New(path string) *Store {
	return &Store{
		signing:    make(map[codec.Uint128]*pki.SigningCertificate),
		encryption: make(map[codec.Uint128]*pki.EncryptionCertificate),
		path:       path,
		log:        log.With().Str("component", "certstore").Logger(),
	}
}

// GetRoot returns the installed root certificate, or nil if none.
func (s *Store) GetRoot() *pki.RootCertificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// SetRootCertificate installs root unconditionally, replacing any
// previous root without invalidating existing leaves — the operator's
// responsibility per spec.md §4.4. Prefer ReplaceRoot for the safer,
// audited path.
func (s *Store) SetRootCertificate(root *pki.RootCertificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
	s.log.Info().Msg("root certificate installed")
}

// GetSigning returns the signing certificate stored at serial, or nil.
func (s *Store) GetSigning(serial codec.Uint128) *pki.SigningCertificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signing[serial]
}

// GetEncryption returns the encryption certificate stored at serial, or
// nil.
func (s *Store) GetEncryption(serial codec.Uint128) *pki.EncryptionCertificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encryption[serial]
}

// ListSigning returns every stored signing certificate, in no particular
// order.
func (s *Store) ListSigning() []*pki.SigningCertificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*pki.SigningCertificate, 0, len(s.signing))
	for _, c := range s.signing {
		out = append(out, c)
	}
	return out
}

// ListEncryption returns every stored encryption certificate.
func (s *Store) ListEncryption() []*pki.EncryptionCertificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*pki.EncryptionCertificate, 0, len(s.encryption))
	for _, c := range s.encryption {
		out = append(out, c)
	}
	return out
}

// RemoveSigning deletes the signing certificate at serial, if present.
func (s *Store) RemoveSigning(serial codec.Uint128) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.signing, serial)
}

// RemoveEncryption deletes the encryption certificate at serial, if
// present.
func (s *Store) RemoveEncryption(serial codec.Uint128) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.encryption, serial)
}

// serialCollides reports whether serial is already used by either map —
// no two stored certificates may share a serial, per spec.md §3.
func (s *Store) serialCollides(serial codec.Uint128) bool {
	if _, ok := s.signing[serial]; ok {
		return true
	}
	if _, ok := s.encryption[serial]; ok {
		return true
	}
	return false
}

// AddSigningCertificate validates and inserts cert, per spec.md §4.4.
// Rejects (returns false) if the signature is absent, verification
// fails, the serial is 0, or the serial collides with an existing entry.
func (s *Store) AddSigningCertificate(cert *pki.SigningCertificate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cert.Sig == nil {
		s.log.Warn().Str("name", cert.CertName).Msg("rejecting signing cert: signature absent")
		return false
	}
	if cert.SerialNum.IsZero() {
		s.log.Warn().Msg("rejecting signing cert: serial 0 reserved for root")
		return false
	}
	if s.serialCollides(cert.SerialNum) {
		s.log.Warn().Str("serial", cert.SerialNum.String()).Msg("rejecting signing cert: serial collision")
		return false
	}
	if !s.verifySigningCertificateLocked(cert) {
		s.log.Warn().Str("serial", cert.SerialNum.String()).Msg("rejecting signing cert: chain verification failed")
		return false
	}

	s.signing[cert.SerialNum] = cert
	s.log.Info().Str("serial", cert.SerialNum.String()).Str("name", cert.CertName).Msg("signing certificate added")
	return true
}

// AddEncryptionCertificate validates and inserts cert. Rejects if the
// signature is absent, the parent signing certificate is missing,
// verification fails, the serial is 0, or the serial collides.
func (s *Store) AddEncryptionCertificate(cert *pki.EncryptionCertificate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cert.Sig == nil {
		s.log.Warn().Str("name", cert.CertName).Msg("rejecting encryption cert: signature absent")
		return false
	}
	if cert.SerialNum.IsZero() {
		s.log.Warn().Msg("rejecting encryption cert: serial 0 reserved for root")
		return false
	}
	if s.serialCollides(cert.SerialNum) {
		s.log.Warn().Str("serial", cert.SerialNum.String()).Msg("rejecting encryption cert: serial collision")
		return false
	}
	parent, ok := s.signing[cert.ParentNum]
	if !ok {
		s.log.Warn().Str("serial", cert.SerialNum.String()).Msg("rejecting encryption cert: parent signing cert missing")
		return false
	}
	if !s.verifySigningCertificateLocked(parent) {
		s.log.Warn().Str("serial", cert.SerialNum.String()).Msg("rejecting encryption cert: parent chain invalid")
		return false
	}
	unsigned := cert.CloneStripSignatureAndSecret()
	ok2, err := pki.VerifyValue(parent, unsigned, *cert.Sig)
	if err != nil || !ok2 {
		s.log.Warn().Str("serial", cert.SerialNum.String()).Msg("rejecting encryption cert: signature invalid")
		return false
	}

	s.encryption[cert.SerialNum] = cert
	s.log.Info().Str("serial", cert.SerialNum.String()).Str("name", cert.CertName).Msg("encryption certificate added")
	return true
}
