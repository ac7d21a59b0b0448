package certstore

import "milkyway/internal/pki"

// VerifySigningCertificate walks cert's parent chain up to the root and
// checks every signature along the way, per spec.md §4.4.
//
// The lookup at each step uses the *parent's* serial
// (cur.ParentSerial()) to find the next certificate in the store. The
// MilkyWay original looked up by the current certificate's own serial
// instead — a bug spec.md §9 calls out explicitly and requires fixed;
// this is the corrected form.
func (s *Store) VerifySigningCertificate(cert *pki.SigningCertificate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifySigningCertificateLocked(cert)
}

func (s *Store) verifySigningCertificateLocked(cert *pki.SigningCertificate) bool {
	cur := cert
	// Cycle guard: a well-formed chain reaches the root in at most
	// len(signing)+1 hops, since each hop must land on a distinct
	// stored certificate.
	bound := len(s.signing) + 1

	for i := 0; i < bound; i++ {
		parentSerial := cur.ParentNum

		if parentSerial.IsZero() {
			if s.root == nil {
				return false
			}
			if cur.Sig == nil {
				return false
			}
			unsigned := cur.CloneStripSignatureAndSecret()
			ok, err := pki.VerifyValue(s.root, unsigned, *cur.Sig)
			return err == nil && ok
		}

		parent, ok := s.signing[parentSerial]
		if !ok {
			return false
		}
		if cur.Sig == nil {
			return false
		}
		unsigned := cur.CloneStripSignatureAndSecret()
		ok2, err := pki.VerifyValue(parent, unsigned, *cur.Sig)
		if err != nil || !ok2 {
			return false
		}
		cur = parent
	}

	// Bound exceeded without reaching the root: a cycle in parent
	// pointers.
	return false
}

// VerifyEncryptionCertificate checks that cert's parent signing
// certificate is stored and itself passes VerifySigningCertificate, then
// verifies cert's own signature under that parent.
func (s *Store) VerifyEncryptionCertificate(cert *pki.EncryptionCertificate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyEncryptionCertificateLocked(cert)
}

func (s *Store) verifyEncryptionCertificateLocked(cert *pki.EncryptionCertificate) bool {
	parent, ok := s.signing[cert.ParentNum]
	if !ok {
		return false
	}
	if !s.verifySigningCertificateLocked(parent) {
		return false
	}
	if cert.Sig == nil {
		return false
	}
	unsigned := cert.CloneStripSignatureAndSecret()
	ok2, err := pki.VerifyValue(parent, unsigned, *cert.Sig)
	return err == nil && ok2
}
