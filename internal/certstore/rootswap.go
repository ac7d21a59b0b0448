package certstore

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"milkyway/internal/pki"
)

// ErrLeavesPresent is returned by ReplaceRoot when leaves exist and force
// was not set.
var ErrLeavesPresent = fmt.Errorf("certstore: cannot replace root while leaf certificates are present without force")

// ReplaceRoot resolves spec.md §9's root-replacement Open Question: a
// silent, unaudited swap (SetRootCertificate) is too dangerous to be the
// only option once leaves exist. ReplaceRoot refuses the swap when any
// signing or encryption certificate is installed, unless force is set; if
// forced, it installs the new root and returns a *multierror.Error
// reporting (but not removing) every leaf whose chain no longer verifies
// under it, so the operator can act on a complete picture rather than
// one failure at a time.
func (s *Store) ReplaceRoot(root *pki.RootCertificate, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasLeaves := len(s.signing) > 0 || len(s.encryption) > 0
	if hasLeaves && !force {
		return ErrLeavesPresent
	}

	s.root = root

	if !hasLeaves {
		return nil
	}

	var result *multierror.Error
	for serial, cert := range s.signing {
		if !s.verifySigningCertificateLocked(cert) {
			result = multierror.Append(result, fmt.Errorf("signing certificate %s (%s) no longer verifies under new root", serial, cert.CertName))
		}
	}
	for serial, cert := range s.encryption {
		if !s.verifyEncryptionCertificateLocked(cert) {
			result = multierror.Append(result, fmt.Errorf("encryption certificate %s (%s) no longer verifies under new root", serial, cert.CertName))
		}
	}
	return result.ErrorOrNil()
}
