// Package pqcrypto wraps the three cryptographic primitives the fabric is
// built on: a post-quantum signature scheme (PQS), a post-quantum key
// encapsulation mechanism (KEM), and an authenticated symmetric cipher
// (ASC). Every primitive is algorithm-tagged so records carry their
// algorithm identifier for future migration, per spec.md §4.2.
package pqcrypto

import "fmt"

// CryptoErrorKind distinguishes the three ways a cryptographic operation
// can fail, per spec.md §7.
type CryptoErrorKind int

const (
	// DataTampered means authenticated decryption failed or an outer
	// signature did not verify.
	DataTampered CryptoErrorKind = iota
	// FormatError means a ciphertext envelope was structurally wrong.
	FormatError
	// ArgumentError means the operation is disallowed for this
	// certificate's role (e.g. signing with an encryption key).
	ArgumentError
)

func (k CryptoErrorKind) String() string {
	switch k {
	case DataTampered:
		return "DataTampered"
	case FormatError:
		return "FormatError"
	case ArgumentError:
		return "ArgumentError"
	default:
		return "Unknown"
	}
}

// CryptoError is the error type returned by every pqcrypto operation that
// can fail for cryptographic reasons.
type CryptoError struct {
	Kind   CryptoErrorKind
	Reason string
}

func (e *CryptoError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("pqcrypto: %s", e.Kind)
	}
	return fmt.Sprintf("pqcrypto: %s: %s", e.Kind, e.Reason)
}

func errTampered(reason string) error { return &CryptoError{Kind: DataTampered, Reason: reason} }
func errFormat(reason string) error   { return &CryptoError{Kind: FormatError, Reason: reason} }
func errArgument(reason string) error { return &CryptoError{Kind: ArgumentError, Reason: reason} }

// IsKind reports whether err is a *CryptoError of the given kind.
func IsKind(err error, kind CryptoErrorKind) bool {
	ce, ok := err.(*CryptoError)
	return ok && ce.Kind == kind
}
