// Package codec implements the deterministic little-endian binary encoding
// used both on the wire and on disk by every component of the fabric.
//
// Every decoder consumes exactly the bytes belonging to its own value and
// reports how many bytes it consumed, so callers composing larger
// structures can advance their cursor without re-deriving a length. The
// format carries no self-describing tags beyond a one-byte variant
// selector on sum types: it is not schema-evolvable, and a struct field
// change is a breaking wire/storage change.
package codec

import "fmt"

// ErrLengthTooShort is returned when a buffer ends before a decoder's
// minimum required length.
var ErrLengthTooShort = fmt.Errorf("codec: length too short")

// InvalidDataError reports a structural violation: an unknown sum-type
// variant tag, a map whose key/value sequences have different lengths, or
// similar malformed input that is not merely truncated.
type InvalidDataError struct {
	Reason string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("codec: invalid data: %s", e.Reason)
}

// ErrInvalidData builds an InvalidDataError with the given reason.
func ErrInvalidData(reason string) error {
	return &InvalidDataError{Reason: reason}
}

// Encodable is any value that can serialize itself to this package's
// deterministic binary form. Used where a function needs to sign or
// encrypt an arbitrary product/sum value without depending on that
// value's concrete package (avoids import cycles between pki, message,
// and auth).
type Encodable interface {
	Encode() []byte
}

func need(b []byte, n int) error {
	if len(b) < n {
		return ErrLengthTooShort
	}
	return nil
}
