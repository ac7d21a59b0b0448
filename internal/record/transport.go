// Package record implements the record transport of spec.md §4.7: a
// length-prefixed frame layer over a reliable byte stream, with a
// pluggable transformer pipeline applied on send and unwound in reverse on
// receive.
package record

import (
	"errors"
	"io"
	"net"
	"time"

	"milkyway/internal/codec"
)

// ErrCryptoTransform is returned by Detransform when the received bytes
// fail to authenticate or decrypt.
var ErrCryptoTransform = errors.New("record: detransform failed")

// Transformer is one stage of the send/receive pipeline. Transform is
// infallible (a known-good key never fails to encrypt); Detransform can
// fail, e.g. on a tampered ciphertext.
type Transformer interface {
	Transform(data []byte) []byte
	Detransform(data []byte) ([]byte, error)
}

// Transport owns a reliable byte stream and layers framed, transformed
// records on top of it. Frames are usize-length-prefixed, little-endian,
// matching spec.md §4.7 and the on-wire formats of §6.
type Transport struct {
	conn         net.Conn
	transformers []Transformer
}

// New wraps conn with the given ordered transformer pipeline. Send applies
// transformers forward; Receive applies their Detransform in reverse.
func New(conn net.Conn, transformers ...Transformer) *Transport {
	return &Transport{conn: conn, transformers: transformers}
}

// Send runs payload through the transformer pipeline in forward order,
// then writes the length-prefixed frame.
func (t *Transport) Send(payload []byte) error {
	for _, tr := range t.transformers {
		payload = tr.Transform(payload)
	}
	frame := append(codec.EncodeUsize(uint64(len(payload))), payload...)
	_, err := t.conn.Write(frame)
	return err
}

// Receive reads one frame (blocking until deadline, if non-zero, expires)
// and applies the transformer pipeline's Detransform in reverse order. A
// zero deadline means block with no read timeout. Any read error, a
// partial frame, or a failed Detransform reports ok=false with no
// resumption, per spec.md §4.7's "partial reads -> absent".
func (t *Transport) Receive(deadline time.Time) (payload []byte, ok bool) {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, false
	}

	lenBuf := make([]byte, 8)
	if _, err := io.ReadFull(t.conn, lenBuf); err != nil {
		return nil, false
	}
	n, _, err := codec.DecodeUsize(lenBuf)
	if err != nil {
		return nil, false
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		return nil, false
	}

	for i := len(t.transformers) - 1; i >= 0; i-- {
		buf, err = t.transformers[i].Detransform(buf)
		if err != nil {
			return nil, false
		}
	}
	return buf, true
}

// Close releases the underlying connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}
