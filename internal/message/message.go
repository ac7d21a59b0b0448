// Package message implements the wire-unit message model of spec.md
// §3/§4.9: a framed value with routing headers, an optional payload, and an
// optional signature slot orthogonal to the record layer's own signing.
package message

import (
	"time"

	"milkyway/internal/codec"
	"milkyway/internal/pqcrypto"
)

// Type tags which kind of message a Message carries, assigned in
// declaration order per spec.md §3.
type Type uint8

const (
	TypePing Type = iota
	TypePong
	TypeExec
	TypeStateApply
	TypeStateRevert
	TypeReport
	TypeKeyEx
	TypeLogMessage
	TypeAck
	TypeSetPeerID
)

func (t Type) String() string {
	switch t {
	case TypePing:
		return "Ping"
	case TypePong:
		return "Pong"
	case TypeExec:
		return "Exec"
	case TypeStateApply:
		return "StateApply"
	case TypeStateRevert:
		return "StateRevert"
	case TypeReport:
		return "Report"
	case TypeKeyEx:
		return "KeyEx"
	case TypeLogMessage:
		return "LogMessage"
	case TypeAck:
		return "Ack"
	case TypeSetPeerID:
		return "SetPeerID"
	default:
		return "Unknown"
	}
}

// Message is the message model of spec.md §3. It never conceals that it is
// plain data: construction is a chain of explicit setters, not a builder
// hiding field assignment.
type Message struct {
	ID          codec.Uint128
	Timestamp   codec.Uint128
	MessageType Type
	Data        []byte // nil means absent, per Option<bytes>
	Sig         *pqcrypto.Signature
	Source      codec.Uint128
	Destination codec.Uint128
	ModuleID    uint64
}

// New returns a zero-valued Message ready for chained setters.
func New() *Message {
	return &Message{}
}

func (m *Message) SetID(id codec.Uint128) *Message {
	m.ID = id
	return m
}

func (m *Message) SetTimestamp(ts codec.Uint128) *Message {
	m.Timestamp = ts
	return m
}

// SetCurrentTimestamp stamps the message with the current wall-clock time
// in milliseconds since epoch.
func (m *Message) SetCurrentTimestamp() *Message {
	m.Timestamp = codec.U128FromUint64(uint64(time.Now().UnixMilli()))
	return m
}

func (m *Message) SetSource(source codec.Uint128) *Message {
	m.Source = source
	return m
}

func (m *Message) SetDestination(dest codec.Uint128) *Message {
	m.Destination = dest
	return m
}

func (m *Message) SetType(t Type) *Message {
	m.MessageType = t
	return m
}

func (m *Message) SetData(data []byte) *Message {
	m.Data = data
	return m
}

func (m *Message) SetModuleID(id uint64) *Message {
	m.ModuleID = id
	return m
}

// AsSignable returns a copy of m with its signature cleared, the form a
// message is signed and verified in.
func (m *Message) AsSignable() *Message {
	clone := *m
	clone.Sig = nil
	return &clone
}

func (m *Message) Encode() []byte {
	out := codec.EncodeUint128(m.ID)
	out = append(out, codec.EncodeUint128(m.Timestamp)...)
	out = append(out, codec.EncodeUint8(uint8(m.MessageType))...)
	out = append(out, codec.EncodeOption(optBytes(m.Data), codec.EncodeBytes)...)
	out = append(out, encodeOptionSignature(m.Sig)...)
	out = append(out, codec.EncodeUint128(m.Source)...)
	out = append(out, codec.EncodeUint128(m.Destination)...)
	out = append(out, codec.EncodeUint64(m.ModuleID)...)
	return out
}

func Decode(b []byte) (*Message, int, error) {
	id, n1, err := codec.DecodeUint128(b)
	if err != nil {
		return nil, 0, err
	}
	off := n1

	ts, n2, err := codec.DecodeUint128(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n2

	typTag, n3, err := codec.DecodeUint8(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n3

	data, n4, err := codec.DecodeOption(b[off:], codec.DecodeBytes)
	if err != nil {
		return nil, 0, err
	}
	off += n4

	sig, n5, err := decodeOptionSignature(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n5

	source, n6, err := codec.DecodeUint128(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n6

	dest, n7, err := codec.DecodeUint128(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n7

	moduleID, n8, err := codec.DecodeUint64(b[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n8

	return &Message{
		ID:          id,
		Timestamp:   ts,
		MessageType: Type(typTag),
		Data:        derefBytes(data),
		Sig:         sig,
		Source:      source,
		Destination: dest,
		ModuleID:    moduleID,
	}, off, nil
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
	if tag == 0 {
		return nil, n1, nil
	}
	sig, n2, err := pqcrypto.DecodeSignature(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	return &sig, n1 + n2, nil
}
