// Package ping is a minimal in-process module demonstrating the module
// host spec.md §1 describes without building the dynamic loader spec.md
// excludes: it subscribes to Ping messages over the transport service and
// answers each with a Pong addressed back to the sender.
package ping

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"milkyway/internal/codec"
	"milkyway/internal/message"
	"milkyway/internal/transportsvc"
)

// Module answers every received Ping with a Pong, routed back to the
// sender via the same transport service.
type Module struct {
	svc *transportsvc.Service
	log zerolog.Logger
}

// Register subscribes Module to every Ping message dispatched by svc and
// returns the installed Module. There is no corresponding dynamic
// load/unload step; the caller owns the Module's lifetime.
func Register(svc *transportsvc.Service) *Module {
	m := &Module{svc: svc, log: log.With().Str("component", "modules/ping").Logger()}
	svc.Subscribe(transportsvc.Filter{}, m.handle)
	return m
}

func (m *Module) handle(peerID codec.Uint128, msg *message.Message) {
	if msg.MessageType != message.TypePing {
		return
	}
	pong := message.New().
		SetSource(msg.Destination).
		SetDestination(msg.Source).
		SetType(message.TypePong).
		SetCurrentTimestamp()
	if ok := m.svc.SendMessage(peerID, pong); !ok {
		m.log.Warn().Msg("failed to send pong: peer queue full or peer gone")
	}
}
