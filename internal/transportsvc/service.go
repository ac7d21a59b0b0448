// Package transportsvc implements the transport service of spec.md §4.8:
// filtered subscription dispatch, per-peer sessions driven through the
// handshake state machine, and peer-ID assignment.
package transportsvc

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"milkyway/internal/auth"
	"milkyway/internal/certsvc"
	"milkyway/internal/codec"
	"milkyway/internal/message"
	"milkyway/internal/pki"
	"milkyway/internal/record"
)

// errHandshakeFailed is a generic handshake-rejection error for callers of
// Connect; acceptPeer has no caller to report to, so it only logs.
var errHandshakeFailed = errors.New("transportsvc: handshake failed")

// Filter is the conjunction of optional predicates spec.md §4.8's
// subscribe() matches a message against. A nil field means "don't care".
type Filter struct {
	Source   *codec.Uint128
	ModuleID *uint64
}

// Matches reports whether every set predicate in f holds for m.
func (f Filter) Matches(m *message.Message) bool {
	if f.Source != nil && !f.Source.Equal(m.Source) {
		return false
	}
	if f.ModuleID != nil && *f.ModuleID != m.ModuleID {
		return false
	}
	return true
}

// Listener receives every message that matches the Filter it was
// subscribed with, along with the peer ID of the session it arrived on so
// a reply can be routed back with SendMessage; all matching listeners see
// a message (no exclusive consumption), per spec.md §4.8.
type Listener func(peerID codec.Uint128, m *message.Message)

type subscription struct {
	filter   Filter
	listener Listener
}

// Identity is the local party's own certificate serials, used to build
// the local side of every handshake this service runs.
type Identity struct {
	EncryptionSerial codec.Uint128
	SigningSerial    codec.Uint128
}

// Service owns the subscriber table and the set of live peer sessions. Per
// spec.md §5, the subscriber table is owned by this single struct; callers
// reach it only through Subscribe/Unsubscribe/SendMessage, never its
// interior maps.
type Service struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]subscription
	peers       map[codec.Uint128]*peerSession
	listener    net.Listener
	group       errgroup.Group

	ids      peerIDCounter
	certs    *certsvc.Client
	identity Identity
	window   time.Duration
	backlog  int

	log zerolog.Logger
}

// NewService returns a Service that authenticates peers using certs and
// identity, enforcing the given handshake freshness window symmetrically
// (spec.md §9: both sides must enforce the window).
func NewService(certs *certsvc.Client, identity Identity, window time.Duration) *Service {
	return &Service{
		subscribers: make(map[uuid.UUID]subscription),
		peers:       make(map[codec.Uint128]*peerSession),
		certs:       certs,
		identity:    identity,
		window:      window,
		backlog:     64,
		log:         log.With().Str("component", "transportsvc").Logger(),
	}
}

// Subscribe installs listener for every future message matching filter and
// returns its subscription id.
func (s *Service) Subscribe(filter Filter, listener Listener) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	s.subscribers[id] = subscription{filter: filter, listener: listener}
	s.mu.Unlock()
	return id
}

// Unsubscribe removes a previously installed subscription.
func (s *Service) Unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	delete(s.subscribers, id)
	s.mu.Unlock()
}

func (s *Service) dispatch(peerID codec.Uint128, m *message.Message) {
	s.mu.Lock()
	subs := make([]subscription, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.filter.Matches(m) {
			sub.listener(peerID, m)
		}
	}
}

// SendMessage posts m to peerID's outbound queue, non-blocking and
// best-effort per spec.md §4.8: if the queue is full the message is
// dropped and SendMessage reports false.
func (s *Service) SendMessage(peerID codec.Uint128, m *message.Message) bool {
	s.mu.Lock()
	ps, ok := s.peers[peerID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ps.outbound <- m:
		return true
	default:
		s.log.Warn().Str("peer", peerID.String()).Msg("outbound queue full, dropping message")
		return false
	}
}

// Listen accepts connections on addr and runs the per-peer handshake and
// session loop for each, per spec.md §4.8's LISTEN state. Each accepted
// peer's session is supervised under the same errgroup.Group used for
// per-peer read/write lifecycle, so Shutdown can wait for every one to
// wind down. Listen blocks until the listener errors or Shutdown closes it.
func (s *Service) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		s.group.Go(func() error {
			s.acceptPeer(conn)
			return nil
		})
	}
}

// Shutdown closes the listener, if any, and waits for every in-flight
// accept and peer session to finish.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	return s.group.Wait()
}

// acceptPeer drives one inbound connection through READ_HANDSHAKE,
// CHECK_HANDSHAKE, SEND_HANDSHAKE, ARMED, and into RUNNING, per spec.md
// §4.8's per-peer state machine. Any failure along the way closes the
// connection without notifying subscribers.
func (s *Service) acceptPeer(conn net.Conn) {
	handshakeStream := record.New(conn)

	// READ_HANDSHAKE
	raw, ok := handshakeStream.Receive(time.Now().Add(s.window + 5*time.Second))
	if !ok {
		conn.Close()
		return
	}
	peerMsg, _, err := auth.DecodeMessage(raw)
	if err != nil {
		conn.Close()
		return
	}
	if !auth.IsFresh(peerMsg.Timestamp, time.Now(), s.window) {
		s.log.Warn().Msg("rejecting handshake: stale timestamp")
		conn.Close()
		return
	}

	// CHECK_HANDSHAKE
	peerSigning, peerEncryption, err := auth.Check(s.certs, peerMsg)
	if err != nil {
		s.log.Warn().Err(err).Msg("rejecting handshake: check failed")
		conn.Close()
		return
	}

	// SEND_HANDSHAKE
	localMsg, err := auth.Generate(s.certs, s.identity.EncryptionSerial, s.identity.SigningSerial, true)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to generate local handshake message")
		conn.Close()
		return
	}
	if err := handshakeStream.Send(localMsg.Encode()); err != nil {
		conn.Close()
		return
	}

	s.arm(conn, peerSigning, peerEncryption) // peer ID delivered to the peer itself via the SetPeerID frame
}

// Connect dials addr and drives the outbound side of the handshake:
// SEND_HANDSHAKE first (the first wire unit a peer sends after connecting,
// per spec.md §6), then READ_HANDSHAKE/CHECK_HANDSHAKE on the peer's
// response, then ARMED/RUNNING exactly as the listener side. It returns
// once the session is armed, with the peer ID callers use to address
// SendMessage at it; the session's read/write loops keep running in the
// background until the peer disconnects or Shutdown is called.
func (s *Service) Connect(addr string) (codec.Uint128, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return codec.Uint128{}, err
	}
	handshakeStream := record.New(conn)

	localMsg, err := auth.Generate(s.certs, s.identity.EncryptionSerial, s.identity.SigningSerial, true)
	if err != nil {
		conn.Close()
		return codec.Uint128{}, err
	}
	if err := handshakeStream.Send(localMsg.Encode()); err != nil {
		conn.Close()
		return codec.Uint128{}, err
	}

	raw, ok := handshakeStream.Receive(time.Now().Add(s.window + 5*time.Second))
	if !ok {
		conn.Close()
		return codec.Uint128{}, errHandshakeFailed
	}
	peerMsg, _, err := auth.DecodeMessage(raw)
	if err != nil {
		conn.Close()
		return codec.Uint128{}, err
	}
	if !auth.IsFresh(peerMsg.Timestamp, time.Now(), s.window) {
		conn.Close()
		return codec.Uint128{}, errHandshakeFailed
	}

	peerSigning, peerEncryption, err := auth.Check(s.certs, peerMsg)
	if err != nil {
		conn.Close()
		return codec.Uint128{}, err
	}

	return s.arm(conn, peerSigning, peerEncryption), nil
}

// arm transitions a handshaken connection into ARMED and RUNNING: it wraps
// conn in a crypto-transformed record transport, assigns a peer ID,
// announces it via a SetPeerID control frame, and starts the session's
// read/write loops under the service's errgroup so they run independently
// of whichever caller (acceptPeer or Connect) established the session. It
// returns the assigned peer ID immediately once the session is running.
func (s *Service) arm(conn net.Conn, peerSigning *pki.SigningCertificate, peerEncryption *pki.EncryptionCertificate) codec.Uint128 {
	localSigning := s.certs.GetSigning(s.identity.SigningSerial)
	localEncryption := s.certs.GetEncryption(s.identity.EncryptionSerial)
	xform := &record.CryptoTransformer{
		LocalSigning:     localSigning,
		LocalEncryption:  localEncryption,
		RemoteSigning:    peerSigning,
		RemoteEncryption: peerEncryption,
	}
	armed := record.New(conn, xform)

	peerID := s.ids.Next()
	ps := &peerSession{
		id:        peerID,
		transport: armed,
		outbound:  make(chan *message.Message, s.backlog),
		closed:    make(chan struct{}),
	}
	s.mu.Lock()
	s.peers[peerID] = ps
	s.mu.Unlock()

	if err := armed.Send(message.New().SetType(message.TypeSetPeerID).SetDestination(peerID).SetCurrentTimestamp().Encode()); err != nil {
		s.closePeer(ps)
		return peerID
	}

	// RUNNING, until CLOSED, supervised independently of this call's caller.
	s.group.Go(func() error {
		s.runPeer(ps)
		return nil
	})
	return peerID
}

// runPeer supervises a session's read and write loops as a pair via
// errgroup: whichever exits first signals ps.closed so its sibling stops
// too, and runPeer returns only once both have. This is the "one task per
// client, split into read/write sub-tasks" decomposition the fabric's
// single shared-select loop becomes in Go.
func (s *Service) runPeer(ps *peerSession) {
	defer s.closePeer(ps)

	var g errgroup.Group
	g.Go(func() error {
		s.peerReadLoop(ps)
		ps.signalClosed()
		return nil
	})
	g.Go(func() error {
		s.peerWriteLoop(ps)
		ps.signalClosed()
		return nil
	})
	g.Wait()
}

func (s *Service) peerReadLoop(ps *peerSession) {
	for {
		select {
		case <-ps.closed:
			return
		default:
		}

		payload, ok := ps.transport.Receive(time.Now().Add(30 * time.Second))
		if !ok {
			return
		}
		msg, _, err := message.Decode(payload)
		if err != nil {
			return
		}
		s.dispatch(ps.id, msg)
	}
}

func (s *Service) peerWriteLoop(ps *peerSession) {
	for {
		select {
		case m, ok := <-ps.outbound:
			if !ok {
				return
			}
			if err := ps.transport.Send(m.Encode()); err != nil {
				s.closePeer(ps)
				return
			}
		case <-ps.closed:
			return
		}
	}
}

func (s *Service) closePeer(ps *peerSession) {
	s.mu.Lock()
	if _, ok := s.peers[ps.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.peers, ps.id)
	s.mu.Unlock()

	ps.signalClosed()
	ps.transport.Close()
}

// peerSession is the per-peer state §4.8's ARMED/RUNNING states create:
// an armed record transport and its outbound queue.
type peerSession struct {
	id        codec.Uint128
	transport *record.Transport
	outbound  chan *message.Message
	closed    chan struct{}
	closeOnce sync.Once
}

// signalClosed closes the closed channel exactly once, however many of
// the session's goroutines observe the session ending first.
func (ps *peerSession) signalClosed() {
	ps.closeOnce.Do(func() { close(ps.closed) })
}
