package raknet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// EventKind discriminates the lifecycle and data events a Listener emits.
type EventKind int

const (
	// EventSessionConnected fires once a session completes the full online
	// handshake (NewIncomingConnection received).
	EventSessionConnected EventKind = iota
	// EventSessionDisconnected fires when a session closes for any reason:
	// client notification, timeout or resource exhaustion.
	EventSessionDisconnected
	// EventPayload carries one reassembled, in-order application payload
	// from a connected session.
	EventPayload
)

// Event is delivered to the consumer of Listener.Events for every session
// lifecycle change and application payload.
type Event struct {
	Kind    EventKind
	Addr    net.Addr
	GUID    uint64
	Payload []byte
}

// ListenerConfig configures a Listener. Listen replaces the zero value of
// every field except ServerGUID with a sensible default.
type ListenerConfig struct {
	Log *slog.Logger

	// StatusProvider returns the MOTD string sent in unconnected pongs. It
	// is consulted on every ping so player counts stay current.
	StatusProvider func() string

	ServerGUID uint64

	// SessionTimeout is how long a connected session may stay silent before
	// it is dropped.
	SessionTimeout time.Duration
	// HandshakeTimeout bounds how long a session may linger in a half-open
	// handshake state before it is discarded.
	HandshakeTimeout time.Duration
	// PingInterval is how often an idle connected session is sent a
	// ConnectedPing to keep NAT mappings alive and measure RTT.
	PingInterval time.Duration
	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
}

// Listener owns the UDP socket and the per-address session map. It answers
// offline messages (ping, open-connection handshake) itself and routes
// FrameSet datagrams, ACKs and NACKs to the owning Session. Reassembled
// application payloads and session lifecycle changes are surfaced through
// Events.
type Listener struct {
	conf ListenerConfig
	log  *slog.Logger

	conn *net.UDPConn

	mu       sync.Mutex
	sessions map[string]*Session

	events chan Event

	closed chan struct{}
	once   sync.Once
}

// Listen binds a UDP socket on address and starts the receive and tick
// loops. Failure to bind is returned to the caller, which per the error
// design treats it as fatal.
func Listen(address string, conf ListenerConfig) (*Listener, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.StatusProvider == nil {
		conf.StatusProvider = func() string { return "MCPE;RakNet server;0;0.0;0;0;0;;Survival;1;19132;19133;" }
	}
	if conf.SessionTimeout <= 0 {
		conf.SessionTimeout = DefaultSessionTimeout
	}
	if conf.HandshakeTimeout <= 0 {
		conf.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if conf.PingInterval <= 0 {
		conf.PingInterval = DefaultPingInterval
	}
	if conf.EventBuffer <= 0 {
		conf.EventBuffer = 1024
	}
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("raknet: resolve %q: %w", address, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("raknet: bind %q: %w", address, err)
	}
	l := &Listener{
		conf:     conf,
		log:      conf.Log,
		conn:     conn,
		sessions: make(map[string]*Session),
		events:   make(chan Event, conf.EventBuffer),
		closed:   make(chan struct{}),
	}
	go l.recvLoop()
	go l.tickLoop()
	return l, nil
}

// Events returns the channel on which session lifecycle events and
// application payloads are delivered.
func (l *Listener) Events() <-chan Event { return l.events }

// Addr returns the local address the socket is bound to.
func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Send queues payload on the session for addr with the reliability and
// ordering channel given. It is a no-op if no session exists for addr.
func (l *Listener) Send(addr net.Addr, payload []byte, reliability Reliability, channel byte) {
	l.mu.Lock()
	s := l.sessions[addr.String()]
	l.mu.Unlock()
	if s != nil {
		s.Send(payload, reliability, channel)
	}
}

// Disconnect sends a DisconnectionNotification to addr and tears the
// session down.
func (l *Listener) Disconnect(addr net.Addr) {
	l.mu.Lock()
	s := l.sessions[addr.String()]
	l.mu.Unlock()
	if s == nil {
		return
	}
	s.Send([]byte{idDisconnectNotification}, ReliableOrdered, 0)
	s.Flush(time.Now())
	l.dropSession(s, "server disconnect")
}

// Close tears down every session with a DisconnectionNotification and
// releases the socket.
func (l *Listener) Close() error {
	l.once.Do(func() {
		close(l.closed)
		l.mu.Lock()
		sessions := make([]*Session, 0, len(l.sessions))
		for _, s := range l.sessions {
			sessions = append(sessions, s)
		}
		l.mu.Unlock()
		now := time.Now()
		for _, s := range sessions {
			s.Send([]byte{idDisconnectNotification}, ReliableOrdered, 0)
			s.Flush(now)
		}
		_ = l.conn.Close()
	})
	return nil
}

func (l *Listener) recvLoop() {
	buf := make([]byte, 1500)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Debug("raknet read error", "err", err)
			continue
		}
		pk := make([]byte, n)
		copy(pk, buf[:n])
		l.handleDatagram(pk, addr, time.Now())
	}
}

// tickLoop drives session flushing, keepalive pings and timeout reaping.
func (l *Listener) tickLoop() {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-l.closed:
			return
		case now := <-t.C:
			l.tickSessions(now)
		}
	}
}

func (l *Listener) tickSessions(now time.Time) {
	l.mu.Lock()
	sessions := make([]*Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	for _, s := range sessions {
		if reason, dead := s.expired(now, l.conf.SessionTimeout, l.conf.HandshakeTimeout); dead {
			l.dropSession(s, reason)
			continue
		}
		if s.State() == StateConnected && s.needsPing(now, l.conf.PingInterval) {
			s.Send(encodeConnectedPing(now.UnixMilli()), Unreliable, 0)
			s.markPinged(now)
		}
		s.Flush(now)
		if s.overloaded() {
			l.dropSession(s, "resource exhaustion")
		}
	}
}

func (l *Listener) handleDatagram(buf []byte, addr *net.UDPAddr, now time.Time) {
	if len(buf) == 0 {
		return
	}
	id := buf[0]
	switch {
	case id&datagramHeaderFlag != 0 && id != idACK && id != idNACK:
		l.handleFrameSet(buf, addr, now)
	case id == idACK:
		if s := l.session(addr); s != nil {
			if err := s.HandleACK(buf, now); err != nil {
				l.log.Debug("raknet malformed ack", "addr", addr.String(), "err", err)
			}
		}
	case id == idNACK:
		if s := l.session(addr); s != nil {
			if err := s.HandleNACK(buf, now); err != nil {
				l.log.Debug("raknet malformed nack", "addr", addr.String(), "err", err)
			}
		}
	case id == idUnconnectedPing:
		ping, err := decodeUnconnectedPing(buf)
		if err != nil {
			return
		}
		l.write(encodeUnconnectedPong(ping.SendTimestamp, l.conf.ServerGUID, l.conf.StatusProvider()), addr)
	case id == idOpenConnectionRequest1:
		req, err := decodeOpenConnectionRequest1(buf)
		if err != nil {
			return
		}
		if req.ProtocolVersion != protocolVersion {
			// Reply anyway so the client can present a clear version error;
			// no session is retained.
			l.write(encodeIncompatibleProtocolVersion(l.conf.ServerGUID), addr)
			return
		}
		mtu := req.MTUPaddingLen + 18 + 28 // datagram overhead the padding probed for
		if mtu > DefaultMTU {
			mtu = DefaultMTU
		}
		l.write(encodeOpenConnectionReply1(l.conf.ServerGUID, mtu), addr)
	case id == idOpenConnectionRequest2:
		req, err := decodeOpenConnectionRequest2(buf)
		if err != nil {
			return
		}
		l.write(encodeOpenConnectionReply2(l.conf.ServerGUID, req.MTU), addr)
		l.createSession(addr, req.ClientGUID, req.MTU, now)
	default:
		// Unknown RakNet packet; skip silently per the error design.
		l.log.Debug("raknet unknown packet", "addr", addr.String(), "id", id)
	}
}

func (l *Listener) handleFrameSet(buf []byte, addr *net.UDPAddr, now time.Time) {
	s := l.session(addr)
	if s == nil {
		return
	}
	payloads, err := s.HandleDatagram(buf, now)
	if err != nil {
		// A malformed frame drops the datagram, not the session.
		l.log.Debug("raknet malformed datagram", "addr", addr.String(), "err", err)
		return
	}
	for _, p := range payloads {
		l.handlePayload(s, p, now)
	}
}

// handlePayload routes one reassembled payload: online-handshake packets are
// consumed here, application payloads are emitted upward once the session is
// Connected.
func (l *Listener) handlePayload(s *Session, p []byte, now time.Time) {
	if len(p) == 0 {
		return
	}
	switch p[0] {
	case idConnectionRequest:
		req, err := decodeConnectionRequest(p)
		if err != nil {
			return
		}
		s.Send(encodeConnectionRequestAccepted(encodeIPv4Placeholder(), req.SendTimestamp), ReliableOrdered, 0)
		s.advanceHandshake(StateConnectionPending)
	case idNewIncomingConnection:
		if s.State() != StateConnectionPending {
			return
		}
		s.advanceHandshake(StateConnected)
		l.emit(Event{Kind: EventSessionConnected, Addr: s.Addr, GUID: s.GUID})
	case idConnectedPing:
		if len(p) < 9 {
			return
		}
		ts := int64(binary.BigEndian.Uint64(p[1:]))
		s.Send(encodeConnectedPong(ts), Unreliable, 0)
	case idConnectedPong:
		// Keepalive answered; LastActivity was already refreshed by the
		// datagram itself.
	case idDisconnectNotification:
		l.dropSession(s, "client disconnect")
	default:
		if s.State() != StateConnected {
			return
		}
		l.emit(Event{Kind: EventPayload, Addr: s.Addr, GUID: s.GUID, Payload: p})
	}
}

func (l *Listener) session(addr *net.UDPAddr) *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions[addr.String()]
}

func (l *Listener) createSession(addr *net.UDPAddr, guid uint64, mtu int, now time.Time) {
	key := addr.String()
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[key]; ok {
		// Reply2 retransmitted by the client; the session already exists.
		return
	}
	remote := *addr
	s := NewSession(&remote, guid, mtu, func(b []byte) { l.write(b, &remote) }, l.log)
	s.advanceHandshake(StateHandshakeCompleted)
	l.sessions[key] = s
	l.log.Debug("raknet session created", "addr", key, "mtu", mtu)
}

func (l *Listener) dropSession(s *Session, reason string) {
	l.mu.Lock()
	_, present := l.sessions[s.Addr.String()]
	delete(l.sessions, s.Addr.String())
	l.mu.Unlock()
	if !present {
		return
	}
	wasConnected := s.State() == StateConnected
	s.Close()
	l.log.Debug("raknet session dropped", "addr", s.Addr.String(), "reason", reason)
	if wasConnected {
		l.emit(Event{Kind: EventSessionDisconnected, Addr: s.Addr, GUID: s.GUID})
	}
}

func (l *Listener) write(b []byte, addr *net.UDPAddr) {
	if _, err := l.conn.WriteToUDP(b, addr); err != nil && !strings.Contains(err.Error(), "closed") {
		l.log.Debug("raknet write error", "addr", addr.String(), "err", err)
	}
}

func (l *Listener) emit(ev Event) {
	select {
	case l.events <- ev:
	default:
		// The consumer stalled badly enough to fill the buffer; dropping a
		// payload would corrupt the ordered stream, so block.
		l.events <- ev
	}
}
