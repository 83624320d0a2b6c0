// Package server wires the transport layer to the lobby registry and
// the per-lobby tick scheduler: accepting connections, carrying each
// through the first-contact handshake, and feeding decoded command
// batches into the owning lobby's inbox. One goroutine per connection,
// one scheduler.Loop per lobby.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/httpapi"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/lobby"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/logging"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/protocol"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/scheduler"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/state"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/transport"
)

// Options configures a Server.
type Options struct {
	Registry            *lobby.Registry
	Log                 *logging.Logger
	Visibility          state.Visibility
	Metrics             *httpapi.Metrics
	FirstContactTimeout time.Duration
	FirstContactLimiter *httpapi.FirstContactLimiter
}

// Server accepts connections, carries each through the first-contact
// handshake, and keeps one scheduler.Loop running per lobby
// for as long as that lobby exists.
type Server struct {
	registry  *lobby.Registry
	log       *logging.Logger
	vis       state.Visibility
	metrics   *httpapi.Metrics
	fcTimeout time.Duration
	fcLimiter *httpapi.FirstContactLimiter

	loopsMu sync.Mutex
	loops   map[string]*scheduler.Loop
}

// New builds a Server from opts.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logging.NewTestLogger()
	}
	vis := opts.Visibility
	if vis == nil {
		vis = state.DefaultVisibility{}
	}
	timeout := opts.FirstContactTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Server{
		registry:  opts.Registry,
		log:       log,
		vis:       vis,
		metrics:   opts.Metrics,
		fcTimeout: timeout,
		fcLimiter: opts.FirstContactLimiter,
		loops:     make(map[string]*scheduler.Loop),
	}
}

// Serve accepts connections from ln until ctx is cancelled, handling
// each on its own goroutine; accept and per-channel I/O run
// concurrently with the lobby simulations.
func (s *Server) Serve(ctx context.Context, ln *transport.Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-ln.Err():
			if ok && err != nil {
				s.log.Error("server: accept loop stopped", logging.Error(err))
			}
			return
		case ch, ok := <-ln.Accepted():
			if !ok {
				return
			}
			go s.handleClient(ctx, ch)
		}
	}
}

func (s *Server) handleClient(ctx context.Context, ch *transport.Channel) {
	if s.fcLimiter != nil && !s.fcLimiter.Allow(remoteKey(ch)) {
		if s.metrics != nil {
			s.metrics.RecordFirstContactRejected()
		}
		ch.Close()
		return
	}

	player, l, err := s.completeFirstContact(ch)
	if err != nil {
		s.log.Warn("server: first contact failed", logging.Error(err))
		ch.Close()
		return
	}

	s.ensureLoop(l)
	defer ch.Close()
	defer s.disconnect(l, player.ID)

	for {
		frame, err := ch.ReadFrame()
		if err != nil {
			if transport.IsTransient(err) {
				continue
			}
			return
		}
		batch, err := protocol.DecodeBatch(frame)
		if err != nil {
			s.log.Warn("server: protocol error, disconnecting client",
				logging.Uint64("client", uint64(player.ID)), logging.Error(err))
			return
		}
		s.enqueueBatch(l, player.ID, batch)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// completeFirstContact reads the single required first frame, resolves
// its lobby, and joins the sender to it.
func (s *Server) completeFirstContact(ch *transport.Channel) (*lobby.Player, *lobby.Lobby, error) {
	deadline := time.Now().Add(s.fcTimeout)
	if err := ch.SetReadDeadline(deadline); err != nil {
		return nil, nil, err
	}
	frame, err := ch.ReadFrame()
	if err != nil {
		return nil, nil, err
	}
	batch, err := protocol.DecodeBatch(frame)
	if err != nil {
		return nil, nil, err
	}
	fc, ok := firstContactOf(batch)
	if !ok {
		return nil, nil, errNotFirstContact
	}

	mapName := ""
	if fc.MapName != nil {
		mapName = *fc.MapName
	}
	l, err := s.registry.GetOrCreate(fc.LobbyName, mapName)
	if err != nil {
		return nil, nil, err
	}
	player, err := l.HandleFirstContact(fc, ch)
	if err != nil {
		return nil, nil, err
	}
	if err := ch.SetReadDeadline(time.Time{}); err != nil {
		return nil, nil, err
	}
	return player, l, nil
}

func firstContactOf(batch []protocol.Envelope) (*protocol.FirstContact, bool) {
	if len(batch) == 0 {
		return nil, false
	}
	fc, ok := batch[0].Message.(*protocol.FirstContact)
	return fc, ok
}

// enqueueBatch coalesces unique-kind duplicates and stamps every
// surviving envelope with sender/tick_received/tick_to_process before
// handing it to the lobby's inbox.
func (s *Server) enqueueBatch(l *lobby.Lobby, sender entityid.ID, batch []protocol.Envelope) {
	batch = protocol.CoalesceUniqueDuplicates(batch)
	tick := l.CurrentTick()
	for _, env := range batch {
		env.Sender = sender
		env.HasSender = true
		env.TickReceived = tick
		env.TickToProcess = tick + 1
		l.Enqueue(env)
	}
}

func (s *Server) disconnect(l *lobby.Lobby, playerID entityid.ID) {
	destroyed := s.registry.RemovePlayer(l.Name, playerID)
	if destroyed {
		s.stopLoop(l.Name)
	}
}

// ensureLoop starts l's tick loop the first time any client joins it.
func (s *Server) ensureLoop(l *lobby.Lobby) {
	s.loopsMu.Lock()
	defer s.loopsMu.Unlock()
	if _, ok := s.loops[l.Name]; ok {
		return
	}
	loop := scheduler.NewLoop(l, scheduler.Deps{Log: s.log, Visibility: s.vis, Metrics: s.metrics})
	loop.Start(context.Background())
	s.loops[l.Name] = loop
}

func (s *Server) stopLoop(name string) {
	s.loopsMu.Lock()
	loop, ok := s.loops[name]
	delete(s.loops, name)
	s.loopsMu.Unlock()
	if ok {
		loop.Stop()
	}
}

func remoteKey(ch *transport.Channel) string {
	addr := ch.RemoteAddr()
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

var errNotFirstContact = protocolError("server: first frame was not a FirstContact message")

type protocolError string

func (e protocolError) Error() string { return string(e) }
