package core

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/shared/protocol"
	"github.com/yohamta/donburi"
	"go.uber.org/zap"
)

var (
	// ErrUnknownRecipient is returned when a directed message names a
	// client that is not registered.
	ErrUnknownRecipient = errors.New("unknown recipient")
	// ErrTransportFailure wraps socket write errors.
	ErrTransportFailure = errors.New("transport failure")
)

const datagramQueueSize = 256

type datagram struct {
	addr net.Addr
	data []byte
	at   time.Time
}

// Server owns the authoritative world. Everything except the reader
// goroutine runs on the game loop goroutine.
type Server struct {
	cfg   config.ServerConfig
	log   *zap.SugaredLogger
	conn  net.PacketConn
	world donburi.World
	level *ServerLevel

	clients *Registry
	loop    *GameLoop
	metrics *Metrics
	viewers *SpectatorHub

	nextBulletID  uint32
	lastBroadcast uint64

	datagrams chan datagram
	stopOnce  sync.Once
	stopping  chan struct{}
	wg        sync.WaitGroup
}

// NewServer creates a server reading from conn. conn may be nil for tests
// that only drive HandleDatagram and Tick with a fake connection set later.
func NewServer(cfg config.ServerConfig, level *ServerLevel, conn net.PacketConn, log *zap.SugaredLogger) *Server {
	// every player must fit in each client's GameState
	if cfg.MaxPlayers > protocol.MaxPlayersPerPacket {
		log.Warnf("max players %d exceeds snapshot capacity, using %d", cfg.MaxPlayers, protocol.MaxPlayersPerPacket)
		cfg.MaxPlayers = protocol.MaxPlayersPerPacket
	}
	if cfg.MaxPlayers < 1 {
		cfg.MaxPlayers = 1
	}

	world := donburi.NewWorld()
	s := &Server{
		cfg:       cfg,
		log:       log.Named("server"),
		conn:      conn,
		world:     world,
		level:     level,
		clients:   NewRegistry(world, level, cfg.MaxPlayers),
		metrics:   &Metrics{},
		viewers:   NewSpectatorHub(),
		datagrams: make(chan datagram, datagramQueueSize),
		stopping:  make(chan struct{}),
	}
	s.loop = NewGameLoop(s, cfg.TickInterval)
	return s
}

// Start launches the reader and the game loop.
func (s *Server) Start() {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.readLoop()
	}()
	go func() {
		defer s.wg.Done()
		s.loop.Run()
	}()
	s.log.Infof("listening on %s (tick %s, max players %d)", s.conn.LocalAddr(), s.cfg.TickInterval, s.cfg.MaxPlayers)
}

// Stop halts the loop, closes the socket and waits for both goroutines.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopping)
		s.loop.Stop()
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
	s.wg.Wait()
	s.viewers.Close()
}

func (s *Server) readLoop() {
	// one extra byte so oversized datagrams are detected rather than truncated
	buf := make([]byte, protocol.PacketSize+1)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-s.stopping:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warnf("read: %v", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case s.datagrams <- datagram{addr: addr, data: data, at: time.Now()}:
		default:
			s.metrics.IncDatagramDropped()
		}
	}
}

// HandleDatagram applies one received datagram. Malformed or unexpected
// packets are dropped without affecting any other client.
func (s *Server) HandleDatagram(addr net.Addr, data []byte, now time.Time) {
	pkt, err := protocol.Decode(data)
	if err != nil {
		s.metrics.IncMalformed()
		s.log.Debugf("drop datagram from %s: %v", addr, err)
		return
	}

	switch pkt.Header.Kind {
	case protocol.KindConnect:
		rec, err := s.register(addr)
		if err != nil {
			return
		}
		s.reply(addr, protocol.EncodeConnect(timestamp(now), rec.ID))

	case protocol.KindInput:
		rec, err := s.register(addr)
		if err != nil {
			return
		}
		if s.clients.UpdateInput(rec.ID, pkt.Input) {
			s.metrics.IncAccepted()
		} else {
			s.metrics.IncStale()
		}

	case protocol.KindName:
		rec, err := s.register(addr)
		if err != nil {
			return
		}
		s.clients.SetName(rec.ID, pkt.Name)
		s.log.Infof("client %d is now %q", rec.ID, s.clients.Player(rec).Name)

	case protocol.KindDisconnect:
		if rec, ok := s.clients.Remove(addr); ok {
			s.log.Infof("client %d disconnected (%s)", rec.ID, addr)
			s.metrics.SetPlayers(s.clients.Count())
			s.reply(addr, protocol.EncodeDisconnect(timestamp(now), rec.ID))
		} else {
			// a retransmit after the first acknowledgment was lost
			s.reply(addr, protocol.EncodeDisconnect(timestamp(now), pkt.Header.Sender))
		}

	default:
		s.log.Debugf("ignore %s from %s", pkt.Header.Kind, addr)
	}
}

func (s *Server) register(addr net.Addr) (*ClientRecord, error) {
	if rec, ok := s.clients.Find(addr); ok {
		return rec, nil
	}
	rec, err := s.clients.Register(addr)
	if err != nil {
		s.metrics.IncCapacityRejected()
		s.log.Warnf("reject %s: %v", addr, err)
		return nil, err
	}
	s.metrics.SetPlayers(s.clients.Count())
	s.log.Infof("client %d connected from %s", rec.ID, addr)
	return rec, nil
}

func (s *Server) reply(addr net.Addr, data []byte) {
	if err := s.send(addr, data); err != nil {
		s.log.Warnf("%v", err)
	}
}

// send writes one datagram. Failures are counted and returned wrapped in
// ErrTransportFailure; they never stop the caller's loop.
func (s *Server) send(addr net.Addr, data []byte) error {
	if _, err := s.conn.WriteTo(data, addr); err != nil {
		s.metrics.IncSendFailure()
		return fmt.Errorf("send to %s: %w: %w", addr, ErrTransportFailure, err)
	}
	return nil
}

// sendTo delivers data to a registered client.
func (s *Server) sendTo(id int32, data []byte) error {
	rec, ok := s.clients.Lookup(id)
	if !ok {
		return fmt.Errorf("client %d: %w", id, ErrUnknownRecipient)
	}
	return s.send(rec.Addr, data)
}

// PlayerCount is safe to call from any goroutine.
func (s *Server) PlayerCount() int {
	return s.metrics.PlayerCount()
}

// MaxPlayers is the effective capacity after clamping to what a snapshot can carry.
func (s *Server) MaxPlayers() int { return s.cfg.MaxPlayers }

func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) Spectators() *SpectatorHub { return s.viewers }

// World returns the ECS world
func (s *Server) World() donburi.World {
	return s.world
}

func timestamp(t time.Time) uint64 {
	return uint64(t.UnixMilli())
}
