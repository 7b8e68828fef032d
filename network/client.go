package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/leveldata"
	"github.com/planeflight/hido/shared/messages"
	"github.com/planeflight/hido/shared/protocol"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"
)

type ClientState int32

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned when sending before the server assigned an id.
var ErrNotConnected = errors.New("not connected")

const hitQueueSize = 8

// Client talks to the game server over a connected UDP socket. The listen
// goroutine decodes datagrams into the predictor and the interpolation
// buffers; the frame loop reads them back through View.
type Client struct {
	cfg  config.ClientConfig
	log  *zap.SugaredLogger
	conn net.Conn

	predictor *Predictor
	Ease      ease.TweenFunc

	mu      sync.Mutex // guards players and bullets
	players *SnapshotBuffer[messages.GameState]
	bullets *SnapshotBuffer[messages.BulletSnapshot]

	id    atomic.Int32
	state atomic.Int32

	connectedOnce    sync.Once
	connected        chan struct{}
	disconnectedOnce sync.Once
	disconnected     chan struct{}

	hitCh chan messages.BulletCollision

	running  atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Dial opens a UDP socket to cfg.ServerAddr.
func Dial(cfg config.ClientConfig, m leveldata.TileMap, log *zap.SugaredLogger) (*Client, error) {
	raddr, err := net.ResolveUDPAddr("udp", cfg.ServerAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cfg.ServerAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.ServerAddr, err)
	}
	return NewClient(conn, cfg, m, log), nil
}

// NewClient wraps an already connected socket.
func NewClient(conn net.Conn, cfg config.ClientConfig, m leveldata.TileMap, log *zap.SugaredLogger) *Client {
	spawn := messages.PlayerState{
		ID: messages.UnassignedID,
		Rect: gamemath.Rect{
			X: config.Player.SpawnX,
			Y: config.Player.SpawnY,
			W: config.Player.CollisionWidth,
			H: config.Player.CollisionHeight,
		},
		Health: config.Player.Health,
		Name:   cfg.Name,
	}
	c := &Client{
		cfg:          cfg,
		log:          log.Named("client"),
		conn:         conn,
		predictor:    NewPredictor(m, cfg.PlayerSpeed, spawn),
		Ease:         ease.Linear,
		players:      NewSnapshotBuffer[messages.GameState](defaultBufferCapacity),
		bullets:      NewSnapshotBuffer[messages.BulletSnapshot](defaultBufferCapacity),
		connected:    make(chan struct{}),
		disconnected: make(chan struct{}),
		hitCh:        make(chan messages.BulletCollision, hitQueueSize),
	}
	c.id.Store(messages.UnassignedID)
	return c
}

// Start launches the listen goroutine.
func (c *Client) Start() {
	if c.running.Swap(true) {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.listen()
	}()
}

// Stop ends the listen goroutine and closes the socket.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.running.Store(false)
		c.wg.Wait()
		_ = c.conn.Close()
		c.state.Store(int32(StateDisconnected))
	})
}

// Connect sends Connect every ResendInterval until the server echoes it
// back with our id, or ctx ends.
func (c *Client) Connect(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))
	return c.retransmit(ctx, c.connected, func() []byte {
		return protocol.EncodeConnect(nowMillis(), c.ID())
	})
}

// Disconnect sends Disconnect until the server acknowledges it or ctx ends,
// then stops the listener either way.
func (c *Client) Disconnect(ctx context.Context) error {
	c.state.Store(int32(StateDisconnecting))
	err := c.retransmit(ctx, c.disconnected, func() []byte {
		return protocol.EncodeDisconnect(nowMillis(), c.ID())
	})
	c.Stop()
	return err
}

func (c *Client) retransmit(ctx context.Context, done <-chan struct{}, packet func() []byte) error {
	ticker := time.NewTicker(c.cfg.ResendInterval)
	defer ticker.Stop()

	for {
		if _, err := c.conn.Write(packet()); err != nil {
			c.log.Debugf("send: %v", err)
		}
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SendInput transmits one input. The predictor is not touched.
func (c *Client) SendInput(in messages.Input) error {
	id := c.ID()
	if id == messages.UnassignedID {
		return ErrNotConnected
	}
	in.Sender = id
	if _, err := c.conn.Write(protocol.EncodeInput(in)); err != nil {
		return fmt.Errorf("send input: %w", err)
	}
	return nil
}

// SendName asks the server to change our display name.
func (c *Client) SendName(name string) error {
	id := c.ID()
	if id == messages.UnassignedID {
		return ErrNotConnected
	}
	if _, err := c.conn.Write(protocol.EncodeName(nowMillis(), id, name)); err != nil {
		return fmt.Errorf("send name: %w", err)
	}
	return nil
}

func (c *Client) listen() {
	buf := make([]byte, protocol.PacketSize+1)
	for c.running.Load() {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PollTimeout))
		n, err := c.conn.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// ICMP port unreachable surfaces here while the server is down
			c.log.Debugf("read: %v", err)
			continue
		}
		c.handle(buf[:n])
	}
}

func (c *Client) handle(data []byte) {
	pkt, err := protocol.Decode(data)
	if err != nil {
		c.log.Debugf("drop datagram: %v", err)
		return
	}

	switch pkt.Header.Kind {
	case protocol.KindConnect:
		c.connectedOnce.Do(func() {
			c.id.Store(pkt.Header.Sender)
			c.state.Store(int32(StateConnected))
			c.log.Infof("connected as client %d", pkt.Header.Sender)
			close(c.connected)
		})

	case protocol.KindDisconnect:
		c.disconnectedOnce.Do(func() {
			c.log.Info("disconnect acknowledged")
			close(c.disconnected)
		})

	case protocol.KindGameState:
		gs := pkt.GameState
		id := c.ID()
		if id == messages.UnassignedID {
			// the connect echo was lost but snapshots name us anyway
			id = gs.ClientID
			c.id.Store(id)
		}
		if me, ok := gs.Player(id); ok {
			c.predictor.Reconcile(gs.Timestamp, me)
		}
		c.mu.Lock()
		c.players.Push(gs)
		c.mu.Unlock()

	case protocol.KindBulletState:
		c.mu.Lock()
		c.bullets.Push(pkt.Bullets)
		c.mu.Unlock()

	case protocol.KindBulletCollision:
		// keep the latest events when the frame loop falls behind
		select {
		case c.hitCh <- pkt.Collision:
		default:
			select {
			case <-c.hitCh:
			default:
			}
			select {
			case c.hitCh <- pkt.Collision:
			default:
			}
		}

	default:
		c.log.Debugf("ignore %s", pkt.Header.Kind)
	}
}

// View is everything needed to draw one frame.
type View struct {
	RenderTime uint64
	Local      messages.PlayerState
	Remote     []messages.PlayerState
	Bullets    []RenderBullet
}

// View trims the buffers, copies the bracketing snapshots under the lock and
// interpolates outside it.
func (c *Client) View(now time.Time) View {
	render := uint64(now.Add(-c.cfg.InterpolationDelay).UnixMilli())

	c.mu.Lock()
	c.players.RemoveUnused(render)
	c.bullets.RemoveUnused(render)
	pa, pb, havePlayers := c.players.Bracket()
	ba, bb, haveBullets := c.bullets.Bracket()
	c.mu.Unlock()

	v := View{RenderTime: render, Local: c.predictor.State()}
	id := c.ID()
	if havePlayers {
		v.Remote = InterpolatePlayers(pa, pb, render, id, c.Ease)
	}
	if haveBullets {
		v.Bullets = InterpolateBullets(ba, bb, render, id, c.Ease)
	}
	return v
}

// DrainHits returns all pending hit notifications, non-blocking.
func (c *Client) DrainHits() []messages.BulletCollision {
	return drainChan(c.hitCh)
}

func (c *Client) Predictor() *Predictor { return c.predictor }

func (c *Client) ID() int32 { return c.id.Load() }

func (c *Client) State() ClientState { return ClientState(c.state.Load()) }

// BufferedSnapshots reports how many player and bullet snapshots are held.
func (c *Client) BufferedSnapshots() (players, bullets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.players.Len(), c.bullets.Len()
}

func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
