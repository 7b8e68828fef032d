package core

import (
	"sync/atomic"
	"time"
)

// LoopState is the phase the game loop is currently in.
type LoopState int32

const (
	StateWaitingForTick LoopState = iota
	StateProcessingInput
	StateSimulating
	StateBroadcasting
)

func (s LoopState) String() string {
	switch s {
	case StateWaitingForTick:
		return "waiting"
	case StateProcessingInput:
		return "processing_input"
	case StateSimulating:
		return "simulating"
	case StateBroadcasting:
		return "broadcasting"
	default:
		return "unknown"
	}
}

type GameLoop struct {
	server   *Server
	interval time.Duration
	state    atomic.Int32
	stopChan chan struct{}
}

func NewGameLoop(server *Server, interval time.Duration) *GameLoop {
	return &GameLoop{
		server:   server,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Run is the single goroutine that mutates the world. Datagrams are applied
// between ticks in arrival order.
func (g *GameLoop) Run() {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.server.log.Infof("game loop started at %s per tick", g.interval)

	for {
		select {
		case <-g.stopChan:
			g.server.log.Info("game loop stopped")
			return
		case d := <-g.server.datagrams:
			g.server.HandleDatagram(d.addr, d.data, d.at)
		case now := <-ticker.C:
			g.server.Tick(now)
		}
	}
}

func (g *GameLoop) Stop() {
	close(g.stopChan)
}

func (g *GameLoop) State() LoopState {
	return LoopState(g.state.Load())
}

func (g *GameLoop) setState(s LoopState) {
	g.state.Store(int32(s))
}

// Tick advances the world by one fixed interval and broadcasts the result.
func (s *Server) Tick(now time.Time) {
	start := time.Now()
	dt := s.cfg.TickInterval.Seconds()

	s.loop.setState(StateProcessingInput)
	s.applyInputs()

	s.loop.setState(StateSimulating)
	s.movePlayers(dt)
	s.fireBullets(now)
	s.stepBullets(now, dt)
	s.resolveHits(now)

	s.loop.setState(StateBroadcasting)
	s.broadcast(now)

	s.loop.setState(StateWaitingForTick)
	s.metrics.AddTick(time.Since(start))
}
