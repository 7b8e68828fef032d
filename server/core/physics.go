package core

import (
	"github.com/planeflight/hido/shared/movement"
	"github.com/planeflight/hido/shared/netcomponents"
)

// applyInputs turns each client's latest input into a velocity. Only the
// newest input per client is considered, however many arrived this tick.
func (s *Server) applyInputs() {
	for _, rec := range s.clients.All() {
		np := netcomponents.NetPlayer.Get(s.world.Entry(rec.Entity))
		np.Velocity = movement.Velocity(rec.LastInput, s.cfg.PlayerSpeed)
	}
}

// movePlayers resolves every player against the tile map with the fixed
// tick duration and moves its broadphase shape along.
func (s *Server) movePlayers(dt float64) {
	for _, rec := range s.clients.All() {
		np := netcomponents.NetPlayer.Get(s.world.Entry(rec.Entity))
		np.State.Rect, np.Velocity = movement.Resolve(np.State.Rect, np.Velocity, dt, s.level.Map)

		rec.Object.X = np.State.Rect.X
		rec.Object.Y = np.State.Rect.Y
		rec.Object.Update()
	}
}
