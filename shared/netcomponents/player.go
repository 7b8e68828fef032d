package netcomponents

import (
	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/messages"
	"github.com/yohamta/donburi"
)

// NetPlayerData is the authoritative player held by the server world and
// the value interpolated on clients.
type NetPlayerData struct {
	State    messages.PlayerState
	Velocity gamemath.Vec2 // last resolved velocity
}

var NetPlayer = donburi.NewComponentType[NetPlayerData]()

// LerpPlayer blends position and health; everything else comes from to.
func LerpPlayer(from, to messages.PlayerState, t float64) messages.PlayerState {
	out := to
	out.Rect.X = gamemath.Lerp(from.Rect.X, to.Rect.X, t)
	out.Rect.Y = gamemath.Lerp(from.Rect.Y, to.Rect.Y, t)
	out.Health = gamemath.Lerp(from.Health, to.Health, t)
	return out
}
