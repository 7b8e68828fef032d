package netcomponents

import (
	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/messages"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
)

// NetBulletData is a projectile in the server world. Object is its entry in
// the hit broadphase space.
type NetBulletData struct {
	State  messages.BulletState
	Object *resolv.Object
}

var NetBullet = donburi.NewComponentType[NetBulletData]()

// LerpBullet blends the position of a projectile.
func LerpBullet(from, to messages.BulletState, t float64) messages.BulletState {
	out := to
	out.Pos.X = gamemath.Lerp(from.Pos.X, to.Pos.X, t)
	out.Pos.Y = gamemath.Lerp(from.Pos.Y, to.Pos.Y, t)
	return out
}
