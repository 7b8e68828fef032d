// Package movement is the collision resolver shared by client prediction and
// the authoritative server. Both sides must produce identical results for
// identical inputs, so nothing here reads clocks or global state.
package movement

import (
	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/leveldata"
	"github.com/planeflight/hido/shared/messages"
)

// Resolve moves rect by vel*dt against the blocking tiles of m. The x axis
// is moved and resolved first, then the y axis, which lets a rectangle slide
// along a wall instead of sticking to it. The returned velocity has the
// component zeroed for every axis that was blocked. The map edge blocks like
// a wall, so a rectangle never leaves Bounds on maps without a border.
func Resolve(rect gamemath.Rect, vel gamemath.Vec2, dt float64, m leveldata.TileMap) (gamemath.Rect, gamemath.Vec2) {
	bounds := m.Bounds()

	rect.X += vel.X * dt
	if tile, ok := firstBlocking(rect, m); ok {
		if vel.X < 0 {
			rect.X = tile.Right()
		} else if vel.X > 0 {
			rect.X = tile.X - rect.W
		}
		vel.X = 0
	}
	if rect.X < bounds.X {
		rect.X, vel.X = bounds.X, 0
	} else if rect.Right() > bounds.Right() {
		rect.X, vel.X = bounds.Right()-rect.W, 0
	}

	rect.Y += vel.Y * dt
	if tile, ok := firstBlocking(rect, m); ok {
		if vel.Y < 0 {
			rect.Y = tile.Bottom()
		} else if vel.Y > 0 {
			rect.Y = tile.Y - rect.H
		}
		vel.Y = 0
	}
	if rect.Y < bounds.Y {
		rect.Y, vel.Y = bounds.Y, 0
	} else if rect.Bottom() > bounds.Bottom() {
		rect.Y, vel.Y = bounds.Bottom()-rect.H, 0
	}

	return rect, vel
}

// Velocity returns the movement velocity for the direction flags of an input.
// Opposite flags cancel.
func Velocity(in messages.Input, speed float64) gamemath.Vec2 {
	var v gamemath.Vec2
	if in.Up {
		v.Y -= speed
	}
	if in.Down {
		v.Y += speed
	}
	if in.Left {
		v.X -= speed
	}
	if in.Right {
		v.X += speed
	}
	return v
}

// Step applies one input to a player state and returns the moved state and
// the resolved velocity.
func Step(p messages.PlayerState, in messages.Input, speed float64, m leveldata.TileMap) (messages.PlayerState, gamemath.Vec2) {
	rect, vel := Resolve(p.Rect, Velocity(in, speed), in.DT, m)
	p.Rect = rect
	return p, vel
}

// StepBullet advances a projectile by its velocity. hit is true when the
// projectile now overlaps a blocking tile or has left the map.
func StepBullet(b messages.BulletState, dt float64, m leveldata.TileMap) (messages.BulletState, bool) {
	b.Pos = b.Pos.Add(b.Vel.Scale(dt))
	r := BulletRect(b)
	if !m.Bounds().Overlaps(r) {
		return b, true
	}
	_, hit := firstBlocking(r, m)
	return b, hit
}

// BulletRect returns the square hit area of a projectile.
func BulletRect(b messages.BulletState) gamemath.Rect {
	return gamemath.Rect{X: b.Pos.X, Y: b.Pos.Y, W: config.Bullet.Size, H: config.Bullet.Size}
}

func firstBlocking(r gamemath.Rect, m leveldata.TileMap) (gamemath.Rect, bool) {
	for _, t := range m.IntersectingTiles(r) {
		if !m.HasProperty(t, config.Map.BlockingProperty) {
			continue
		}
		tr := m.TileRect(t.Index)
		if tr.Overlaps(r) {
			return tr, true
		}
	}
	return gamemath.Rect{}, false
}
