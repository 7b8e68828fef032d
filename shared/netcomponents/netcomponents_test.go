package netcomponents

import (
	"testing"

	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/messages"
)

func TestLerpPlayer(t *testing.T) {
	from := messages.PlayerState{ID: 1, Rect: gamemath.Rect{X: 0, Y: 10, W: 8, H: 12}, Health: 1, Name: "old"}
	to := messages.PlayerState{ID: 1, Rect: gamemath.Rect{X: 10, Y: 20, W: 8, H: 12}, Health: 0.5, Name: "new"}

	mid := LerpPlayer(from, to, 0.5)
	if mid.Rect.X != 5 || mid.Rect.Y != 15 || mid.Health != 0.75 {
		t.Fatalf("unexpected blend %+v", mid)
	}
	if mid.Name != "new" || mid.Rect.W != 8 {
		t.Fatalf("non-blended fields should come from the newer state, got %+v", mid)
	}

	start := LerpPlayer(from, to, 0)
	if start.Rect != from.Rect || start.Health != from.Health {
		t.Fatalf("t=0 should reproduce the older state, got %+v", start)
	}
	if end := LerpPlayer(from, to, 1); end != to {
		t.Fatalf("t=1 should reproduce the newer state, got %+v", end)
	}
}

func TestLerpBullet(t *testing.T) {
	from := messages.BulletState{ID: 4, Pos: gamemath.Vec2{X: 0, Y: 0}}
	to := messages.BulletState{ID: 4, Pos: gamemath.Vec2{X: 30, Y: -6}, Vel: gamemath.Vec2{X: 300}}
	mid := LerpBullet(from, to, 0.5)
	if mid.Pos.X != 15 || mid.Pos.Y != -3 || mid.Vel.X != 300 {
		t.Fatalf("unexpected blend %+v", mid)
	}
}
