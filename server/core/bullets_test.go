package core

import (
	"testing"
	"time"

	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/leveldata"
	"github.com/planeflight/hido/shared/messages"
	"github.com/planeflight/hido/shared/protocol"
)

const tick = 16 * time.Millisecond

func bulletIDs(snap messages.BulletSnapshot) map[uint32]messages.BulletState {
	out := make(map[uint32]messages.BulletState, len(snap.Bullets))
	for _, b := range snap.Bullets {
		out[b.ID] = b
	}
	return out
}

func TestBulletRemovedOnWall(t *testing.T) {
	g := testGrid()
	// vertical wall in column 5 (x 80..96)
	for y := 0; y < 30; y++ {
		g.Set(5, y, 1)
	}
	s, conn := newTestServer(t, g, 2)
	now := time.UnixMilli(1_000_000)
	addr := clientAddr(0)
	id := connect(t, s, conn, addr, now)

	aim := gamemath.Vec2{X: 300, Y: config.Player.SpawnY}
	s.HandleDatagram(addr, protocol.EncodeInput(messages.Input{Timestamp: 100, Fire: true, Aim: aim}), now)

	var seen []bool
	for i := 0; i < 20; i++ {
		s.Tick(now)
		now = now.Add(tick)
		if i == 0 {
			// release the trigger so only one bullet is in flight
			s.HandleDatagram(addr, protocol.EncodeInput(messages.Input{Timestamp: 101, Aim: aim}), now)
		}
	}
	for _, p := range conn.packets(t, addr, protocol.KindBulletState) {
		seen = append(seen, len(p.Bullets.Bullets) == 1)
		for _, b := range p.Bullets.Bullets {
			if b.Owner != id || b.ID != 1 {
				t.Fatalf("unexpected bullet %+v", b)
			}
		}
	}
	if len(seen) != 20 {
		t.Fatalf("got %d bullet snapshots", len(seen))
	}

	// 300 px/s over 16 ms ticks from x=20: the 6px bullet reaches x=80 on tick 12
	for i, present := range seen {
		want := i < 11
		if present != want {
			t.Fatalf("tick %d: bullet present = %v, want %v", i+1, present, want)
		}
	}
}

func TestHeldFireSpawnsEveryTick(t *testing.T) {
	s, conn := newTestServer(t, testGrid(), 2)
	now := time.UnixMilli(1_000_000)
	addr := clientAddr(0)
	connect(t, s, conn, addr, now)

	aim := gamemath.Vec2{X: 300, Y: 20}
	s.HandleDatagram(addr, protocol.EncodeInput(messages.Input{Timestamp: 100, Fire: true, Aim: aim}), now)
	const ticks = 3
	for i := 0; i < ticks; i++ {
		s.Tick(now.Add(time.Duration(i) * tick))
	}

	bullets := s.bullets()
	if len(bullets) != ticks {
		t.Fatalf("held fire flag spawned %d bullets over %d ticks, want %d", len(bullets), ticks, ticks)
	}
	for i := 1; i < len(bullets); i++ {
		if bullets[i].ID <= bullets[i-1].ID {
			t.Fatalf("bullet ids not strictly increasing: %+v", bullets)
		}
	}

	s.HandleDatagram(addr, protocol.EncodeInput(messages.Input{Timestamp: 101, Aim: aim}), now)
	s.Tick(now.Add(ticks * tick))
	if n := len(s.bullets()); n != ticks {
		t.Fatalf("released trigger still spawned bullets, %d live", n)
	}
}

func TestZeroLengthAimSpawnsNothing(t *testing.T) {
	s, conn := newTestServer(t, testGrid(), 2)
	now := time.UnixMilli(1_000_000)
	addr := clientAddr(0)
	connect(t, s, conn, addr, now)

	aim := gamemath.Vec2{X: config.Player.SpawnX, Y: config.Player.SpawnY}
	s.HandleDatagram(addr, protocol.EncodeInput(messages.Input{Timestamp: 100, Fire: true, Aim: aim}), now)
	s.Tick(now)
	if n := len(s.bullets()); n != 0 {
		t.Fatalf("zero-length aim spawned %d bullets", n)
	}
}

func TestBulletHitsPlayerWithinLagWindow(t *testing.T) {
	s, conn := newTestServer(t, testGrid(), 2)
	now := time.UnixMilli(1_000_000)
	shooter, victim := clientAddr(0), clientAddr(1)
	connect(t, s, conn, shooter, now)
	victimID := connect(t, s, conn, victim, now)

	// both spawn at the same point, so the first step overlaps the victim
	aim := gamemath.Vec2{X: 300, Y: config.Player.SpawnY}
	s.HandleDatagram(shooter, protocol.EncodeInput(messages.Input{Timestamp: timestamp(now), Fire: true, Aim: aim}), now)
	s.HandleDatagram(victim, protocol.EncodeInput(messages.Input{Timestamp: timestamp(now)}), now)
	s.Tick(now)

	hits := conn.packets(t, victim, protocol.KindBulletCollision)
	if len(hits) != 1 || hits[0].Collision.Victim != victimID {
		t.Fatalf("expected one collision for the victim, got %+v", hits)
	}
	if got := conn.packets(t, shooter, protocol.KindBulletCollision); len(got) != 0 {
		t.Fatalf("shooter should not be notified")
	}

	rec, _ := s.clients.Lookup(victimID)
	want := config.Player.Health - s.cfg.BulletDamage
	if got := s.clients.Player(rec).Health; got != want {
		t.Fatalf("victim health = %v, want %v", got, want)
	}
	if n := len(s.bullets()); n != 0 {
		t.Fatalf("bullet should be consumed by the hit, %d remain", n)
	}
}

func TestBulletIgnoresVictimOutsideLagWindow(t *testing.T) {
	s, conn := newTestServer(t, testGrid(), 2)
	now := time.UnixMilli(1_000_000)
	shooter, victim := clientAddr(0), clientAddr(1)
	connect(t, s, conn, shooter, now)
	victimID := connect(t, s, conn, victim, now)

	aim := gamemath.Vec2{X: 300, Y: config.Player.SpawnY}
	s.HandleDatagram(shooter, protocol.EncodeInput(messages.Input{Timestamp: timestamp(now), Fire: true, Aim: aim}), now)
	stale := now.Add(-time.Second)
	s.HandleDatagram(victim, protocol.EncodeInput(messages.Input{Timestamp: timestamp(stale)}), now)
	s.Tick(now)

	if got := conn.packets(t, victim, protocol.KindBulletCollision); len(got) != 0 {
		t.Fatalf("victim outside the lag window was hit")
	}
	rec, _ := s.clients.Lookup(victimID)
	if s.clients.Player(rec).Health != config.Player.Health {
		t.Fatalf("victim lost health")
	}
	if n := len(s.bullets()); n != 1 {
		t.Fatalf("bullet should keep flying, %d live", n)
	}
}

func TestHealthNeverNegative(t *testing.T) {
	s, conn := newTestServer(t, testGrid(), 2)
	now := time.UnixMilli(1_000_000)
	shooter, victim := clientAddr(0), clientAddr(1)
	connect(t, s, conn, shooter, now)
	victimID := connect(t, s, conn, victim, now)

	rec, _ := s.clients.Lookup(victimID)
	s.clients.Player(rec).Health = 0.1

	aim := gamemath.Vec2{X: 300, Y: config.Player.SpawnY}
	s.HandleDatagram(shooter, protocol.EncodeInput(messages.Input{Timestamp: timestamp(now), Fire: true, Aim: aim}), now)
	s.HandleDatagram(victim, protocol.EncodeInput(messages.Input{Timestamp: timestamp(now)}), now)
	s.Tick(now)

	if got := s.clients.Player(rec).Health; got != 0 {
		t.Fatalf("health = %v, want 0", got)
	}
}

func TestBulletExpires(t *testing.T) {
	s, _ := newTestServer(t, testGrid(), 2)
	s.cfg.BulletLifetime = 50 * time.Millisecond
	now := time.UnixMilli(1_000_000)

	s.spawnBullet(messages.BulletState{
		Created: timestamp(now),
		Owner:   0,
		Pos:     gamemath.Vec2{X: 100, Y: 100},
		Vel:     gamemath.Vec2{X: 1},
	})
	s.stepBullets(now.Add(40*time.Millisecond), 0.016)
	if len(s.bullets()) != 1 {
		t.Fatalf("bullet expired early")
	}
	s.stepBullets(now.Add(60*time.Millisecond), 0.016)
	if len(s.bullets()) != 0 {
		t.Fatalf("bullet outlived its lifetime")
	}
}

func TestPlayerStaysHittableOnBorderlessMap(t *testing.T) {
	g := leveldata.NewGrid(40, 30, 16, 16)
	s, conn := newTestServer(t, g, 2)
	now := time.UnixMilli(1_000_000)
	addr := clientAddr(0)
	id := connect(t, s, conn, addr, now)

	inputTS := timestamp(now)
	s.HandleDatagram(addr, protocol.EncodeInput(messages.Input{Timestamp: inputTS, Left: true}), now)
	for i := 0; i < 50; i++ {
		now = now.Add(tick)
		s.Tick(now)
	}

	rec, _ := s.clients.Lookup(id)
	victim := s.clients.Player(rec)
	if victim.Rect.X != 0 {
		t.Fatalf("player walked off the map to x=%v", victim.Rect.X)
	}

	s.spawnBullet(messages.BulletState{
		Created: inputTS,
		Owner:   id + 1,
		Pos:     gamemath.Vec2{X: victim.Rect.X + 1, Y: victim.Rect.Y + 1},
	})
	s.resolveHits(now)
	if victim.Health != config.Player.Health-s.cfg.BulletDamage {
		t.Fatalf("player at the map edge was not hit, health %v", victim.Health)
	}
}
