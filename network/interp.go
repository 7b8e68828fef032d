package network

import (
	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/messages"
	"github.com/planeflight/hido/shared/netcomponents"
	"github.com/tanema/gween/ease"
)

const defaultBufferCapacity = 64

// Stamped is anything ordered by a snapshot timestamp.
type Stamped interface {
	Stamp() uint64
}

// SnapshotBuffer keeps received snapshots in strictly increasing timestamp
// order. It is not safe for concurrent use; Client guards it.
type SnapshotBuffer[T Stamped] struct {
	items    []T
	capacity int
}

func NewSnapshotBuffer[T Stamped](capacity int) *SnapshotBuffer[T] {
	if capacity < 2 {
		capacity = defaultBufferCapacity
	}
	return &SnapshotBuffer[T]{capacity: capacity}
}

// Push appends v when it is newer than the newest held snapshot. Late or
// duplicate snapshots are dropped. A full buffer discards its oldest entry.
func (b *SnapshotBuffer[T]) Push(v T) bool {
	if n := len(b.items); n > 0 && !messages.IsNewer(v.Stamp(), b.items[n-1].Stamp()) {
		return false
	}
	if len(b.items) == b.capacity {
		b.items = append(b.items[:0], b.items[1:]...)
	}
	b.items = append(b.items, v)
	return true
}

// RemoveUnused drops snapshots that can no longer bracket renderTime. Two
// snapshots are always kept.
func (b *SnapshotBuffer[T]) RemoveUnused(renderTime uint64) {
	drop := 0
	for len(b.items)-drop > 2 && b.items[drop+1].Stamp() <= renderTime {
		drop++
	}
	if drop > 0 {
		b.items = append(b.items[:0], b.items[drop:]...)
	}
}

// Bracket returns the two oldest snapshots. With a single snapshot both
// results are that snapshot.
func (b *SnapshotBuffer[T]) Bracket() (a, c T, ok bool) {
	switch len(b.items) {
	case 0:
		return a, c, false
	case 1:
		return b.items[0], b.items[0], true
	default:
		return b.items[0], b.items[1], true
	}
}

func (b *SnapshotBuffer[T]) Len() int {
	return len(b.items)
}

// Latest returns the newest snapshot.
func (b *SnapshotBuffer[T]) Latest() (T, bool) {
	var zero T
	if len(b.items) == 0 {
		return zero, false
	}
	return b.items[len(b.items)-1], true
}

// Factor returns where renderTime lies between a and b, clamped to [0, 1].
// It is exactly 0 at a and exactly 1 at b, and 1 when a equals b.
func Factor(renderTime, a, b uint64) float64 {
	if b <= a || renderTime >= b {
		return 1
	}
	if renderTime <= a {
		return 0
	}
	return gamemath.Clamp(float64(renderTime-a)/float64(b-a), 0, 1)
}

func eased(fn ease.TweenFunc, t float64) float64 {
	if fn == nil {
		fn = ease.Linear
	}
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return float64(fn(float32(t), 0, 1, 1))
}

// InterpolatePlayers blends every player of b with its entry in a. Players
// missing from a are shown at b. The local player is excluded since it is
// predicted instead.
func InterpolatePlayers(a, b messages.GameState, renderTime uint64, localID int32, fn ease.TweenFunc) []messages.PlayerState {
	t := eased(fn, Factor(renderTime, a.Timestamp, b.Timestamp))
	out := make([]messages.PlayerState, 0, len(b.Players))
	for _, p := range b.Players {
		if p.ID == localID {
			continue
		}
		if prev, ok := a.Player(p.ID); ok {
			p = netcomponents.LerpPlayer(prev, p, t)
		}
		out = append(out, p)
	}
	return out
}

// RenderBullet is an interpolated projectile. Foreign is set when the
// bullet was fired by someone other than the local player.
type RenderBullet struct {
	messages.BulletState
	Foreign bool
}

// InterpolateBullets blends every bullet of b with its entry in a.
func InterpolateBullets(a, b messages.BulletSnapshot, renderTime uint64, localID int32, fn ease.TweenFunc) []RenderBullet {
	t := eased(fn, Factor(renderTime, a.Timestamp, b.Timestamp))
	prev := make(map[uint32]messages.BulletState, len(a.Bullets))
	for _, bl := range a.Bullets {
		prev[bl.ID] = bl
	}

	out := make([]RenderBullet, 0, len(b.Bullets))
	for _, bl := range b.Bullets {
		if old, ok := prev[bl.ID]; ok {
			bl = netcomponents.LerpBullet(old, bl, t)
		}
		out = append(out, RenderBullet{BulletState: bl, Foreign: bl.Owner != localID})
	}
	return out
}
