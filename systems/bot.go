package systems

import (
	"math"
	"math/rand"

	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/network"
	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/messages"
)

// Bot is an InputSource. It shoots at the nearest remote player in range,
// walks a nav grid path toward players out of range and otherwise wanders.
type Bot struct {
	tuning config.BotDifficultyConfig
	rng    *rand.Rand
	nav    *NavGrid

	dx, dy      int
	sinceWander float64
	sinceFire   float64
	sinceRepath float64
	started     bool

	path []gamemath.Vec2
}

// NewBot creates a bot. The seed makes its decisions reproducible.
func NewBot(difficulty config.BotDifficulty, seed int64) *Bot {
	tuning, ok := config.Bot.Difficulties[difficulty]
	if !ok {
		tuning = config.Bot.Difficulties[config.BotDifficultyNormal]
	}
	return &Bot{
		tuning: tuning,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// SetNavGrid enables chasing players that are out of range.
func (b *Bot) SetNavGrid(nav *NavGrid) {
	b.nav = nav
	b.path = nil
}

func (b *Bot) Sample(view network.View, dt float64) messages.Input {
	b.sinceWander += dt
	b.sinceFire += dt
	b.sinceRepath += dt

	if view.Local.Health <= 0 {
		return b.wander()
	}

	if target, ok := nearestTarget(view.Local, view.Remote, b.tuning.AttackRange); ok {
		b.path = nil
		in := b.wander()
		in.Aim = target.Rect.Pos()
		if b.sinceFire >= b.tuning.FireInterval.Seconds() {
			b.sinceFire = 0
			in.Fire = true
		}
		return in
	}

	if b.nav != nil {
		if target, ok := nearestTarget(view.Local, view.Remote, math.Inf(1)); ok {
			if in, ok := b.chase(view.Local, target); ok {
				return in
			}
		}
	}
	return b.wander()
}

// wander holds a random direction for WanderInterval.
func (b *Bot) wander() messages.Input {
	if !b.started || b.sinceWander >= b.tuning.WanderInterval.Seconds() {
		b.started = true
		b.sinceWander = 0
		b.dx = b.rng.Intn(3) - 1
		b.dy = b.rng.Intn(3) - 1
	}
	return messages.Input{
		Left:  b.dx < 0,
		Right: b.dx > 0,
		Up:    b.dy < 0,
		Down:  b.dy > 0,
	}
}

// chase steers toward the next waypoint on a path to target, recomputing
// the path every RepathInterval.
func (b *Bot) chase(self, target messages.PlayerState) (messages.Input, bool) {
	from := center(self.Rect)
	if b.path == nil || b.sinceRepath >= config.Bot.RepathInterval.Seconds() {
		b.sinceRepath = 0
		b.path = b.path[:0]
		to := center(target.Rect)
		for _, n := range b.nav.FindPath(from.X, from.Y, to.X, to.Y) {
			b.path = append(b.path, b.nav.GridToWorld(n.X, n.Y))
		}
	}

	for len(b.path) > 0 && b.path[0].Sub(from).Length() <= config.Bot.WaypointReach {
		b.path = b.path[1:]
	}
	if len(b.path) == 0 {
		return messages.Input{}, false
	}

	d := b.path[0].Sub(from)
	reach := config.Bot.WaypointReach / 2
	return messages.Input{
		Left:  d.X < -reach,
		Right: d.X > reach,
		Up:    d.Y < -reach,
		Down:  d.Y > reach,
	}, true
}

// nearestTarget picks the closest living remote player within maxRange.
func nearestTarget(self messages.PlayerState, remote []messages.PlayerState, maxRange float64) (messages.PlayerState, bool) {
	best := math.Inf(1)
	var found messages.PlayerState
	ok := false
	for _, p := range remote {
		if p.ID == self.ID || p.Health <= 0 {
			continue
		}
		d := center(p.Rect).Sub(center(self.Rect)).Length()
		if d <= maxRange && d < best {
			best, found, ok = d, p, true
		}
	}
	return found, ok
}

func center(r gamemath.Rect) gamemath.Vec2 {
	return gamemath.Vec2{X: r.X + r.W/2, Y: r.Y + r.H/2}
}
