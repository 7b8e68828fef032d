package core

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/messages"
	"github.com/planeflight/hido/shared/movement"
	"github.com/planeflight/hido/shared/netcomponents"
	"github.com/planeflight/hido/shared/protocol"
	"github.com/planeflight/hido/tags"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var bulletQuery = donburi.NewQuery(filter.Contains(tags.Bullet, netcomponents.NetBullet))

// fireBullets spawns one bullet per tick for every client whose latest
// input holds the fire flag.
func (s *Server) fireBullets(now time.Time) {
	for _, rec := range s.clients.All() {
		in := rec.LastInput
		if !in.Fire {
			continue
		}

		origin := s.clients.Player(rec).Rect.Pos()
		vel, ok := gamemath.CalculateHomingVelocity(origin, in.Aim, s.cfg.BulletSpeed)
		if !ok {
			continue
		}
		s.spawnBullet(messages.BulletState{
			Created: timestamp(now),
			Owner:   rec.ID,
			Pos:     origin,
			Vel:     vel,
		})
	}
}

func (s *Server) spawnBullet(b messages.BulletState) donburi.Entity {
	s.nextBulletID++
	b.ID = s.nextBulletID

	size := config.Bullet.Size
	obj := resolv.NewObject(b.Pos.X, b.Pos.Y, size, size, tags.ResolvBullet)
	obj.SetShape(resolv.NewRectangle(0, 0, size, size))
	obj.Data = b.ID
	s.level.Space.Add(obj)

	entity := s.world.Create(tags.Bullet, netcomponents.NetBullet)
	netcomponents.NetBullet.Set(s.world.Entry(entity), &netcomponents.NetBulletData{
		State:  b,
		Object: obj,
	})
	return entity
}

func (s *Server) removeBullet(e donburi.Entity) {
	if !s.world.Valid(e) {
		return
	}
	nb := netcomponents.NetBullet.Get(s.world.Entry(e))
	s.level.Space.Remove(nb.Object)
	s.world.Remove(e)
}

// stepBullets advances every bullet and removes those that hit a wall, left
// the map or outlived BulletLifetime.
func (s *Server) stepBullets(now time.Time, dt float64) {
	ts := timestamp(now)
	lifetime := uint64(s.cfg.BulletLifetime.Milliseconds())

	var dead []donburi.Entity
	bulletQuery.Each(s.world, func(entry *donburi.Entry) {
		nb := netcomponents.NetBullet.Get(entry)
		next, hit := movement.StepBullet(nb.State, dt, s.level.Map)
		nb.State = next

		expired := lifetime > 0 && ts > next.Created && ts-next.Created > lifetime
		if hit || expired {
			dead = append(dead, entry.Entity())
			return
		}
		nb.Object.X = next.Pos.X
		nb.Object.Y = next.Pos.Y
		nb.Object.Update()
	})

	for _, e := range dead {
		s.removeBullet(e)
	}
}

// resolveHits applies lag-compensated bullet hits. Candidates come from the
// resolv space and are confirmed with an exact rectangle overlap. A bullet
// only hits a victim whose last input is within LagWindow of the bullet's
// creation time.
func (s *Server) resolveHits(now time.Time) {
	window := uint64(s.cfg.LagWindow.Milliseconds())

	var dead []donburi.Entity
	bulletQuery.Each(s.world, func(entry *donburi.Entry) {
		nb := netcomponents.NetBullet.Get(entry)
		check := nb.Object.Check(0, 0, tags.ResolvPlayer)
		if check == nil {
			return
		}

		area := movement.BulletRect(nb.State)
		for _, obj := range check.ObjectsByTags(tags.ResolvPlayer) {
			id, ok := obj.Data.(int32)
			if !ok || id == nb.State.Owner {
				continue
			}
			rec, ok := s.clients.Lookup(id)
			if !ok {
				continue
			}
			if absDiff(nb.State.Created, rec.LastInput.Timestamp) > window {
				continue
			}
			victim := s.clients.Player(rec)
			if !victim.Rect.Overlaps(area) {
				continue
			}

			victim.Health = math.Max(0, victim.Health-s.cfg.BulletDamage)
			dead = append(dead, entry.Entity())
			s.notifyHit(now, id, nb.State)
			return
		}
	})

	for _, e := range dead {
		s.removeBullet(e)
	}
}

func (s *Server) notifyHit(now time.Time, victim int32, b messages.BulletState) {
	data := protocol.EncodeBulletCollision(messages.BulletCollision{
		Timestamp: timestamp(now),
		Victim:    victim,
		Damage:    s.cfg.BulletDamage,
	})
	if err := s.sendTo(victim, data); err != nil {
		if errors.Is(err, ErrUnknownRecipient) {
			s.log.Warnf("bullet %d from %d: %v", b.ID, b.Owner, err)
			return
		}
		s.log.Debugf("bullet collision: %v", err)
		return
	}
	s.log.Debugf("bullet %d from %d hit %d", b.ID, b.Owner, victim)
}

// bullets returns every live bullet ordered by id.
func (s *Server) bullets() []messages.BulletState {
	var out []messages.BulletState
	bulletQuery.Each(s.world, func(entry *donburi.Entry) {
		out = append(out, netcomponents.NetBullet.Get(entry).State)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
