package core

import (
	"time"

	"github.com/planeflight/hido/shared/messages"
	"github.com/planeflight/hido/shared/protocol"
)

// broadcast sends each client its own GameState and every client the same
// bullet snapshot. Snapshot timestamps strictly increase even when two ticks
// land on the same millisecond.
func (s *Server) broadcast(now time.Time) {
	ts := timestamp(now)
	if !messages.IsNewer(ts, s.lastBroadcast) {
		ts = s.lastBroadcast + 1
	}
	s.lastBroadcast = ts

	recs := s.clients.All()
	players := make([]messages.PlayerState, 0, len(recs))
	for _, rec := range recs {
		players = append(players, *s.clients.Player(rec))
	}
	bullets := s.bullets()
	s.metrics.SetBulletsLive(len(bullets))

	bulletSnap := messages.BulletSnapshot{Timestamp: ts, Bullets: bullets}
	bulletData := protocol.EncodeBulletSnapshot(bulletSnap)
	for _, rec := range recs {
		gs := protocol.EncodeGameState(messages.GameState{
			Timestamp: ts,
			ClientID:  rec.ID,
			Players:   players,
		})
		if err := s.send(rec.Addr, gs); err != nil {
			s.log.Warnf("game state: %v", err)
		}
		if err := s.send(rec.Addr, bulletData); err != nil {
			s.log.Warnf("bullet state: %v", err)
		}
	}

	s.viewers.Publish(SpectatorFrame{
		Timestamp: ts,
		Players:   players,
		Bullets:   bullets,
	})
}
