package messages

import "github.com/planeflight/hido/shared/gamemath"

// MaxNameLength is the number of bytes a display name occupies on the wire.
const MaxNameLength = 12

// UnassignedID is the sender id carried by a client before the server has
// assigned one.
const UnassignedID int32 = -1

// PlayerState is the authoritative view of one player.
type PlayerState struct {
	ID     int32
	Rect   gamemath.Rect
	Health float64 // 0..1
	Name   string
}

// BulletState is one projectile in flight.
type BulletState struct {
	Created uint64 // server clock, Unix ms
	Owner   int32
	ID      uint32
	Pos     gamemath.Vec2
	Vel     gamemath.Vec2
}

// GameState is the per-recipient player snapshot. ClientID tells the
// recipient which entry is its own.
type GameState struct {
	Timestamp uint64
	ClientID  int32
	Players   []PlayerState
}

func (g GameState) Stamp() uint64 { return g.Timestamp }

// Player returns the entry with the given id.
func (g GameState) Player(id int32) (PlayerState, bool) {
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerState{}, false
}

// BulletSnapshot lists every live projectile at one tick.
type BulletSnapshot struct {
	Timestamp uint64
	Bullets   []BulletState
}

func (b BulletSnapshot) Stamp() uint64 { return b.Timestamp }

// BulletCollision notifies a victim that it was hit.
type BulletCollision struct {
	Timestamp uint64
	Victim    int32
	Damage    float64
}

// TruncateName cuts a display name to MaxNameLength bytes without splitting
// a UTF-8 sequence.
func TruncateName(name string) string {
	if len(name) <= MaxNameLength {
		return name
	}
	cut := MaxNameLength
	for cut > 0 && !isRuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
