package core

import (
	"errors"
	"net"
	"sort"

	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/shared/messages"
	"github.com/planeflight/hido/shared/netcomponents"
	"github.com/planeflight/hido/tags"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
)

// ErrCapacityExceeded is returned by Register when every id is taken.
var ErrCapacityExceeded = errors.New("server is full")

// ClientRecord is the server's view of one connected endpoint. The player
// itself lives in the world as a NetPlayer component on Entity.
type ClientRecord struct {
	ID        int32
	Addr      net.Addr
	LastInput messages.Input
	Entity    donburi.Entity
	Object    *resolv.Object // hit broadphase shape, kept in sync with the player rect
}

// Registry maps endpoints to client records. It is owned by the game loop
// goroutine and is not safe for concurrent use.
type Registry struct {
	world      donburi.World
	level      *ServerLevel
	maxPlayers int

	byAddr map[string]*ClientRecord
	byID   map[int32]*ClientRecord
}

func NewRegistry(world donburi.World, level *ServerLevel, maxPlayers int) *Registry {
	return &Registry{
		world:      world,
		level:      level,
		maxPlayers: maxPlayers,
		byAddr:     make(map[string]*ClientRecord),
		byID:       make(map[int32]*ClientRecord),
	}
}

// Register returns the record for addr, creating one with the lowest unused
// id when the endpoint is new. A full registry is left untouched.
func (r *Registry) Register(addr net.Addr) (*ClientRecord, error) {
	if rec, ok := r.byAddr[addr.String()]; ok {
		return rec, nil
	}

	id, ok := r.freeID()
	if !ok {
		return nil, ErrCapacityExceeded
	}

	rect := r.level.SpawnRect(id)
	entity := r.world.Create(tags.Player, netcomponents.NetPlayer)
	entry := r.world.Entry(entity)
	netcomponents.NetPlayer.Set(entry, &netcomponents.NetPlayerData{
		State: messages.PlayerState{
			ID:     id,
			Rect:   rect,
			Health: config.Player.Health,
			Name:   config.Player.DefaultName,
		},
	})

	obj := resolv.NewObject(rect.X, rect.Y, rect.W, rect.H, tags.ResolvPlayer)
	obj.SetShape(resolv.NewRectangle(0, 0, rect.W, rect.H))
	obj.Data = id
	r.level.Space.Add(obj)

	rec := &ClientRecord{
		ID:     id,
		Addr:   addr,
		Entity: entity,
		Object: obj,
	}
	r.byAddr[addr.String()] = rec
	r.byID[id] = rec
	return rec, nil
}

// Remove forgets addr and destroys its player. Unknown endpoints are a no-op.
func (r *Registry) Remove(addr net.Addr) (*ClientRecord, bool) {
	rec, ok := r.byAddr[addr.String()]
	if !ok {
		return nil, false
	}
	delete(r.byAddr, addr.String())
	delete(r.byID, rec.ID)

	r.level.Space.Remove(rec.Object)
	if r.world.Valid(rec.Entity) {
		r.world.Remove(rec.Entity)
	}
	return rec, true
}

// UpdateInput stores input as the latest for id when it is newer than the
// stored one. It reports whether the input was applied.
func (r *Registry) UpdateInput(id int32, input messages.Input) bool {
	rec, ok := r.byID[id]
	if !ok {
		return false
	}
	if !messages.IsNewer(input.Timestamp, rec.LastInput.Timestamp) {
		return false
	}
	input.Sender = id
	rec.LastInput = input
	return true
}

// Find returns the record registered for addr.
func (r *Registry) Find(addr net.Addr) (*ClientRecord, bool) {
	rec, ok := r.byAddr[addr.String()]
	return rec, ok
}

func (r *Registry) Lookup(id int32) (*ClientRecord, bool) {
	rec, ok := r.byID[id]
	return rec, ok
}

// All returns every record ordered by id.
func (r *Registry) All() []*ClientRecord {
	out := make([]*ClientRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Count() int {
	return len(r.byID)
}

// Player returns the authoritative state of rec. The pointer must not be
// kept past the current tick since world storage may move.
func (r *Registry) Player(rec *ClientRecord) *messages.PlayerState {
	return &netcomponents.NetPlayer.Get(r.world.Entry(rec.Entity)).State
}

// SetName sets the display name of id, truncated to the wire length.
func (r *Registry) SetName(id int32, name string) bool {
	rec, ok := r.byID[id]
	if !ok {
		return false
	}
	r.Player(rec).Name = messages.TruncateName(name)
	return true
}

func (r *Registry) freeID() (int32, bool) {
	for id := int32(0); int(id) < r.maxPlayers; id++ {
		if _, taken := r.byID[id]; !taken {
			return id, true
		}
	}
	return 0, false
}
