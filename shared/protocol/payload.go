package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/messages"
)

// Payload sizes
const (
	InputSize           = 1 + 4*3
	BulletCollisionSize = 4 + 4
	NameSize            = messages.MaxNameLength

	gameStatePrefix   = 4 + 2 // client id + count
	playerRecordSize  = 4 + 4*4 + 4 + messages.MaxNameLength
	bulletStatePrefix = 2 // count
	bulletRecordSize  = 8 + 4 + 4 + 4*4
)

// Capacities of the variable length payloads.
const (
	MaxPlayersPerPacket = (PacketSize - HeaderSize - gameStatePrefix) / playerRecordSize
	MaxBulletsPerPacket = (PacketSize - HeaderSize - bulletStatePrefix) / bulletRecordSize
)

const (
	flagUp byte = 1 << iota
	flagDown
	flagLeft
	flagRight
	flagFire
)

// Packet is a decoded datagram. Only the field matching Header.Kind is set.
type Packet struct {
	Header    Header
	Input     messages.Input
	GameState messages.GameState
	Bullets   messages.BulletSnapshot
	Collision messages.BulletCollision
	Name      string
}

// writer appends big-endian values to a preallocated buffer.
type writer struct {
	buf []byte
}

func (w *writer) u8(v byte)    { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) u64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }
func (w *writer) i32(v int32)  { w.u32(uint32(v)) }
func (w *writer) f32(v float64) {
	w.u32(math.Float32bits(float32(v)))
}

func (w *writer) name(s string) {
	var field [messages.MaxNameLength]byte
	copy(field[:], messages.TruncateName(s))
	w.buf = append(w.buf, field[:]...)
}

// reader consumes big-endian values. Callers check lengths up front.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u8() byte {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) f32() float64 {
	return float64(math.Float32frombits(r.u32()))
}

func (r *reader) name() string {
	field := r.buf[r.off : r.off+messages.MaxNameLength]
	r.off += messages.MaxNameLength
	n := 0
	for n < len(field) && field[n] != 0 {
		n++
	}
	return string(field[:n])
}

func encode(ts uint64, kind Kind, sender int32, payloadSize int, fill func(w *writer)) []byte {
	h := Header{Timestamp: ts, Kind: kind, Sender: sender, Size: uint16(payloadSize)}
	w := &writer{buf: make([]byte, HeaderSize, HeaderSize+payloadSize)}
	h.put(w.buf)
	if fill != nil {
		fill(w)
	}
	return w.buf
}

// EncodeConnect builds a connect request, or the server's echo carrying the
// assigned id in sender.
func EncodeConnect(ts uint64, sender int32) []byte {
	return encode(ts, KindConnect, sender, 0, nil)
}

// EncodeDisconnect builds a disconnect request or its acknowledgment.
func EncodeDisconnect(ts uint64, sender int32) []byte {
	return encode(ts, KindDisconnect, sender, 0, nil)
}

func EncodeInput(in messages.Input) []byte {
	return encode(in.Timestamp, KindInput, in.Sender, InputSize, func(w *writer) {
		var flags byte
		if in.Up {
			flags |= flagUp
		}
		if in.Down {
			flags |= flagDown
		}
		if in.Left {
			flags |= flagLeft
		}
		if in.Right {
			flags |= flagRight
		}
		if in.Fire {
			flags |= flagFire
		}
		w.u8(flags)
		w.f32(in.Aim.X)
		w.f32(in.Aim.Y)
		w.f32(in.DT)
	})
}

// EncodeGameState builds a player snapshot. Players beyond
// MaxPlayersPerPacket are dropped.
func EncodeGameState(gs messages.GameState) []byte {
	players := gs.Players
	if len(players) > MaxPlayersPerPacket {
		players = players[:MaxPlayersPerPacket]
	}
	size := gameStatePrefix + len(players)*playerRecordSize
	return encode(gs.Timestamp, KindGameState, messages.UnassignedID, size, func(w *writer) {
		w.i32(gs.ClientID)
		w.u16(uint16(len(players)))
		for _, p := range players {
			w.i32(p.ID)
			w.f32(p.Rect.X)
			w.f32(p.Rect.Y)
			w.f32(p.Rect.W)
			w.f32(p.Rect.H)
			w.f32(p.Health)
			w.name(p.Name)
		}
	})
}

// EncodeBulletSnapshot builds a bullet snapshot. Bullets beyond
// MaxBulletsPerPacket are dropped.
func EncodeBulletSnapshot(bs messages.BulletSnapshot) []byte {
	bullets := bs.Bullets
	if len(bullets) > MaxBulletsPerPacket {
		bullets = bullets[:MaxBulletsPerPacket]
	}
	size := bulletStatePrefix + len(bullets)*bulletRecordSize
	return encode(bs.Timestamp, KindBulletState, messages.UnassignedID, size, func(w *writer) {
		w.u16(uint16(len(bullets)))
		for _, b := range bullets {
			w.u64(b.Created)
			w.i32(b.Owner)
			w.u32(b.ID)
			w.f32(b.Pos.X)
			w.f32(b.Pos.Y)
			w.f32(b.Vel.X)
			w.f32(b.Vel.Y)
		}
	})
}

func EncodeBulletCollision(c messages.BulletCollision) []byte {
	return encode(c.Timestamp, KindBulletCollision, messages.UnassignedID, BulletCollisionSize, func(w *writer) {
		w.i32(c.Victim)
		w.f32(c.Damage)
	})
}

// EncodeName sets the sender's display name, truncated to MaxNameLength.
func EncodeName(ts uint64, sender int32, name string) []byte {
	return encode(ts, KindName, sender, NameSize, func(w *writer) {
		w.name(name)
	})
}

// Decode parses one datagram. The returned packet shares no memory with
// data.
func Decode(data []byte) (Packet, error) {
	var p Packet
	if len(data) > PacketSize {
		return p, fmt.Errorf("%w: %d bytes exceeds %d", ErrMalformedPacket, len(data), PacketSize)
	}
	if err := p.Header.UnmarshalBinary(data); err != nil {
		return p, err
	}
	h := p.Header
	if !h.Kind.valid() {
		return p, fmt.Errorf("%w: unknown kind %d", ErrMalformedPacket, uint8(h.Kind))
	}
	payload := data[HeaderSize:]
	if int(h.Size) != len(payload) {
		return p, fmt.Errorf("%w: header size %d, payload %d", ErrMalformedPacket, h.Size, len(payload))
	}

	r := &reader{buf: payload}
	switch h.Kind {
	case KindConnect, KindDisconnect:
		if len(payload) != 0 {
			return p, sizeMismatch(h.Kind, len(payload), 0)
		}

	case KindInput:
		if len(payload) != InputSize {
			return p, sizeMismatch(h.Kind, len(payload), InputSize)
		}
		flags := r.u8()
		p.Input = messages.Input{
			Timestamp: h.Timestamp,
			Sender:    h.Sender,
			Up:        flags&flagUp != 0,
			Down:      flags&flagDown != 0,
			Left:      flags&flagLeft != 0,
			Right:     flags&flagRight != 0,
			Fire:      flags&flagFire != 0,
		}
		p.Input.Aim.X = r.f32()
		p.Input.Aim.Y = r.f32()
		p.Input.DT = r.f32()

	case KindGameState:
		if len(payload) < gameStatePrefix {
			return p, sizeMismatch(h.Kind, len(payload), gameStatePrefix)
		}
		clientID := r.i32()
		count := int(r.u16())
		if err := checkCount(h.Kind, count, MaxPlayersPerPacket, len(payload), gameStatePrefix, playerRecordSize); err != nil {
			return p, err
		}
		gs := messages.GameState{
			Timestamp: h.Timestamp,
			ClientID:  clientID,
			Players:   make([]messages.PlayerState, count),
		}
		for i := range gs.Players {
			pl := &gs.Players[i]
			pl.ID = r.i32()
			pl.Rect = gamemath.Rect{X: r.f32(), Y: r.f32(), W: r.f32(), H: r.f32()}
			pl.Health = r.f32()
			pl.Name = r.name()
		}
		p.GameState = gs

	case KindBulletState:
		if len(payload) < bulletStatePrefix {
			return p, sizeMismatch(h.Kind, len(payload), bulletStatePrefix)
		}
		count := int(r.u16())
		if err := checkCount(h.Kind, count, MaxBulletsPerPacket, len(payload), bulletStatePrefix, bulletRecordSize); err != nil {
			return p, err
		}
		bs := messages.BulletSnapshot{
			Timestamp: h.Timestamp,
			Bullets:   make([]messages.BulletState, count),
		}
		for i := range bs.Bullets {
			b := &bs.Bullets[i]
			b.Created = r.u64()
			b.Owner = r.i32()
			b.ID = r.u32()
			b.Pos = gamemath.Vec2{X: r.f32(), Y: r.f32()}
			b.Vel = gamemath.Vec2{X: r.f32(), Y: r.f32()}
		}
		p.Bullets = bs

	case KindBulletCollision:
		if len(payload) != BulletCollisionSize {
			return p, sizeMismatch(h.Kind, len(payload), BulletCollisionSize)
		}
		p.Collision = messages.BulletCollision{
			Timestamp: h.Timestamp,
			Victim:    r.i32(),
			Damage:    r.f32(),
		}

	case KindName:
		if len(payload) != NameSize {
			return p, sizeMismatch(h.Kind, len(payload), NameSize)
		}
		p.Name = r.name()
	}

	return p, nil
}

func sizeMismatch(k Kind, got, want int) error {
	return fmt.Errorf("%w: %s payload is %d bytes, want %d", ErrMalformedPacket, k, got, want)
}

func checkCount(k Kind, count, max, payloadLen, prefix, record int) error {
	if count > max {
		return fmt.Errorf("%w: %s count %d exceeds %d", ErrMalformedPacket, k, count, max)
	}
	if want := prefix + count*record; payloadLen != want {
		return sizeMismatch(k, payloadLen, want)
	}
	return nil
}
