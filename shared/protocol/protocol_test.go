package protocol

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/messages"
)

func TestHeaderLayout(t *testing.T) {
	h := Header{Timestamp: 0x0102030405060708, Kind: KindInput, Sender: -1, Size: 13}
	data, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != HeaderSize {
		t.Fatalf("header is %d bytes, want %d", len(data), HeaderSize)
	}
	if data[0] != 0x01 || data[7] != 0x08 {
		t.Fatalf("timestamp is not big-endian: % x", data[:8])
	}
	if Kind(data[8]) != KindInput || data[9] != 0 {
		t.Fatalf("unexpected kind/reserved bytes % x", data[8:10])
	}
	if binary.BigEndian.Uint32(data[10:14]) != 0xFFFFFFFF {
		t.Fatalf("sender -1 not encoded as all ones: % x", data[10:14])
	}

	var back Header
	if err := back.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != h {
		t.Fatalf("header = %+v, want %+v", back, h)
	}
}

func TestCapacities(t *testing.T) {
	if MaxPlayersPerPacket != 27 {
		t.Fatalf("MaxPlayersPerPacket = %d", MaxPlayersPerPacket)
	}
	if MaxBulletsPerPacket != 31 {
		t.Fatalf("MaxBulletsPerPacket = %d", MaxBulletsPerPacket)
	}
}

func TestDecodeInput(t *testing.T) {
	in := messages.Input{
		Timestamp: 1000,
		Sender:    2,
		Up:        true,
		Right:     true,
		Fire:      true,
		Aim:       gamemath.Vec2{X: 12.5, Y: -4},
		DT:        0.25,
	}
	data := EncodeInput(in)
	if len(data) != HeaderSize+InputSize {
		t.Fatalf("input datagram is %d bytes", len(data))
	}
	p, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Header.Kind != KindInput || p.Input != in {
		t.Fatalf("decoded %+v, want %+v", p.Input, in)
	}
}

func TestGameStateTruncatesToCapacity(t *testing.T) {
	gs := messages.GameState{Timestamp: 7, ClientID: 1}
	for i := 0; i < MaxPlayersPerPacket+5; i++ {
		gs.Players = append(gs.Players, messages.PlayerState{
			ID:     int32(i),
			Rect:   gamemath.Rect{X: float64(i), Y: 2, W: 8, H: 12},
			Health: 0.5,
			Name:   "a much longer name than allowed",
		})
	}

	data := EncodeGameState(gs)
	if len(data) > PacketSize {
		t.Fatalf("datagram is %d bytes", len(data))
	}
	p, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := p.GameState
	if len(got.Players) != MaxPlayersPerPacket {
		t.Fatalf("decoded %d players, want %d", len(got.Players), MaxPlayersPerPacket)
	}
	if got.ClientID != 1 || got.Timestamp != 7 {
		t.Fatalf("unexpected snapshot header %+v", got)
	}
	last := got.Players[MaxPlayersPerPacket-1]
	if last.ID != MaxPlayersPerPacket-1 || last.Name != "a much longe" || last.Health != 0.5 {
		t.Fatalf("unexpected last player %+v", last)
	}
}

func TestBulletSnapshotTruncatesToCapacity(t *testing.T) {
	bs := messages.BulletSnapshot{Timestamp: 9}
	for i := 0; i < MaxBulletsPerPacket+1; i++ {
		bs.Bullets = append(bs.Bullets, messages.BulletState{
			Created: 8,
			Owner:   3,
			ID:      uint32(i + 1),
			Pos:     gamemath.Vec2{X: 1, Y: 2},
			Vel:     gamemath.Vec2{X: 300},
		})
	}
	p, err := Decode(EncodeBulletSnapshot(bs))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Bullets.Bullets) != MaxBulletsPerPacket {
		t.Fatalf("decoded %d bullets", len(p.Bullets.Bullets))
	}
	if p.Bullets.Bullets[0] != bs.Bullets[0] {
		t.Fatalf("bullet = %+v, want %+v", p.Bullets.Bullets[0], bs.Bullets[0])
	}
}

func TestDecodeSmallKinds(t *testing.T) {
	p, err := Decode(EncodeConnect(5, 4))
	if err != nil || p.Header.Kind != KindConnect || p.Header.Sender != 4 {
		t.Fatalf("connect: %+v %v", p.Header, err)
	}

	p, err = Decode(EncodeBulletCollision(messages.BulletCollision{Timestamp: 3, Victim: 2, Damage: 0.25}))
	if err != nil || p.Collision.Victim != 2 || p.Collision.Damage != 0.25 {
		t.Fatalf("collision: %+v %v", p.Collision, err)
	}

	p, err = Decode(EncodeName(6, 1, "Ada"))
	if err != nil || p.Name != "Ada" {
		t.Fatalf("name: %q %v", p.Name, err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	valid := EncodeInput(messages.Input{Timestamp: 1})

	unknown := append([]byte(nil), valid...)
	unknown[8] = 200

	wrongSize := append([]byte(nil), valid...)
	binary.BigEndian.PutUint16(wrongSize[14:16], InputSize+1)

	connectWithPayload := append(EncodeConnect(1, 0), 0)
	binary.BigEndian.PutUint16(connectWithPayload[14:16], 1)

	overCount := EncodeGameState(messages.GameState{Players: []messages.PlayerState{{}}})
	binary.BigEndian.PutUint16(overCount[HeaderSize+4:], 2)

	tooMany := EncodeBulletSnapshot(messages.BulletSnapshot{})
	binary.BigEndian.PutUint16(tooMany[HeaderSize:], MaxBulletsPerPacket+1)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", valid[:HeaderSize-1]},
		{"oversized", make([]byte, PacketSize+1)},
		{"unknown kind", unknown},
		{"zero kind", make([]byte, HeaderSize)},
		{"size disagrees with length", wrongSize},
		{"truncated payload", valid[:len(valid)-1]},
		{"fixed kind with payload", connectWithPayload},
		{"count disagrees with size", overCount},
		{"count above capacity", tooMany},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, ErrMalformedPacket) {
				t.Fatalf("expected ErrMalformedPacket, got %v", err)
			}
		})
	}
}
