// Package protocol defines the datagram wire format shared by client and
// server. Every datagram is a fixed 16 byte big-endian header followed by a
// kind-specific payload, and never exceeds PacketSize bytes.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	PacketSize = 1024
	HeaderSize = 16 // ts u64 + kind u8 + reserved u8 + sender i32 + size u16
)

// ErrMalformedPacket is returned for any datagram that cannot be decoded.
var ErrMalformedPacket = errors.New("malformed packet")

// Kind identifies the payload carried by a datagram.
type Kind uint8

const (
	_ Kind = iota
	KindConnect
	KindDisconnect
	KindInput
	KindGameState
	KindBulletState
	KindBulletCollision
	KindName

	kindMax
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindDisconnect:
		return "disconnect"
	case KindInput:
		return "input"
	case KindGameState:
		return "game_state"
	case KindBulletState:
		return "bullet_state"
	case KindBulletCollision:
		return "bullet_collision"
	case KindName:
		return "name"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) valid() bool {
	return k > 0 && k < kindMax
}

// Header precedes every payload.
type Header struct {
	Timestamp uint64
	Kind      Kind
	Sender    int32
	Size      uint16
}

func (h *Header) MarshalBinary() ([]byte, error) {
	data := make([]byte, HeaderSize)
	h.put(data)
	return data, nil
}

func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformedPacket, len(data))
	}
	h.Timestamp = binary.BigEndian.Uint64(data[0:8])
	h.Kind = Kind(data[8])
	// data[9] is reserved
	h.Sender = int32(binary.BigEndian.Uint32(data[10:14]))
	h.Size = binary.BigEndian.Uint16(data[14:16])
	return nil
}

func (h *Header) put(data []byte) {
	binary.BigEndian.PutUint64(data[0:8], h.Timestamp)
	data[8] = byte(h.Kind)
	data[9] = 0
	binary.BigEndian.PutUint32(data[10:14], uint32(h.Sender))
	binary.BigEndian.PutUint16(data[14:16], h.Size)
}
