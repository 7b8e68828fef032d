package messages

import "github.com/planeflight/hido/shared/gamemath"

// Input is sent from client to server each frame with the player's input
// state. The client keeps unacknowledged inputs for reconciliation.
type Input struct {
	Timestamp uint64 // client clock, Unix ms
	Up        bool
	Down      bool
	Left      bool
	Right     bool
	Fire      bool
	Aim       gamemath.Vec2 // world coordinates of the crosshair
	Sender    int32
	DT        float64 // frame duration in seconds used for prediction
}

func (in Input) Stamp() uint64 { return in.Timestamp }

// HasMovement reports whether any direction flag is set.
func (in Input) HasMovement() bool {
	return in.Up || in.Down || in.Left || in.Right
}

// IsNewer is the single ordering rule for timestamps: a candidate is
// accepted only when it is strictly greater than what is already held.
// Duplicates and older values are rejected everywhere the rule applies.
func IsNewer(candidate, current uint64) bool {
	return candidate > current
}
