package network

import (
	"sync"

	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/leveldata"
	"github.com/planeflight/hido/shared/messages"
	"github.com/planeflight/hido/shared/movement"
)

// InputRecord stores an input alongside the predicted rect after applying it.
type InputRecord struct {
	Input     messages.Input
	Predicted gamemath.Rect
}

// Predictor runs the local player ahead of the server and corrects it when
// authoritative snapshots arrive. Apply is called by the frame loop and
// Reconcile by the network goroutine.
type Predictor struct {
	mu sync.Mutex

	tilemap leveldata.TileMap
	speed   float64

	state        messages.PlayerState
	velocity     gamemath.Vec2
	pending      []InputRecord // unacknowledged, strictly increasing timestamps
	lastSnapshot uint64
	lastError    float64
}

func NewPredictor(m leveldata.TileMap, speed float64, initial messages.PlayerState) *Predictor {
	return &Predictor{
		tilemap: m,
		speed:   speed,
		state:   initial,
	}
}

// Apply predicts the effect of in and remembers it until acknowledged.
// Inputs not newer than the last applied one are rejected.
func (p *Predictor) Apply(in messages.Input) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.pending); n > 0 && !messages.IsNewer(in.Timestamp, p.pending[n-1].Input.Timestamp) {
		return false
	}

	p.state, p.velocity = movement.Step(p.state, in, p.speed, p.tilemap)
	p.pending = append(p.pending, InputRecord{Input: in, Predicted: p.state.Rect})
	return true
}

// Reconcile replaces the predicted state with the authoritative state at ts
// and replays every input newer than ts. Snapshots that are not newer than
// the last one applied are ignored, which makes Reconcile idempotent.
func (p *Predictor) Reconcile(ts uint64, authoritative messages.PlayerState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !messages.IsNewer(ts, p.lastSnapshot) {
		return false
	}
	p.lastSnapshot = ts

	acked := 0
	for acked < len(p.pending) && !messages.IsNewer(p.pending[acked].Input.Timestamp, ts) {
		acked++
	}
	if acked > 0 {
		p.lastError = PredictionError(p.pending[acked-1].Predicted, authoritative.Rect)
	}
	p.pending = append(p.pending[:0], p.pending[acked:]...)

	inputs := make([]messages.Input, len(p.pending))
	for i, r := range p.pending {
		inputs[i] = r.Input
	}
	p.state, p.velocity = Replay(authoritative, inputs, p.tilemap, p.speed)
	return true
}

// Replay applies inputs in order on top of base. It is deterministic and
// shares the resolver with the server.
func Replay(base messages.PlayerState, inputs []messages.Input, m leveldata.TileMap, speed float64) (messages.PlayerState, gamemath.Vec2) {
	state := base
	var vel gamemath.Vec2
	for _, in := range inputs {
		state, vel = movement.Step(state, in, speed, m)
	}
	return state, vel
}

// PredictionError is the distance between a predicted and an authoritative
// position.
func PredictionError(predicted, actual gamemath.Rect) float64 {
	return predicted.Pos().Sub(actual.Pos()).Length()
}

func (p *Predictor) State() messages.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Predictor) Velocity() gamemath.Vec2 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.velocity
}

// Pending returns a copy of the unacknowledged inputs.
func (p *Predictor) Pending() []messages.Input {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]messages.Input, len(p.pending))
	for i, r := range p.pending {
		out[i] = r.Input
	}
	return out
}

// LastError is the prediction error measured at the last reconciliation
// that acknowledged at least one input.
func (p *Predictor) LastError() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}
