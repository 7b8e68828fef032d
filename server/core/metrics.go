package core

import (
	"sync/atomic"
	"time"
)

// Metrics records runtime counters. Written by the loop and reader
// goroutines, read by the admin handler.
type Metrics struct {
	TickCount          int64
	TotalTickNs        int64
	InputsAccepted     int64
	StaleInputs        int64
	MalformedPackets   int64
	CapacityRejections int64
	SendFailures       int64
	DatagramsDropped   int64 // reader channel full
	BulletsLive        int64
	Players            int64
}

func (m *Metrics) IncAccepted()         { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *Metrics) IncStale()            { atomic.AddInt64(&m.StaleInputs, 1) }
func (m *Metrics) IncMalformed()        { atomic.AddInt64(&m.MalformedPackets, 1) }
func (m *Metrics) IncCapacityRejected() { atomic.AddInt64(&m.CapacityRejections, 1) }
func (m *Metrics) IncSendFailure()      { atomic.AddInt64(&m.SendFailures, 1) }
func (m *Metrics) IncDatagramDropped()  { atomic.AddInt64(&m.DatagramsDropped, 1) }
func (m *Metrics) SetBulletsLive(n int) { atomic.StoreInt64(&m.BulletsLive, int64(n)) }
func (m *Metrics) SetPlayers(n int)     { atomic.StoreInt64(&m.Players, int64(n)) }
func (m *Metrics) PlayerCount() int     { return int(atomic.LoadInt64(&m.Players)) }
func (m *Metrics) AddTick(d time.Duration) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, d.Nanoseconds())
}

// Snapshot returns a read-only copy for HTTP output.
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"avg_tick_ms":         avgMs,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"stale_inputs":        atomic.LoadInt64(&m.StaleInputs),
		"malformed_packets":   atomic.LoadInt64(&m.MalformedPackets),
		"capacity_rejections": atomic.LoadInt64(&m.CapacityRejections),
		"send_failures":       atomic.LoadInt64(&m.SendFailures),
		"datagrams_dropped":   atomic.LoadInt64(&m.DatagramsDropped),
		"bullets_live":        atomic.LoadInt64(&m.BulletsLive),
		"players":             atomic.LoadInt64(&m.Players),
	}
}
