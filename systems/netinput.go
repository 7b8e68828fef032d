package systems

import (
	"context"
	"time"

	"github.com/planeflight/hido/network"
	"github.com/planeflight/hido/shared/messages"
	"go.uber.org/zap"
)

// InputSource decides what the local player does this frame. It sees the
// view rendered on the previous frame.
type InputSource interface {
	Sample(view network.View, dt float64) messages.Input
}

// FrameLoop drives one client frame: sample input, stamp it, predict it
// locally, send it, then build the render view.
type FrameLoop struct {
	client *network.Client
	source InputSource
	log    *zap.SugaredLogger

	lastTimestamp uint64
	view          network.View

	// OnHit, when set, receives every hit notification drained this frame.
	OnHit func(messages.BulletCollision)

	frames  int
	dropped int
	hits    int
}

func NewFrameLoop(client *network.Client, source InputSource, log *zap.SugaredLogger) *FrameLoop {
	return &FrameLoop{
		client: client,
		source: source,
		log:    log.Named("frame"),
	}
}

// Step runs one frame and returns what should be drawn.
func (f *FrameLoop) Step(now time.Time, dt float64) network.View {
	f.frames++
	id := f.client.ID()
	if id != messages.UnassignedID {
		in := f.source.Sample(f.view, dt)
		in.Timestamp = f.stamp(now)
		in.Sender = id
		in.DT = dt

		if f.client.Predictor().Apply(in) {
			if err := f.client.SendInput(in); err != nil {
				f.dropped++
				f.log.Debugf("send input: %v", err)
			}
		}
	}

	for _, hit := range f.client.DrainHits() {
		f.hits++
		if hit.Victim == id {
			f.log.Infof("hit for %.2f", hit.Damage)
		}
		if f.OnHit != nil {
			f.OnHit(hit)
		}
	}

	f.view = f.client.View(now)
	return f.view
}

// stamp keeps input timestamps strictly increasing even when two frames
// land in the same millisecond.
func (f *FrameLoop) stamp(now time.Time) uint64 {
	ts := uint64(now.UnixMilli())
	if ts <= f.lastTimestamp {
		ts = f.lastTimestamp + 1
	}
	f.lastTimestamp = ts
	return ts
}

// Run steps the loop every interval until ctx ends.
func (f *FrameLoop) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			f.log.Infof("frame loop stopped after %d frames (%d hits, %d send errors)", f.frames, f.hits, f.dropped)
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			f.Step(now, dt)
		}
	}
}

// View returns the view built by the last Step.
func (f *FrameLoop) View() network.View {
	return f.view
}
