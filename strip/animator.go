package strip

import (
	"context"
	"log/slog"
	"time"

	"lautenbacher.net/ledstrip/led"
	"lautenbacher.net/ledstrip/util"
)

const DefaultTickDelay = 50 * time.Millisecond

// Animator is the interpolation loop. Every tick it steps the buffers,
// hands the result to the sink and publishes it to observers, then
// sleeps for the tick delay plus the step delay of the running effect.
type Animator struct {
	buffers   *Buffers
	sink      Sink
	tickDelay time.Duration
	frames    *util.Latest[[]led.Led]
}

func NewAnimator(buffers *Buffers, sink Sink, tickDelay time.Duration) *Animator {
	if tickDelay <= 0 {
		tickDelay = DefaultTickDelay
	}
	return &Animator{
		buffers:   buffers,
		sink:      sink,
		tickDelay: tickDelay,
		frames:    util.NewLatest[[]led.Led](),
	}
}

// Frames publishes every rendered frame. Consumers must not modify the
// slices they receive.
func (s *Animator) Frames() *util.Latest[[]led.Led] {
	return s.frames
}

// Tick runs a single interpolation pass and renders it.
func (s *Animator) Tick() []led.Led {
	leds := s.buffers.Step()
	if s.sink != nil {
		s.sink.DisplayLeds(copyLeds(leds))
	}
	s.frames.Send(leds)
	return leds
}

// Run ticks until ctx is done.
func (s *Animator) Run(ctx context.Context) {
	slog.Info("Starting interpolation loop", "leds", s.buffers.Len(), "tick", s.tickDelay)
	for {
		s.Tick()
		_, stepDelay := s.buffers.Animation()
		select {
		case <-ctx.Done():
			slog.Info("Ending interpolation loop")
			return
		case <-time.After(s.tickDelay + stepDelay):
		}
	}
}
