// Package effect contains the fixed set of animations that paint into
// the strip buffers.
package effect

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"lautenbacher.net/ledstrip/led"
	"lautenbacher.net/ledstrip/strip"
)

// Name selects an effect. The string values are part of the external
// protocol and must not change.
type Name string

const (
	Static   Name = "None"
	Storm    Name = "Storm"
	Rain     Name = "Rain"
	Clouds   Name = "Clouds"
	Snow     Name = "Snow"
	Sun      Name = "Sun"
	Sky      Name = "Sky"
	Chaser   Name = "Chaser"
	Sparkles Name = "Sparkles"
)

var names = []Name{Static, Storm, Rain, Clouds, Snow, Sun, Sky, Chaser, Sparkles}

var colorNames = []Name{Static, Chaser, Sparkles}

// Names returns every known effect in announcement order.
func Names() []Name {
	ret := make([]Name, len(names))
	copy(ret, names)
	return ret
}

// Params is the part of the light state an effect renders.
type Params struct {
	Power      bool
	Brightness int
	Hue        float64 // degrees
	Saturation float64 // percent
}

// Tuning carries the animation constants of one effect.
type Tuning struct {
	StepSize      int
	StepDelay     time.Duration
	FrameDelay    time.Duration
	MinBrightness int
	MaxBrightness int
}

// clamp limits brightness to the tuning bounds. A zero MaxBrightness
// means 255.
func (s Tuning) clamp(brightness int) int {
	hi := s.MaxBrightness
	if hi == 0 {
		hi = 255
	}
	return led.ClampInt(brightness, min(s.MinBrightness, hi), hi)
}

// Effect is a long running animation. Run returns when ctx is done, when
// its writer has been revoked or, with power off, once black has been
// requested.
type Effect interface {
	Name() Name
	// Settings exposes the tuning for adjustment before the effect runs.
	Settings() *Tuning
	Run(ctx context.Context, w *strip.Writer, p Params)
}

// ColorEffect is implemented by the effects that render the commanded
// hue and saturation.
type ColorEffect interface {
	Effect
	acceptsColor()
}

type tuned struct {
	tuning Tuning
}

func (s *tuned) Settings() *Tuning {
	return &s.tuning
}

// start applies the animation speed and returns the tuning in effect.
func (s *tuned) start(w *strip.Writer) Tuning {
	t := s.tuning
	w.SetAnimation(t.StepSize, t.StepDelay)
	return t
}

var offTuning = Tuning{StepSize: 5, StepDelay: 5 * time.Millisecond}

// off lets the strip converge to black.
func off(w *strip.Writer) {
	w.SetAnimation(offTuning.StepSize, offTuning.StepDelay)
	w.Update(func(f *strip.Frame) {
		f.FillTarget(led.Black)
	})
}

// loop runs frame every delay until ctx is done or w is revoked.
func loop(ctx context.Context, w *strip.Writer, delay time.Duration, frame func(f *strip.Frame)) {
	for {
		if ctx.Err() != nil || !w.Update(frame) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// lockedSource makes a rand.Source safe for the short overlap between a
// cancelled effect and its successor.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// NewRand returns a goroutine safe generator. seed 0 picks a random seed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(&lockedSource{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)})
}

// between returns a uniform value in [lo, hi).
func between(rng *rand.Rand, lo, hi int) byte {
	return byte(lo + rng.IntN(hi-lo))
}
