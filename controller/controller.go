// Package controller owns the light state and the running effect task.
package controller

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"lautenbacher.net/ledstrip/effect"
	"lautenbacher.net/ledstrip/led"
	"lautenbacher.net/ledstrip/strip"
)

const DefaultBrightness = 128

// Controller applies commands to the light state and keeps exactly one
// effect task running against the strip buffers. ApplyCommand is
// expected to be called by one goroutine at a time, RenderState may be
// called from anywhere.
type Controller struct {
	mu                sync.Mutex
	state             LightState
	buffers           *strip.Buffers
	registry          *effect.Registry
	defaultBrightness int
	task              taskSlot
	showingStatus     bool
}

// New creates a controller in the off state. defaultBrightness is used
// when the light is switched on with zero brightness.
func New(buffers *strip.Buffers, registry *effect.Registry, defaultBrightness int) *Controller {
	if defaultBrightness <= 0 {
		defaultBrightness = DefaultBrightness
	}
	return &Controller{
		state:             LightState{Effect: effect.Static},
		buffers:           buffers,
		registry:          registry,
		defaultBrightness: led.ClampInt(defaultBrightness, 1, 255),
	}
}

// ApplyCommand merges cmd into the light state and restarts the effect.
// It never fails: inconsistent input degrades to a sane state.
func (s *Controller) ApplyCommand(cmd Command) LightState {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("Applying command", "command", cmd, "before", s.state)

	if cmd.Hue != nil || cmd.Saturation != nil {
		if cmd.Hue != nil {
			s.state.Hue = *cmd.Hue
		}
		if cmd.Saturation != nil {
			s.state.Saturation = *cmd.Saturation
		}
		if !s.registry.IsColorCapable(s.state.Effect) {
			slog.Info("Forcing static effect for colour change", "effect", s.state.Effect)
			s.state.Effect = effect.Static
		}
	}

	if cmd.Effect != nil {
		s.state.Effect = *cmd.Effect
	}

	if cmd.Power != nil {
		s.state.Power = *cmd.Power
		if s.state.Power && s.state.Brightness == 0 {
			s.state.Brightness = s.defaultBrightness
		}
	}

	if cmd.Brightness != nil {
		s.state.Brightness = *cmd.Brightness
	}

	s.spawn()
	return s.state
}

// ApplyRGB switches the light on in the colour c. Its HSV value becomes
// the brightness.
func (s *Controller) ApplyRGB(c led.Led) LightState {
	h, sat, v := led.RGBToHSV(c)
	brightness := int(math.Round(v / 100 * 255))
	return s.ApplyCommand(Command{}.WithHue(h).WithSaturation(sat).WithBrightness(brightness).WithPower(true))
}

// Restore replaces the whole state, e.g. after a reload, and restarts
// the effect.
func (s *Controller) Restore(state LightState) LightState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.spawn()
	return s.state
}

// RenderState returns the current light state.
func (s *Controller) RenderState() LightState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops the running effect and waits for it to return.
func (s *Controller) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task.close(s.buffers)
}

// spawn must be called with s.mu held.
func (s *Controller) spawn() {
	s.showingStatus = false
	e, ok := s.registry.Lookup(s.state.Effect)
	if !ok {
		slog.Warn("Unknown effect, falling back to static", "effect", s.state.Effect)
		e = s.registry.Get(effect.Static)
	}
	params := s.state.params()
	slog.Info("Starting effect task", "effect", e.Name(), "state", s.state)
	s.task.replace(s.buffers, func(ctx context.Context, w *strip.Writer) {
		e.Run(ctx, w, params)
	})
}
