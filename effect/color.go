package effect

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"lautenbacher.net/ledstrip/led"
	"lautenbacher.net/ledstrip/strip"
)

// Colour used by Sparkles and Chaser when neither hue nor saturation
// has ever been set.
const (
	DefaultHue        = 50
	DefaultSaturation = 80
)

func defaultColor(p Params) (hue, saturation float64) {
	if p.Hue == 0 && p.Saturation == 0 {
		return DefaultHue, DefaultSaturation
	}
	return p.Hue, p.Saturation
}

// StaticEffect paints the whole strip in one colour.
type StaticEffect struct {
	tuned
}

func NewStatic() *StaticEffect {
	return &StaticEffect{tuned{Tuning{StepSize: 5, StepDelay: 5 * time.Millisecond}}}
}

func (s *StaticEffect) Name() Name { return Static }
func (s *StaticEffect) acceptsColor() {}

func (s *StaticEffect) Run(ctx context.Context, w *strip.Writer, p Params) {
	t := s.start(w)
	v := 0.0
	if p.Power {
		v = float64(t.clamp(p.Brightness)) / 255
	}
	color := led.HSVToRGB(p.Hue/360, p.Saturation/100, v)
	slog.Debug("Static effect", "color", color, "hue", p.Hue, "saturation", p.Saturation, "brightness", p.Brightness)
	w.Update(func(f *strip.Frame) {
		f.FillTarget(color)
	})
}

// SparklesEffect shows a dim background in the chosen colour on which
// single pixels randomly flash up to full intensity.
type SparklesEffect struct {
	tuned
	rng        *rand.Rand
	Chance     float64
	Background float64 // value factor of the background
}

func NewSparkles(rng *rand.Rand) *SparklesEffect {
	return &SparklesEffect{
		tuned: tuned{Tuning{
			StepSize:      3,
			StepDelay:     time.Millisecond,
			FrameDelay:    200 * time.Millisecond,
			MinBrightness: 30,
			MaxBrightness: 255,
		}},
		rng:        rng,
		Chance:     0.005,
		Background: 0.3,
	}
}

func (s *SparklesEffect) Name() Name { return Sparkles }
func (s *SparklesEffect) acceptsColor() {}

func (s *SparklesEffect) Run(ctx context.Context, w *strip.Writer, p Params) {
	if !p.Power {
		off(w)
		return
	}
	t := s.start(w)
	hue, saturation := defaultColor(p)
	v := float64(t.clamp(p.Brightness)) / 255
	sparkle := led.HSVToRGB(hue/360, saturation/100, v)
	background := led.HSVToRGB(hue/360, saturation/100, v*s.Background)
	slog.Debug("Sparkles effect", "sparkle", sparkle, "background", background)

	w.Update(func(f *strip.Frame) {
		f.FillTarget(background)
	})
	loop(ctx, w, t.FrameDelay, func(f *strip.Frame) {
		for i := range f.Len() {
			if s.rng.Float64() < s.Chance {
				f.SetTarget(i, sparkle)
			}
			if f.Current(i) == f.Target(i) {
				f.SetTarget(i, background)
			}
		}
	})
}

// ChaserEffect moves a single lit pixel along the strip and lets the
// pixels it leaves behind fade to black.
type ChaserEffect struct {
	tuned
}

func NewChaser() *ChaserEffect {
	return &ChaserEffect{tuned{Tuning{
		StepSize:      2,
		StepDelay:     time.Millisecond,
		FrameDelay:    150 * time.Millisecond,
		MinBrightness: 30,
		MaxBrightness: 255,
	}}}
}

func (s *ChaserEffect) Name() Name { return Chaser }
func (s *ChaserEffect) acceptsColor() {}

func (s *ChaserEffect) Run(ctx context.Context, w *strip.Writer, p Params) {
	if !p.Power {
		off(w)
		return
	}
	t := s.start(w)
	hue, saturation := defaultColor(p)
	color := led.HSVToRGB(hue/360, saturation/100, float64(t.clamp(p.Brightness))/255)
	slog.Debug("Chaser effect", "color", color)

	w.Update(func(f *strip.Frame) {
		f.FillTarget(led.Black)
	})
	index := 0
	loop(ctx, w, t.FrameDelay, func(f *strip.Frame) {
		f.SetCurrent(index, color)
		index = (index + 1) % f.Len()
	})
}
