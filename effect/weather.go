package effect

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"lautenbacher.net/ledstrip/led"
	"lautenbacher.net/ledstrip/strip"
)

// StormEffect is a dim blue sky with raindrops and the occasional
// lightning flash over the whole strip.
type StormEffect struct {
	tuned
	rng             *rand.Rand
	RaindropChance  float64
	LightningChance float64
}

func NewStorm(rng *rand.Rand) *StormEffect {
	return &StormEffect{
		tuned: tuned{Tuning{
			StepSize:      5,
			StepDelay:     time.Millisecond,
			FrameDelay:    300 * time.Millisecond,
			MinBrightness: 10,
			MaxBrightness: 255,
		}},
		rng:             rng,
		RaindropChance:  0.05,
		LightningChance: 0.02,
	}
}

func (s *StormEffect) Name() Name { return Storm }

func (s *StormEffect) Run(ctx context.Context, w *strip.Writer, p Params) {
	if !p.Power {
		off(w)
		return
	}
	t := s.start(w)
	brightness := t.clamp(p.Brightness)
	background := led.ScaleBrightness(led.Led{Red: 1, Green: 30, Blue: 120}, brightness)
	lightning := led.ScaleBrightness(led.Gray(255), brightness)
	slog.Debug("Storm effect", "brightness", brightness, "background", background, "lightning", lightning)

	loop(ctx, w, t.FrameDelay, func(f *strip.Frame) {
		for i := range f.Len() {
			if s.rng.Float64() < s.RaindropChance {
				drop := led.Led{
					Red:   between(s.rng, 0, 50),
					Green: between(s.rng, 50, 100),
					Blue:  between(s.rng, 100, 255),
				}
				f.SetCurrent(i, led.ScaleBrightness(drop, brightness))
			} else {
				f.SetTarget(i, background)
			}
		}
		if s.rng.Float64() < s.LightningChance {
			f.FillCurrent(lightning)
		}
	})
}

// RainEffect is Storm without lightning and with darker drops.
type RainEffect struct {
	tuned
	rng            *rand.Rand
	RaindropChance float64
}

func NewRain(rng *rand.Rand) *RainEffect {
	return &RainEffect{
		tuned: tuned{Tuning{
			StepSize:      1,
			StepDelay:     time.Millisecond,
			FrameDelay:    200 * time.Millisecond,
			MinBrightness: 10,
			MaxBrightness: 255,
		}},
		rng:            rng,
		RaindropChance: 0.01,
	}
}

func (s *RainEffect) Name() Name { return Rain }

func (s *RainEffect) Run(ctx context.Context, w *strip.Writer, p Params) {
	if !p.Power {
		off(w)
		return
	}
	t := s.start(w)
	brightness := t.clamp(p.Brightness)
	background := led.ScaleBrightness(led.Led{Red: 0, Green: 15, Blue: 60}, brightness)
	slog.Debug("Rain effect", "brightness", brightness, "chance", s.RaindropChance)

	loop(ctx, w, t.FrameDelay, func(f *strip.Frame) {
		for i := range f.Len() {
			if s.rng.Float64() < s.RaindropChance {
				drop := led.Led{
					Red:   between(s.rng, 0, 50),
					Green: between(s.rng, 20, 100),
					Blue:  between(s.rng, 50, 255),
				}
				f.SetCurrent(i, led.ScaleBrightness(drop, brightness))
			} else {
				f.SetTarget(i, background)
			}
		}
	})
}

// CloudsEffect is a grey green base with drifting highlights and
// lowlights.
type CloudsEffect struct {
	tuned
	rng             *rand.Rand
	Base            led.Led
	Contrast        int
	HighlightChance float64
	LowlightChance  float64
}

func NewClouds(rng *rand.Rand) *CloudsEffect {
	return &CloudsEffect{
		tuned: tuned{Tuning{
			StepSize:      5,
			StepDelay:     time.Millisecond,
			FrameDelay:    800 * time.Millisecond,
			MinBrightness: 10,
			MaxBrightness: 230,
		}},
		rng:             rng,
		Base:            led.Led{Red: 165, Green: 168, Blue: 138},
		Contrast:        40,
		HighlightChance: 0.02,
		LowlightChance:  0.02,
	}
}

func (s *CloudsEffect) Name() Name { return Clouds }

func (s *CloudsEffect) Run(ctx context.Context, w *strip.Writer, p Params) {
	if !p.Power {
		off(w)
		return
	}
	t := s.start(w)
	brightness := t.clamp(p.Brightness)
	normal := led.ScaleBrightness(s.Base, brightness)
	highlight := led.ScaleBrightness(s.Base.Offset(s.Contrast), brightness)
	lowlight := led.ScaleBrightness(s.Base.Offset(-s.Contrast), brightness)
	slog.Debug("Clouds effect", "brightness", brightness, "normal", normal, "highlight", highlight, "lowlight", lowlight)

	w.Update(func(f *strip.Frame) {
		f.FillTarget(normal)
	})
	loop(ctx, w, t.FrameDelay, func(f *strip.Frame) {
		for i := range f.Len() {
			switch {
			case s.rng.Float64() < s.HighlightChance:
				f.SetTarget(i, highlight)
			case s.rng.Float64() < s.LowlightChance:
				f.SetTarget(i, lowlight)
			default:
				f.SetTarget(i, normal)
			}
		}
	})
}

// SnowEffect drops bright flakes onto a dark grey backdrop.
type SnowEffect struct {
	tuned
	rng             *rand.Rand
	SnowflakeChance float64
}

func NewSnow(rng *rand.Rand) *SnowEffect {
	return &SnowEffect{
		tuned: tuned{Tuning{
			StepSize:      5,
			StepDelay:     time.Millisecond,
			FrameDelay:    200 * time.Millisecond,
			MinBrightness: 10,
			MaxBrightness: 255,
		}},
		rng:             rng,
		SnowflakeChance: 0.003,
	}
}

func (s *SnowEffect) Name() Name { return Snow }

func (s *SnowEffect) Run(ctx context.Context, w *strip.Writer, p Params) {
	if !p.Power {
		off(w)
		return
	}
	t := s.start(w)
	brightness := t.clamp(p.Brightness)
	snowflake := led.ScaleBrightness(led.Gray(227), brightness)
	backdrop := led.ScaleBrightness(led.Gray(54), brightness)
	slog.Debug("Snow effect", "brightness", brightness, "chance", s.SnowflakeChance)

	loop(ctx, w, t.FrameDelay, func(f *strip.Frame) {
		for i := range f.Len() {
			if s.rng.Float64() < s.SnowflakeChance {
				f.SetCurrent(i, snowflake)
			} else {
				f.SetTarget(i, backdrop)
			}
		}
	})
}

// SunEffect lets every pixel shimmer in a random warm yellow.
type SunEffect struct {
	tuned
	rng *rand.Rand
	// Floor keeps dim channels from dropping to black and flickering.
	Floor int
}

func NewSun(rng *rand.Rand) *SunEffect {
	return &SunEffect{
		tuned: tuned{Tuning{
			StepSize:      2,
			StepDelay:     time.Millisecond,
			FrameDelay:    425 * time.Millisecond,
			MinBrightness: 40,
			MaxBrightness: 255,
		}},
		rng:   rng,
		Floor: 25,
	}
}

func (s *SunEffect) Name() Name { return Sun }

func (s *SunEffect) Run(ctx context.Context, w *strip.Writer, p Params) {
	if !p.Power {
		off(w)
		return
	}
	t := s.start(w)
	brightness := t.clamp(p.Brightness)
	slog.Debug("Sun effect", "brightness", brightness)

	loop(ctx, w, t.FrameDelay, func(f *strip.Frame) {
		for i := range f.Len() {
			c := led.Led{
				Red:   between(s.rng, 220, 255),
				Green: between(s.rng, 220, 255),
				Blue:  between(s.rng, 50, 90),
			}
			f.SetTarget(i, led.ScaleBrightnessFloor(c, brightness, s.Floor))
		}
	})
}

// SkyEffect lets every pixel drift between random sky blues.
type SkyEffect struct {
	tuned
	rng *rand.Rand
}

func NewSky(rng *rand.Rand) *SkyEffect {
	return &SkyEffect{
		tuned: tuned{Tuning{
			StepSize:      2,
			StepDelay:     time.Millisecond,
			FrameDelay:    700 * time.Millisecond,
			MinBrightness: 10,
			MaxBrightness: 230,
		}},
		rng: rng,
	}
}

func (s *SkyEffect) Name() Name { return Sky }

func (s *SkyEffect) Run(ctx context.Context, w *strip.Writer, p Params) {
	if !p.Power {
		off(w)
		return
	}
	t := s.start(w)
	brightness := t.clamp(p.Brightness)
	slog.Debug("Sky effect", "brightness", brightness)

	loop(ctx, w, t.FrameDelay, func(f *strip.Frame) {
		for i := range f.Len() {
			c := led.Led{
				Red:   between(s.rng, 0, 40),
				Green: between(s.rng, 130, 190),
				Blue:  between(s.rng, 170, 220),
			}
			f.SetTarget(i, led.ScaleBrightness(c, brightness))
		}
	})
}
