package controller

import (
	"log/slog"

	"lautenbacher.net/ledstrip/effect"
)

// LightState is the logical state of the light.
type LightState struct {
	Power      bool        `json:"power"`
	Brightness int         `json:"brightness"`
	Hue        float64     `json:"hue"`
	Saturation float64     `json:"saturation"`
	Effect     effect.Name `json:"effect"`
}

func (s LightState) params() effect.Params {
	return effect.Params{
		Power:      s.Power,
		Brightness: s.Brightness,
		Hue:        s.Hue,
		Saturation: s.Saturation,
	}
}

func (s LightState) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("power", s.Power),
		slog.Int("brightness", s.Brightness),
		slog.Float64("hue", s.Hue),
		slog.Float64("saturation", s.Saturation),
		slog.String("effect", string(s.Effect)),
	)
}

// Command is a partial update of the light state. Nil fields are left
// unchanged.
type Command struct {
	Power      *bool
	Brightness *int
	Hue        *float64
	Saturation *float64
	Effect     *effect.Name
}

func (c Command) WithPower(on bool) Command {
	c.Power = &on
	return c
}

func (c Command) WithBrightness(brightness int) Command {
	c.Brightness = &brightness
	return c
}

func (c Command) WithHue(hue float64) Command {
	c.Hue = &hue
	return c
}

func (c Command) WithSaturation(saturation float64) Command {
	c.Saturation = &saturation
	return c
}

func (c Command) WithEffect(name effect.Name) Command {
	c.Effect = &name
	return c
}

// IsEmpty reports whether the command changes nothing.
func (c Command) IsEmpty() bool {
	return c.Power == nil && c.Brightness == nil && c.Hue == nil && c.Saturation == nil && c.Effect == nil
}

func (c Command) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 5)
	if c.Power != nil {
		attrs = append(attrs, slog.Bool("power", *c.Power))
	}
	if c.Brightness != nil {
		attrs = append(attrs, slog.Int("brightness", *c.Brightness))
	}
	if c.Hue != nil {
		attrs = append(attrs, slog.Float64("hue", *c.Hue))
	}
	if c.Saturation != nil {
		attrs = append(attrs, slog.Float64("saturation", *c.Saturation))
	}
	if c.Effect != nil {
		attrs = append(attrs, slog.String("effect", string(*c.Effect)))
	}
	return slog.GroupValue(attrs...)
}
