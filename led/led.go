// Package led holds the pixel type and the colour math every effect
// renders through.
package led

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Led is a single RGB pixel.
type Led struct {
	Red   byte
	Green byte
	Blue  byte
}

// Black is the off pixel.
var Black = Led{}

// True if all components are zero, false otherwise
func (s Led) IsEmpty() bool {
	return s.Red == 0 && s.Green == 0 && s.Blue == 0
}

// Return a Led with per component the max value of the caller and the
// in parameter
func (s Led) Max(in Led) Led {
	if s.Red > in.Red {
		in.Red = s.Red
	}
	if s.Green > in.Green {
		in.Green = s.Green
	}
	if s.Blue > in.Blue {
		in.Blue = s.Blue
	}
	return in
}

// Offset adds delta to every channel, saturating at 0 and 255.
func (s Led) Offset(delta int) Led {
	return Led{
		Red:   toByte(int(s.Red) + delta),
		Green: toByte(int(s.Green) + delta),
		Blue:  toByte(int(s.Blue) + delta),
	}
}

// Gray returns a Led with all three channels set to v.
func Gray(v byte) Led {
	return Led{Red: v, Green: v, Blue: v}
}

// ClampInt limits v to the closed interval [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toByte(v int) byte {
	return byte(ClampInt(v, 0, 255))
}

func unit(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}

// HSVToRGB converts hue, saturation and value, each in [0,1], into a
// pixel. Hue wraps around, saturation and value are clamped.
func HSVToRGB(h, s, v float64) Led {
	h -= math.Floor(h)
	if h >= 1 {
		h = 0
	}
	r, g, b := colorful.Hsv(h*360, unit(s), unit(v)).RGB255()
	return Led{Red: r, Green: g, Blue: b}
}

// RGBToHSV is the inverse of HSVToRGB. Hue is returned in degrees
// [0,360), saturation and value in percent [0,100].
func RGBToHSV(c Led) (h, s, v float64) {
	h, s, v = colorful.Color{
		R: float64(c.Red) / 255,
		G: float64(c.Green) / 255,
		B: float64(c.Blue) / 255,
	}.Hsv()
	if h >= 360 {
		h -= 360
	}
	return h, s * 100, v * 100
}

// ScaleBrightness multiplies every channel by brightness/255 and rounds.
// brightness is clamped to 0..255.
func ScaleBrightness(c Led, brightness int) Led {
	factor := float64(ClampInt(brightness, 0, 255)) / 255
	return Led{
		Red:   byte(math.Round(float64(c.Red) * factor)),
		Green: byte(math.Round(float64(c.Green) * factor)),
		Blue:  byte(math.Round(float64(c.Blue) * factor)),
	}
}

// ScaleBrightnessFloor is ScaleBrightness with a lower bound applied to
// every channel afterwards.
func ScaleBrightnessFloor(c Led, brightness, floor int) Led {
	scaled := ScaleBrightness(c, brightness)
	return scaled.Max(Gray(toByte(floor)))
}
