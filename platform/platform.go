// Package platform drives the rendered frames to an output: a terminal
// simulation, an SPI attached strip or nothing at all.
package platform

import (
	"fmt"
	"os"

	"lautenbacher.net/ledstrip/config"
	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/led"
)

// Platform abstracts the real hardware from the TUI simulation.
type Platform interface {
	// Start initializes the platform (opens SPI or starts the TUI).
	Start() error

	// Stop cleans up all platform resources.
	Stop()

	// DisplayLeds hands a complete frame to the output device. It never
	// blocks; frames arriving while the device is busy are dropped.
	DisplayLeds(leds []led.Led)

	// Ready is closed once the platform accepts frames.
	Ready() <-chan bool
}

// Control is what interactive platforms need from the running light.
type Control interface {
	Submit(cmd controller.Command)
	RenderState() controller.LightState
}

// New returns the platform selected by conf.Hardware.Platform. The
// signal channel receives os.Interrupt or SIGHUP from the TUI keys.
func New(conf *config.Config, ossignal chan os.Signal) (Platform, error) {
	switch conf.Hardware.Platform {
	case config.PlatformTUI:
		return NewTUIPlatform(conf, ossignal), nil
	case config.PlatformRPI:
		return NewRaspberryPiPlatform(conf), nil
	case config.PlatformNone:
		return NewNullPlatform(conf), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", conf.Hardware.Platform)
	}
}
