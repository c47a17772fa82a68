package platform

import (
	"log/slog"

	"lautenbacher.net/ledstrip/config"
	"lautenbacher.net/ledstrip/led"
)

// NullPlatform discards frames. It serves headless setups that only
// expose the light through the web preview or Home Assistant.
type NullPlatform struct {
	*AbstractPlatform
	frames int
}

func NewNullPlatform(conf *config.Config) *NullPlatform {
	inst := &NullPlatform{}
	inst.AbstractPlatform = newAbstractPlatform(conf, inst.discard)
	return inst
}

func (s *NullPlatform) Start() error {
	s.startDisplayDriver()
	s.setReady()
	return nil
}

func (s *NullPlatform) Stop() {
	s.stopDisplayDriver()
	slog.Debug("Null platform stopped", "frames", s.frames)
}

func (s *NullPlatform) discard(leds []led.Led) {
	s.frames++
}
