package platform

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"lautenbacher.net/ledstrip/config"
	"lautenbacher.net/ledstrip/led"
)

type RaspberryPiPlatform struct {
	*AbstractPlatform
	ledDriver ledDriver
	bus       spiBus
	busMutex  sync.Mutex
	openBus   func(config.HardwareConfig) (spiBus, error)
}

func NewRaspberryPiPlatform(conf *config.Config) *RaspberryPiPlatform {
	inst := &RaspberryPiPlatform{openBus: openSPI}
	inst.AbstractPlatform = newAbstractPlatform(conf, inst.rpiDisplayFunc)
	return inst
}

func (s *RaspberryPiPlatform) Start() error {
	hw := s.config.Hardware
	switch strings.ToUpper(hw.LEDType) {
	case "APA102":
		s.ledDriver = newApa102Driver(hw, s.config.Strip.LedsTotal)
	case "WS2801":
		s.ledDriver = newWs2801Driver(hw, s.config.Strip.LedsTotal)
	default:
		return fmt.Errorf("unknown LED type: %s", hw.LEDType)
	}

	bus, err := s.openBus(hw)
	if err != nil {
		return err
	}
	s.bus = bus

	s.startDisplayDriver()
	s.setReady()
	return nil
}

// Stop blanks the strip before closing the bus.
func (s *RaspberryPiPlatform) Stop() {
	s.stopDisplayDriver()

	s.busMutex.Lock()
	defer s.busMutex.Unlock()
	if s.bus == nil {
		return
	}
	s.writeFrame(make([]led.Led, s.GetLedsTotal()))
	if err := s.bus.Close(); err != nil {
		slog.Error("Error closing spi bus", "error", err)
	}
	s.bus = nil
}

func (s *RaspberryPiPlatform) rpiDisplayFunc(leds []led.Led) {
	s.busMutex.Lock()
	defer s.busMutex.Unlock()
	if s.bus != nil {
		s.writeFrame(leds)
	}
}

func (s *RaspberryPiPlatform) writeFrame(leds []led.Led) {
	data := s.ledDriver.encode(physicalFrame(s.segments, leds))
	if err := s.bus.Write(data); err != nil {
		slog.Error("Error writing to LED driver", "error", err)
	}
}

// ledDriver renders pixels into the wire format of one chip type.
type ledDriver interface {
	encode(leds []led.Led) []byte
}

func correct(value byte, factor float64) byte {
	return byte(math.Min(math.Round(float64(value)*factor), 255))
}

type ws2801Driver struct {
	correction []float64
	buffer     []byte
}

func newWs2801Driver(hw config.HardwareConfig, ledsTotal int) *ws2801Driver {
	return &ws2801Driver{
		correction: hw.ColorCorrection,
		buffer:     make([]byte, 3*ledsTotal),
	}
}

func (d *ws2801Driver) encode(leds []led.Led) []byte {
	requiredSize := 3 * len(leds)
	if cap(d.buffer) < requiredSize {
		d.buffer = make([]byte, requiredSize)
	}
	display := d.buffer[:requiredSize]

	for idx, l := range leds {
		display[3*idx] = correct(l.Red, d.correction[0])
		display[(3*idx)+1] = correct(l.Green, d.correction[1])
		display[(3*idx)+2] = correct(l.Blue, d.correction[2])
	}
	return display
}

type apa102Driver struct {
	correction []float64
	brightness byte
	buffer     []byte
}

func apa102Size(n int) int {
	return 4 + (4 * n) + (n / 16) + 1
}

func newApa102Driver(hw config.HardwareConfig, ledsTotal int) *apa102Driver {
	return &apa102Driver{
		correction: hw.ColorCorrection,
		brightness: hw.APA102_Brightness,
		buffer:     make([]byte, apa102Size(ledsTotal)),
	}
}

func (d *apa102Driver) encode(leds []led.Led) []byte {
	requiredSize := apa102Size(len(leds))
	if cap(d.buffer) < requiredSize {
		d.buffer = make([]byte, requiredSize)
	}
	display := d.buffer[:requiredSize]

	// Frame start: 4 zero bytes
	copy(display[0:4], []byte{0x00, 0x00, 0x00, 0x00})

	brightness := (d.brightness & 0x1F) | 0xE0

	// protocol: brightness byte, blue, green, red
	offset := 4
	for _, l := range leds {
		display[offset] = brightness
		display[offset+1] = correct(l.Blue, d.correction[2])
		display[offset+2] = correct(l.Green, d.correction[1])
		display[offset+3] = correct(l.Red, d.correction[0])
		offset += 4
	}

	// Frame end
	for i := offset; i < requiredSize; i++ {
		display[i] = 0xFF
	}
	return display
}
