package platform

import (
	"fmt"
	"log/slog"

	"github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"lautenbacher.net/ledstrip/config"
)

// spiBus writes raw frames to the strip.
type spiBus interface {
	Write(data []byte) error
	Close() error
}

func openSPI(hw config.HardwareConfig) (spiBus, error) {
	switch hw.GPIOLibrary {
	case config.GPIOLibraryPeriph:
		return openPeriphBus(hw.SPIDevice, hw.SPIFrequency)
	case config.GPIOLibraryRPIO:
		return openRPIOBus(hw.SPIFrequency)
	default:
		return nil, fmt.Errorf("unknown GPIO library: %s", hw.GPIOLibrary)
	}
}

type periphBus struct {
	port spi.PortCloser
	conn spi.Conn
}

// openPeriphBus opens device, or the first SPI port when device is empty.
func openPeriphBus(device string, frequency int) (*periphBus, error) {
	slog.Info("Initialise SPI via periph.io", "device", device, "frequency", frequency)
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to init periph: %w", err)
	}
	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open spi: %w", err)
	}
	conn, err := port.Connect(physic.Frequency(frequency)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect to spi device: %w", err)
	}
	return &periphBus{port: port, conn: conn}, nil
}

func (b *periphBus) Write(data []byte) error {
	read := make([]byte, len(data))
	return b.conn.Tx(data, read)
}

func (b *periphBus) Close() error {
	return b.port.Close()
}

type rpioBus struct{}

func openRPIOBus(frequency int) (*rpioBus, error) {
	slog.Info("Initialise SPI via go-rpio", "frequency", frequency)
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open rpio: %w", err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return nil, fmt.Errorf("failed to begin spi: %w", err)
	}
	rpio.SpiSpeed(frequency)
	rpio.SpiChipSelect(0)
	return &rpioBus{}, nil
}

func (b *rpioBus) Write(data []byte) error {
	// SpiTransmit leaves the caller's buffer untouched.
	rpio.SpiTransmit(data...)
	return nil
}

func (b *rpioBus) Close() error {
	rpio.SpiEnd(rpio.Spi0)
	return rpio.Close()
}
