package platform

import (
	"log/slog"
	"sync"

	"lautenbacher.net/ledstrip/config"
	"lautenbacher.net/ledstrip/led"
)

// AbstractPlatform decouples the animator from slow outputs: frames are
// handed over through a one-slot mailbox and written by displayDriver.
type AbstractPlatform struct {
	config          *config.Config
	segments        []*segment
	displayFunc     func([]led.Led)
	display         chan []led.Led
	displayWg       sync.WaitGroup
	displayStopChan chan bool
	readyChan       chan bool
	readyOnce       sync.Once
	shutdownMutex   sync.RWMutex
	isShuttingDown  bool
}

func newAbstractPlatform(conf *config.Config, displayFunc func([]led.Led)) *AbstractPlatform {
	return &AbstractPlatform{
		config:          conf,
		segments:        parseSegments(conf.Hardware.Segments, conf.Strip.LedsTotal),
		displayFunc:     displayFunc,
		display:         make(chan []led.Led, 1),
		displayStopChan: make(chan bool),
		readyChan:       make(chan bool),
	}
}

func (s *AbstractPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *AbstractPlatform) setReady() {
	s.readyOnce.Do(func() { close(s.readyChan) })
}

func (s *AbstractPlatform) GetLedsTotal() int {
	return s.config.Strip.LedsTotal
}

// DisplayLeds replaces a frame still waiting in the mailbox.
func (s *AbstractPlatform) DisplayLeds(leds []led.Led) {
	frame := make([]led.Led, len(leds))
	copy(frame, leds)
	for {
		select {
		case s.display <- frame:
			return
		default:
		}
		select {
		case <-s.display:
		default:
		}
	}
}

func (s *AbstractPlatform) startDisplayDriver() {
	s.displayWg.Add(1)
	go s.displayDriver()
}

func (s *AbstractPlatform) stopDisplayDriver() {
	s.setInShutdown()
	close(s.displayStopChan)
	s.displayWg.Wait()
}

func (s *AbstractPlatform) setInShutdown() {
	s.shutdownMutex.Lock()
	s.isShuttingDown = true
	s.shutdownMutex.Unlock()
}

func (s *AbstractPlatform) displayDriver() {
	defer s.displayWg.Done()
	for {
		select {
		case <-s.displayStopChan:
			slog.Info("Ending DisplayDriver go-routine...")
			return
		case leds := <-s.display:
			s.shutdownMutex.RLock()
			if !s.isShuttingDown {
				s.displayFunc(leds)
			}
			s.shutdownMutex.RUnlock()
		}
	}
}
