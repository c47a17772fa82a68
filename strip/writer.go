package strip

import (
	"time"

	"lautenbacher.net/ledstrip/led"
)

// Writer is the only way an effect mutates the buffers. Once a newer
// writer has been created every method turns into a no-op that returns
// false, so a superseded effect can never paint over its successor.
type Writer struct {
	buffers    *Buffers
	generation uint64
}

// Len is the number of pixels of the strip.
func (s *Writer) Len() int {
	return s.buffers.Len()
}

// Live reports whether the writer has not been revoked yet.
func (s *Writer) Live() bool {
	s.buffers.mu.Lock()
	defer s.buffers.mu.Unlock()
	return s.buffers.generation == s.generation
}

// Update runs fn with exclusive access to the buffers.
func (s *Writer) Update(fn func(f *Frame)) bool {
	s.buffers.mu.Lock()
	defer s.buffers.mu.Unlock()
	if s.buffers.generation != s.generation {
		return false
	}
	fn(&Frame{buffers: s.buffers})
	return true
}

// SetAnimation sets how fast current converges to target: at most
// stepSize per channel and tick, with stepDelay added to every tick.
func (s *Writer) SetAnimation(stepSize int, stepDelay time.Duration) bool {
	s.buffers.mu.Lock()
	defer s.buffers.mu.Unlock()
	if s.buffers.generation != s.generation {
		return false
	}
	s.buffers.stepSize = max(stepSize, 1)
	s.buffers.stepDelay = max(stepDelay, 0)
	return true
}

// Frame gives access to both buffers inside Writer.Update. It must not
// be retained after the callback returns. Out of range indices are
// ignored.
type Frame struct {
	buffers *Buffers
}

func (s *Frame) Len() int {
	return len(s.buffers.current)
}

func (s *Frame) Current(i int) led.Led {
	if i < 0 || i >= len(s.buffers.current) {
		return led.Black
	}
	return s.buffers.current[i]
}

func (s *Frame) Target(i int) led.Led {
	if i < 0 || i >= len(s.buffers.target) {
		return led.Black
	}
	return s.buffers.target[i]
}

func (s *Frame) SetCurrent(i int, c led.Led) {
	if i >= 0 && i < len(s.buffers.current) {
		s.buffers.current[i] = c
	}
}

func (s *Frame) SetTarget(i int, c led.Led) {
	if i >= 0 && i < len(s.buffers.target) {
		s.buffers.target[i] = c
	}
}

func (s *Frame) FillTarget(c led.Led) {
	for i := range s.buffers.target {
		s.buffers.target[i] = c
	}
}

func (s *Frame) FillCurrent(c led.Led) {
	for i := range s.buffers.current {
		s.buffers.current[i] = c
	}
}
