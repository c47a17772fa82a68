// Package strip owns the two frame buffers of the strip and the loop
// that moves the rendered buffer towards the one effects paint into.
package strip

import (
	"sync"
	"time"

	"lautenbacher.net/ledstrip/led"
)

const (
	DefaultStepSize  = 1
	DefaultStepDelay = 10 * time.Millisecond
)

// Buffers holds current (what is shown) and target (what the running
// effect wants shown). Both always have the same length. Every access
// goes through mu, which is never held while sleeping.
type Buffers struct {
	mu         sync.Mutex
	current    []led.Led
	target     []led.Led
	stepSize   int
	stepDelay  time.Duration
	generation uint64
}

// NewBuffers creates black buffers for ledsTotal pixels. A strip has at
// least one pixel.
func NewBuffers(ledsTotal int) *Buffers {
	ledsTotal = max(ledsTotal, 1)
	return &Buffers{
		current:   make([]led.Led, ledsTotal),
		target:    make([]led.Led, ledsTotal),
		stepSize:  DefaultStepSize,
		stepDelay: DefaultStepDelay,
	}
}

func (s *Buffers) Len() int {
	return len(s.current)
}

// Returns a copy of the current buffer
func (s *Buffers) Current() []led.Led {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLeds(s.current)
}

// Returns a copy of the target buffer
func (s *Buffers) Target() []led.Led {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLeds(s.target)
}

// Animation returns the step size and step delay last set by an effect.
func (s *Buffers) Animation() (int, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepSize, s.stepDelay
}

// Step moves every channel of current at most stepSize towards target
// and returns a copy of the result.
func (s *Buffers) Step() []led.Led {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.current {
		cur, tgt := s.current[i], s.target[i]
		s.current[i] = led.Led{
			Red:   stepChannel(cur.Red, tgt.Red, s.stepSize),
			Green: stepChannel(cur.Green, tgt.Green, s.stepSize),
			Blue:  stepChannel(cur.Blue, tgt.Blue, s.stepSize),
		}
	}
	return copyLeds(s.current)
}

func stepChannel(current, target byte, stepSize int) byte {
	cur, tgt := int(current), int(target)
	step := led.ClampInt(tgt-cur, -stepSize, stepSize)
	next := cur + step
	if abs(cur-tgt) < abs(step) {
		next = tgt
	}
	return byte(next)
}

// NewWriter hands out write access to the buffers and revokes every
// writer handed out before.
func (s *Buffers) NewWriter() *Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return &Writer{buffers: s, generation: s.generation}
}

// Revoke invalidates all writers without creating a new one.
func (s *Buffers) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

func copyLeds(leds []led.Led) []led.Led {
	ret := make([]led.Led, len(leds))
	copy(ret, leds)
	return ret
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
