package controller

import (
	"context"
	"log/slog"
	"time"

	"lautenbacher.net/ledstrip/led"
	"lautenbacher.net/ledstrip/strip"
)

// Status colours shown on the whole strip while a connection changes.
var (
	StatusConnecting = led.Led{Blue: 64}
	StatusConnected  = led.Led{Green: 128}
	StatusFailed     = led.Led{Red: 128, Green: 64}
	StatusFailedDim  = led.Led{Red: 64, Green: 32}
)

const (
	statusStepSize  = 5
	statusStepDelay = 20 * time.Millisecond
)

// ShowStatus replaces the running effect with a plain fill of c. The
// light state is left alone: the next command, Restore or ClearStatus
// renders it again.
func (s *Controller) ShowStatus(c led.Led) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showStatus(c)
}

// UpdateStatus is ShowStatus for a status colour that is already
// showing. It does nothing and returns false once something else took
// over the strip.
func (s *Controller) UpdateStatus(c led.Led) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.showingStatus {
		return false
	}
	s.showStatus(c)
	return true
}

// showStatus must be called with s.mu held.
func (s *Controller) showStatus(c led.Led) {
	slog.Debug("Showing status colour", "color", c)
	s.showingStatus = true
	s.task.replace(s.buffers, func(ctx context.Context, w *strip.Writer) {
		w.SetAnimation(statusStepSize, statusStepDelay)
		w.Update(func(f *strip.Frame) {
			f.FillTarget(c)
		})
	})
}

// ClearStatus renders the light state again if a status colour is
// still showing. It returns false if something else already took over.
func (s *Controller) ClearStatus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.showingStatus {
		return false
	}
	s.spawn()
	return true
}
