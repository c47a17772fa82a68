package controller

import (
	"context"

	"lautenbacher.net/ledstrip/strip"
)

// taskSlot holds the single running effect task. Filling the slot
// revokes the previous occupant before the next one is started.
type taskSlot struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// replace cancels the running task, revokes its writer and starts run
// with a fresh one. It does not wait for the old task to return.
func (s *taskSlot) replace(buffers *strip.Buffers, run func(ctx context.Context, w *strip.Writer)) {
	s.cancelRunning()
	w := buffers.NewWriter()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		run(ctx, w)
	}()
}

func (s *taskSlot) cancelRunning() {
	if s.cancel != nil {
		s.cancel()
	}
}

// close cancels the running task, revokes every writer and waits for the
// task to return.
func (s *taskSlot) close(buffers *strip.Buffers) {
	s.cancelRunning()
	buffers.Revoke()
	if s.done != nil {
		<-s.done
	}
	s.cancel, s.done = nil, nil
}
