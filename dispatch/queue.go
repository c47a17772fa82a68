// Package dispatch serializes commands from every input (web, pub/sub,
// keyboard, schedules) onto the controller.
package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gammazero/deque"

	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/util"
)

const DefaultLimit = 64

// Applier is the receiving end of the queue.
type Applier interface {
	ApplyCommand(cmd controller.Command) controller.LightState
	RenderState() controller.LightState
}

// Queue buffers commands and applies them one at a time from Run.
// Every resulting state is published through States.
type Queue struct {
	mu      sync.Mutex
	pending deque.Deque[controller.Command]
	limit   int
	notify  chan struct{}
	applier Applier
	states  *util.Latest[controller.LightState]
}

func New(applier Applier, limit int) *Queue {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Queue{
		limit:   limit,
		notify:  make(chan struct{}, 1),
		applier: applier,
		states:  util.NewLatest[controller.LightState](),
	}
}

// Submit enqueues cmd and never blocks. When the queue is full the
// oldest pending command is dropped.
func (s *Queue) Submit(cmd controller.Command) {
	s.mu.Lock()
	if s.pending.Len() >= s.limit {
		dropped := s.pending.PopFront()
		slog.Warn("Command queue full, dropping oldest command", "dropped", dropped)
	}
	s.pending.PushBack(cmd)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of pending commands.
func (s *Queue) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// States publishes the light state after every applied command.
func (s *Queue) States() *util.Latest[controller.LightState] {
	return s.states
}

func (s *Queue) next() (controller.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Len() == 0 {
		return controller.Command{}, false
	}
	return s.pending.PopFront(), true
}

// Run publishes the initial state and then applies queued commands until
// ctx is done.
func (s *Queue) Run(ctx context.Context) {
	s.states.Send(s.applier.RenderState())
	for {
		for {
			cmd, ok := s.next()
			if !ok {
				break
			}
			s.states.Send(s.applier.ApplyCommand(cmd))
		}
		select {
		case <-ctx.Done():
			slog.Info("Ending command queue")
			return
		case <-s.notify:
		}
	}
}
