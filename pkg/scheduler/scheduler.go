// Package scheduler runs deferred actions on a tick signal instead of a
// wall clock. The gateway ticks it on every movement packet a client sends.
package scheduler

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type task struct {
	run   func()
	ticks int
}

// Scheduler is a FIFO queue of tick-delayed tasks.
type Scheduler struct {
	mu     sync.Mutex
	tasks  []*task
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger}
}

// Schedule queues fn to run after delay ticks have passed. A delay of zero
// runs fn on the next tick. Negative delays are treated as zero.
func (s *Scheduler) Schedule(fn func(), delay int) {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, &task{run: fn, ticks: delay})
	s.mu.Unlock()
}

// Advance processes one tick: tasks with no ticks remaining run in the
// order they were scheduled and are removed, the rest count down by one.
// Tasks scheduled while Advance runs wait for the next tick.
func (s *Scheduler) Advance() {
	s.mu.Lock()
	queued := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	var kept []*task
	for _, t := range queued {
		if t.ticks == 0 {
			s.run(t)
			continue
		}
		t.ticks--
		kept = append(kept, t)
	}

	s.mu.Lock()
	s.tasks = append(kept, s.tasks...)
	s.mu.Unlock()
}

func (s *Scheduler) run(t *task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	t.run()
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Clear drops every pending task without running it.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	s.tasks = nil
	s.mu.Unlock()
}
