package polling

import (
	"sync"
	"time"
)

// Scheduler runs one repeating timer at a time.
type Scheduler struct {
	clock Clock

	mu   sync.Mutex
	stop chan struct{}
}

// NewScheduler creates a scheduler on clock; nil means the system clock.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{clock: clock}
}

// Start invokes callback every interval until Stop. A running timer is replaced.
func (s *Scheduler) Start(callback func(), interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ticker := s.clock.NewTicker(interval)
	stop := make(chan struct{})
	s.stop = stop

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				// Stop may have raced with the tick.
				select {
				case <-stop:
					return
				default:
				}
				callback()
			}
		}
	}()
}

// Stop cancels the active timer. It is a no-op when none is running.
// Stop does not wait for a callback that is already executing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a timer is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *Scheduler) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}
