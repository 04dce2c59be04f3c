package core

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Task is the cancellation handle of a scheduled job.
type Task interface {
	Cancel()
}

// Scheduler runs fn every interval until the returned Task is cancelled.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
}

// ClockScheduler drives tasks from clock tickers. Every tick runs with mu
// held, so fn must not lock mu itself. Once Cancel returns, fn is never
// called again, even for a tick that was already waiting on mu.
type ClockScheduler struct {
	clock clock.Clock
	mu    sync.Locker
}

func NewClockScheduler(c clock.Clock, mu sync.Locker) *ClockScheduler {
	return &ClockScheduler{clock: c, mu: mu}
}

func (s *ClockScheduler) Every(interval time.Duration, fn func()) Task {
	t := &tickTask{
		ticker: s.clock.Ticker(interval),
		done:   make(chan struct{}),
	}
	go t.run(s.mu, fn)
	return t
}

type tickTask struct {
	ticker *clock.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickTask) run(mu sync.Locker, fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
		}
		mu.Lock()
		select {
		case <-t.done:
			mu.Unlock()
			return
		default:
		}
		fn()
		mu.Unlock()
	}
}

func (t *tickTask) Cancel() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
