// Package coretest provides deterministic stand-ins for the scheduler,
// capture devices and artifact store.
package coretest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Standup/internal/core"
	"github.com/dkeye/Standup/internal/domain"
)

// Scheduler fires tasks only when Tick is called, on the caller's goroutine.
type Scheduler struct {
	mu    sync.Mutex
	tasks []*task
}

type task struct {
	fn        func()
	cancelled bool
}

func (t *task) Cancel() { t.cancelled = true }

func NewScheduler() *Scheduler { return &Scheduler{} }

func (s *Scheduler) Every(_ time.Duration, fn func()) core.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &task{fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Tick fires every live task n times, one second per round.
func (s *Scheduler) Tick(n int) {
	for range n {
		s.mu.Lock()
		live := make([]*task, 0, len(s.tasks))
		for _, t := range s.tasks {
			if !t.cancelled {
				live = append(live, t)
			}
		}
		s.tasks = live
		s.mu.Unlock()
		for _, t := range live {
			if !t.cancelled {
				t.fn()
			}
		}
	}
}

// Live is the number of tasks not yet cancelled.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Device hands out Streams and fails with Err when set.
type Device struct {
	Err      error
	Clip     core.Clip
	Acquired int
	Streams  []*Stream
}

func (d *Device) Acquire(_ context.Context, _ core.Constraints) (core.CaptureStream, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	d.Acquired++
	s := &Stream{clip: d.Clip}
	d.Streams = append(d.Streams, s)
	return s, nil
}

// Held reports whether any stream is still unreleased.
func (d *Device) Held() bool {
	for _, s := range d.Streams {
		if !s.Released {
			return true
		}
	}
	return false
}

type Stream struct {
	clip      core.Clip
	Finalized bool
	Released  bool
	Err       error
}

func (s *Stream) Finalize() (core.Clip, error) {
	s.Finalized = true
	if s.Err != nil {
		return core.Clip{}, s.Err
	}
	return s.clip, nil
}

func (s *Stream) Release() { s.Released = true }

// Store is an ArtifactStore that remembers what was revoked. Cap bounds
// the number of clips held; zero means unbounded.
type Store struct {
	n       int
	Cap     int
	Clips   map[string]core.Clip
	Revoked []string
}

func NewStore() *Store { return &Store{Clips: make(map[string]core.Clip)} }

func (s *Store) Put(clip core.Clip) (string, error) {
	if s.Cap > 0 && len(s.Clips) >= s.Cap {
		return "", domain.ErrStorageFull
	}
	s.n++
	url := fmt.Sprintf("/artifacts/%d", s.n)
	s.Clips[url] = clip
	return url, nil
}

func (s *Store) Revoke(url string) {
	delete(s.Clips, url)
	s.Revoked = append(s.Revoked, url)
}
