package core

import "time"

// Stopwatch counts whole seconds of meeting time. Once started it is never
// paused or reset; only Close stops it.
type Stopwatch struct {
	sched    Scheduler
	onChange func()
	task     Task
	elapsed  int
	closed   bool
}

func NewStopwatch(sched Scheduler, onChange func()) *Stopwatch {
	return &Stopwatch{sched: sched, onChange: onChange}
}

// StartOnce starts the stopwatch unless it already runs. Reports whether
// this call started it.
func (w *Stopwatch) StartOnce() bool {
	if w.task != nil || w.closed {
		return false
	}
	w.task = w.sched.Every(time.Second, w.tick)
	return true
}

func (w *Stopwatch) Running() bool { return w.task != nil }
func (w *Stopwatch) Elapsed() int  { return w.elapsed }

// Close cancels the tick task for good.
func (w *Stopwatch) Close() {
	w.closed = true
	if w.task != nil {
		w.task.Cancel()
		w.task = nil
	}
}

func (w *Stopwatch) tick() {
	w.elapsed++
	if w.onChange != nil {
		w.onChange()
	}
}
