package core

import "time"

type TurnState int

const (
	TurnIdle TurnState = iota
	TurnRunning
	TurnExpired
	TurnStopped
)

func (s TurnState) String() string {
	switch s {
	case TurnRunning:
		return "running"
	case TurnExpired:
		return "expired"
	case TurnStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Countdown is the per-speaker timer. Reaching zero only marks the turn as
// expired; the limit is advisory and nothing else is stopped.
type Countdown struct {
	sched     Scheduler
	onChange  func()
	task      Task
	state     TurnState
	limit     int
	remaining int
}

// NewCountdown returns an idle countdown. onChange is called after every
// tick, including the one that expires the turn.
func NewCountdown(sched Scheduler, onChange func()) *Countdown {
	return &Countdown{sched: sched, onChange: onChange}
}

// Start cancels any running turn and counts down from seconds.
func (c *Countdown) Start(seconds int) {
	c.cancel()
	if seconds < 0 {
		seconds = 0
	}
	c.limit = seconds
	c.remaining = seconds
	if seconds == 0 {
		c.state = TurnExpired
		return
	}
	c.state = TurnRunning
	c.task = c.sched.Every(time.Second, c.tick)
}

// Stop ends the turn and reports how it ended: TurnExpired if the limit was
// reached, TurnStopped otherwise. Remaining keeps its last value.
func (c *Countdown) Stop() TurnState {
	outcome := c.state
	if outcome == TurnRunning {
		outcome = TurnStopped
	}
	c.cancel()
	c.state = TurnIdle
	return outcome
}

func (c *Countdown) State() TurnState { return c.state }
func (c *Countdown) Remaining() int   { return c.remaining }
func (c *Countdown) Limit() int       { return c.limit }

func (c *Countdown) tick() {
	if c.state != TurnRunning {
		return
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.state = TurnExpired
		c.cancel()
	}
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Countdown) cancel() {
	if c.task != nil {
		c.task.Cancel()
		c.task = nil
	}
}
