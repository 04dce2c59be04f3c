package core_test

import (
	"testing"

	"github.com/matryer/is"

	"github.com/dkeye/Standup/internal/core"
	"github.com/dkeye/Standup/internal/core/coretest"
)

func TestCountdownExpires(t *testing.T) {
	is := is.New(t)
	sched := coretest.NewScheduler()
	changes := 0
	c := core.NewCountdown(sched, func() { changes++ })

	c.Start(3)
	is.Equal(c.State(), core.TurnRunning)
	is.Equal(c.Remaining(), 3)

	sched.Tick(2)
	is.Equal(c.Remaining(), 1)
	is.Equal(c.State(), core.TurnRunning)

	sched.Tick(1)
	is.Equal(c.Remaining(), 0)
	is.Equal(c.State(), core.TurnExpired)
	is.Equal(sched.Live(), 0) // tick task cancelled at zero

	sched.Tick(5)
	is.Equal(c.Remaining(), 0) // never negative
	is.Equal(changes, 3)

	is.Equal(c.Stop(), core.TurnExpired)
	is.Equal(c.State(), core.TurnIdle)
}

func TestCountdownStop(t *testing.T) {
	is := is.New(t)
	sched := coretest.NewScheduler()
	c := core.NewCountdown(sched, nil)

	c.Start(10)
	sched.Tick(4)
	is.Equal(c.Stop(), core.TurnStopped)
	is.Equal(c.State(), core.TurnIdle)
	is.Equal(c.Remaining(), 6) // last value stays visible
	is.Equal(sched.Live(), 0)

	sched.Tick(3)
	is.Equal(c.Remaining(), 6)
}

func TestCountdownRestartCancelsPrevious(t *testing.T) {
	is := is.New(t)
	sched := coretest.NewScheduler()
	c := core.NewCountdown(sched, nil)

	c.Start(10)
	sched.Tick(2)
	c.Start(5)
	is.Equal(sched.Live(), 1)
	sched.Tick(1)
	is.Equal(c.Remaining(), 4)
	is.Equal(c.Limit(), 5)
}

func TestCountdownZeroLimit(t *testing.T) {
	is := is.New(t)
	sched := coretest.NewScheduler()
	c := core.NewCountdown(sched, nil)

	c.Start(0)
	is.Equal(c.State(), core.TurnExpired)
	is.Equal(sched.Live(), 0)
}

func TestStopwatch(t *testing.T) {
	is := is.New(t)
	sched := coretest.NewScheduler()
	w := core.NewStopwatch(sched, nil)

	is.True(w.StartOnce())
	is.True(!w.StartOnce())
	sched.Tick(7)
	is.Equal(w.Elapsed(), 7)

	w.Close()
	is.True(!w.Running())
	sched.Tick(3)
	is.Equal(w.Elapsed(), 7)
	is.True(!w.StartOnce())
}
