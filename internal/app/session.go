package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Standup/internal/core"
	"github.com/dkeye/Standup/internal/domain"
)

type Options struct {
	Clock            clock.Clock
	Rand             *rand.Rand
	NewID            func() string
	Artifacts        core.ArtifactStore
	DefaultTimeLimit int
	WarningRatio     float64
	CaptureTimeout   time.Duration

	// Scheduler overrides the clock-backed scheduler. Tests use this.
	Scheduler core.Scheduler
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.DefaultTimeLimit <= 0 {
		o.DefaultTimeLimit = domain.DefaultTimeLimit
	}
	if o.WarningRatio <= 0 {
		o.WarningRatio = 0.3
	}
	return o
}

// Session is the state of one meeting. Every user intent, timer tick and
// device callback goes through its mutex, so state changes one at a time.
// Subscribers are called with the lock held and must not block.
type Session struct {
	mu   sync.Mutex
	id   string
	opts Options

	roster    *core.Roster
	queue     *core.Queue
	countdown *core.Countdown
	stopwatch *core.Stopwatch
	recorder  *core.Recorder

	subs       map[int]func(View)
	nextSub    int
	lastActive time.Time
	closed     bool
}

func NewSession(id string, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		id:         id,
		opts:       opts,
		roster:     core.NewRoster(opts.NewID),
		queue:      core.NewQueue(),
		subs:       make(map[int]func(View)),
		lastActive: opts.Clock.Now(),
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = core.NewClockScheduler(opts.Clock, &s.mu)
	}
	s.countdown = core.NewCountdown(sched, s.onTurnTick)
	s.stopwatch = core.NewStopwatch(sched, s.notify)
	s.recorder = core.NewRecorder(opts.Clock, opts.Artifacts, opts.CaptureTimeout)
	return s
}

func (s *Session) ID() string { return s.id }

// lock takes the session mutex and marks the session as active.
func (s *Session) lock() {
	s.mu.Lock()
	s.lastActive = s.opts.Clock.Now()
}

func (s *Session) AddMember(name string, role domain.Role, timeLimit int) (domain.Member, bool, error) {
	s.lock()
	defer s.mu.Unlock()
	if timeLimit <= 0 {
		timeLimit = s.opts.DefaultTimeLimit
	}
	m, ok, err := s.roster.Add(name, role, timeLimit)
	if err != nil || !ok {
		return m, ok, err
	}
	membersAdded.Inc()
	log.Info().Str("module", "app.session").Str("session", s.id).Str("member", string(m.ID)).Str("name", m.Name).Msg("member added")
	s.notify()
	return m, true, nil
}

// RemoveMember drops the member from the roster and the queue and forgets
// its recording. Removing the current speaker aborts the capture.
func (s *Session) RemoveMember(id domain.MemberID) error {
	s.lock()
	defer s.mu.Unlock()
	if !s.roster.Remove(id) {
		return fmt.Errorf("remove %s: %w", id, domain.ErrMemberNotFound)
	}
	if cur, ok := s.recorder.Current(); ok && cur.ID == id {
		s.recorder.Abort()
		s.countdown.Stop()
		capturesAborted.Inc()
	}
	s.queue.Remove(id)
	s.recorder.Forget(id)
	log.Info().Str("module", "app.session").Str("session", s.id).Str("member", string(id)).Msg("member removed")
	s.notify()
	return nil
}

func (s *Session) BuildQueue() {
	s.lock()
	defer s.mu.Unlock()
	s.queue.Build(s.roster.Members())
	s.notify()
}

func (s *Session) ShuffleQueue() {
	s.lock()
	defer s.mu.Unlock()
	s.queue.Shuffle(s.roster.Members(), s.opts.Rand)
	log.Debug().Str("module", "app.session").Str("session", s.id).Int("size", s.queue.Len()).Msg("queue shuffled")
	s.notify()
}

func (s *Session) RotateQueue() {
	s.lock()
	defer s.mu.Unlock()
	s.queue.RotateToEnd()
	s.notify()
}

// Dequeue removes the member from the speaking order only. A capture in
// progress for that member keeps running.
func (s *Session) Dequeue(id domain.MemberID) error {
	s.lock()
	defer s.mu.Unlock()
	if !s.queue.Remove(id) {
		return fmt.Errorf("dequeue %s: %w", id, domain.ErrMemberNotFound)
	}
	s.notify()
	return nil
}

// StartRecording acquires the attached device for the member and starts
// their turn. The meeting stopwatch starts with the first turn.
func (s *Session) StartRecording(ctx context.Context, id domain.MemberID) error {
	s.lock()
	defer s.mu.Unlock()
	m, ok := s.roster.Get(id)
	if !ok {
		return fmt.Errorf("start %s: %w", id, domain.ErrMemberNotFound)
	}
	if err := s.recorder.Begin(ctx, m); err != nil {
		captureFailures.WithLabelValues(failureReason(err)).Inc()
		log.Warn().Err(err).Str("module", "app.session").Str("session", s.id).Str("member", string(id)).Msg("start recording failed")
		return err
	}
	s.countdown.Start(m.TimeLimit)
	if s.stopwatch.StartOnce() {
		log.Info().Str("module", "app.session").Str("session", s.id).Msg("meeting started")
	}
	capturesStarted.Inc()
	s.notify()
	return nil
}

// StopRecording ends the current turn and stores its recording. ok is false
// when nothing was recording.
func (s *Session) StopRecording() (domain.Recording, bool, error) {
	s.lock()
	defer s.mu.Unlock()
	if !s.recorder.Active() {
		return domain.Recording{}, false, nil
	}
	outcome := s.countdown.Stop()
	turnsEnded.WithLabelValues(outcome.String()).Inc()
	rec, ok, err := s.recorder.Finish()
	if err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("session", s.id).Msg("stop recording")
	} else {
		recordedSeconds.Add(float64(rec.Duration))
	}
	s.notify()
	return rec, ok, err
}

func (s *Session) SavePreset(name string) (domain.TeamPreset, bool, error) {
	s.lock()
	defer s.mu.Unlock()
	p, ok, err := s.roster.SavePreset(name)
	if err != nil || !ok {
		return p, ok, err
	}
	log.Info().Str("module", "app.session").Str("session", s.id).Str("preset", p.Name).Int("members", len(p.Members)).Msg("preset saved")
	s.notify()
	return p, true, nil
}

// LoadPreset replaces the roster with the preset's members and prunes the
// queue and recordings of members that are gone.
func (s *Session) LoadPreset(id domain.PresetID) error {
	s.lock()
	defer s.mu.Unlock()
	p, err := s.roster.LoadPreset(id)
	if err != nil {
		return fmt.Errorf("load preset %s: %w", id, err)
	}
	keep := s.roster.IDs()
	if cur, ok := s.recorder.Current(); ok {
		if _, still := keep[cur.ID]; !still {
			s.recorder.Abort()
			s.countdown.Stop()
			capturesAborted.Inc()
		}
	}
	s.queue.Retain(keep)
	s.recorder.Retain(keep)
	log.Info().Str("module", "app.session").Str("session", s.id).Str("preset", p.Name).Msg("preset loaded")
	s.notify()
	return nil
}

func (s *Session) Presets() []domain.TeamPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Presets()
}

func (s *Session) Members() []domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Members()
}

// AttachDevice makes dev the capture device for later turns.
func (s *Session) AttachDevice(dev core.CaptureDevice) {
	s.lock()
	defer s.mu.Unlock()
	s.recorder.Attach(dev)
	s.notify()
}

// DetachDevice clears the device if it is still dev. A turn recorded from
// dev ends without a recording, since nothing feeds it anymore.
func (s *Session) DetachDevice(dev core.CaptureDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.recorder.Device() == dev
	if s.recorder.Detach(dev) {
		s.countdown.Stop()
		capturesAborted.Inc()
		log.Warn().Str("module", "app.session").Str("session", s.id).Msg("capture device gone, turn aborted")
		changed = true
	}
	if changed {
		s.notify()
	}
}

// Subscribe registers fn for every state change and calls it once with the
// current view. The returned func unsubscribes.
func (s *Session) Subscribe(fn func(View)) func() {
	s.lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	fn(s.view())
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// Idle reports whether the session has no subscribers, no capture and no
// activity since ttl before now.
func (s *Session) Idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) == 0 && !s.recorder.Active() && now.Sub(s.lastActive) >= ttl
}

// Close stops both timers, releases the device and revokes every artifact.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.countdown.Stop()
	s.stopwatch.Close()
	s.recorder.Close()
	clear(s.subs)
	log.Info().Str("module", "app.session").Str("session", s.id).Msg("session closed")
}

func (s *Session) onTurnTick() {
	if s.countdown.State() == core.TurnExpired {
		if m, ok := s.recorder.Current(); ok {
			log.Info().Str("module", "app.session").Str("session", s.id).Str("member", string(m.ID)).Msg("time limit reached")
		}
	}
	s.notify()
}

// notify must be called with mu held.
func (s *Session) notify() {
	if s.closed || len(s.subs) == 0 {
		return
	}
	v := s.view()
	for _, fn := range s.subs {
		fn(v)
	}
}

func (s *Session) view() View {
	now := s.opts.Clock.Now()
	recording := s.recorder.Active()
	var speaker *domain.Member
	if m, ok := s.recorder.Current(); ok {
		speaker = &m
	}
	recs := s.recorder.Recordings()

	v := View{
		Session:     s.id,
		Recording:   recording,
		Speaker:     speaker,
		Total:       ClockView{Seconds: s.stopwatch.Elapsed(), Text: FormatClock(s.stopwatch.Elapsed())},
		Turn:        newTurnView(s.countdown, speaker, s.opts.DefaultTimeLimit, s.opts.WarningRatio),
		Roles:       domain.Roles(),
		CanBuild:    s.roster.Len() > 0,
		CanShuffle:  s.roster.Len() > 0,
		CanRotate:   s.queue.Len() > 1,
		DeviceReady: s.recorder.Device() != nil,
	}
	for _, m := range s.roster.Members() {
		v.Members = append(v.Members, MemberView{Member: m, LimitText: FormatClock(m.TimeLimit)})
	}
	for i, m := range s.queue.Members() {
		e := QueueEntry{
			Position: i + 1,
			Member:   m,
			Next:     i == 0,
			Speaking: speaker != nil && speaker.ID == m.ID,
			CanStart: !recording,
		}
		e.CanStop = e.Speaking
		if rec, ok := recs[m.ID]; ok {
			e.Recording = newRecordingView(rec, now)
			e.CanDequeue = !e.Speaking
		}
		v.Queue = append(v.Queue, e)
	}
	for _, p := range s.roster.Presets() {
		v.Presets = append(v.Presets, PresetView{ID: p.ID, Name: p.Name, Members: len(p.Members)})
	}
	return v
}
