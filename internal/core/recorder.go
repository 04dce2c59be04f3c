package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Standup/internal/domain"
)

type activeCapture struct {
	member    domain.Member
	device    CaptureDevice
	stream    CaptureStream
	startedAt time.Time
}

// Recorder owns the single capture of a session and the artifact stored
// per member. Not threadsafe; the owning session serializes access.
type Recorder struct {
	clock      clock.Clock
	artifacts  ArtifactStore
	timeout    time.Duration
	device     CaptureDevice
	active     *activeCapture
	recordings map[domain.MemberID]domain.Recording
}

// NewRecorder returns an idle recorder. timeout bounds device acquisition;
// zero means no bound beyond the caller's context.
func NewRecorder(c clock.Clock, artifacts ArtifactStore, timeout time.Duration) *Recorder {
	return &Recorder{
		clock:      c,
		artifacts:  artifacts,
		timeout:    timeout,
		recordings: make(map[domain.MemberID]domain.Recording),
	}
}

// Attach sets the device used by the next Begin. nil detaches. An active
// capture keeps its stream until it is finished.
func (r *Recorder) Attach(dev CaptureDevice) { r.device = dev }

func (r *Recorder) Device() CaptureDevice { return r.device }

// Detach drops dev if it is attached and aborts the capture it feeds, even
// when another device was attached since. It reports whether a capture was
// aborted.
func (r *Recorder) Detach(dev CaptureDevice) bool {
	if r.device == dev {
		r.device = nil
	}
	if r.active != nil && r.active.device == dev {
		return r.Abort()
	}
	return false
}

// Begin acquires the device for member. On failure nothing changes.
func (r *Recorder) Begin(ctx context.Context, member domain.Member) error {
	if r.active != nil {
		return domain.ErrRecordingInProgress
	}
	if r.device == nil {
		return fmt.Errorf("%w: no capture device attached", domain.ErrDeviceUnavailable)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	stream, err := r.device.Acquire(ctx, Constraints{Audio: true})
	if err != nil {
		return classifyAcquireErr(err)
	}
	r.active = &activeCapture{member: member, device: r.device, stream: stream, startedAt: r.clock.Now()}
	log.Info().Str("module", "core.recorder").Str("member", string(member.ID)).Msg("capture started")
	return nil
}

func classifyAcquireErr(err error) error {
	if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
}

// Finish finalizes the active capture into the member's recording,
// replacing and revoking any previous one. ok is false when idle.
// The device is released even if finalizing fails. When the store is full
// the member's previous recording makes room; failing that, nothing is
// stored and every other recording stays valid.
func (r *Recorder) Finish() (rec domain.Recording, ok bool, err error) {
	a := r.active
	if a == nil {
		return domain.Recording{}, false, nil
	}
	r.active = nil
	stoppedAt := r.clock.Now()
	clip, err := a.stream.Finalize()
	a.stream.Release()
	if err != nil {
		return domain.Recording{}, true, fmt.Errorf("finalize capture: %w", err)
	}

	url, err := r.artifacts.Put(clip)
	if errors.Is(err, domain.ErrStorageFull) && r.Forget(a.member.ID) {
		url, err = r.artifacts.Put(clip)
	}
	if err != nil {
		return domain.Recording{}, true, fmt.Errorf("store capture: %w", err)
	}

	rec = domain.Recording{
		URL:       url,
		Timestamp: stoppedAt,
		Duration:  wholeSeconds(stoppedAt.Sub(a.startedAt)),
		MimeType:  clip.MimeType,
		Size:      int64(len(clip.Data)),
	}
	if prev, ok := r.recordings[a.member.ID]; ok {
		r.artifacts.Revoke(prev.URL)
	}
	r.recordings[a.member.ID] = rec
	log.Info().
		Str("module", "core.recorder").
		Str("member", string(a.member.ID)).
		Int("duration", rec.Duration).
		Int64("size", rec.Size).
		Msg("capture stored")
	return rec, true, nil
}

// Abort releases the active capture without storing anything.
func (r *Recorder) Abort() bool {
	a := r.active
	if a == nil {
		return false
	}
	r.active = nil
	a.stream.Release()
	log.Info().Str("module", "core.recorder").Str("member", string(a.member.ID)).Msg("capture aborted")
	return true
}

// Current is the member being recorded.
func (r *Recorder) Current() (domain.Member, bool) {
	if r.active == nil {
		return domain.Member{}, false
	}
	return r.active.member, true
}

func (r *Recorder) Active() bool { return r.active != nil }

func (r *Recorder) Recordings() map[domain.MemberID]domain.Recording {
	out := make(map[domain.MemberID]domain.Recording, len(r.recordings))
	for id, rec := range r.recordings {
		out[id] = rec
	}
	return out
}

// Forget revokes and drops the recording of id.
func (r *Recorder) Forget(id domain.MemberID) bool {
	rec, ok := r.recordings[id]
	if !ok {
		return false
	}
	r.artifacts.Revoke(rec.URL)
	delete(r.recordings, id)
	return true
}

// Retain forgets the recordings of members not in keep.
func (r *Recorder) Retain(keep map[domain.MemberID]struct{}) {
	for id := range r.recordings {
		if _, ok := keep[id]; !ok {
			r.Forget(id)
		}
	}
}

// Close aborts the active capture and revokes every artifact.
func (r *Recorder) Close() {
	r.Abort()
	for id := range r.recordings {
		r.Forget(id)
	}
	r.device = nil
}

func wholeSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Round(time.Second) / time.Second)
}
