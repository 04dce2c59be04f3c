// Package capture holds the capture devices fed by the browser.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Standup/internal/core"
	"github.com/dkeye/Standup/internal/domain"
)

// Permission is the microphone state last reported by the browser.
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
	PermissionUnavailable
)

func ParsePermission(s string) (Permission, bool) {
	switch s {
	case "granted":
		return PermissionGranted, true
	case "denied":
		return PermissionDenied, true
	case "unavailable":
		return PermissionUnavailable, true
	}
	return PermissionUnknown, false
}

const defaultChunkMime = "audio/webm"

// ChunkDevice is a microphone in the browser whose MediaRecorder chunks
// arrive over the signal channel. Acquire never blocks: it answers from the
// permission the browser reported before asking to start.
type ChunkDevice struct {
	mu       sync.Mutex
	perm     Permission
	mime     string
	maxBytes int
	stream   *chunkStream
}

// NewChunkDevice returns a device that holds at most maxBytes per capture.
// Zero means unbounded.
func NewChunkDevice(maxBytes int) *ChunkDevice {
	return &ChunkDevice{mime: defaultChunkMime, maxBytes: maxBytes}
}

// Report records the browser's permission state and container type.
func (d *ChunkDevice) Report(p Permission, mime string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.perm = p
	if mime != "" {
		d.mime = mime
	}
}

func (d *ChunkDevice) Acquire(ctx context.Context, c core.Constraints) (core.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.perm {
	case PermissionGranted:
	case PermissionDenied:
		return nil, fmt.Errorf("microphone: %w", domain.ErrPermissionDenied)
	case PermissionUnavailable:
		return nil, fmt.Errorf("microphone: %w", domain.ErrDeviceUnavailable)
	default:
		return nil, fmt.Errorf("%w: microphone state not reported", domain.ErrDeviceUnavailable)
	}
	if d.stream != nil {
		return nil, fmt.Errorf("%w: microphone busy", domain.ErrDeviceUnavailable)
	}
	mime := d.mime
	if c.MimeType != "" {
		mime = c.MimeType
	}
	d.stream = &chunkStream{dev: d, mime: mime}
	return d.stream, nil
}

// Write appends a chunk to the active capture. It reports false when no
// capture is running or the chunk would exceed the size bound; such chunks
// are dropped.
func (d *ChunkDevice) Write(chunk []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stream
	if s == nil || s.finalized {
		return false
	}
	if d.maxBytes > 0 && s.buf.Len()+len(chunk) > d.maxBytes {
		log.Warn().Str("module", "capture").Int("size", s.buf.Len()).Msg("chunk dropped, capture too large")
		return false
	}
	s.buf.Write(chunk)
	return true
}

type chunkStream struct {
	dev       *ChunkDevice
	mime      string
	buf       bytes.Buffer
	finalized bool
}

// Finalize returns the chunks received so far. A chunk the browser flushes
// after stop arrives too late and is dropped.
func (s *chunkStream) Finalize() (core.Clip, error) {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.finalized = true
	data := bytes.Clone(s.buf.Bytes())
	return core.Clip{MimeType: s.mime, Data: data}, nil
}

func (s *chunkStream) Release() {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if s.dev.stream == s {
		s.dev.stream = nil
	}
	s.buf.Reset()
}
