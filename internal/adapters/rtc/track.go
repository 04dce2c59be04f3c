package rtc

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Standup/internal/core"
	"github.com/dkeye/Standup/internal/domain"
)

const oggMime = "audio/ogg"

// RTPReader is the read side of a remote track.
type RTPReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// TrackDevice turns the browser's Opus track into a capture device. The
// track is read for as long as it lives; packets are only kept while a
// capture is active, muxed into Ogg.
type TrackDevice struct {
	mu     sync.Mutex
	cid    string
	live   bool
	gen    int
	stream *trackStream
}

func NewTrackDevice(cid string) *TrackDevice {
	return &TrackDevice{cid: cid}
}

// Bind starts reading src until ctx is done or the track ends. A later Bind
// replaces the earlier source.
func (d *TrackDevice) Bind(ctx context.Context, src RTPReader) {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.live = true
	d.mu.Unlock()

	logger := log.With().Str("module", "webrtc.track").Str("cid", d.cid).Logger()
	logger.Info().Msg("starting track loop")
	go d.loop(ctx, gen, src, &logger)
}

// loop reads RTP packets from the source track and feeds the active capture.
func (d *TrackDevice) loop(ctx context.Context, gen int, src RTPReader, logger *zerolog.Logger) {
	defer func() {
		d.mu.Lock()
		if d.gen == gen {
			d.live = false
		}
		d.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("track ctx done")
			return
		default:
		}
		pkt, _, err := src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("track read RTP stopped")
			return
		}
		if !d.write(gen, pkt) {
			return
		}
	}
}

// write reports false once src was replaced by a newer Bind.
func (d *TrackDevice) write(gen int, pkt *rtp.Packet) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return false
	}
	s := d.stream
	if s == nil || s.finalized {
		return true
	}
	if err := s.ogg.WriteRTP(pkt); err != nil {
		log.Warn().Err(err).Str("module", "webrtc.track").Str("cid", d.cid).Msg("ogg write")
	}
	return true
}

func (d *TrackDevice) Acquire(ctx context.Context, _ core.Constraints) (core.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.live {
		return nil, fmt.Errorf("%w: no audio track", domain.ErrDeviceUnavailable)
	}
	if d.stream != nil {
		return nil, fmt.Errorf("%w: track busy", domain.ErrDeviceUnavailable)
	}
	s := &trackStream{dev: d}
	ogg, err := oggwriter.NewWith(&s.buf, 48000, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: ogg writer: %v", domain.ErrDeviceUnavailable, err)
	}
	s.ogg = ogg
	d.stream = s
	return s, nil
}

type trackStream struct {
	dev       *TrackDevice
	buf       bytes.Buffer
	ogg       *oggwriter.OggWriter
	finalized bool
}

func (s *trackStream) Finalize() (core.Clip, error) {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if !s.finalized {
		s.finalized = true
		if err := s.ogg.Close(); err != nil {
			return core.Clip{}, fmt.Errorf("close ogg: %w", err)
		}
	}
	return core.Clip{MimeType: oggMime, Data: bytes.Clone(s.buf.Bytes())}, nil
}

func (s *trackStream) Release() {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if s.dev.stream == s {
		s.dev.stream = nil
	}
}
