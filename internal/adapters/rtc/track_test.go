package rtc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"

	"github.com/dkeye/Standup/internal/core"
	"github.com/dkeye/Standup/internal/domain"
)

type fakeTrack struct {
	pkts chan *rtp.Packet
}

func (f *fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	p, ok := <-f.pkts
	if !ok {
		return nil, nil, io.EOF
	}
	return p, nil, nil
}

func packet(seq uint16) *rtp.Packet {
	return &rtp.Packet{
		Header:  rtp.Header{Version: 2, PayloadType: 111, SequenceNumber: seq, Timestamp: uint32(seq) * 960},
		Payload: []byte{0xf8, 0xff, 0xfe},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func isLive(d *TrackDevice) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func TestTrackDeviceNeedsTrack(t *testing.T) {
	is := is.New(t)
	d := NewTrackDevice("c1")
	_, err := d.Acquire(context.Background(), core.Constraints{Audio: true})
	is.True(errors.Is(err, domain.ErrDeviceUnavailable))
}

func TestTrackDeviceWritesOgg(t *testing.T) {
	is := is.New(t)
	d := NewTrackDevice("c1")
	src := &fakeTrack{pkts: make(chan *rtp.Packet)}
	d.Bind(context.Background(), src)
	is.True(isLive(d))

	src.pkts <- packet(1) // before capture, not kept

	s, err := d.Acquire(context.Background(), core.Constraints{Audio: true})
	is.NoErr(err)
	_, err = d.Acquire(context.Background(), core.Constraints{Audio: true})
	is.True(errors.Is(err, domain.ErrDeviceUnavailable))

	for seq := uint16(2); seq <= 4; seq++ {
		src.pkts <- packet(seq)
	}
	close(src.pkts)
	waitFor(t, func() bool { return !isLive(d) })

	clip, err := s.Finalize()
	is.NoErr(err)
	s.Release()
	is.Equal(clip.MimeType, "audio/ogg")
	is.True(bytes.HasPrefix(clip.Data, []byte("OggS")))
	is.Equal(bytes.Count(clip.Data, []byte("OggS")), 2+3) // id and comment headers, then one page per packet

	_, err = d.Acquire(context.Background(), core.Constraints{Audio: true})
	is.True(errors.Is(err, domain.ErrDeviceUnavailable)) // track ended
}

func TestTrackDeviceRebind(t *testing.T) {
	is := is.New(t)
	d := NewTrackDevice("c1")
	first := &fakeTrack{pkts: make(chan *rtp.Packet)}
	second := &fakeTrack{pkts: make(chan *rtp.Packet)}
	d.Bind(context.Background(), first)
	d.Bind(context.Background(), second)

	close(first.pkts)
	time.Sleep(10 * time.Millisecond)
	is.True(isLive(d)) // the old loop ending does not mark the new one dead

	close(second.pkts)
	waitFor(t, func() bool { return !isLive(d) })
}
