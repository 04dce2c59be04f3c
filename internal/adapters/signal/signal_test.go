package signal_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/matryer/is"
	"github.com/pion/webrtc/v4"

	router "github.com/dkeye/Standup/internal/adapters/http"
	"github.com/dkeye/Standup/internal/adapters/rtc"
	"github.com/dkeye/Standup/internal/adapters/signal"
	"github.com/dkeye/Standup/internal/app"
	"github.com/dkeye/Standup/internal/config"
	"github.com/dkeye/Standup/internal/core/coretest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type serverMsg struct {
	Type  string   `json:"type"`
	State app.View `json:"state"`
	Error string   `json:"error"`
	SDP   string   `json:"sdp"`
}

type wsEnv struct {
	t         *testing.T
	ws        *websocket.Conn
	artifacts *app.ArtifactStore
	sessions  *app.Registry
}

func dial(t *testing.T, limiter *signal.IntentRateLimiter) *wsEnv {
	t.Helper()
	return dialWith(t, limiter, nil)
}

func dialWith(t *testing.T, limiter *signal.IntentRateLimiter, api *webrtc.API) *wsEnv {
	t.Helper()
	artifacts, err := app.NewArtifactStore(16)
	if err != nil {
		t.Fatal(err)
	}
	sessions := app.NewRegistry(app.Options{
		Clock:     clock.NewMock(),
		Artifacts: artifacts,
		Scheduler: coretest.NewScheduler(),
	}, 0)
	ctl := signal.NewSignalWSController(sessions, limiter, api, signal.Options{ReadLimit: 1 << 16, PingPeriod: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := &config.Config{Mode: "test", StaticPath: t.TempDir(), Secret: "test-secret"}
	srv := httptest.NewServer(router.SetupRouter(ctx, cfg, router.Deps{Sessions: sessions, Artifacts: artifacts, Signal: ctl}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := (&http.Client{Jar: jar}).Get(srv.URL + "/api/session")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	d := websocket.Dialer{Jar: jar, HandshakeTimeout: time.Second}
	ws, _, err := d.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ws.Close() })
	return &wsEnv{t: t, ws: ws, artifacts: artifacts, sessions: sessions}
}

func (e *wsEnv) send(v any) {
	e.t.Helper()
	if err := e.ws.WriteJSON(v); err != nil {
		e.t.Fatal(err)
	}
}

// next reads messages until one satisfies match.
func (e *wsEnv) next(match func(serverMsg) bool) serverMsg {
	e.t.Helper()
	_ = e.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var m serverMsg
		if err := e.ws.ReadJSON(&m); err != nil {
			e.t.Fatalf("read: %v", err)
		}
		if match(m) {
			return m
		}
	}
}

func (e *wsEnv) nextError() string {
	return e.next(func(m serverMsg) bool { return m.Type == "error" }).Error
}

func TestSignalRecordingFlow(t *testing.T) {
	is := is.New(t)
	e := dial(t, nil)

	first := e.next(func(m serverMsg) bool { return m.Type == "state" })
	is.True(first.State.DeviceReady)
	is.Equal(e.sessions.Len(), 1)

	e.send(map[string]any{"type": "add_member", "name": "Alice", "role": "QA", "time_limit": 60})
	e.send(map[string]any{"type": "build_queue"})
	st := e.next(func(m serverMsg) bool { return m.Type == "state" && len(m.State.Queue) == 1 }).State
	id := st.Queue[0].Member.ID
	is.Equal(st.Queue[0].Member.TimeLimit, 60)

	e.send(map[string]any{"type": "start", "member_id": id})
	is.Equal(e.nextError(), "device_unavailable") // microphone not reported yet

	e.send(map[string]any{"type": "capture", "state": "denied"})
	e.send(map[string]any{"type": "start", "member_id": id})
	is.Equal(e.nextError(), "permission_denied")

	e.send(map[string]any{"type": "capture", "state": "granted", "mime": "audio/webm;codecs=opus"})
	e.send(map[string]any{"type": "start", "member_id": id})
	st = e.next(func(m serverMsg) bool { return m.Type == "state" && m.State.Recording }).State
	is.Equal(st.Speaker.ID, id)

	is.NoErr(e.ws.WriteMessage(websocket.BinaryMessage, []byte("chunk-1")))
	is.NoErr(e.ws.WriteMessage(websocket.BinaryMessage, []byte("chunk-2")))
	e.send(map[string]any{"type": "stop"})
	st = e.next(func(m serverMsg) bool { return m.Type == "state" && !m.State.Recording }).State
	rec := st.Queue[0].Recording
	is.True(rec != nil)
	is.Equal(rec.Size, int64(len("chunk-1chunk-2")))
	is.Equal(rec.MimeType, "audio/webm;codecs=opus")

	clip, ok := e.artifacts.Get(strings.TrimPrefix(rec.URL, app.ArtifactPrefix))
	is.True(ok)
	is.Equal(string(clip.Data), "chunk-1chunk-2")
}

func TestSignalIntentErrors(t *testing.T) {
	is := is.New(t)
	e := dial(t, nil)

	e.send(map[string]any{"type": "ping"})
	is.Equal(e.next(func(m serverMsg) bool { return m.Type == "pong" }).Type, "pong")

	e.send(map[string]any{"type": "warp"})
	is.Equal(e.nextError(), "unknown_type")

	is.NoErr(e.ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	is.Equal(e.nextError(), "bad_payload")

	e.send(map[string]any{"type": "add_member", "name": "Bob", "role": "Boss"})
	is.Equal(e.nextError(), "unknown_role")

	e.send(map[string]any{"type": "remove_member", "id": "ghost"})
	is.Equal(e.nextError(), "member_not_found")

	e.send(map[string]any{"type": "load_preset", "id": "ghost"})
	is.Equal(e.nextError(), "preset_not_found")

	e.send(map[string]any{"type": "capture", "state": "maybe"})
	is.Equal(e.nextError(), "bad_payload")
}

func TestSignalPresets(t *testing.T) {
	is := is.New(t)
	e := dial(t, nil)

	e.send(map[string]any{"type": "add_member", "name": "Alice"})
	e.send(map[string]any{"type": "save_preset", "name": "TeamA"})
	st := e.next(func(m serverMsg) bool { return m.Type == "state" && len(m.State.Presets) == 1 }).State
	is.Equal(st.Presets[0].Name, "TeamA")

	e.send(map[string]any{"type": "add_member", "name": "Bob"})
	e.next(func(m serverMsg) bool { return m.Type == "state" && len(m.State.Members) == 2 })

	e.send(map[string]any{"type": "load_preset", "id": st.Presets[0].ID})
	st = e.next(func(m serverMsg) bool { return m.Type == "state" && len(m.State.Members) == 1 }).State
	is.Equal(st.Members[0].Name, "Alice")
}

func TestSignalRateLimit(t *testing.T) {
	is := is.New(t)
	e := dial(t, signal.NewIntentRateLimiter(clock.NewMock(), 1, time.Minute))

	e.send(map[string]any{"type": "shuffle"})
	e.send(map[string]any{"type": "rotate"})
	is.Equal(e.nextError(), "rate_limited")

	e.send(map[string]any{"type": "ping"}) // not limited
	is.Equal(e.next(func(m serverMsg) bool { return m.Type == "pong" }).Type, "pong")
}

func TestSignalDisconnectDetachesDevice(t *testing.T) {
	is := is.New(t)
	e := dial(t, nil)
	st := e.next(func(m serverMsg) bool { return m.Type == "state" }).State
	s, ok := e.sessions.Get(app.ClientID(st.Session))
	is.True(ok)
	is.True(s.View().DeviceReady)

	is.NoErr(e.ws.Close())
	deadline := time.Now().Add(2 * time.Second)
	for s.View().DeviceReady {
		if time.Now().After(deadline) {
			t.Fatal("device still attached after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSignalDisconnectMidTurnAbortsCapture(t *testing.T) {
	is := is.New(t)
	e := dial(t, nil)

	e.send(map[string]any{"type": "capture", "state": "granted"})
	e.send(map[string]any{"type": "add_member", "name": "Alice"})
	e.send(map[string]any{"type": "build_queue"})
	st := e.next(func(m serverMsg) bool { return m.Type == "state" && len(m.State.Queue) == 1 }).State
	e.send(map[string]any{"type": "start", "member_id": st.Queue[0].Member.ID})
	st = e.next(func(m serverMsg) bool { return m.Type == "state" && m.State.Recording }).State
	s, ok := e.sessions.Get(app.ClientID(st.Session))
	is.True(ok)

	is.NoErr(e.ws.Close())
	deadline := time.Now().Add(2 * time.Second)
	for s.View().Recording {
		if time.Now().After(deadline) {
			t.Fatal("capture still running after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
	v := s.View()
	is.True(v.Speaker == nil)
	is.True(v.Queue[0].Recording == nil) // nothing stored for the cut turn
}

func TestSignalOfferIsAnswered(t *testing.T) {
	is := is.New(t)
	api, err := rtc.NewAPI()
	is.NoErr(err)
	e := dialWith(t, nil, api)

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	is.NoErr(err)
	t.Cleanup(func() { _ = pc.Close() })
	mic, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "standup")
	is.NoErr(err)
	_, err = pc.AddTrack(mic)
	is.NoErr(err)

	offer, err := pc.CreateOffer(nil)
	is.NoErr(err)
	gathered := webrtc.GatheringCompletePromise(pc)
	is.NoErr(pc.SetLocalDescription(offer))
	<-gathered

	e.send(map[string]any{"type": "offer", "sdp": pc.LocalDescription().SDP})
	answer := e.next(func(m serverMsg) bool { return m.Type == "answer" || m.Type == "error" })
	is.Equal(answer.Type, "answer")
	is.NoErr(pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer.SDP}))
}
